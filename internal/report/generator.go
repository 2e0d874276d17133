package report

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
)

//go:embed templates/report.html.tmpl
var reportHTMLTemplate string

const (
	maxMatchDisplayLength       = 40
	truncatedMatchSegmentLength = 8
)

// ---------- Public API ----------

func LoadReport(path string) (*schema.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	rep := schema.NewReport()
	if err := json.Unmarshal(data, rep); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return rep, nil
}

// GenerateHTML renders rep into outDir/report.html. source names the report in the page title.
func GenerateHTML(rep *schema.Report, source, outDir string) (string, error) {
	vm := buildViewModel(rep, source, time.Now().UTC())

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create out dir: %w", err)
	}

	tmpl, err := template.New("report").Parse(reportHTMLTemplate)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vm); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	htmlPath := filepath.Join(outDir, "report.html")
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report.html: %w", err)
	}

	return htmlPath, nil
}

// GeneratePDF prints the HTML report to PDF with a headless Chrome next to it
func GeneratePDF(ctx context.Context, htmlPath string) (string, error) {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", htmlPath, err)
	}

	cctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(cctx,
		chromedp.Navigate(fileURL(abs)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}

	pdfPath := strings.TrimSuffix(htmlPath, filepath.Ext(htmlPath)) + ".pdf"
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", pdfPath, err)
	}
	return pdfPath, nil
}

func fileURL(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// ---------- View Model & helpers ----------

type viewModel struct {
	Source        string
	Status        string
	TotalFindings int
	Counts        map[string]int
	Score         int
	Grade         string
	Findings      []findingRow
	TotalSeconds  float64
	Generator     string
	GeneratedAt   string
	Legend        []string
	Year          int
}

type findingRow struct {
	Type  string
	Kind  string
	Rule  string
	Path  string
	Line  int
	Match string
}

var (
	typeOrder  = []string{"BLOCKING", "NON-BLOCKING"}
	typeWeight = map[string]int{"BLOCKING": 4, "NON-BLOCKING": 1}
)

func buildViewModel(rep *schema.Report, source string, now time.Time) viewModel {
	counts := map[string]int{}
	var rows []findingRow

	add := func(kind string, results []schema.RuleResult) {
		for _, rr := range results {
			for _, f := range rr.Findings {
				typ := strings.ToUpper(string(f.Type))
				counts[typ]++
				rows = append(rows, findingRow{
					Type:  typ,
					Kind:  kind,
					Rule:  rr.Rule,
					Path:  f.Path,
					Line:  f.Line,
					Match: truncateMatch(f.Match),
				})
			}
		}
	}
	add("content", rep.Code)
	add("path", rep.File)

	// Sort findings: type -> path -> line
	sort.SliceStable(rows, func(i, j int) bool {
		ai, bi := indexOf(typeOrder, rows[i].Type), indexOf(typeOrder, rows[j].Type)
		if ai != bi {
			return ai < bi
		}
		if rows[i].Path != rows[j].Path {
			return rows[i].Path < rows[j].Path
		}
		return rows[i].Line < rows[j].Line
	})

	total := 0
	weighted := 0
	for typ, c := range counts {
		total += c
		weighted += typeWeight[typ] * c
	}
	score := 100
	if total > 0 {
		// Blocking findings cost four times what non-blocking ones do
		penalty := min(100, (weighted*100)/(total*4))
		score = 100 - penalty
	}

	status := "PASS"
	if rep.Failed() {
		status = "FAIL"
	}

	return viewModel{
		Source:        emptyFallback(source, "scan"),
		Status:        status,
		TotalFindings: total,
		Counts:        normalizeCounts(counts, typeOrder),
		Score:         score,
		Grade:         scoreToGrade(score),
		Findings:      rows,
		TotalSeconds:  rep.Summary.ExecutionTime.Total,
		Generator:     "catchit",
		GeneratedAt:   now.Format(time.RFC3339),
		Legend:        typeOrder,
		Year:          now.Year(),
	}
}

func indexOf(arr []string, s string) int {
	for i, v := range arr {
		if v == s {
			return i
		}
	}
	return len(arr)
}

func scoreToGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func normalizeCounts(in map[string]int, order []string) map[string]int {
	out := make(map[string]int, len(order))
	for _, k := range order {
		out[k] = in[k]
	}
	return out
}

// truncateMatch keeps a short prefix and suffix of long matches so the report
// does not republish the whole secret
func truncateMatch(match string) string {
	if len(match) > maxMatchDisplayLength {
		return match[:truncatedMatchSegmentLength] + "..." + match[len(match)-truncatedMatchSegmentLength:]
	}
	return match
}

func emptyFallback(s, fb string) string {
	if strings.TrimSpace(s) == "" {
		return fb
	}
	return s
}
