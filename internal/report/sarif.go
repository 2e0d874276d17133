package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type SarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []SarifRun `json:"runs"`
}

type SarifRun struct {
	Tool    SarifTool     `json:"tool"`
	Results []SarifResult `json:"results"`
}

type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

type SarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []SarifRule `json:"rules,omitempty"`
}

type SarifRule struct {
	ID               string       `json:"id"`
	ShortDescription SarifMessage `json:"shortDescription"`
}

type SarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"` // error, warning
	Message   SarifMessage    `json:"message"`
	Locations []SarifLocation `json:"locations"`
}

type SarifMessage struct {
	Text string `json:"text"`
}

type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
	Region           SarifRegion           `json:"region"`
}

type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

type SarifRegion struct {
	StartLine int `json:"startLine"`
}

// BuildSARIF maps every finding to a SARIF result. Blocking findings are
// errors, the rest warnings. Rule ids are prefixed with their kind because a
// content rule and a path rule may share a name.
func BuildSARIF(rep *schema.Report, toolVersion string) SarifLog {
	var (
		rules   []SarifRule
		results = []SarifResult{}
	)

	add := func(kind string, rrs []schema.RuleResult) {
		for _, rr := range rrs {
			id := kind + "/" + rr.Rule
			rules = append(rules, SarifRule{
				ID:               id,
				ShortDescription: SarifMessage{Text: fmt.Sprintf("%s rule %s: %s", kind, rr.Rule, rr.Pattern)},
			})
			for _, f := range rr.Findings {
				results = append(results, sarifResult(id, kind, f))
			}
		}
	}
	add("content", rep.Code)
	add("path", rep.File)

	return SarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []SarifRun{{
			Tool:    SarifTool{Driver: SarifDriver{Name: "catchit", Version: toolVersion, Rules: rules}},
			Results: results,
		}},
	}
}

func sarifResult(ruleID, kind string, f schema.Finding) SarifResult {
	level := "warning"
	if f.Blocking() {
		level = "error"
	}
	start := f.Line
	if start <= 0 {
		start = 1
	}
	uri := filepath.ToSlash(f.Path)
	if strings.TrimSpace(uri) == "" {
		uri = "UNKNOWN"
	}

	text := fmt.Sprintf("Possible secret (%s) in %s", f.Type, uri)
	if kind == "path" {
		text = fmt.Sprintf("Sensitive file (%s): %s", f.Type, uri)
	}

	return SarifResult{
		RuleID:  ruleID,
		Level:   level,
		Message: SarifMessage{Text: text},
		Locations: []SarifLocation{{
			PhysicalLocation: SarifPhysicalLocation{
				ArtifactLocation: SarifArtifactLocation{URI: uri},
				Region:           SarifRegion{StartLine: start},
			},
		}},
	}
}

func WriteSARIF(w io.Writer, rep *schema.Report, toolVersion string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BuildSARIF(rep, toolVersion)); err != nil {
		return fmt.Errorf("encode sarif: %w", err)
	}
	return nil
}
