package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	reportpkg "github.com/yorozuya-cybersecurity/catchit/internal/report"
)

func newReportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Generate HTML/PDF report from a JSON scan report",
		Example: "catchit report --from ./catchit.json --format html,pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, v)
		},
	}

	cmd.Flags().String("from", "", "JSON report written by `catchit scan`")
	cmd.Flags().String("format", "html", "Output formats: html,pdf")
	cmd.Flags().String("out", "", "Output directory (default: directory of --from)")

	_ = v.BindPFlag("report.from", cmd.Flags().Lookup("from"))
	_ = v.BindPFlag("report.format", cmd.Flags().Lookup("format"))
	_ = v.BindPFlag("report.out", cmd.Flags().Lookup("out"))
	return cmd
}

func runReport(cmd *cobra.Command, v *viper.Viper) error {
	from := v.GetString("report.from")
	if from == "" {
		return errors.New("please provide --from pointing to a JSON report")
	}
	out := v.GetString("report.out")
	if out == "" {
		out = filepath.Dir(from)
	}

	formats := strings.Split(v.GetString("report.format"), ",")
	for i := range formats {
		formats[i] = strings.TrimSpace(strings.ToLower(formats[i]))
	}
	for _, f := range formats {
		if f != "html" && f != "pdf" {
			return fmt.Errorf("unknown report format %q (want html or pdf)", f)
		}
	}

	// Load scan report and render HTML
	rep, err := reportpkg.LoadReport(from)
	if err != nil {
		return err
	}
	htmlPath, err := reportpkg.GenerateHTML(rep, filepath.Base(from), out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "📝 HTML report: %s\n", htmlPath)

	// Optional PDF (Chromedp-based)
	if slices.Contains(formats, "pdf") {
		pdfPath, err := reportpkg.GeneratePDF(cmd.Context(), htmlPath)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠️  PDF generation failed: %v\n", err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "📄 PDF report:  %s\n", pdfPath)
		}
	}

	return nil
}
