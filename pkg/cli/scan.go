package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/catchit/internal/logging"
	"github.com/yorozuya-cybersecurity/catchit/internal/report"
	"github.com/yorozuya-cybersecurity/catchit/internal/rules"
	"github.com/yorozuya-cybersecurity/catchit/internal/scanners"
	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
	"github.com/yorozuya-cybersecurity/catchit/internal/search"
	"github.com/yorozuya-cybersecurity/catchit/pkg/utils"
)

func newScanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Scan a directory for secrets and key files",
		Example: "catchit scan --scan-path ./repo --format sarif --output catchit.sarif",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, v)
		},
	}

	cmd.Flags().String("scan-path", "", "Directory to scan (default: current directory)")
	cmd.Flags().String("bash-path", "", "Shell used to run the search scripts (default: bash, or Git Bash on Windows)")
	cmd.Flags().String("engine", "shell", "Search backend: shell (grep/find through bash) or native")
	cmd.Flags().Duration("timeout", scanners.DefaultTimeout, "Time limit for each rule's search")
	cmd.Flags().Int("workers", 0, "Rules evaluated concurrently (default: number of CPUs)")
	cmd.Flags().String("format", "json", "Report format: json or sarif")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringSlice("allow", nil, "Glob of matches or paths to ignore, e.g. '*EXAMPLE*' (repeatable)")
	cmd.Flags().StringSlice("exclude", nil, "Extra gitignore-style paths to skip in content search (repeatable)")

	for _, name := range []string{"scan-path", "bash-path", "engine", "timeout", "workers", "format", "output", "allow", "exclude"} {
		_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
	}

	return cmd
}

type scanOptions struct {
	root       string
	bashPath   string
	rulesFile  string
	engine     string
	format     string
	output     string
	allow      []string
	exclusions []string
	cfg        scanners.Config
}

func loadScanOptions(v *viper.Viper) (scanOptions, error) {
	opts := scanOptions{
		root:      v.GetString("scan-path"),
		bashPath:  v.GetString("bash-path"),
		rulesFile: v.GetString("rules"),
		engine:    strings.ToLower(v.GetString("engine")),
		format:    strings.ToLower(v.GetString("format")),
		output:    v.GetString("output"),
		allow:     v.GetStringSlice("allow"),
	}

	if opts.root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return opts, fmt.Errorf("resolve working directory: %w", err)
		}
		opts.root = wd
	}
	if opts.bashPath == "" {
		opts.bashPath = search.DefaultBashPath(runtime.GOOS)
	}
	switch opts.engine {
	case "shell", "native":
	default:
		return opts, fmt.Errorf("unknown engine %q (want shell or native)", opts.engine)
	}
	switch opts.format {
	case "json", "sarif":
	default:
		return opts, fmt.Errorf("unknown format %q (want json or sarif)", opts.format)
	}

	allow, err := scanners.NewAllowlist(opts.allow)
	if err != nil {
		return opts, err
	}

	opts.exclusions = append(search.DefaultExclusions(), v.GetStringSlice("exclude")...)
	opts.cfg = scanners.Config{
		Platform:   search.HostPlatform(),
		Exclusions: opts.exclusions,
		Timeout:    v.GetDuration("timeout"),
		Workers:    v.GetInt("workers"),
		Allow:      allow,
	}
	return opts, nil
}

func runScan(cmd *cobra.Command, v *viper.Viper) error {
	log, err := logging.New(v.GetBool("debug"))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log.Desugar())

	opts, err := loadScanOptions(v)
	if err != nil {
		return err
	}

	set, err := loadRules(opts.rulesFile, log)
	if err != nil {
		return err
	}
	if opts.engine == "native" {
		for rule, err := range set.Validate() {
			log.Warnw("rule pattern is not valid RE2 and will be skipped", "rule", rule, "error", err)
		}
	}

	var searcher search.Searcher = search.NewShell(opts.bashPath, log)
	if opts.engine == "native" {
		searcher = search.NewNative(log)
	}

	log.Infow("starting catchit", "version", Version, "root", opts.root, "engine", opts.engine)
	rep := scanners.NewRunner(set, searcher, opts.cfg, processStart, log).Run(cmd.Context(), opts.root)

	if err := writeReport(cmd, opts, rep); err != nil {
		return err
	}

	if rep.Failed() {
		log.Warnw("blocking findings detected", "blocking_code", rep.Summary.Findings.BlockingCode, "blocking_file", rep.Summary.Findings.BlockingFile)
		return ErrBlockingFindings
	}
	return nil
}

func loadRules(file string, log *zap.SugaredLogger) (*rules.Set, error) {
	if file == "" {
		return rules.Default(log)
	}
	set, err := rules.Load(file, log)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return set, nil
}

func writeReport(cmd *cobra.Command, opts scanOptions, rep *schema.Report) error {
	w, closeOut, err := utils.OpenOutput(opts.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	switch opts.format {
	case "sarif":
		err = report.WriteSARIF(w, rep, Version)
	default:
		err = utils.WriteJSON(w, rep)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}
