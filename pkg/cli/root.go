package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version = "0.0.1"
	rootCmd *cobra.Command

	// processStart anchors the report's total execution time
	processStart = time.Now()
)

// ErrBlockingFindings is returned by a scan that found at least one blocking secret
var ErrBlockingFindings = errors.New("blocking findings detected")

const (
	exitBlocking = 1
	exitError    = 2
)

func init() {
	rootCmd = newRootCmd(viper.GetViper())
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catchit",
		Short: "Find committed secrets before they ship",
		Long: "catchit scans a source tree for hard-coded credentials and key files.\n" +
			"It prints a JSON report and exits 1 when a blocking finding is present, so it can gate commits and CI.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfig(v)
		},
	}

	// Global flags
	cmd.PersistentFlags().String("config", "", "Config file (yaml, json or toml) providing flag defaults")
	cmd.PersistentFlags().String("rules", "", "Rule file (json or yaml); defaults to the built-in rules")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	_ = v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("rules", cmd.PersistentFlags().Lookup("rules"))
	_ = v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	// Environment variable support (CATCHIT_SCAN_PATH, etc.)
	v.SetEnvPrefix("CATCHIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Subcommands
	scan := newScanCmd(v)
	cmd.AddCommand(scan)
	cmd.AddCommand(newReportCmd(v))
	cmd.AddCommand(newRulesCmd(v))
	cmd.AddCommand(newVersionCmd())

	// A bare `catchit --scan-path dir` runs a scan
	cmd.Flags().AddFlagSet(scan.Flags())
	cmd.RunE = scan.RunE

	return cmd
}

func readConfig(v *viper.Viper) error {
	file := v.GetString("config")
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrBlockingFindings):
		return exitBlocking
	default:
		return exitError
	}
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, ErrBlockingFindings) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
