package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/catchit/internal/logging"
	"github.com/yorozuya-cybersecurity/catchit/internal/rules"
	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
)

func newRulesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "rules",
		Short:   "List the rules a scan would apply",
		Example: "catchit rules --rules ./my-rules.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(v.GetBool("debug"))
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			set, err := loadRules(v.GetString("rules"), log)
			if err != nil {
				return err
			}
			return printRules(cmd, set)
		},
	}
}

func printRules(cmd *cobra.Command, set *rules.Set) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tNAME\tCONFIDENCE\tENTROPY\tSTATE\tPATTERN")

	row := func(r rules.Rule) {
		state := "active"
		if !r.Active() {
			state = "disabled"
		}
		entropy := "-"
		if r.Category == schema.CategoryCode {
			entropy = fmt.Sprintf("%.2f", r.Entropy)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n", r.Category, r.Name, r.Confidence, entropy, state, r.Pattern)
	}
	for _, r := range set.Content {
		row(r)
	}
	for _, r := range set.Path {
		row(r)
	}
	return tw.Flush()
}
