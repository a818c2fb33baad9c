package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var interceptorsCmd = &cobra.Command{
	Use:   "interceptors",
	Short: "Print the configured interceptor chain",
	Long: `Print the interceptors in dispatch order, with the predicate that limits
each one, and the hook failure policy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "failure policy: %s\n", cfg.Hooks.FailurePolicy)
		if len(cfg.Interceptors) == 0 {
			fmt.Fprintln(w, "no interceptors configured")
			return nil
		}
		for i, ic := range cfg.Interceptors {
			if ic.When == "" {
				fmt.Fprintf(w, "%d. %s\n", i+1, ic.Name)
				continue
			}
			fmt.Fprintf(w, "%d. %s when %s\n", i+1, ic.Name, ic.When)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(interceptorsCmd)
}
