package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/beanguard/internal/config"
	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
	"github.com/Sentinel-Gate/beanguard/internal/service"
)

var (
	auditKind     string
	auditBeanType string
	auditOutcome  string
	auditSince    time.Duration
	auditLimit    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Print the most recent audit records, newest first, as JSON lines.

Only file:// and sqlite:// outputs keep records between runs; a file://
trail answers from its most recent file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if cfg.Audit.Output == config.OutputStdout {
			return fmt.Errorf("audit output %q cannot be queried", cfg.Audit.Output)
		}

		// Only the audit interceptor is needed to open the store.
		cfg.Interceptors = []config.InterceptorConfig{{Name: config.InterceptorAudit}}
		svc, err := service.NewValidationService(cmd.Context(), cfg, service.ValidationDeps{Logger: logger})
		if err != nil {
			return err
		}
		defer func() { _ = svc.Close() }()

		filter := audit.Filter{
			Kind:     auditKind,
			BeanType: auditBeanType,
			Outcome:  auditOutcome,
			Limit:    auditLimit,
		}
		if auditSince > 0 {
			filter.StartTime = time.Now().UTC().Add(-auditSince)
		}
		records, err := svc.QueryAudit(cmd.Context(), filter)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditKind, "kind", "", "only records of this entry point, e.g. validate_parameters")
	auditCmd.Flags().StringVar(&auditBeanType, "bean-type", "", "only records of this bean type, e.g. report.CashIncome")
	auditCmd.Flags().StringVar(&auditOutcome, "outcome", "", "only records with this outcome: valid, invalid or error")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "only records newer than this duration")
	auditCmd.Flags().IntVar(&auditLimit, "limit", audit.DefaultQueryLimit, "maximum number of records")
	rootCmd.AddCommand(auditCmd)
}
