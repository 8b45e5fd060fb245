package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leozw/ssl-verifier/internal/tabular"
)

var resendTimestamp string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List the reports saved in output.dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := tabular.ListReports(cfg.Output.Dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(summaries) == 0 {
			fmt.Fprintf(out, "No reports found in %s\n", cfg.Output.Dir)
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tEXPIRED\tVALID\tERRORS\tTOTAL")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Timestamp, s.Expired, s.Valid, s.Errored, s.Total())
		}
		return tw.Flush()
	},
}

var resendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Email a saved report again (latest by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		ts := resendTimestamp
		if ts == "" {
			summaries, err := tabular.ListReports(cfg.Output.Dir)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				return fmt.Errorf("%w: no reports in %s", tabular.ErrReportNotFound, cfg.Output.Dir)
			}
			ts = summaries[0].Timestamp
		}

		b, err := tabular.LoadReport(cfg.Output.Dir, ts)
		if err != nil {
			return err
		}
		if err := a.EmailReport(ctx, b, tabular.Files(cfg.Output.Dir, ts)); err != nil {
			return fmt.Errorf("send report: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Report %s sent to %s\n", ts, strings.Join(cfg.SMTP.Recipients(), ", "))
		return nil
	},
}

func init() {
	resendCmd.Flags().StringVarP(&resendTimestamp, "timestamp", "t", "", "Report timestamp (YYYYMMDD_HHMMSS)")
}
