package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leozw/ssl-verifier/internal/checker"
	"github.com/leozw/ssl-verifier/internal/core"
	"github.com/leozw/ssl-verifier/internal/tabular"
)

var verifyEmail bool

// testTimeouts are tried in order until an attempt reads the certificate.
var testTimeouts = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}

var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Verify every domain of a CSV file and save the reports",
	Long:  "Reads a CSV with id and domain columns (default input.path), verifies each domain and writes the expired, valid and error reports to output.dir.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Input.Path
		if len(args) == 1 {
			path = args[0]
		}

		ctx := cmd.Context()
		a, cleanup, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		b, err := a.Processor.ProcessFile(ctx, path)
		if err != nil {
			return err
		}
		persistErr := a.Processor.Persist(ctx, b)

		files := tabular.Files(a.Writer.Dir(), tabular.Timestamp(b.CheckedAt))
		printSummary(cmd.OutOrStdout(), b, files)

		if verifyEmail {
			if err := a.EmailReport(ctx, b, files); err != nil {
				return fmt.Errorf("send report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nReport sent to %s\n", strings.Join(cfg.SMTP.Recipients(), ", "))
		}

		if persistErr != nil {
			return fmt.Errorf("save results: %w", persistErr)
		}
		return nil
	},
}

var testCmd = &cobra.Command{
	Use:   "test <domain>",
	Short: "Verify a single domain with escalating timeouts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()
		record := core.DomainRecord{ID: "test", Domain: args[0]}
		fmt.Fprintf(out, "Original domain:   %s\n", record.Domain)
		fmt.Fprintf(out, "Normalized domain: %s\n\n", checker.NormalizeDomain(record.Domain))

		attempts := a.Verifier.VerifyWithTimeouts(ctx, record, testTimeouts)
		for i, o := range attempts {
			fmt.Fprintf(out, "Attempt %d (timeout %s): %s\n", i+1, testTimeouts[i], o.Status)
			printOutcome(out, o)
		}

		last := attempts[len(attempts)-1]
		if !last.Status.CertificateVerified() && last.Status != core.StatusCertExpired {
			return fmt.Errorf("%s: %s", last.Status, last.Error)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVarP(&verifyEmail, "email", "e", false, "Email the report after verification")
}

func printOutcome(w io.Writer, o core.VerificationOutcome) {
	if o.Error != "" {
		fmt.Fprintf(w, "  Error:       %s\n", o.Error)
	}
	if o.Certificate.CommonName != "" {
		fmt.Fprintf(w, "  Common name: %s\n", o.Certificate.CommonName)
	}
	if o.Certificate.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires at:  %s\n", core.FormatExpiry(o.Certificate.ExpiresAt))
	}
	if o.Certificate.DaysRemaining != nil {
		fmt.Fprintf(w, "  Days left:   %d\n", *o.Certificate.DaysRemaining)
	}
	if o.HTTP.HasError {
		fmt.Fprintf(w, "  HTTP:        %s\n", o.HTTP.ErrorKind)
	}
}

func printSummary(w io.Writer, b *core.BatchResult, files tabular.ReportFiles) {
	healthy, httpErrors := b.SplitValid()

	fmt.Fprintf(w, "Verification finished at %s\n", b.CheckedAt.Format("02/01/2006 15:04:05"))
	fmt.Fprintf(w, "  Total domains:       %d\n", b.Total())
	fmt.Fprintf(w, "  Expired:             %d\n", len(b.Expired))
	fmt.Fprintf(w, "  Valid:               %d\n", len(b.Valid))
	fmt.Fprintf(w, "    with HTTP errors:  %d\n", len(httpErrors))
	fmt.Fprintf(w, "    healthy:           %d\n", len(healthy))
	fmt.Fprintf(w, "  Verification errors: %d\n", len(b.Errored))

	fmt.Fprintln(w, "\nReports:")
	for _, path := range files.All() {
		fmt.Fprintf(w, "  %s\n", path)
	}
}
