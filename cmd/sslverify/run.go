package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/logging"
	"github.com/leozw/ssl-verifier/internal/tabular"
)

var errEmptyInput = errors.New("input file is empty")

// runCmd is the unattended entry point for cron and similar schedulers. It
// succeeds only when both the verification and the email succeed.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Automated verification: check input, verify, save and email the report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()
		logger := a.Logger

		logger.Info("Automated verification started", zap.String("input", cfg.Input.Path))

		removed, err := logging.CleanupOld(cfg.Log.Dir, cfg.Log.Retention, time.Now())
		if err != nil {
			logger.Warn("Failed to clean up old logs", zap.Error(err))
		} else if removed > 0 {
			logger.Info("Old logs removed", zap.Int("count", removed))
		}

		if err := checkInput(cfg.Input.Path); err != nil {
			logger.Error("Input check failed", zap.String("path", cfg.Input.Path), zap.Error(err))
			return err
		}

		b, err := a.Processor.ProcessFile(ctx, cfg.Input.Path)
		if err != nil {
			return err
		}
		var errs []error
		if err := a.Processor.Persist(ctx, b); err != nil {
			errs = append(errs, fmt.Errorf("save results: %w", err))
		}

		files := tabular.Files(a.Writer.Dir(), tabular.Timestamp(b.CheckedAt))
		if err := a.EmailReport(ctx, b, files); err != nil {
			logger.Error("Failed to send report", zap.Error(err))
			errs = append(errs, fmt.Errorf("send report: %w", err))
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}

		logger.Info("Automated verification finished",
			zap.Int("expired", len(b.Expired)),
			zap.Int("valid", len(b.Valid)),
			zap.Int("errored", len(b.Errored)),
		)
		return nil
	},
}

// checkInput fails fast before any network work when the domain list is
// missing, empty or structurally invalid.
func checkInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input file %s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", errEmptyInput, path)
	}
	_, err = tabular.ReadDomains(path)
	return err
}
