// Command sslverify checks the TLS certificates of a list of domains, saves
// the results as CSV reports and optionally emails a summary.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/app"
	"github.com/leozw/ssl-verifier/internal/config"
	"github.com/leozw/ssl-verifier/internal/logging"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "sslverify",
	Short:        "Verify SSL certificates of a list of domains",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default config.yaml in . or ./config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")

	rootCmd.AddCommand(verifyCmd, runCmd, testCmd, resendCmd, reportsCmd, credentialsCmd, serveCmd)
}

// setup builds the logger and the application. With fileLog the run also
// writes a JSON log under log.dir.
func setup(ctx context.Context, fileLog bool) (*app.App, func(), error) {
	opts := logging.Options{Level: cfg.Log.Level, Console: true}
	if fileLog {
		opts.Dir = cfg.Log.Dir
	}
	logger, logPath, err := logging.New(opts, time.Now())
	if err != nil {
		return nil, nil, err
	}
	if logPath != "" {
		logger.Info("Logging to file", zap.String("path", logPath))
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close storage", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return a, cleanup, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
