package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	filePrefix      = "sslverify_"
	fileExt         = ".log"
	timestampLayout = "20060102_150405"

	DefaultRetention = 30 * 24 * time.Hour
)

type Options struct {
	// Level is a zap level name. Empty means info.
	Level string
	// Dir enables the per-run JSON log file when set.
	Dir string
	// Console disables the stderr core when false.
	Console bool
}

// New builds the process logger. It returns the path of the run log file,
// empty when no directory is configured.
func New(opts Options, now time.Time) (*zap.Logger, string, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, "", fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var cores []zapcore.Core
	if opts.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	var path string
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("create log dir: %w", err)
		}
		path = filepath.Join(opts.Dir, FileName(now))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, "", fmt.Errorf("open log file: %w", err)
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(f),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), "", nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), path, nil
}

// FileName is the run log name for a run started at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timestampLayout) + fileExt
}

// CleanupOld removes run logs in dir whose file name timestamp is older than
// maxAge. Files that do not follow the naming scheme are left alone.
func CleanupOld(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileExt))
	if err != nil {
		return 0, err
	}

	limit := now.Add(-maxAge)
	removed := 0
	for _, path := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), filePrefix), fileExt)
		created, err := time.ParseInLocation(timestampLayout, stamp, now.Location())
		if err != nil {
			continue
		}
		if created.Before(limit) {
			if err := os.Remove(path); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
