package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
)

// BatchVerifier runs and persists a verification pass. batch.Processor
// satisfies it.
type BatchVerifier interface {
	Process(ctx context.Context, records []core.DomainRecord) *core.BatchResult
	Persist(ctx context.Context, b *core.BatchResult) error
}

// ReportSource returns the most recent batch. Errors wrapping
// core.ErrNoReport mean nothing was stored yet.
type ReportSource interface {
	Last(ctx context.Context) (*core.BatchResult, error)
}

type Handler struct {
	verifier BatchVerifier
	reports  ReportSource
	logger   *zap.Logger
}

func NewHandler(verifier BatchVerifier, reports ReportSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		verifier: verifier,
		reports:  reports,
		logger:   logger,
	}
}
