package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/leozw/ssl-verifier/internal/checker"
	"github.com/leozw/ssl-verifier/internal/core"
	"github.com/leozw/ssl-verifier/internal/tabular"
)

// Verifier checks a single domain record. Implementations report failures
// through the outcome status.
type Verifier interface {
	Verify(ctx context.Context, record core.DomainRecord) core.VerificationOutcome
}

// Sink persists a finished batch.
type Sink interface {
	Save(ctx context.Context, b *core.BatchResult) error
}

// Recorder receives per-domain and per-batch observations.
type Recorder interface {
	RecordOutcome(outcome core.VerificationOutcome, duration time.Duration)
	RecordBatch(b *core.BatchResult)
}

type Processor struct {
	verifier Verifier
	workers  int
	limiter  *rate.Limiter
	sinks    []Sink
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Processor)

// WithWorkers bounds the number of domains verified concurrently.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRateLimit caps verifications per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(p *Processor) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithSinks(sinks ...Sink) Option {
	return func(p *Processor) { p.sinks = append(p.sinks, sinks...) }
}

func WithMetrics(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(verifier Verifier, logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		verifier: verifier,
		workers:  1,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile reads the domain list at path and verifies it. Structural
// input errors abort the batch with no partial result.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*core.BatchResult, error) {
	records, err := tabular.ReadDomains(path)
	if err != nil {
		p.logger.Error("Failed to read domain list", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	p.logger.Info("Domain list loaded", zap.String("path", path), zap.Int("domains", len(records)))
	return p.Process(ctx, records), nil
}

// Process verifies every record and partitions the outcomes. Bucket order
// follows input order regardless of the worker count.
func (p *Processor) Process(ctx context.Context, records []core.DomainRecord) *core.BatchResult {
	start := p.now()
	p.logger.Info("Starting verification",
		zap.Int("domains", len(records)),
		zap.Int("workers", p.workers),
	)

	outcomes := make([]core.VerificationOutcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, record := range records {
		if gctx.Err() != nil {
			outcomes[i] = p.cancelled(record, gctx.Err())
			continue
		}
		g.Go(func() error {
			outcomes[i] = p.verifyOne(gctx, i, len(records), record)
			return nil
		})
	}
	_ = g.Wait()

	result := core.NewBatchResult(start)
	for _, o := range outcomes {
		result.Add(o)
	}

	if p.recorder != nil {
		p.recorder.RecordBatch(result)
	}

	p.logger.Info("Verification finished",
		zap.Int("expired", len(result.Expired)),
		zap.Int("valid", len(result.Valid)),
		zap.Int("errored", len(result.Errored)),
		zap.Duration("duration", p.now().Sub(start)),
	)
	return result
}

// Persist hands the batch to every configured sink. A failing sink does not
// stop the others.
func (p *Processor) Persist(ctx context.Context, b *core.BatchResult) error {
	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Save(ctx, b); err != nil {
			p.logger.Error("Failed to persist batch",
				zap.String("sink", fmt.Sprintf("%T", sink)),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Processor) verifyOne(ctx context.Context, i, total int, record core.DomainRecord) (outcome core.VerificationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Verification panicked",
				zap.String("id", record.ID),
				zap.Any("panic", r),
			)
			outcome = core.VerificationOutcome{
				Record:    record,
				Domain:    checker.NormalizeDomain(record.Domain),
				Status:    core.StatusUnexpectedError,
				Error:     fmt.Sprintf("unexpected error: %v", r),
				CheckedAt: p.now().UTC(),
			}
		}
	}()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.cancelled(record, err)
		}
	}

	started := time.Now()
	outcome = p.verifier.Verify(ctx, record)
	elapsed := time.Since(started)

	if p.recorder != nil {
		p.recorder.RecordOutcome(outcome, elapsed)
	}

	p.logger.Info("Domain verified",
		zap.Int("position", i+1),
		zap.Int("total", total),
		zap.String("id", record.ID),
		zap.String("domain", outcome.Domain),
		zap.String("status", string(outcome.Status)),
		zap.Duration("duration", elapsed),
	)
	return outcome
}

func (p *Processor) cancelled(record core.DomainRecord, err error) core.VerificationOutcome {
	return core.VerificationOutcome{
		Record:    record,
		Domain:    checker.NormalizeDomain(record.Domain),
		Status:    core.StatusUnexpectedError,
		Error:     fmt.Sprintf("unexpected error: %v", err),
		CheckedAt: p.now().UTC(),
	}
}
