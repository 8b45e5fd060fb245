package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
)

const (
	bucketExpired = "expired"
	bucketValid   = "valid"
	bucketErrored = "errored"
)

var ErrNoRuns = fmt.Errorf("no verification runs stored: %w", core.ErrNoReport)

func NewConnection(databaseURL string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Store persists verification runs. It implements batch.Sink.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewStore(db *sqlx.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

type runRecord struct {
	ID        uuid.UUID `db:"id"`
	CheckedAt time.Time `db:"checked_at"`
	Expired   int       `db:"expired"`
	Valid     int       `db:"valid"`
	Errored   int       `db:"errored"`
}

type resultRecord struct {
	RunID          uuid.UUID  `db:"run_id"`
	Position       int        `db:"position"`
	Bucket         string     `db:"bucket"`
	RecordID       string     `db:"record_id"`
	OriginalDomain string     `db:"original_domain"`
	Domain         string     `db:"domain"`
	CommonName     string     `db:"common_name"`
	ExpiresAt      *time.Time `db:"expires_at"`
	DaysRemaining  *int       `db:"days_remaining"`
	HTTPError      string     `db:"http_error"`
	Status         string     `db:"status"`
	Error          string     `db:"error"`
}

func (s *Store) Save(ctx context.Context, b *core.BatchResult) error {
	run := runRecord{
		ID:        uuid.New(),
		CheckedAt: b.CheckedAt,
		Expired:   len(b.Expired),
		Valid:     len(b.Valid),
		Errored:   len(b.Errored),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO verification_runs (id, checked_at, expired, valid, errored)
        VALUES (:id, :checked_at, :expired, :valid, :errored)`, run)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range toRecords(run.ID, b) {
		_, err := tx.NamedExecContext(ctx, `
            INSERT INTO verification_results (
                run_id, position, bucket, record_id, original_domain, domain,
                common_name, expires_at, days_remaining, http_error, status, error
            ) VALUES (
                :run_id, :position, :bucket, :record_id, :original_domain, :domain,
                :common_name, :expires_at, :days_remaining, :http_error, :status, :error
            )`, rec)
		if err != nil {
			return fmt.Errorf("insert result %s/%d: %w", rec.Bucket, rec.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	s.logger.Info("Verification run stored",
		zap.String("run_id", run.ID.String()),
		zap.Int("domains", b.Total()),
	)
	return nil
}

// Latest loads the most recent run, or ErrNoRuns.
func (s *Store) Latest(ctx context.Context) (*core.BatchResult, error) {
	var run runRecord
	err := s.db.GetContext(ctx, &run, `
        SELECT id, checked_at, expired, valid, errored
        FROM verification_runs
        ORDER BY checked_at DESC, created_at DESC
        LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}

	var records []resultRecord
	err = s.db.SelectContext(ctx, &records, `
        SELECT run_id, position, bucket, record_id, original_domain, domain,
               common_name, expires_at, days_remaining, http_error, status, error
        FROM verification_results
        WHERE run_id = $1
        ORDER BY bucket, position`, run.ID)
	if err != nil {
		return nil, err
	}

	return fromRecords(run.CheckedAt, records), nil
}

// Last is Latest under the name the API report sources share.
func (s *Store) Last(ctx context.Context) (*core.BatchResult, error) {
	return s.Latest(ctx)
}

// toRecords flattens the buckets. Position is the index within the bucket.
func toRecords(runID uuid.UUID, b *core.BatchResult) []resultRecord {
	out := make([]resultRecord, 0, b.Total())
	add := func(bucket string, rows []core.ResultRow) {
		for i, row := range rows {
			days := row.DaysRemaining
			out = append(out, resultRecord{
				RunID:          runID,
				Position:       i,
				Bucket:         bucket,
				RecordID:       row.ID,
				OriginalDomain: row.OriginalDomain,
				Domain:         row.Domain,
				CommonName:     row.CommonName,
				ExpiresAt:      row.ExpiresAt,
				DaysRemaining:  &days,
				HTTPError:      row.HTTPError,
			})
		}
	}
	add(bucketExpired, b.Expired)
	add(bucketValid, b.Valid)

	for i, row := range b.Errored {
		out = append(out, resultRecord{
			RunID:          runID,
			Position:       i,
			Bucket:         bucketErrored,
			RecordID:       row.ID,
			OriginalDomain: row.OriginalDomain,
			Domain:         row.Domain,
			Status:         string(row.Status),
			Error:          row.Error,
		})
	}
	return out
}

func fromRecords(checkedAt time.Time, records []resultRecord) *core.BatchResult {
	b := core.NewBatchResult(checkedAt)
	for _, rec := range records {
		switch rec.Bucket {
		case bucketErrored:
			b.Errored = append(b.Errored, core.ErrorRow{
				ID:             rec.RecordID,
				OriginalDomain: rec.OriginalDomain,
				Domain:         rec.Domain,
				Status:         core.ProbeStatus(rec.Status),
				Error:          rec.Error,
			})
		case bucketExpired, bucketValid:
			row := core.ResultRow{
				ID:             rec.RecordID,
				OriginalDomain: rec.OriginalDomain,
				Domain:         rec.Domain,
				CommonName:     rec.CommonName,
				ExpiresAt:      rec.ExpiresAt,
				HTTPError:      rec.HTTPError,
			}
			if rec.DaysRemaining != nil {
				row.DaysRemaining = *rec.DaysRemaining
			}
			if rec.Bucket == bucketExpired {
				b.Expired = append(b.Expired, row)
			} else {
				b.Valid = append(b.Valid, row)
			}
		}
	}
	return b
}
