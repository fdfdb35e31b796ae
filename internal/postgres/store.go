// Package postgres implements the appraisal record store on PostgreSQL.
// Records are kept as JSONB with projected columns for lookup and ordering.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/mitchellmoss/appraisal-generator/internal/total"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

const driverName = "pgx"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the function used to open connections and returns a
// restore func. Intended for tests.
func OverrideSQLOpen(fn func(driver, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS appraisals (
		appraisal_id TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		record JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appraisals_created_at ON appraisals (created_at DESC)`,
}

// Store implements types.Backend on PostgreSQL.
type Store struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB

	now    func() time.Time
	logger *slog.Logger
}

var _ types.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a detached store.
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach opens config.PostgresDSN, verifies the connection and ensures the
// schema exists.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendPostgres {
		return fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
	}

	openMu.Lock()
	db, err := sqlOpen(driverName, config.PostgresDSN)
	openMu.Unlock()
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("execute ddl: %w", err)
		}
	}

	s.db = db
	s.attached = true
	s.logger.Debug("record store attached", "backend", types.BackendPostgres)
	return nil
}

// Detach closes the connection pool. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return nil
	}
	s.attached = false
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores rec under a new UUID v7.
func (s *Store) Create(ctx context.Context, rec types.AppraisalRecord) (types.CreateResult, error) {
	if err := rec.Validate(); err != nil {
		return types.CreateResult{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return types.CreateResult{}, types.ErrDetached
	}

	id, err := uuid.NewV7()
	if err != nil {
		return types.CreateResult{}, fmt.Errorf("generating id: %w", err)
	}
	now := s.clock()
	stored := rec.Clone()
	stored.ID = id.String()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	payload, err := json.Marshal(stored)
	if err != nil {
		return types.CreateResult{}, fmt.Errorf("encoding appraisal: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO appraisals
		(appraisal_id, client_name, created_at, updated_at, record) VALUES ($1, $2, $3, $4, $5::jsonb)`,
		stored.ID, stored.ClientName, now, now, string(payload)); err != nil {
		return types.CreateResult{}, fmt.Errorf("insert appraisal: %w", err)
	}
	return types.CreateResult{ID: stored.ID, Message: types.MessageCreated, CreatedAt: now}, nil
}

// Get returns the record stored under id.
func (s *Store) Get(ctx context.Context, id string) (types.AppraisalRecord, error) {
	if id == "" {
		return types.AppraisalRecord{}, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return types.AppraisalRecord{}, types.ErrDetached
	}
	return getRecord(ctx, s.db, id, false)
}

// Update replaces the record under id inside a transaction holding a row
// lock, keeping the stored id and createdAt.
func (s *Store) Update(ctx context.Context, id string, rec types.AppraisalRecord) (types.UpdateResult, error) {
	if id == "" {
		return types.UpdateResult{}, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return types.UpdateResult{}, types.ErrDetached
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.UpdateResult{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := getRecord(ctx, tx, id, true)
	if err != nil {
		return types.UpdateResult{}, err
	}
	if err := rec.Validate(); err != nil {
		return types.UpdateResult{}, err
	}

	now := s.clock()
	if now.Before(existing.UpdatedAt) {
		now = existing.UpdatedAt
	}
	stored := rec.Clone()
	stored.ID = existing.ID
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = now
	payload, err := json.Marshal(stored)
	if err != nil {
		return types.UpdateResult{}, fmt.Errorf("encoding appraisal: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE appraisals
		SET client_name = $2, updated_at = $3, record = $4::jsonb WHERE appraisal_id = $1`,
		id, stored.ClientName, now, string(payload)); err != nil {
		return types.UpdateResult{}, fmt.Errorf("update appraisal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.UpdateResult{}, fmt.Errorf("commit update: %w", err)
	}
	return types.UpdateResult{ID: id, Message: types.MessageUpdated, UpdatedAt: now}, nil
}

// Delete removes the record under id.
func (s *Store) Delete(ctx context.Context, id string) (types.DeleteResult, error) {
	if id == "" {
		return types.DeleteResult{}, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return types.DeleteResult{}, types.ErrDetached
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM appraisals WHERE appraisal_id = $1`, id)
	if err != nil {
		return types.DeleteResult{}, fmt.Errorf("delete appraisal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.DeleteResult{}, types.ErrNotFound
	}
	return types.DeleteResult{ID: id, Message: types.MessageDeleted}, nil
}

// List returns summaries, newest first.
func (s *Store) List(ctx context.Context) ([]types.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrDetached
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM appraisals ORDER BY created_at DESC, appraisal_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select appraisals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []types.Summary{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan appraisal: %w", err)
		}
		var rec types.AppraisalRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode appraisal: %w", err)
		}
		out = append(out, total.Summarize(rec))
	}
	return out, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, id string, lock bool) (types.AppraisalRecord, error) {
	query := `SELECT record FROM appraisals WHERE appraisal_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var payload []byte
	err := q.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AppraisalRecord{}, types.ErrNotFound
	}
	if err != nil {
		return types.AppraisalRecord{}, fmt.Errorf("select appraisal: %w", err)
	}
	var rec types.AppraisalRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return types.AppraisalRecord{}, fmt.Errorf("decode appraisal: %w", err)
	}
	if rec.Articles == nil {
		rec.Articles = []types.ArticleLineItem{}
	}
	return rec, nil
}
