package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mitchellmoss/appraisal-generator/internal/total"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// Create stores rec under a new UUID v7.
func (b *Backend) Create(ctx context.Context, rec types.AppraisalRecord) (types.CreateResult, error) {
	if err := rec.Validate(); err != nil {
		return types.CreateResult{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.CreateResult{}, types.ErrDetached
	}

	now := b.now().UTC()
	stored := rec.Clone()
	stored.ID = generateUUID()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := b.write(ctx, stored, true); err != nil {
		return types.CreateResult{}, err
	}
	return types.CreateResult{ID: stored.ID, Message: types.MessageCreated, CreatedAt: now}, nil
}

// Get returns the record stored under id.
func (b *Backend) Get(ctx context.Context, id string) (types.AppraisalRecord, error) {
	if id == "" {
		return types.AppraisalRecord{}, types.ErrInvalidID
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.AppraisalRecord{}, types.ErrDetached
	}
	return b.get(ctx, id)
}

// Update replaces the record under id, keeping the stored id and createdAt.
// updatedAt never moves backwards.
func (b *Backend) Update(ctx context.Context, id string, rec types.AppraisalRecord) (types.UpdateResult, error) {
	if id == "" {
		return types.UpdateResult{}, types.ErrInvalidID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.UpdateResult{}, types.ErrDetached
	}

	existing, err := b.get(ctx, id)
	if err != nil {
		return types.UpdateResult{}, err
	}
	if err := rec.Validate(); err != nil {
		return types.UpdateResult{}, err
	}

	now := b.now().UTC()
	if now.Before(existing.UpdatedAt) {
		now = existing.UpdatedAt
	}
	stored := rec.Clone()
	stored.ID = existing.ID
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = now

	if err := b.write(ctx, stored, false); err != nil {
		return types.UpdateResult{}, err
	}
	return types.UpdateResult{ID: stored.ID, Message: types.MessageUpdated, UpdatedAt: now}, nil
}

// Delete removes the record under id.
func (b *Backend) Delete(ctx context.Context, id string) (types.DeleteResult, error) {
	if id == "" {
		return types.DeleteResult{}, types.ErrInvalidID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.DeleteResult{}, types.ErrDetached
	}

	err := b.commit(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM appraisals WHERE appraisal_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting appraisal: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return types.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return types.DeleteResult{}, err
	}
	return types.DeleteResult{ID: id, Message: types.MessageDeleted}, nil
}

// List returns a summary of every record, newest first.
func (b *Backend) List(ctx context.Context) ([]types.Summary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT record FROM appraisals ORDER BY created_at DESC, appraisal_id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing appraisals: %w", err)
	}
	defer rows.Close()

	out := []types.Summary{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning appraisal: %w", err)
		}
		rec, err := hydrateAppraisal([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, total.Summarize(rec))
	}
	return out, rows.Err()
}

// get reads one record. The caller must hold b.mu.
func (b *Backend) get(ctx context.Context, id string) (types.AppraisalRecord, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, "SELECT record FROM appraisals WHERE appraisal_id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AppraisalRecord{}, types.ErrNotFound
	}
	if err != nil {
		return types.AppraisalRecord{}, fmt.Errorf("reading appraisal: %w", err)
	}
	return hydrateAppraisal([]byte(raw))
}

// write inserts or replaces rec and rewrites the JSONL file. The caller must
// hold the write lock.
func (b *Backend) write(ctx context.Context, rec types.AppraisalRecord, insert bool) error {
	line, err := dehydrateAppraisal(rec)
	if err != nil {
		return err
	}
	created := rec.CreatedAt.UTC().Format(timeLayout)
	updated := rec.UpdatedAt.UTC().Format(timeLayout)

	return b.commit(ctx, func(tx *sql.Tx) error {
		var err error
		if insert {
			_, err = tx.ExecContext(ctx, `INSERT INTO appraisals
				(appraisal_id, client_name, created_at, updated_at, record) VALUES (?, ?, ?, ?, ?)`,
				rec.ID, rec.ClientName, created, updated, string(line))
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE appraisals
				SET client_name = ?, updated_at = ?, record = ? WHERE appraisal_id = ?`,
				rec.ClientName, updated, string(line), rec.ID)
		}
		if err != nil {
			return fmt.Errorf("writing appraisal: %w", err)
		}
		return nil
	})
}

// commit runs change in a transaction and rewrites the JSONL file from the
// transaction's view. The transaction commits only once the file is on disk,
// so a failed file write leaves the table as it was.
func (b *Backend) commit(ctx context.Context, change func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := change(tx); err != nil {
		return err
	}
	if err := persistJSONL(ctx, tx, b.dataDir); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing appraisal change: %w", err)
	}
	return nil
}

// persistJSONL rewrites appraisals.jsonl from the table in creation order.
func persistJSONL(ctx context.Context, tx *sql.Tx, dataDir string) error {
	rows, err := tx.QueryContext(ctx, "SELECT record FROM appraisals ORDER BY created_at, appraisal_id")
	if err != nil {
		return fmt.Errorf("reading appraisals for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scanning appraisal for JSONL: %w", err)
		}
		records = append(records, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(dataDir, appraisalsFile), records)
}
