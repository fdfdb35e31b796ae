package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
)

// loadJSONL reads appraisals.jsonl into the appraisals table in one
// transaction. Malformed lines, lines without an id and duplicate ids are
// skipped; the first occurrence of an id wins.
func loadJSONL(db *sql.DB, dataDir string) (int, error) {
	records, err := readJSONL(filepath.Join(dataDir, appraisalsFile))
	if err != nil {
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO appraisals
		(appraisal_id, client_name, created_at, updated_at, record) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	loaded := 0
	for _, raw := range records {
		rec, err := hydrateAppraisal(raw)
		if err != nil || rec.ID == "" {
			continue
		}
		res, err := stmt.Exec(rec.ID, rec.ClientName,
			rec.CreatedAt.UTC().Format(timeLayout), rec.UpdatedAt.UTC().Format(timeLayout), string(raw))
		if err != nil {
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			loaded++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}
