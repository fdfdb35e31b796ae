package sqlite

// Schema DDL. The record column holds the full JSON record; the other
// columns are projections used for lookup and ordering.
const (
	createAppraisals = `CREATE TABLE appraisals (
    appraisal_id TEXT PRIMARY KEY,
    client_name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    record TEXT NOT NULL
);`

	idxAppraisalsCreatedAt = `CREATE INDEX idx_appraisals_created_at ON appraisals(created_at);`
)

// schemaDDL lists the statements run on a fresh database.
var schemaDDL = []string{
	createAppraisals,
	idxAppraisalsCreatedAt,
}

// timeLayout is a fixed-width RFC 3339 layout so that text ordering of the
// timestamp columns matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
