package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// appraisalJSON is one line of appraisals.jsonl. Timestamps are RFC 3339
// with nanoseconds in UTC.
type appraisalJSON struct {
	ID             string                  `json:"id"`
	ClientName     string                  `json:"clientName"`
	Address1       string                  `json:"address1"`
	Address2       string                  `json:"address2"`
	AppraisalDate  string                  `json:"appraisalDate"`
	AppraiserName  string                  `json:"appraiserName"`
	Articles       []types.ArticleLineItem `json:"articles"`
	AppraisedValue string                  `json:"appraisedValue"`
	GeneratedAt    string                  `json:"generatedAt,omitempty"`
	CreatedAt      string                  `json:"createdAt"`
	UpdatedAt      string                  `json:"updatedAt"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// dehydrateAppraisal converts a record to its JSONL line.
func dehydrateAppraisal(rec types.AppraisalRecord) (json.RawMessage, error) {
	articles := rec.Articles
	if articles == nil {
		articles = []types.ArticleLineItem{}
	}
	line := appraisalJSON{
		ID:             rec.ID,
		ClientName:     rec.ClientName,
		Address1:       rec.Address1,
		Address2:       rec.Address2,
		AppraisalDate:  rec.AppraisalDate,
		AppraiserName:  rec.AppraiserName,
		Articles:       articles,
		AppraisedValue: rec.AppraisedValue,
		GeneratedAt:    formatTime(rec.GeneratedAt),
		CreatedAt:      formatTime(rec.CreatedAt),
		UpdatedAt:      formatTime(rec.UpdatedAt),
	}
	data, err := json.Marshal(line)
	if err != nil {
		return nil, fmt.Errorf("encoding appraisal %s: %w", rec.ID, err)
	}
	return data, nil
}

// hydrateAppraisal parses a JSONL line. Unknown fields are ignored.
func hydrateAppraisal(data []byte) (types.AppraisalRecord, error) {
	var line appraisalJSON
	if err := json.Unmarshal(data, &line); err != nil {
		return types.AppraisalRecord{}, fmt.Errorf("decoding appraisal: %w", err)
	}
	rec := types.AppraisalRecord{
		ID:             line.ID,
		ClientName:     line.ClientName,
		Address1:       line.Address1,
		Address2:       line.Address2,
		AppraisalDate:  line.AppraisalDate,
		AppraiserName:  line.AppraiserName,
		Articles:       line.Articles,
		AppraisedValue: line.AppraisedValue,
	}
	var err error
	if rec.GeneratedAt, err = parseTime(line.GeneratedAt); err != nil {
		return types.AppraisalRecord{}, fmt.Errorf("parsing generatedAt: %w", err)
	}
	if rec.CreatedAt, err = parseTime(line.CreatedAt); err != nil {
		return types.AppraisalRecord{}, fmt.Errorf("parsing createdAt: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(line.UpdatedAt); err != nil {
		return types.AppraisalRecord{}, fmt.Errorf("parsing updatedAt: %w", err)
	}
	if rec.Articles == nil {
		rec.Articles = []types.ArticleLineItem{}
	}
	return rec, nil
}
