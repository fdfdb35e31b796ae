package types

import (
	"fmt"
	"strings"
	"time"
)

// Form field names. These are also the JSON keys of AppraisalRecord and the
// keys written to the local form cache.
const (
	FieldClientName     = "clientName"
	FieldAddress1       = "address1"
	FieldAddress2       = "address2"
	FieldAppraisalDate  = "appraisalDate"
	FieldAppraiserName  = "appraiserName"
	FieldAppraisedValue = "appraisedValue"
)

// EditableFields lists the scalar fields in display order. AppraisedValue is
// last because it is derived whenever articles exist.
var EditableFields = []string{
	FieldClientName,
	FieldAddress1,
	FieldAddress2,
	FieldAppraisalDate,
	FieldAppraiserName,
	FieldAppraisedValue,
}

// NotSpecified is the summary value shown when a record has neither a
// computable total nor a stored appraised value.
const NotSpecified = "Not specified"

// ArticleLineItem is one described article and its free-text value.
type ArticleLineItem struct {
	Description    string `json:"description"`
	AppraisedValue string `json:"appraisedValue"`
}

// IsBlank reports whether both description and value are empty after
// trimming whitespace.
func (a ArticleLineItem) IsBlank() bool {
	return strings.TrimSpace(a.Description) == "" && strings.TrimSpace(a.AppraisedValue) == ""
}

// AppraisalRecord is the persisted certificate content. ID, CreatedAt and
// UpdatedAt are owned by the record store.
type AppraisalRecord struct {
	ID             string            `json:"id,omitempty"`
	ClientName     string            `json:"clientName"`
	Address1       string            `json:"address1"`
	Address2       string            `json:"address2"`
	AppraisalDate  string            `json:"appraisalDate"`
	AppraiserName  string            `json:"appraiserName"`
	Articles       []ArticleLineItem `json:"articles"`
	AppraisedValue string            `json:"appraisedValue"`
	GeneratedAt    time.Time         `json:"generatedAt,omitzero"`
	CreatedAt      time.Time         `json:"createdAt,omitzero"`
	UpdatedAt      time.Time         `json:"updatedAt,omitzero"`
}

// Field returns the value of the named scalar field and whether the name is
// known.
func (r AppraisalRecord) Field(name string) (string, bool) {
	switch name {
	case FieldClientName:
		return r.ClientName, true
	case FieldAddress1:
		return r.Address1, true
	case FieldAddress2:
		return r.Address2, true
	case FieldAppraisalDate:
		return r.AppraisalDate, true
	case FieldAppraiserName:
		return r.AppraiserName, true
	case FieldAppraisedValue:
		return r.AppraisedValue, true
	}
	return "", false
}

// SetField assigns the named scalar field. It returns ErrUnknownField for an
// unknown name.
func (r *AppraisalRecord) SetField(name, value string) error {
	switch name {
	case FieldClientName:
		r.ClientName = value
	case FieldAddress1:
		r.Address1 = value
	case FieldAddress2:
		r.Address2 = value
	case FieldAppraisalDate:
		r.AppraisalDate = value
	case FieldAppraiserName:
		r.AppraiserName = value
	case FieldAppraisedValue:
		r.AppraisedValue = value
	default:
		return ErrUnknownField
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r AppraisalRecord) Clone() AppraisalRecord {
	out := r
	if r.Articles != nil {
		out.Articles = make([]ArticleLineItem, len(r.Articles))
		copy(out.Articles, r.Articles)
	}
	return out
}

// WithoutServerFields returns a copy with ID, CreatedAt and UpdatedAt
// cleared, as sent on create.
func (r AppraisalRecord) WithoutServerFields() AppraisalRecord {
	out := r.Clone()
	out.ID = ""
	out.CreatedAt = time.Time{}
	out.UpdatedAt = time.Time{}
	return out
}

// Validate checks the fields the record store requires. It returns an error
// wrapping ErrValidation when clientName is blank.
func (r AppraisalRecord) Validate() error {
	if strings.TrimSpace(r.ClientName) == "" {
		return fmt.Errorf("%w: clientName is required", ErrValidation)
	}
	return nil
}

// Summary is one entry of the record store listing.
type Summary struct {
	ID             string    `json:"id"`
	ClientName     string    `json:"clientName"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt,omitzero"`
	AppraisalDate  string    `json:"appraisalDate"`
	AppraisedValue string    `json:"appraisedValue"`
}

// CreateResult is returned by RecordStore.Create.
type CreateResult struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateResult is returned by RecordStore.Update.
type UpdateResult struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeleteResult is returned by RecordStore.Delete.
type DeleteResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}
