package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppraisalRecordSetField(t *testing.T) {
	var rec AppraisalRecord
	for _, name := range EditableFields {
		require.NoError(t, rec.SetField(name, "v-"+name))
		got, ok := rec.Field(name)
		require.True(t, ok)
		assert.Equal(t, "v-"+name, got)
	}

	err := rec.SetField("articles", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.ErrorIs(t, err, ErrValidation)

	_, ok := rec.Field("nope")
	assert.False(t, ok)
}

func TestAppraisalRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		client  string
		wantErr bool
	}{
		{"named client", "Jane Doe", false},
		{"empty client", "", true},
		{"whitespace client", "   ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AppraisalRecord{ClientName: tt.client}.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAppraisalRecordCloneIsDeep(t *testing.T) {
	rec := AppraisalRecord{Articles: []ArticleLineItem{{Description: "Ring", AppraisedValue: "$5"}}}
	cp := rec.Clone()
	cp.Articles[0].Description = "Changed"
	assert.Equal(t, "Ring", rec.Articles[0].Description)
}

func TestWithoutServerFieldsOmitsIdentity(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	rec := AppraisalRecord{
		ID:         "abc",
		ClientName: "Jane Doe",
		Articles:   []ArticleLineItem{{Description: "Ring", AppraisedValue: "$500.00"}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := json.Marshal(rec.WithoutServerFields())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "createdAt")
	assert.NotContains(t, fields, "updatedAt")
	assert.Equal(t, "Jane Doe", fields["clientName"])
	assert.Equal(t, "abc", rec.ID, "original must be untouched")
}

func TestArticleLineItemIsBlank(t *testing.T) {
	assert.True(t, ArticleLineItem{}.IsBlank())
	assert.True(t, ArticleLineItem{Description: "  ", AppraisedValue: "\t"}.IsBlank())
	assert.False(t, ArticleLineItem{AppraisedValue: "$1"}.IsBlank())
}
