package total

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

func items(values ...string) []types.ArticleLineItem {
	out := make([]types.ArticleLineItem, len(values))
	for i, v := range values {
		out[i] = types.ArticleLineItem{Description: "item", AppraisedValue: v}
	}
	return out
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1,000.00", "1000"},
		{"$50", "50"},
		{"abc", "0"},
		{"", "0"},
		{"-", "0"},
		{".", "0"},
		{"5-3", "5"},
		{"1.2.3", "1.2"},
		{"USD 12.5", "12.5"},
		{".75", "0.75"},
		{"-.5", "-0.5"},
		{"-$20", "-20"},
		{"7.", "7"},
		{"--5", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.in).String())
		})
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"mixed parseable and garbage", []string{"$1,000.00", "abc", "$50"}, "$1,050.00"},
		{"two articles", []string{"$500.00", "$1,200.00"}, "$1,700.00"},
		{"no articles", nil, ""},
		{"all blank", []string{"", ""}, ""},
		{"zero sum", []string{"$0.00"}, ""},
		{"negative sum", []string{"-10", "5"}, ""},
		{"exact decimal addition", []string{"0.1", "0.2"}, "$0.30"},
		{"rounds half away from zero", []string{"1.005"}, "$1.01"},
		{"millions grouped", []string{"1234567.891"}, "$1,234,567.89"},
		{"small value", []string{"$5"}, "$5.00"},
		{"exact beyond float precision", []string{"12345678901234567.89"}, "$12,345,678,901,234,567.89"},
		{"beyond int64", []string{"123456789012345678901.5"}, "$123,456,789,012,345,678,901.50"},
		{"large sum stays exact", []string{"9007199254740993", "0.01"}, "$9,007,199,254,740,993.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Calculate(items(tt.values...)))
		})
	}
}

func TestNumericValue(t *testing.T) {
	assert.Equal(t, 1700.0, NumericValue("$1,700.00"))
	assert.Equal(t, 0.0, NumericValue(types.NotSpecified))
	assert.Equal(t, 0.0, NumericValue(""))
}

func TestSummarize(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("recomputes from articles", func(t *testing.T) {
		s := Summarize(types.AppraisalRecord{
			ID:             "id-1",
			ClientName:     "Jane Doe",
			AppraisedValue: "$1.00",
			Articles:       items("$500.00", "$1,200.00"),
			CreatedAt:      created,
		})
		assert.Equal(t, "$1,700.00", s.AppraisedValue)
		assert.Equal(t, "id-1", s.ID)
		assert.Equal(t, created, s.CreatedAt)
	})

	t.Run("falls back to stored value", func(t *testing.T) {
		s := Summarize(types.AppraisalRecord{AppraisedValue: "$9.00", Articles: items("abc")})
		assert.Equal(t, "$9.00", s.AppraisedValue)
	})

	t.Run("falls back to not specified", func(t *testing.T) {
		s := Summarize(types.AppraisalRecord{})
		assert.Equal(t, types.NotSpecified, s.AppraisedValue)
	})
}
