// Package total derives the aggregate appraised value from article line
// items. Values are free text; anything that does not parse counts as zero.
package total

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	numericPrefix = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
	printer       = message.NewPrinter(language.AmericanEnglish)
)

// ParseAmount strips everything except digits, dot and minus from s and
// parses the longest leading decimal number. "5-3" parses as 5 and "1.2.3"
// as 1.2. Unparsable or out-of-range input yields zero.
func ParseAmount(s string) decimal.Decimal {
	stripped := nonNumeric.ReplaceAllString(s, "")
	m := numericPrefix.FindString(stripped)
	if m == "" {
		return decimal.Zero
	}
	m = strings.TrimSuffix(m, ".")
	switch {
	case strings.HasPrefix(m, "-."):
		m = "-0" + m[1:]
	case strings.HasPrefix(m, "."):
		m = "0" + m
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	if f, _ := d.Float64(); math.IsInf(f, 0) {
		return decimal.Zero
	}
	return d
}

// Sum adds the parsed values of every article.
func Sum(articles []types.ArticleLineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range articles {
		sum = sum.Add(ParseAmount(a.AppraisedValue))
	}
	return sum
}

// Format renders a positive amount as US currency ("$1,050.00"). Zero and
// negative amounts format as the empty string.
func Format(d decimal.Decimal) string {
	if !d.IsPositive() {
		return ""
	}
	whole, cents, _ := strings.Cut(d.StringFixed(2), ".")
	return "$" + groupThousands(whole) + "." + cents
}

// groupThousands inserts locale grouping into a string of digits. Amounts
// beyond int64 are grouped by hand so no digit is lost to float rounding.
func groupThousands(digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return printer.Sprint(number.Decimal(n))
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Calculate returns the formatted aggregate for articles, or "" when the sum
// is not positive.
func Calculate(articles []types.ArticleLineItem) string {
	return Format(Sum(articles))
}

// NumericValue extracts a sortable number from a formatted aggregate such as
// "$1,700.00". Empty strings and "Not specified" map to 0.
func NumericValue(formatted string) float64 {
	if formatted == "" || formatted == types.NotSpecified {
		return 0
	}
	return ParseAmount(formatted).InexactFloat64()
}

// Summarize builds the listing entry for rec. The aggregate is recomputed
// from the articles when any exist, falling back to the stored value and
// then to NotSpecified.
func Summarize(rec types.AppraisalRecord) types.Summary {
	value := ""
	if len(rec.Articles) > 0 {
		value = Calculate(rec.Articles)
	}
	if value == "" {
		value = rec.AppraisedValue
	}
	if value == "" {
		value = types.NotSpecified
	}
	return types.Summary{
		ID:             rec.ID,
		ClientName:     rec.ClientName,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		AppraisalDate:  rec.AppraisalDate,
		AppraisedValue: value,
	}
}
