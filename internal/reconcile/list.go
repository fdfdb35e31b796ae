package reconcile

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mitchellmoss/appraisal-generator/internal/total"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// SortKey orders List results.
type SortKey string

const (
	SortRecent     SortKey = "recent"
	SortClientName SortKey = "clientName"
	SortValue      SortKey = "value"
)

// SortKeys lists the accepted sort keys.
var SortKeys = []SortKey{SortRecent, SortClientName, SortValue}

// ParseSortKey validates s. The empty string selects SortRecent.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortRecent, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sort key %q", types.ErrValidation, s)
}

// List fetches summaries, keeps those whose client name contains search
// (case-insensitive) and orders them by key. It does not touch the form or
// the binding.
func (s *Session) List(ctx context.Context, search string, key SortKey) ([]types.Summary, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	out := Filter(all, search)
	Sort(out, key)
	return out, nil
}

// Filter returns the summaries whose client name contains term, ignoring
// case. An empty term keeps everything.
func Filter(list []types.Summary, term string) []types.Summary {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(term))
	out := make([]types.Summary, 0, len(list))
	for _, sum := range list {
		if needle == "" || strings.Contains(fold.String(sum.ClientName), needle) {
			out = append(out, sum)
		}
	}
	return out
}

// Sort orders list in place. Unknown keys fall back to SortRecent.
func Sort(list []types.Summary, key SortKey) {
	switch key {
	case SortClientName:
		col := collate.New(language.AmericanEnglish)
		slices.SortStableFunc(list, func(a, b types.Summary) int {
			return col.CompareString(a.ClientName, b.ClientName)
		})
	case SortValue:
		slices.SortStableFunc(list, func(a, b types.Summary) int {
			va, vb := total.NumericValue(a.AppraisedValue), total.NumericValue(b.AppraisedValue)
			switch {
			case va > vb:
				return -1
			case va < vb:
				return 1
			}
			return 0
		})
	default:
		slices.SortStableFunc(list, func(a, b types.Summary) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}
