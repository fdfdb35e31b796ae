// Package form holds the in-session appraisal being edited and mirrors it to
// a durable cache after every mutation, so a restart reproduces the last
// edited state.
package form

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mitchellmoss/appraisal-generator/internal/cache"
	"github.com/mitchellmoss/appraisal-generator/internal/total"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// articlesKey holds the JSON-encoded ordered article list in the cache.
const articlesKey = "articles"

// Form errors.
var (
	ErrNoArticle    = fmt.Errorf("%w: no such article", types.ErrValidation)
	ErrDerivedValue = fmt.Errorf("%w: appraisedValue is derived from articles", types.ErrValidation)
)

// Cache is the durable key-value store the form writes through to.
// *cache.Store satisfies it.
type Cache interface {
	Load(ctx context.Context, namespace string) (map[string]string, error)
	Save(ctx context.Context, namespace string, entries map[string]string) error
	Clear(ctx context.Context) error
}

// Article is a line item with its ephemeral session identifier. IDs are
// regenerated on every load and never written to the cache or the record
// store.
type Article struct {
	ID string
	types.ArticleLineItem
}

// Form is the live state of one appraisal. It is not safe for concurrent
// use.
type Form struct {
	cache    Cache
	logger   *slog.Logger
	record   types.AppraisalRecord
	articles []Article
	degraded bool
}

// Option configures a Form.
type Option func(*Form)

// WithLogger sets the logger used to report cache degradation.
func WithLogger(l *slog.Logger) Option {
	return func(f *Form) { f.logger = l }
}

// New returns an empty form backed by c. A nil cache gives a session-only
// form that reports Degraded.
func New(c Cache, opts ...Option) *Form {
	f := &Form{cache: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	if c == nil {
		f.degraded = true
	}
	return f
}

// Degraded reports whether the form has fallen back to session-only state
// after the cache became unavailable.
func (f *Form) Degraded() bool { return f.degraded }

// Load hydrates every field and the ordered article list from the cache. If
// no articles are cached, exactly one blank article is seeded. The cached
// appraisedValue is taken as is; every mutation already kept it in step with
// the articles, and a placeholder article must not recompute it away.
func (f *Form) Load(ctx context.Context) {
	f.record = types.AppraisalRecord{}
	f.articles = nil

	var entries map[string]string
	if !f.degraded {
		var err error
		entries, err = f.cache.Load(ctx, cache.NamespaceForm)
		if err != nil {
			f.degrade("load", err)
			entries = nil
		}
	}

	for _, name := range types.EditableFields {
		if v, ok := entries[name]; ok {
			_ = f.record.SetField(name, v)
		}
	}

	if raw := entries[articlesKey]; raw != "" {
		var items []types.ArticleLineItem
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			f.logger.Warn("discarding unreadable cached articles", "error", err)
		}
		for _, item := range items {
			f.articles = append(f.articles, newArticle(item))
		}
	}

	if len(f.articles) == 0 {
		f.articles = append(f.articles, newArticle(types.ArticleLineItem{}))
	}
}

// Save writes every field and the complete article list to the cache,
// replacing the previous snapshot. Cache failures degrade the form to
// session-only state instead of failing the caller.
func (f *Form) Save(ctx context.Context) {
	if f.degraded {
		return
	}
	entries := make(map[string]string, len(types.EditableFields)+1)
	for _, name := range types.EditableFields {
		entries[name], _ = f.record.Field(name)
	}
	data, err := json.Marshal(f.items())
	if err != nil {
		f.degrade("encode", err)
		return
	}
	entries[articlesKey] = string(data)
	if err := f.cache.Save(ctx, cache.NamespaceForm, entries); err != nil {
		f.degrade("save", err)
	}
}

// Field returns the value of a scalar field.
func (f *Form) Field(name string) (string, bool) {
	return f.record.Field(name)
}

// SetField assigns a scalar field and saves. appraisedValue may only be set
// directly while the form has no articles.
func (f *Form) SetField(ctx context.Context, name, value string) error {
	if name == types.FieldAppraisedValue && len(f.articles) > 0 {
		return ErrDerivedValue
	}
	if err := f.record.SetField(name, value); err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	f.Save(ctx)
	return nil
}

// Articles returns a copy of the ordered article list.
func (f *Form) Articles() []Article {
	out := make([]Article, len(f.articles))
	copy(out, f.articles)
	return out
}

// AddArticle appends item and returns its line-item ID. When persist is true
// the total is recomputed and the form saved.
func (f *Form) AddArticle(ctx context.Context, item types.ArticleLineItem, persist bool) string {
	a := newArticle(item)
	f.articles = append(f.articles, a)
	if persist {
		f.recompute()
		f.Save(ctx)
	}
	return a.ID
}

// RemoveArticle removes the article with the given line-item ID, recomputes
// the total and saves.
func (f *Form) RemoveArticle(ctx context.Context, ref string) error {
	i := f.index(ref)
	if i < 0 {
		return ErrNoArticle
	}
	f.articles = append(f.articles[:i], f.articles[i+1:]...)
	f.recompute()
	f.Save(ctx)
	return nil
}

// UpdateArticle replaces the content of one article in place, recomputes the
// total and saves.
func (f *Form) UpdateArticle(ctx context.Context, ref string, item types.ArticleLineItem) error {
	i := f.index(ref)
	if i < 0 {
		return ErrNoArticle
	}
	f.articles[i].ArticleLineItem = item
	f.recompute()
	f.Save(ctx)
	return nil
}

// Clear wipes the cache and resets the form to one blank article. The
// record store is not touched.
func (f *Form) Clear(ctx context.Context) {
	if !f.degraded {
		if err := f.cache.Clear(ctx); err != nil {
			f.degrade("clear", err)
		}
	}
	f.record = types.AppraisalRecord{}
	f.articles = []Article{newArticle(types.ArticleLineItem{})}
}

// Replace discards the current state and takes every field and article, in
// order, from rec. A record without articles keeps its stored appraisedValue
// and gets one blank article to edit. The form is saved afterwards.
func (f *Form) Replace(ctx context.Context, rec types.AppraisalRecord) {
	f.record = types.AppraisalRecord{}
	for _, name := range types.EditableFields {
		v, _ := rec.Field(name)
		_ = f.record.SetField(name, v)
	}
	f.articles = make([]Article, 0, len(rec.Articles))
	for _, item := range rec.Articles {
		f.articles = append(f.articles, newArticle(item))
	}
	f.recompute()
	if len(f.articles) == 0 {
		f.articles = append(f.articles, newArticle(types.ArticleLineItem{}))
	}
	f.Save(ctx)
}

// Snapshot returns the current state as a record without store-owned fields.
func (f *Form) Snapshot() types.AppraisalRecord {
	rec := f.record.Clone()
	rec.Articles = f.items()
	return rec
}

func (f *Form) items() []types.ArticleLineItem {
	items := make([]types.ArticleLineItem, len(f.articles))
	for i, a := range f.articles {
		items[i] = a.ArticleLineItem
	}
	return items
}

func (f *Form) index(ref string) int {
	for i, a := range f.articles {
		if a.ID == ref {
			return i
		}
	}
	return -1
}

// recompute keeps appraisedValue equal to the article total. With no
// articles the stored value is left alone.
func (f *Form) recompute() {
	if len(f.articles) == 0 {
		return
	}
	f.record.AppraisedValue = total.Calculate(f.items())
}

func (f *Form) degrade(op string, err error) {
	if !f.degraded {
		f.logger.Warn("form cache unavailable, continuing without persistence", "op", op, "error", err)
	}
	f.degraded = true
}

func newArticle(item types.ArticleLineItem) Article {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Article{ID: id.String(), ArticleLineItem: item}
}
