// Package reconcile decides whether saving the form creates or updates a
// record in the record store, and owns which record, if any, the form is
// bound to.
//
// A Session is not safe for concurrent use. Two overlapping saves against the
// same store are last-response-wins; the tool assumes a single operator.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitchellmoss/appraisal-generator/internal/cache"
	"github.com/mitchellmoss/appraisal-generator/internal/form"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// bindingKey holds the JSON-encoded Binding in the session cache namespace.
const bindingKey = "binding"

// State is the reconciliation state.
type State int

const (
	// StateNew means no record is bound; the next save creates one.
	StateNew State = iota
	// StateBound means saves update the bound record.
	StateBound
)

func (s State) String() string {
	if s == StateBound {
		return "bound"
	}
	return "new"
}

// Binding is the identity of the bound record. The zero value is New.
type Binding struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// State reports New for an empty ID and Bound otherwise.
func (b Binding) State() State {
	if b.ID == "" {
		return StateNew
	}
	return StateBound
}

// SaveResult describes a successful save.
type SaveResult struct {
	ID        string
	Created   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Confirmer asks the operator to approve a destructive action.
type Confirmer func(prompt string) bool

// DeletePrompt is shown to the Confirmer before a delete.
const DeletePrompt = "Are you sure you want to delete this appraisal? This action cannot be undone."

// Session threads the binding through every reconciliation call.
type Session struct {
	store   types.RecordStore
	form    *form.Form
	cache   form.Cache
	binding Binding
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithCache persists the binding in the cache's session namespace so that a
// later process resumes the same binding.
func WithCache(c form.Cache) Option {
	return func(s *Session) { s.cache = c }
}

// WithClock overrides the clock used for generatedAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession returns a session over store and f. With a cache, the last
// persisted binding is restored; otherwise the session starts New.
func NewSession(ctx context.Context, store types.RecordStore, f *form.Form, opts ...Option) *Session {
	s := &Session{store: store, form: f, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.restore(ctx)
	return s
}

// State returns the current reconciliation state.
func (s *Session) State() State { return s.binding.State() }

// Binding returns the bound identity.
func (s *Session) Binding() Binding { return s.binding }

// Save creates the record when New and updates it when Bound. An update that
// finds the bound record gone falls back to create and rebinds. On error the
// binding is unchanged.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	snap := s.form.Snapshot()
	snap.GeneratedAt = s.now().UTC()

	if s.binding.ID == "" {
		return s.create(ctx, snap)
	}

	id := s.binding.ID
	snap.ID = id
	snap.CreatedAt = s.binding.CreatedAt
	snap.UpdatedAt = s.now().UTC()

	res, err := s.store.Update(ctx, id, snap)
	if errors.Is(err, types.ErrNotFound) {
		s.logger.Warn("bound appraisal no longer exists, creating a new record", "id", id)
		return s.create(ctx, snap)
	}
	if err != nil {
		return SaveResult{}, fmt.Errorf("update %s: %w", id, err)
	}
	return SaveResult{ID: id, CreatedAt: s.binding.CreatedAt, UpdatedAt: res.UpdatedAt}, nil
}

func (s *Session) create(ctx context.Context, snap types.AppraisalRecord) (SaveResult, error) {
	res, err := s.store.Create(ctx, snap.WithoutServerFields())
	if err != nil {
		return SaveResult{}, fmt.Errorf("create: %w", err)
	}
	s.bind(ctx, Binding{ID: res.ID, CreatedAt: res.CreatedAt})
	s.logger.Info("appraisal created", "id", res.ID)
	return SaveResult{ID: res.ID, Created: true, CreatedAt: res.CreatedAt, UpdatedAt: res.CreatedAt}, nil
}

// Load fetches id, discards unsaved edits, replaces the form with the fetched
// record and binds to it. On error nothing changes.
func (s *Session) Load(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	s.form.Replace(ctx, rec)
	s.bind(ctx, Binding{ID: rec.ID, CreatedAt: rec.CreatedAt})
	return nil
}

// Delete removes id from the record store once confirm approves. A declined
// confirmation sends nothing and returns false. Deleting the bound record
// resets the form and returns the session to New.
func (s *Session) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if id == "" {
		return false, types.ErrInvalidID
	}
	if confirm != nil && !confirm(DeletePrompt) {
		return false, nil
	}
	if _, err := s.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	if s.binding.ID == id {
		s.NewRecord(ctx)
	}
	return true, nil
}

// Reset returns the session to New without touching the form.
func (s *Session) Reset(ctx context.Context) {
	s.bind(ctx, Binding{})
}

// NewRecord clears the form and its cache and returns the session to New.
func (s *Session) NewRecord(ctx context.Context) {
	s.form.Clear(ctx)
	s.bind(ctx, Binding{})
}

// DisplayLabel is the editing notice for the bound record, or "" when New.
// It is for display only; the bound ID is always read from Binding.
func (s *Session) DisplayLabel() string {
	if s.binding.ID == "" {
		return ""
	}
	name, _ := s.form.Field(types.FieldClientName)
	return fmt.Sprintf("%s (ID: %s)", name, s.binding.ID)
}

func (s *Session) bind(ctx context.Context, b Binding) {
	s.binding = b
	if s.cache == nil {
		return
	}
	entries := map[string]string{}
	if b.ID != "" {
		data, err := json.Marshal(b)
		if err != nil {
			s.logger.Warn("encoding binding", "error", err)
			return
		}
		entries[bindingKey] = string(data)
	}
	if err := s.cache.Save(ctx, cache.NamespaceSession, entries); err != nil {
		s.logger.Warn("persisting binding failed, binding kept for this session only", "error", err)
	}
}

func (s *Session) restore(ctx context.Context) {
	if s.cache == nil {
		return
	}
	entries, err := s.cache.Load(ctx, cache.NamespaceSession)
	if err != nil {
		s.logger.Warn("reading persisted binding failed, starting new", "error", err)
		return
	}
	raw := entries[bindingKey]
	if raw == "" {
		return
	}
	var b Binding
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		s.logger.Warn("discarding unreadable binding", "error", err)
		return
	}
	s.binding = b
}
