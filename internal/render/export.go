package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitchellmoss/appraisal-generator/internal/blob"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

const presignExpiry = 24 * time.Hour

// ExportResult describes a stored certificate.
type ExportResult struct {
	Key         string      `json:"key"`
	Size        int64       `json:"size"`
	URL         string      `json:"url,omitempty"`
	Driver      blob.Driver `json:"driver"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Exporter renders export documents into a blob store.
type Exporter struct {
	store  blob.Store
	now    func() time.Time
	logger *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExportClock sets the clock used to stamp documents and name files.
func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// WithExportLogger sets the logger.
func WithExportLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// NewExporter returns an Exporter writing to store.
func NewExporter(store blob.Store, opts ...ExporterOption) *Exporter {
	e := &Exporter{store: store, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders rec into memory and stores it under its Filename. The
// same record and clock reading always produce the same bytes.
func (e *Exporter) Export(ctx context.Context, rec types.AppraisalRecord) (ExportResult, error) {
	now := e.now().UTC()
	rec.GeneratedAt = now

	var buf bytes.Buffer
	if err := WriteHTML(&buf, Build(rec, ModeExport)); err != nil {
		return ExportResult{}, err
	}

	key := Filename(rec.ClientName, now)
	opts := blob.PutOptions{ContentType: ContentType}
	if rec.ID != "" {
		opts.Metadata = map[string]string{"appraisal-id": rec.ID}
	}
	info, err := e.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), opts)
	if err != nil {
		return ExportResult{}, fmt.Errorf("%w: storing %s: %w", types.ErrRender, key, err)
	}

	url, err := e.store.PresignURL(ctx, key, blob.SignedURLOptions{Expiry: presignExpiry})
	switch {
	case errors.Is(err, blob.ErrUnsupported):
		url = info.URL
	case err != nil:
		e.logger.Warn("presigning export", "key", key, "error", err)
		url = info.URL
	}

	e.logger.Info("certificate exported", "key", key, "driver", string(e.store.Driver()), "bytes", buf.Len())
	return ExportResult{
		Key:         key,
		Size:        int64(buf.Len()),
		URL:         url,
		Driver:      e.store.Driver(),
		GeneratedAt: now,
	}, nil
}
