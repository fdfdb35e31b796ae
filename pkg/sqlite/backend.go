// Package sqlite provides the public API for the SQLite appraisal record
// store. It exposes the factory while keeping implementation details
// internal, so other programs can embed the store without running the
// HTTP server.
package sqlite

import (
	"log/slog"

	"github.com/mitchellmoss/appraisal-generator/internal/sqlite"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// NewBackend creates a new SQLite record store. A nil logger uses
// slog.Default. The backend is not attached; call Attach with a Config to
// initialize.
//
// Example:
//
//	backend := sqlite.NewBackend(nil)
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".appraisal-db",
//	})
//	defer backend.Detach()
func NewBackend(logger *slog.Logger) types.Backend {
	if logger == nil {
		return sqlite.NewBackend()
	}
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}
