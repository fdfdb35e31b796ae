package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitchellmoss/appraisal-generator/internal/cache"
	"github.com/mitchellmoss/appraisal-generator/internal/client"
	"github.com/mitchellmoss/appraisal-generator/internal/form"
	"github.com/mitchellmoss/appraisal-generator/internal/reconcile"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// workspace is the form, its cache and the reconciliation session for one
// command. Close releases the cache.
type workspace struct {
	cache   *cache.Store
	form    *form.Form
	session *reconcile.Session
}

func (w *workspace) Close() {
	if w.cache != nil {
		_ = w.cache.Close()
	}
}

// openWorkspace loads the cached form and binding. An unusable cache is
// logged and the command continues with session-only state.
func (a *app) openWorkspace(ctx context.Context) *workspace {
	ws := &workspace{}
	var fc form.Cache
	c, err := cache.Open(filepath.Join(a.dataDir, cache.FileName))
	if err != nil {
		a.logger.Warn("form cache unavailable, continuing without persistence", "error", err)
	} else {
		ws.cache = c
		fc = c
	}

	ws.form = form.New(fc, form.WithLogger(a.logger))
	ws.form.Load(ctx)

	opts := []reconcile.Option{reconcile.WithLogger(a.logger)}
	if fc != nil {
		opts = append(opts, reconcile.WithCache(fc))
	}
	ws.session = reconcile.NewSession(ctx, a.recordStore(), ws.form, opts...)
	return ws
}

// recordStore returns the HTTP client for store.url.
func (a *app) recordStore() types.RecordStore {
	c := client.New(a.cfg.StoreURL, a.cfg.StoreAPIKey)
	c.HTTP.Timeout = a.cfg.StoreTimeout
	c.Logger = a.logger
	return c
}

// printResult writes v as indented JSON in --json mode, otherwise the
// text produced by human.
func (a *app) printResult(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(out)
	return nil
}

// confirmer reads a yes/no answer from the command's stdin. assumeYes
// skips the prompt.
func confirmer(cmd *cobra.Command, assumeYes bool) reconcile.Confirmer {
	return func(prompt string) bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
