package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// DefaultPrintCommand submits a file to the default CUPS queue.
const DefaultPrintCommand = "lp"

// Runner executes a print command and returns its combined output. It
// returns once the command has exited.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Printer renders print documents to a scratch directory and hands them
// to the platform print command.
type Printer struct {
	command []string
	tempDir string
	run     Runner
	now     func() time.Time
	logger  *slog.Logger
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithRunner replaces command execution.
func WithRunner(r Runner) PrinterOption { return func(p *Printer) { p.run = r } }

// WithTempDir sets the parent of the scratch directory.
func WithTempDir(dir string) PrinterOption { return func(p *Printer) { p.tempDir = dir } }

// WithPrintClock sets the clock used to stamp documents.
func WithPrintClock(now func() time.Time) PrinterOption { return func(p *Printer) { p.now = now } }

// WithPrintLogger sets the logger.
func WithPrintLogger(l *slog.Logger) PrinterOption { return func(p *Printer) { p.logger = l } }

// NewPrinter returns a Printer for command, a whitespace-separated program
// and arguments. The file path is appended as the last argument. An empty
// command uses DefaultPrintCommand.
func NewPrinter(command string, opts ...PrinterOption) *Printer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{DefaultPrintCommand}
	}
	p := &Printer{
		command: fields,
		run:     execRunner,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Print renders rec in print mode and waits for the print command to
// exit. The scratch directory is removed on every path.
func (p *Printer) Print(ctx context.Context, rec types.AppraisalRecord) (err error) {
	now := p.now().UTC()
	rec.GeneratedAt = now

	dir, err := os.MkdirTemp(p.tempDir, "appraisal-print-*")
	if err != nil {
		return fmt.Errorf("%w: creating scratch directory: %w", types.ErrRender, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			p.logger.Warn("removing print scratch directory", "dir", dir, "error", rmErr)
		}
	}()

	path := filepath.Join(dir, Filename(rec.ClientName, now))
	if err := writeDocument(path, Build(rec, ModePrint)); err != nil {
		return err
	}

	args := append(append([]string(nil), p.command[1:]...), path)
	out, err := p.run(ctx, p.command[0], args...)
	if err != nil {
		msg := string(bytes.TrimSpace(out))
		p.logger.Error("print command failed", "command", p.command[0], "error", err, "output", msg)
		if msg != "" {
			return fmt.Errorf("%w: %s: %w: %s", types.ErrRender, p.command[0], err, msg)
		}
		return fmt.Errorf("%w: %s: %w", types.ErrRender, p.command[0], err)
	}
	p.logger.Info("certificate sent to printer", "command", p.command[0], "client", rec.ClientName,
		"articles", len(rec.Articles))
	return nil
}

func writeDocument(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrRender, err)
	}
	if err := WriteHTML(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrRender, err)
	}
	return nil
}
