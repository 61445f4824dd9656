package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher answers request files dropped into a directory.
//
// Safe for concurrent use. Run should only be called once.
type Watcher struct {
	dir       string
	processor *Processor
	watcher   *fsnotify.Watcher

	// Handled, when set, is called after each processed request with the
	// outcome. Used by tests and the CLI for progress output.
	Handled func(requestPath string, err error)
}

// NewWatcher creates a watcher for dir. The directory must exist.
func NewWatcher(dir string, p *Processor) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{dir: dir, processor: p, watcher: watcher}, nil
}

// Run answers pending requests already in the directory, then every request
// that is created or rewritten, until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	pending, err := filepath.Glob(filepath.Join(w.dir, "*"+RequestSuffix))
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}
	for _, path := range pending {
		if !upToDate(path) {
			w.handle(ctx, path)
		}
	}

	slog.Info("Watching for requests", "dir", w.dir, "pending", len(pending))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, RequestSuffix) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if upToDate(event.Name) {
				continue
			}
			w.handle(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Request watcher error", "error", err)

		case <-ctx.Done():
			slog.Debug("Request watcher stopping", "dir", w.dir)
			return ctx.Err()
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	err := w.processor.ProcessFile(ctx, path, ResultPath(path))
	switch {
	case err == nil:
	case isParseFailure(err):
		// usually a request still being written; the next write event retries
		slog.Debug("Request not readable yet", "path", path, "error", err)
		return
	default:
		slog.Warn("Request failed", "path", path, "error", err)
	}
	if w.Handled != nil {
		w.Handled(path, err)
	}
}

// Close stops watching and releases resources. Safe to call multiple times.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
