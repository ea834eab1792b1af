// Package ttywatch observes the kernel's active-console file
// (/sys/class/tty/tty0/active) and reports foreground terminal changes.
package ttywatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports every change of the active tty to the notify callback.
// Consecutive identical values are deduplicated; the consumer still has to
// tolerate redundant notifications after races.
type Watcher struct {
	path    string
	notify  func(tty string)
	logger  *slog.Logger
	current string
}

func New(path string, notify func(tty string), logger *slog.Logger) *Watcher {
	return &Watcher{
		path:   path,
		notify: notify,
		logger: logger,
	}
}

// Run blocks until ctx is cancelled, invoking the callback on every tty
// change observed after the initial read.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	current, err := readActive(w.path)
	if err != nil {
		return err
	}
	w.current = current
	w.logger.Info("tty watcher started", "path", w.path, "active", w.current)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("tty watcher stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			tty, err := readActive(w.path)
			if err != nil {
				w.logger.Error("read active tty", "error", err)
				continue
			}
			if tty == w.current {
				continue
			}
			w.current = tty
			w.logger.Info("active tty changed", "tty", tty)
			w.notify(tty)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("tty watcher", "error", err)
		}
	}
}

func readActive(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
