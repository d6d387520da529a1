// Package watch re-runs a job whenever sheets under a directory change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of events, such as a whole download
// landing, into one run.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches Root recursively.
type Watcher struct {
	Root     string
	Debounce time.Duration
	// Match selects the file events that trigger a run. Nil matches all.
	Match func(path string) bool
	// SkipDir excludes directories, such as the output directory, from the
	// watch.
	SkipDir func(path string) bool
	Logger  *slog.Logger
}

func (w *Watcher) log() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}

// Run calls fn after every debounced change until ctx is done. Errors from fn
// are logged and the watch continues.
func (w *Watcher) Run(ctx context.Context, fn func() error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.Root); err != nil {
		return err
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := w.log()
	log.Info("watching for changes", "root", w.Root)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addRecursive(fw, ev.Name); err != nil {
						log.Warn("cannot watch new directory", "path", ev.Name, "err", err)
					}
					continue
				}
			}
			if w.Match != nil && !w.Match(ev.Name) {
				continue
			}
			log.Debug("change", "path", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := fn(); err != nil {
				log.Error("run after change failed", "err", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.Root && w.SkipDir != nil && w.SkipDir(p) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
