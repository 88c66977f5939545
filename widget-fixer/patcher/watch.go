package patcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sinnahq/sinna/tools/logger"
	"github.com/sinnahq/sinna/tools/utils"
)

// Watcher applies fixes once and then again every time one of their target
// files is written or replaced. It needs a Patcher backed by the OS
// filesystem, since fsnotify watches real paths.
type Watcher struct {
	Patcher *Patcher
	Fixes   []Fix
	// Debounce is how long to wait after the last event before re-applying
	// the fixes, so that an editor or a build writing a file in several steps
	// triggers a single run.
	Debounce time.Duration
	// OnReport is called with the result of every run, including the first.
	OnReport func(*Report, error)
}

// Run blocks until ctx is cancelled or the file watcher fails. The first run
// uses the Patcher as configured; later runs only touch files that still
// need fixing, so that the watcher's own writes don't trigger it forever.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return utils.MakeError("couldn't create new fsnotify.Watcher: %s", err)
	}
	defer watcher.Close()

	targets := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, fix := range w.Fixes {
		path := filepath.Clean(w.Patcher.Path(fix.Path))
		targets[path] = true
		dirs[filepath.Dir(path)] = true
	}

	watched := 0
	for dir := range dirs {
		if !utils.DirExists(w.Patcher.Fs, dir) {
			logger.Warningf("Not watching %s since it does not exist", dir)
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return utils.MakeError("error adding dir %s to fsnotify.Watcher: %s", dir, err)
		}
		watched++
	}
	if watched == 0 {
		return utils.MakeError("none of the target directories exist under %s", w.Patcher.Root)
	}

	w.report(w.Patcher.Run(w.Fixes))

	rerun := *w.Patcher
	rerun.OnlyIfChanged = true

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return utils.MakeError("fsnotify.Watcher error channel closed")
			}
			return utils.MakeError("fsnotify.Watcher returned error: %s", err)

		case ev, ok := <-watcher.Events:
			if !ok {
				return utils.MakeError("fsnotify.Watcher events channel closed")
			}
			if !isTargetEvent(ev, targets) {
				continue
			}
			logger.Debugf("fsnotify.Watcher filesystem event: %+v", ev)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.Debounce)
			pending = timer.C

		case <-pending:
			pending = nil
			logger.Infof("Target files changed, re-applying fixes")
			w.report(rerun.Run(w.Fixes))
		}
	}
}

func (w *Watcher) report(report *Report, err error) {
	if w.OnReport != nil {
		w.OnReport(report, err)
	}
}

// isTargetEvent returns true if ev means one of the targets has new content.
// Events for backups and in-flight temporary files are never target events,
// since those paths aren't targets.
func isTargetEvent(ev fsnotify.Event, targets map[string]bool) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return targets[filepath.Clean(ev.Name)]
}
