package checkpoint

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// progressFile is the on-disk shape sessions write their counters to.
type progressFile struct {
	Iterations        int     `json:"iterations"`
	Cost              float64 `json:"cost"`
	Stuck             bool    `json:"stuck"`
	ConsecutiveErrors int     `json:"consecutive_errors"`
}

// ProgressWatcher feeds externally-written progress counters into an
// Evaluator. Sessions append to a JSON progress file; each write updates
// the evaluator's counter snapshot.
type ProgressWatcher struct {
	path      string
	evaluator *Evaluator
	startedAt time.Time
	watcher   *fsnotify.Watcher
}

// NewProgressWatcher creates a watcher for the given progress file. The
// file need not exist yet; the containing directory is watched.
func NewProgressWatcher(path string, evaluator *Evaluator) (*ProgressWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	return &ProgressWatcher{
		path:      path,
		evaluator: evaluator,
		startedAt: time.Now(),
		watcher:   w,
	}, nil
}

// Start watches until the context is cancelled. Reads an initial snapshot
// before waiting for events.
func (pw *ProgressWatcher) Start(ctx context.Context) {
	pw.load()

	go func() {
		defer pw.watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-pw.watcher.Events:
				if !ok {
					return
				}
				if ev.Name != pw.path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					pw.load()
				}
			case err, ok := <-pw.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[checkpoint] progress watcher: %v", err)
			}
		}
	}()
}

// load reads the progress file and pushes a counter snapshot. A missing or
// half-written file is skipped; the next write will be complete.
func (pw *ProgressWatcher) load() {
	data, err := os.ReadFile(pw.path)
	if err != nil {
		return
	}

	var p progressFile
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	pw.evaluator.UpdateCounters(Counters{
		Iterations:        p.Iterations,
		Cost:              p.Cost,
		Elapsed:           time.Since(pw.startedAt),
		Stuck:             p.Stuck,
		ConsecutiveErrors: p.ConsecutiveErrors,
	})
}
