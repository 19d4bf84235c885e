package syncer

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tangentlab/switchyard/pkg/types"
)

// Watcher observes the live resource directories with fsnotify and re-runs
// drift detection after changes settle. It is advisory: events land in the
// store and on the Events channel, nothing is auto-resolved.
type Watcher struct {
	orch     *Orchestrator
	fs       *fsnotify.Watcher
	debounce time.Duration

	// Events receives the change events of each detection pass.
	Events chan []types.ChangeEvent
}

// NewWatcher registers every existing app kind directory for watching.
// Directories that do not exist yet are skipped.
func NewWatcher(orch *Orchestrator, debounce time.Duration) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w := &Watcher{
		orch:     orch,
		fs:       fs,
		debounce: debounce,
		Events:   make(chan []types.ChangeEvent, 1),
	}
	for _, app := range types.AllApps {
		for _, kind := range types.AllKinds {
			dir := orch.dirs.ResourceDir(app, kind)
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			if err := fs.Add(dir); err != nil {
				fs.Close()
				return nil, err
			}
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, coalescing bursts of filesystem events
// into single drift detection passes.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.orch.log.Warn("watch error", "error", err)
		case <-fire:
			timer, fire = nil, nil
			events, err := w.orch.DetectDrift(ctx)
			if err != nil {
				w.orch.log.Error("drift detection failed", "error", err)
				continue
			}
			if len(events) == 0 {
				continue
			}
			select {
			case w.Events <- events:
			default:
				w.orch.log.Warn("drift events dropped, consumer lagging", "count", len(events))
			}
		}
	}
}
