// Package syncer pushes SSOT state out to the live files each app reads,
// and detects when those files drift from what was last written.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tangentlab/switchyard/internal/adapters"
	"github.com/tangentlab/switchyard/internal/atomicfile"
	"github.com/tangentlab/switchyard/internal/paths"
	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/pkg/types"
)

// maxFanout bounds concurrent per-app writes during a resource sync. Each
// app writes a distinct file, so writes never contend on a path.
const maxFanout = 3

// Orchestrator coordinates the store, the atomic writer, and the app
// adapters. All methods are safe for concurrent use; the store serializes
// row updates and each live file is written by at most one goroutine.
type Orchestrator struct {
	store  *store.Store
	writer *atomicfile.Writer
	dirs   paths.AppDirs
	log    *slog.Logger

	now func() time.Time
}

// New returns an orchestrator writing through the given atomic writer.
func New(st *store.Store, writer *atomicfile.Writer, dirs paths.AppDirs, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:  st,
		writer: writer,
		dirs:   dirs,
		log:    log,
		now:    time.Now,
	}
}

// AppError records a per-app sync failure.
type AppError struct {
	App types.AppType
	Err error
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %v", e.App, e.Err)
}

func (e AppError) Unwrap() error { return e.Err }

// SyncResource writes res to every target it is enabled for. Targets are
// written concurrently and fail independently: each successful write is
// recorded in the store before the call returns, and the joined error only
// covers the targets that failed.
func (o *Orchestrator) SyncResource(ctx context.Context, res *types.Resource) error {
	targets := o.targets(res)
	if len(targets) == 0 {
		o.log.Debug("resource has no sync targets", "id", res.ID(), "scope", res.Scope.String())
		return nil
	}

	type outcome struct {
		app types.AppType
		err error
	}
	results := make(chan outcome, len(targets))
	sem := make(chan struct{}, maxFanout)

	var wg sync.WaitGroup
	for app, path := range targets {
		wg.Add(1)
		go func(app types.AppType, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results <- outcome{app, err}
				return
			}
			results <- outcome{app, o.writer.Write(path, res.Content)}
		}(app, path)
	}
	wg.Wait()
	close(results)

	var errs []error
	for r := range results {
		if r.err != nil {
			o.log.Error("sync target failed", "id", res.ID(), "app", r.app, "error", r.err)
			errs = append(errs, AppError{App: r.app, Err: r.err})
			continue
		}
		if err := o.store.MarkSynced(res.Identity, res.Scope, r.app, o.now()); err != nil {
			errs = append(errs, AppError{App: r.app, Err: err})
			continue
		}
		o.log.Debug("synced resource", "id", res.ID(), "app", r.app)
	}
	return errors.Join(errs...)
}

// RemoveResource deletes the live files for res in the given scope. Missing
// files are ignored.
func (o *Orchestrator) RemoveResource(ctx context.Context, res *types.Resource) error {
	var errs []error
	for app, path := range o.targets(res) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, AppError{App: app, Err: err})
			continue
		}
		o.log.Debug("removed live file", "id", res.ID(), "app", app, "path", path)
	}
	return errors.Join(errs...)
}

// SyncProvider renders the active provider for app through its adapter and
// writes the app's live config files. No active provider is a no-op.
func (o *Orchestrator) SyncProvider(ctx context.Context, app types.AppType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := o.store.ActiveProvider(app)
	if errors.Is(err, types.ErrNotFound) {
		o.log.Debug("no active provider", "app", app)
		return nil
	}
	if err != nil {
		return err
	}

	adapter, err := adapters.For(app)
	if err != nil {
		return err
	}
	files, err := adapter.Render(p.Config)
	if err != nil {
		return fmt.Errorf("render provider %q: %w", p.DisplayName, err)
	}
	live, err := o.dirs.LiveFiles(app)
	if err != nil {
		return err
	}
	for role, data := range files {
		path, ok := live[role]
		if !ok {
			return fmt.Errorf("%w: app %s has no live path for role %s", types.ErrValidation, app, role)
		}
		if err := o.writer.Write(path, data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	o.log.Info("synced provider", "app", app, "provider", p.DisplayName)
	return nil
}

// SyncAll regenerates every live target from the SSOT: all resources, then
// every app's active provider. Individual failures are collected, never
// fatal to the pass. This is the recovery path after external damage.
func (o *Orchestrator) SyncAll(ctx context.Context) error {
	resources, err := o.store.ListResources()
	if err != nil {
		return err
	}

	var errs []error
	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := o.SyncResource(ctx, res); err != nil {
			errs = append(errs, fmt.Errorf("resource %s: %w", res.ID(), err))
		}
	}
	for _, app := range types.AllApps {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := o.SyncProvider(ctx, app); err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", app, err))
		}
	}
	o.log.Info("full sync complete", "resources", len(resources), "errors", len(errs))
	return errors.Join(errs...)
}

// targets maps each destination the resource syncs to. Global resources fan
// out to every enabled app's kind directory; project resources live in the
// project's .claude tree only.
func (o *Orchestrator) targets(res *types.Resource) map[types.AppType]string {
	if res.Scope.Kind == types.ScopeProject {
		return map[types.AppType]string{
			types.AppClaude: paths.ProjectResourcePath(res.Scope.ProjectPath, res.Identity),
		}
	}
	out := make(map[types.AppType]string)
	for _, app := range types.AllApps {
		if res.EnabledFor(app) {
			out[app] = o.dirs.ResourcePath(app, res.Identity)
		}
	}
	return out
}
