// Package batch installs many discovered resources in one pass with
// per-item progress and failure isolation.
package batch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tangentlab/switchyard/internal/resfile"
	"github.com/tangentlab/switchyard/internal/scope"
	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/pkg/types"
)

// Progress reports one attempted install. Index counts attempted items only;
// skipped items are never announced.
type Progress struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Name  string `json:"name"`
}

// Sink receives progress events on the caller's goroutine.
type Sink func(Progress)

// Failure records one item that could not be installed.
type Failure struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// Summary is the outcome of a batch run.
type Summary struct {
	Succeeded int       `json:"succeeded"`
	Skipped   int       `json:"skipped"`
	Failed    []Failure `json:"failed,omitempty"`
}

// ContentFetcher loads the raw file content of a discoverable item.
type ContentFetcher interface {
	FetchContent(ctx context.Context, item types.DiscoverableItem) ([]byte, error)
}

// Installer runs batch installs through the scope manager.
type Installer struct {
	store   *store.Store
	scope   *scope.Manager
	content ContentFetcher
	log     *slog.Logger
}

// NewInstaller returns a batch installer.
func NewInstaller(st *store.Store, mgr *scope.Manager, content ContentFetcher, log *slog.Logger) *Installer {
	if log == nil {
		log = slog.Default()
	}
	return &Installer{store: st, scope: mgr, content: content, log: log}
}

// Run installs items sequentially into sc for the given apps. Items already
// installed in sc are skipped without being attempted; one failure never
// stops the remaining items. Every item either fully installs or is
// untouched.
func (b *Installer) Run(ctx context.Context, items []types.DiscoverableItem, sc types.Scope, apps []types.AppType, sink Sink) (Summary, error) {
	var summary Summary

	pending, skipped, err := b.partition(items, sc)
	if err != nil {
		return summary, err
	}
	summary.Skipped = len(skipped)
	for _, item := range skipped {
		b.log.Debug("already installed, skipping", "item", item.Name())
	}

	// Cancellation is honored between items only. The per-item context never
	// cancels, so an item in flight finishes instead of half-installing.
	itemCtx := context.WithoutCancel(ctx)

	for i, item := range pending {
		if err := ctx.Err(); err != nil {
			b.log.Warn("batch install cancelled", "completed", i, "total", len(pending))
			return summary, err
		}
		if sink != nil {
			sink(Progress{Index: i + 1, Total: len(pending), Name: item.Name()})
		}
		if err := b.installOne(itemCtx, item, sc, apps); err != nil {
			b.log.Error("item install failed", "item", item.Name(), "error", err)
			summary.Failed = append(summary.Failed, Failure{Name: item.Name(), Err: err})
			continue
		}
		summary.Succeeded++
	}
	b.log.Info("batch install finished",
		"succeeded", summary.Succeeded, "skipped", summary.Skipped, "failed", len(summary.Failed))
	return summary, nil
}

// partition splits items into not-yet-installed and already-installed sets.
func (b *Installer) partition(items []types.DiscoverableItem, sc types.Scope) (pending, skipped []types.DiscoverableItem, err error) {
	for _, item := range items {
		_, getErr := b.store.GetResource(item.Identity(), sc)
		switch {
		case getErr == nil:
			skipped = append(skipped, item)
		case errors.Is(getErr, types.ErrNotFound):
			pending = append(pending, item)
		default:
			return nil, nil, getErr
		}
	}
	return pending, skipped, nil
}

func (b *Installer) installOne(ctx context.Context, item types.DiscoverableItem, sc types.Scope, apps []types.AppType) error {
	content, err := b.content.FetchContent(ctx, item)
	if err != nil {
		return err
	}
	res := resfile.BuildResource(item.Identity(), content)
	res.RepoOwner = item.RepoOwner
	res.RepoName = item.RepoName
	res.RepoBranch = item.RepoBranch
	res.Apps = map[types.AppType]bool{}
	for _, app := range apps {
		res.Apps[app] = true
	}
	return b.scope.Install(ctx, res, sc)
}
