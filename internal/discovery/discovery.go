// Package discovery lists the installable resources of remote repositories,
// caching results so repeated listings stay off the network.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/pkg/types"
)

// Service resolves repository listings through a TTL cache backed by the
// store. Cache entries never expire by eviction; an entry is replaced by the
// next successful fetch or removed by an explicit ClearCache.
type Service struct {
	store         *store.Store
	fetch         Fetcher
	ttl           time.Duration
	staleFallback bool
	log           *slog.Logger

	now func() time.Time
}

// NewService wires a discovery service from the engine configuration.
func NewService(st *store.Store, fetch Fetcher, cfg types.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:         st,
		fetch:         fetch,
		ttl:           cfg.CacheTTL,
		staleFallback: cfg.StaleCacheFallback,
		log:           log,
		now:           time.Now,
	}
}

// Discover lists repo's installable resources. A cache entry younger than
// the TTL is served without touching the network; force bypasses the cache.
// Fetch failures surface as errors unless stale fallback is enabled and an
// expired entry exists.
func (s *Service) Discover(ctx context.Context, repo types.Repository, force bool) ([]types.DiscoverableItem, error) {
	cached, err := s.store.GetCacheEntry(repo.Owner, repo.Name, repo.Branch)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if !force && cached != nil && cached.Fresh(s.ttl, s.now()) {
		s.log.Debug("discovery cache hit", "repo", repo.Key(), "age", s.now().Sub(cached.FetchedAt))
		return cached.Items, nil
	}

	items, fetchErr := s.fetch.ListTree(ctx, repo)
	if fetchErr != nil {
		if s.staleFallback && cached != nil {
			s.log.Warn("serving stale discovery cache after fetch failure",
				"repo", repo.Key(), "age", s.now().Sub(cached.FetchedAt), "error", fetchErr)
			return cached.Items, nil
		}
		return nil, fmt.Errorf("discover %s: %w", repo.Key(), fetchErr)
	}

	entry := store.CacheEntry{
		RepoOwner:  repo.Owner,
		RepoName:   repo.Name,
		RepoBranch: repo.Branch,
		Items:      items,
		FetchedAt:  s.now(),
	}
	if err := s.store.PutCacheEntry(entry); err != nil {
		return nil, err
	}
	s.log.Info("discovered repository", "repo", repo.Key(), "items", len(items))
	return items, nil
}

// ClearCache drops cached listings: both empty clears everything, name
// empty clears one owner. Returns the number of entries removed.
func (s *Service) ClearCache(owner, name string) (int, error) {
	n, err := s.store.ClearCache(owner, name)
	if err != nil {
		return 0, err
	}
	s.log.Info("cleared discovery cache", "entries", n)
	return n, nil
}
