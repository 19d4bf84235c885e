package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tangentlab/switchyard/pkg/types"
)

// CacheEntry is one cached remote listing for a repository.
type CacheEntry struct {
	RepoOwner  string                   `json:"repoOwner"`
	RepoName   string                   `json:"repoName"`
	RepoBranch string                   `json:"repoBranch"`
	Items      []types.DiscoverableItem `json:"items"`
	FetchedAt  time.Time                `json:"fetchedAt"`
}

// Fresh reports whether the entry is within ttl of its fetch time.
func (e CacheEntry) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// GetCacheEntry returns the cached listing for a repository regardless of
// age, or ErrNotFound. TTL policy is the discovery service's concern.
func (s *Store) GetCacheEntry(owner, name, branch string) (*CacheEntry, error) {
	var entry *CacheEntry
	err := s.read(func(db *sql.DB) error {
		row := db.QueryRow(
			"SELECT repo_owner, repo_name, repo_branch, items, fetched_at FROM discovery_cache WHERE repo_owner = ? AND repo_name = ? AND repo_branch = ?",
			owner, name, branch,
		)
		var (
			e       CacheEntry
			items   string
			fetched string
		)
		err := row.Scan(&e.RepoOwner, &e.RepoName, &e.RepoBranch, &items, &fetched)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: cache entry for %s/%s@%s", types.ErrNotFound, owner, name, branch)
		}
		if err != nil {
			return fmt.Errorf("scan cache entry: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &e.Items); err != nil {
			return fmt.Errorf("decode cached items: %w", err)
		}
		e.FetchedAt = parseTime(fetched)
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PutCacheEntry replaces the cached listing for a repository.
func (s *Store) PutCacheEntry(entry CacheEntry) error {
	items, err := marshalJSON(entry.Items)
	if err != nil {
		return err
	}
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO discovery_cache (repo_owner, repo_name, repo_branch, items, fetched_at)
			VALUES (?, ?, ?, ?, ?)`,
			entry.RepoOwner, entry.RepoName, entry.RepoBranch, items, entry.FetchedAt.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("save cache entry: %w", err)
		}
		return nil
	})
}

// ClearCache evicts matching cache entries and returns the count removed.
// Empty owner clears everything; empty name clears all of one owner. This
// is the only eviction path other than TTL expiry.
func (s *Store) ClearCache(owner, name string) (int, error) {
	var cleared int
	err := s.write(func(tx *sql.Tx) error {
		var (
			res sql.Result
			err error
		)
		switch {
		case owner == "":
			res, err = tx.Exec("DELETE FROM discovery_cache")
		case name == "":
			res, err = tx.Exec("DELETE FROM discovery_cache WHERE repo_owner = ?", owner)
		default:
			res, err = tx.Exec("DELETE FROM discovery_cache WHERE repo_owner = ? AND repo_name = ?", owner, name)
		}
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		cleared = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}
