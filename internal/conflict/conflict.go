// Package conflict finds installed resources that share an identity but
// come from different source repositories.
package conflict

import (
	"context"
	"fmt"
	"sort"

	"github.com/tangentlab/switchyard/internal/scope"
	"github.com/tangentlab/switchyard/pkg/types"
)

// Group is one conflicting identity with every contributing copy.
type Group struct {
	Identity  types.Identity    `json:"identity"`
	Repos     []string          `json:"repos"`
	Resources []*types.Resource `json:"-"`
}

// Detect groups resources by identity and returns the groups fed by more
// than one source repository. Resources without a source repository never
// conflict. Detection is read-only.
func Detect(resources []*types.Resource) []Group {
	byIdentity := map[types.Identity][]*types.Resource{}
	for _, res := range resources {
		if res.SourceKey() == "" {
			continue
		}
		byIdentity[res.Identity] = append(byIdentity[res.Identity], res)
	}

	var groups []Group
	for id, copies := range byIdentity {
		repoSet := map[string]bool{}
		for _, res := range copies {
			repoSet[res.SourceKey()] = true
		}
		if len(repoSet) < 2 {
			continue
		}
		repos := make([]string, 0, len(repoSet))
		for key := range repoSet {
			repos = append(repos, key)
		}
		sort.Strings(repos)
		groups = append(groups, Group{Identity: id, Repos: repos, Resources: copies})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Identity.ID() < groups[j].Identity.ID()
	})
	return groups
}

// DetectDiscoverable groups remote listing items by identity and returns
// the identities offered by more than one repository. Installing such an
// identity from a second repository replaces the first repository's copy,
// so collisions are surfaced here, before anything is installed. The
// returned groups carry no resources and cannot be passed to Resolve.
func DetectDiscoverable(items []types.DiscoverableItem) []Group {
	byIdentity := map[types.Identity]map[string]bool{}
	for _, item := range items {
		id := item.Identity()
		if byIdentity[id] == nil {
			byIdentity[id] = map[string]bool{}
		}
		byIdentity[id][item.SourceKey()] = true
	}

	var groups []Group
	for id, repoSet := range byIdentity {
		if len(repoSet) < 2 {
			continue
		}
		repos := make([]string, 0, len(repoSet))
		for key := range repoSet {
			repos = append(repos, key)
		}
		sort.Strings(repos)
		groups = append(groups, Group{Identity: id, Repos: repos})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Identity.ID() < groups[j].Identity.ID()
	})
	return groups
}

// Resolve settles a group by keeping the copies from keepRepo and
// uninstalling every other copy. The caller chooses; nothing is resolved
// automatically.
func Resolve(ctx context.Context, mgr *scope.Manager, group Group, keepRepo string) error {
	kept := false
	for _, repo := range group.Repos {
		if repo == keepRepo {
			kept = true
			break
		}
	}
	if !kept {
		return fmt.Errorf("%w: repository %q does not contribute to %s",
			types.ErrValidation, keepRepo, group.Identity.ID())
	}
	for _, res := range group.Resources {
		if res.SourceKey() == keepRepo {
			continue
		}
		if err := mgr.Uninstall(ctx, res.Identity, res.Scope); err != nil {
			return fmt.Errorf("uninstall %s from %s: %w", res.ID(), res.SourceKey(), err)
		}
	}
	return nil
}
