package types

import (
	"path"
	"strings"
	"time"
)

// Identity names a resource independent of where it is installed.
// Namespace is "" for root-level resources.
type Identity struct {
	Kind      ResourceKind `json:"kind"`
	Namespace string       `json:"namespace"`
	Filename  string       `json:"filename"`
}

// ID returns the namespace-qualified identifier: "sc/agent" or "commit".
func (id Identity) ID() string {
	if id.Namespace == "" {
		return id.Filename
	}
	return id.Namespace + "/" + id.Filename
}

// RelPath returns the file path of the resource relative to a kind
// directory: "sc/agent.md".
func (id Identity) RelPath() string {
	return id.ID() + ".md"
}

// ParseIdentity splits a namespace-qualified ID into its identity parts.
// The namespace is everything before the last slash.
func ParseIdentity(kind ResourceKind, id string) Identity {
	ns, name := "", id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		ns, name = id[:i], id[i+1:]
	}
	return Identity{Kind: kind, Namespace: ns, Filename: name}
}

// Resource is one installed copy of an installable artifact. The store keeps
// one row per (identity, scope, project path); content and metadata travel
// with every copy so external files can always be regenerated from the row.
type Resource struct {
	Identity

	Description string `json:"description,omitempty"`

	// Source repository, empty for resources imported from live files.
	RepoOwner  string `json:"repoOwner,omitempty"`
	RepoName   string `json:"repoName,omitempty"`
	RepoBranch string `json:"repoBranch,omitempty"`

	// Apps holds the per-app enabled flags driving sync fan-out.
	Apps map[AppType]bool `json:"apps"`

	Scope Scope `json:"scope"`

	Content  []byte `json:"-"`
	FileHash string `json:"fileHash"`

	InstalledAt time.Time             `json:"installedAt"`
	LastSynced  map[AppType]time.Time `json:"lastSynced,omitempty"`
}

// EnabledFor reports whether sync fan-out includes app.
func (r *Resource) EnabledFor(app AppType) bool {
	return r.Apps[app]
}

// SourceKey returns the owning repository key, or "" when the resource has
// no source repository.
func (r *Resource) SourceKey() string {
	if r.RepoOwner == "" {
		return ""
	}
	return r.RepoOwner + "/" + r.RepoName + "@" + r.RepoBranch
}

// DiscoverableItem is a resource listed in a remote repository that may or
// may not be installed locally.
type DiscoverableItem struct {
	Kind        ResourceKind `json:"kind"`
	Namespace   string       `json:"namespace"`
	Filename    string       `json:"filename"`
	Description string       `json:"description,omitempty"`
	Path        string       `json:"path"`
	SHA         string       `json:"sha"`
	RepoOwner   string       `json:"repoOwner"`
	RepoName    string       `json:"repoName"`
	RepoBranch  string       `json:"repoBranch"`
}

// Identity returns the installable identity of the item.
func (d DiscoverableItem) Identity() Identity {
	return Identity{Kind: d.Kind, Namespace: d.Namespace, Filename: d.Filename}
}

// SourceKey returns the listing repository key.
func (d DiscoverableItem) SourceKey() string {
	return d.RepoOwner + "/" + d.RepoName + "@" + d.RepoBranch
}

// Name returns the display name: the filename without extension, qualified
// by namespace.
func (d DiscoverableItem) Name() string {
	base := strings.TrimSuffix(d.Filename, path.Ext(d.Filename))
	if d.Namespace == "" {
		return base
	}
	return d.Namespace + "/" + base
}

// Project is a discovered project root. Derived read-only data owned by the
// project locator, never stored.
type Project struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	LastUsed time.Time `json:"lastUsed"`
	IsValid  bool      `json:"isValid"`
}
