package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangentlab/switchyard/pkg/types"
)

// setupStore opens a store on a temp data dir and closes it on cleanup.
func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testResource(id string) *types.Resource {
	return &types.Resource{
		Identity:  types.ParseIdentity(types.KindCommand, id),
		RepoOwner: "octo", RepoName: "toolkit", RepoBranch: "main",
		Apps:     map[types.AppType]bool{types.AppClaude: true, types.AppCodex: true},
		Content:  []byte("# " + id + "\n"),
		FileHash: "hash-" + id,
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	_, err := Open(types.Config{})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestStoreClosed(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListResources()
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	err = s.DeleteProvider("x")
	assert.ErrorIs(t, err, types.ErrStoreClosed)

	// Close is idempotent.
	assert.NoError(t, s.Close())
}

func TestProviderCRUD(t *testing.T) {
	s := setupStore(t)

	p := &types.Provider{
		App:         types.AppClaude,
		DisplayName: "Anthropic Official",
		Config:      json.RawMessage(`{"settings":{"env":{"ANTHROPIC_BASE_URL":"https://api.anthropic.com"}}}`),
	}
	require.NoError(t, s.SaveProvider(p))
	require.NotEmpty(t, p.ID)
	assert.False(t, p.Active, "new providers start inactive")

	got, err := s.GetProvider(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anthropic Official", got.DisplayName)
	assert.JSONEq(t, string(p.Config), string(got.Config))

	p.DisplayName = "Anthropic"
	require.NoError(t, s.SaveProvider(p))
	got, err = s.GetProvider(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anthropic", got.DisplayName)

	require.NoError(t, s.DeleteProvider(p.ID))
	_, err = s.GetProvider(p.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteProvider(p.ID))
}

func TestSwitchActiveProvider(t *testing.T) {
	s := setupStore(t)

	a := &types.Provider{App: types.AppClaude, DisplayName: "A", Config: json.RawMessage(`{}`)}
	b := &types.Provider{App: types.AppClaude, DisplayName: "B", Config: json.RawMessage(`{}`)}
	other := &types.Provider{App: types.AppCodex, DisplayName: "C", Config: json.RawMessage(`{}`)}
	require.NoError(t, s.SaveProvider(a))
	require.NoError(t, s.SaveProvider(b))
	require.NoError(t, s.SaveProvider(other))

	require.NoError(t, s.SwitchActiveProvider(types.AppClaude, a.ID))
	require.NoError(t, s.SwitchActiveProvider(types.AppCodex, other.ID))

	active, err := s.ActiveProvider(types.AppClaude)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	// Switching to b deactivates a in the same operation.
	require.NoError(t, s.SwitchActiveProvider(types.AppClaude, b.ID))
	active, err = s.ActiveProvider(types.AppClaude)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	list, err := s.ListProviders(types.AppClaude)
	require.NoError(t, err)
	activeCount := 0
	for _, p := range list {
		if p.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one active provider per app")

	// The codex provider is untouched.
	active, err = s.ActiveProvider(types.AppCodex)
	require.NoError(t, err)
	assert.Equal(t, other.ID, active.ID)

	// Switching to a missing provider changes nothing.
	err = s.SwitchActiveProvider(types.AppClaude, "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	active, err = s.ActiveProvider(types.AppClaude)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	// A provider cannot be activated under the wrong app.
	err = s.SwitchActiveProvider(types.AppGemini, b.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRepositoryLifecycle(t *testing.T) {
	s := setupStore(t)

	repo := types.Repository{
		Owner: "octo", Name: "toolkit", Branch: "main",
		Enabled:      true,
		Descriptions: map[string]string{"en": "Shared commands"},
	}
	require.NoError(t, s.UpsertRepository(repo))

	got, err := s.GetRepository("octo", "toolkit")
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, "Shared commands", got.Description("en"))

	require.NoError(t, s.SetRepositoryEnabled("octo", "toolkit", false))

	// A later upsert (manifest reconcile) must not re-enable it.
	require.NoError(t, s.UpsertRepository(repo))
	got, err = s.GetRepository("octo", "toolkit")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, s.DeleteRepository("octo", "toolkit"))
	_, err = s.GetRepository("octo", "toolkit")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBuiltinRepositoryCannotBeDeleted(t *testing.T) {
	s := setupStore(t)

	repo := types.Repository{Owner: "octo", Name: "builtin-pack", Branch: "main", Enabled: true, Builtin: true}
	require.NoError(t, s.UpsertRepository(repo))

	err := s.DeleteRepository("octo", "builtin-pack")
	assert.ErrorIs(t, err, types.ErrBuiltinRepo)

	// Disabling is still allowed.
	assert.NoError(t, s.SetRepositoryEnabled("octo", "builtin-pack", false))
}

func TestGlobalInstallReplacesProjectInstalls(t *testing.T) {
	s := setupStore(t)

	res := testResource("sc/agent")
	require.NoError(t, s.InstallProject(res, "/work/a"))
	require.NoError(t, s.InstallProject(testResource("sc/agent"), "/work/b"))

	copies, err := s.ResourceCopies(res.Identity)
	require.NoError(t, err)
	require.Len(t, copies, 2)

	displaced, err := s.InstallGlobal(testResource("sc/agent"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/work/a", "/work/b"}, displaced)

	copies, err = s.ResourceCopies(res.Identity)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.True(t, copies[0].Scope.IsGlobal())
}

func TestProjectInstallBlockedByGlobal(t *testing.T) {
	s := setupStore(t)

	_, err := s.InstallGlobal(testResource("sc/agent"))
	require.NoError(t, err)

	err = s.InstallProject(testResource("sc/agent"), "/work/c")
	assert.ErrorIs(t, err, types.ErrConflict)

	// State unchanged: one global row, no project rows.
	copies, err := s.ResourceCopies(types.ParseIdentity(types.KindCommand, "sc/agent"))
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.True(t, copies[0].Scope.IsGlobal())
}

func TestMultipleProjectInstallsCoexist(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.InstallProject(testResource("lint"), "/work/a"))
	require.NoError(t, s.InstallProject(testResource("lint"), "/work/b"))

	copies, err := s.ResourceCopies(types.ParseIdentity(types.KindCommand, "lint"))
	require.NoError(t, err)
	assert.Len(t, copies, 2)
}

func TestUninstallIsIdempotent(t *testing.T) {
	s := setupStore(t)
	id := types.ParseIdentity(types.KindCommand, "lint")

	require.NoError(t, s.InstallProject(testResource("lint"), "/work/a"))
	require.NoError(t, s.Uninstall(id, types.ProjectScope("/work/a")))
	require.NoError(t, s.Uninstall(id, types.ProjectScope("/work/a")), "uninstalling an absent copy is a no-op")

	copies, err := s.ResourceCopies(id)
	require.NoError(t, err)
	assert.Empty(t, copies)
}

func TestNamespaceGuards(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.CreateNamespace("tools"))
	err := s.CreateNamespace("tools")
	assert.ErrorIs(t, err, types.ErrConflict)

	res := testResource("tools/commit")
	_, err = s.InstallGlobal(res)
	require.NoError(t, err)

	err = s.DeleteNamespace("tools")
	assert.ErrorIs(t, err, types.ErrNamespaceNotEmpty)

	// Namespace and its resource both survive a blocked delete.
	namespaces, err := s.Namespaces()
	require.NoError(t, err)
	require.Len(t, namespaces, 1)
	assert.Equal(t, "tools", namespaces[0].Name)
	assert.Equal(t, 1, namespaces[0].Count)

	require.NoError(t, s.Uninstall(res.Identity, types.GlobalScope()))
	require.NoError(t, s.DeleteNamespace("tools"))

	err = s.DeleteNamespace("tools")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestNamespaceAggregationIncludesImplied(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.CreateNamespace("empty-ns"))
	_, err := s.InstallGlobal(testResource("sc/agent"))
	require.NoError(t, err)
	_, err = s.InstallGlobal(testResource("commit"))
	require.NoError(t, err)

	namespaces, err := s.Namespaces()
	require.NoError(t, err)
	byName := map[string]int{}
	for _, ns := range namespaces {
		byName[ns.Name] = ns.Count
	}
	assert.Equal(t, map[string]int{"": 1, "empty-ns": 0, "sc": 1}, byName)
}

func TestMarkSyncedAndContentUpdate(t *testing.T) {
	s := setupStore(t)

	res := testResource("sc/agent")
	_, err := s.InstallGlobal(res)
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkSynced(res.Identity, types.GlobalScope(), types.AppClaude, at))

	got, err := s.GetResource(res.Identity, types.GlobalScope())
	require.NoError(t, err)
	assert.True(t, got.LastSynced[types.AppClaude].Equal(at))
	_, ok := got.LastSynced[types.AppCodex]
	assert.False(t, ok, "unsynced app has no timestamp")

	require.NoError(t, s.UpdateResourceContent(res.Identity, types.GlobalScope(), []byte("new"), "hash2"))
	got, err = s.GetResource(res.Identity, types.GlobalScope())
	require.NoError(t, err)
	assert.Equal(t, "new", string(got.Content))
	assert.Equal(t, "hash2", got.FileHash)
	assert.Empty(t, got.LastSynced, "content update clears sync state")
}

func TestCacheEntryRoundTrip(t *testing.T) {
	s := setupStore(t)

	entry := CacheEntry{
		RepoOwner: "octo", RepoName: "toolkit", RepoBranch: "main",
		Items: []types.DiscoverableItem{
			{Kind: types.KindCommand, Namespace: "sc", Filename: "agent", Path: "commands/sc/agent.md", SHA: "abc"},
		},
		FetchedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutCacheEntry(entry))

	got, err := s.GetCacheEntry("octo", "toolkit", "main")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "agent", got.Items[0].Filename)
	assert.True(t, got.Fresh(time.Hour, time.Now()))
	assert.False(t, got.Fresh(time.Nanosecond, time.Now().Add(time.Second)))

	cleared, err := s.ClearCache("octo", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, err = s.GetCacheEntry("octo", "toolkit", "main")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestChangeEventLifecycle(t *testing.T) {
	s := setupStore(t)

	events := []types.ChangeEvent{
		{Type: types.ChangeExternalModified, App: types.AppClaude, ResourceID: "sc/agent", Path: "/h/.claude/commands/sc/agent.md", DetectedAt: time.Now()},
	}
	require.NoError(t, s.RecordChangeEvents(events))
	require.NotEmpty(t, events[0].ID)

	listed, err := s.ListChangeEvents()
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// A re-detection for the same path replaces the old event.
	require.NoError(t, s.RecordChangeEvents([]types.ChangeEvent{
		{Type: types.ChangeExternalDeleted, Path: "/h/.claude/commands/sc/agent.md", DetectedAt: time.Now()},
	}))
	listed, err = s.ListChangeEvents()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, types.ChangeExternalDeleted, listed[0].Type)

	require.NoError(t, s.ResolveChangeEvent(listed[0].ID))
	listed, err = s.ListChangeEvents()
	require.NoError(t, err)
	assert.Empty(t, listed)
}
