package conflict

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangentlab/switchyard/internal/atomicfile"
	"github.com/tangentlab/switchyard/internal/paths"
	"github.com/tangentlab/switchyard/internal/resfile"
	"github.com/tangentlab/switchyard/internal/scope"
	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/internal/syncer"
	"github.com/tangentlab/switchyard/pkg/types"
)

func fromRepo(owner, id string) *types.Resource {
	res := resfile.BuildResource(types.ParseIdentity(types.KindCommand, id), []byte("# "+id+"\n"))
	res.RepoOwner, res.RepoName, res.RepoBranch = owner, "toolkit", "main"
	res.Apps = map[types.AppType]bool{types.AppClaude: true}
	res.Scope = types.GlobalScope()
	return res
}

func TestDetectDisjointIdentities(t *testing.T) {
	groups := Detect([]*types.Resource{
		fromRepo("octo", "sc/commit"),
		fromRepo("hub", "sc/review"),
	})
	assert.Empty(t, groups)
}

func TestDetectSameRepoCopies(t *testing.T) {
	a := fromRepo("octo", "deploy")
	b := fromRepo("octo", "deploy")
	b.Scope = types.ProjectScope("/work/app")
	assert.Empty(t, Detect([]*types.Resource{a, b}))
}

func TestDetectCrossRepoConflict(t *testing.T) {
	a := fromRepo("octo", "deploy")
	b := fromRepo("hub", "deploy")
	b.Scope = types.ProjectScope("/work/app")
	c := fromRepo("octo", "sc/commit")

	groups := Detect([]*types.Resource{a, b, c})
	require.Len(t, groups, 1)
	assert.Equal(t, "deploy", groups[0].Identity.ID())
	assert.Equal(t, []string{"hub/toolkit@main", "octo/toolkit@main"}, groups[0].Repos)
	assert.Len(t, groups[0].Resources, 2)
}

func TestDetectIgnoresSourcelessResources(t *testing.T) {
	imported := resfile.BuildResource(types.ParseIdentity(types.KindCommand, "deploy"), []byte("# x\n"))
	imported.Scope = types.GlobalScope()
	groups := Detect([]*types.Resource{imported, fromRepo("octo", "deploy")})
	assert.Empty(t, groups)
}

func TestDetectKindsDoNotCollide(t *testing.T) {
	cmd := fromRepo("octo", "review")
	agent := fromRepo("hub", "review")
	agent.Kind = types.KindAgent
	assert.Empty(t, Detect([]*types.Resource{cmd, agent}))
}

func listedBy(owner, id string) types.DiscoverableItem {
	ident := types.ParseIdentity(types.KindCommand, id)
	return types.DiscoverableItem{
		Kind:       ident.Kind,
		Namespace:  ident.Namespace,
		Filename:   ident.Filename,
		Path:       "commands/" + ident.RelPath(),
		RepoOwner:  owner,
		RepoName:   "toolkit",
		RepoBranch: "main",
	}
}

func TestDetectDiscoverableCrossRepo(t *testing.T) {
	groups := DetectDiscoverable([]types.DiscoverableItem{
		listedBy("octo", "deploy"),
		listedBy("hub", "deploy"),
		listedBy("octo", "sc/commit"),
	})
	require.Len(t, groups, 1)
	assert.Equal(t, "deploy", groups[0].Identity.ID())
	assert.Equal(t, []string{"hub/toolkit@main", "octo/toolkit@main"}, groups[0].Repos)
}

func TestDetectDiscoverableSingleRepo(t *testing.T) {
	groups := DetectDiscoverable([]types.DiscoverableItem{
		listedBy("octo", "deploy"),
		listedBy("octo", "deploy"),
		listedBy("octo", "sc/commit"),
	})
	assert.Empty(t, groups)
}

func TestDetectDiscoverableKindsDoNotCollide(t *testing.T) {
	cmd := listedBy("octo", "review")
	agent := listedBy("hub", "review")
	agent.Kind = types.KindAgent
	assert.Empty(t, DetectDiscoverable([]types.DiscoverableItem{cmd, agent}))
}

func setupResolve(t *testing.T) (*scope.Manager, *store.Store) {
	t.Helper()
	root := t.TempDir()
	st, err := store.Open(types.Config{DataDir: filepath.Join(root, "data")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dirs := paths.AppDirs{
		Claude: filepath.Join(root, "claude"),
		Codex:  filepath.Join(root, "codex"),
		Gemini: filepath.Join(root, "gemini"),
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	writer := atomicfile.NewWriter(filepath.Join(root, "backups"), 3)
	return scope.NewManager(st, syncer.New(st, writer, dirs, log), log), st
}

func TestResolveKeepsChosenRepo(t *testing.T) {
	mgr, st := setupResolve(t)
	ctx := context.Background()
	projectA, projectB := t.TempDir(), t.TempDir()

	require.NoError(t, mgr.Install(ctx, fromRepo("octo", "deploy"), types.ProjectScope(projectA)))
	require.NoError(t, mgr.Install(ctx, fromRepo("hub", "deploy"), types.ProjectScope(projectB)))

	all, err := st.ListResources()
	require.NoError(t, err)
	groups := Detect(all)
	require.Len(t, groups, 1)

	require.NoError(t, Resolve(ctx, mgr, groups[0], "octo/toolkit@main"))

	remaining, err := st.ResourceCopies(types.ParseIdentity(types.KindCommand, "deploy"))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "octo", remaining[0].RepoOwner)
}

func TestResolveUnknownRepo(t *testing.T) {
	mgr, _ := setupResolve(t)
	group := Group{
		Identity: types.ParseIdentity(types.KindCommand, "deploy"),
		Repos:    []string{"octo/toolkit@main", "hub/toolkit@main"},
	}
	err := Resolve(context.Background(), mgr, group, "nobody/none@main")
	assert.ErrorIs(t, err, types.ErrValidation)
}
