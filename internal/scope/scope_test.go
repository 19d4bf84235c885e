package scope

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
	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/internal/syncer"
	"github.com/tangentlab/switchyard/pkg/types"
)

func setupManager(t *testing.T) (*Manager, *store.Store, paths.AppDirs) {
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
	orch := syncer.New(st, writer, dirs, log)
	return NewManager(st, orch, log), st, dirs
}

func newResource(id string) *types.Resource {
	res := resfile.BuildResource(types.ParseIdentity(types.KindCommand, id), []byte("# "+id+"\n"))
	res.RepoOwner, res.RepoName, res.RepoBranch = "octo", "toolkit", "main"
	res.Apps = map[types.AppType]bool{types.AppClaude: true}
	return res
}

func TestInstallGlobal(t *testing.T) {
	mgr, st, dirs := setupManager(t)
	ctx := context.Background()

	res := newResource("sc/commit")
	require.NoError(t, mgr.Install(ctx, res, types.GlobalScope()))

	got, err := st.GetResource(res.Identity, types.GlobalScope())
	require.NoError(t, err)
	assert.Equal(t, res.FileHash, got.FileHash)

	data, err := os.ReadFile(dirs.ResourcePath(types.AppClaude, res.Identity))
	require.NoError(t, err)
	assert.Equal(t, "# sc/commit\n", string(data))
}

func TestInstallGlobalReplacesProjectInstalls(t *testing.T) {
	mgr, st, _ := setupManager(t)
	ctx := context.Background()
	projectA, projectB := t.TempDir(), t.TempDir()

	require.NoError(t, mgr.Install(ctx, newResource("deploy"), types.ProjectScope(projectA)))
	require.NoError(t, mgr.Install(ctx, newResource("deploy"), types.ProjectScope(projectB)))

	res := newResource("deploy")
	require.NoError(t, mgr.Install(ctx, res, types.GlobalScope()))

	copies, err := st.ResourceCopies(res.Identity)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.True(t, copies[0].Scope.IsGlobal())

	// Displaced project files were removed.
	for _, project := range []string{projectA, projectB} {
		_, err := os.Stat(paths.ProjectResourcePath(project, res.Identity))
		assert.True(t, os.IsNotExist(err), project)
	}
}

func TestInstallProjectBlockedByGlobal(t *testing.T) {
	mgr, st, _ := setupManager(t)
	ctx := context.Background()
	project := t.TempDir()

	res := newResource("deploy")
	require.NoError(t, mgr.Install(ctx, res, types.GlobalScope()))

	err := mgr.Install(ctx, newResource("deploy"), types.ProjectScope(project))
	assert.ErrorIs(t, err, types.ErrConflict)

	// Nothing was written into the project.
	_, statErr := os.Stat(paths.ProjectResourcePath(project, res.Identity))
	assert.True(t, os.IsNotExist(statErr))

	copies, err := st.ResourceCopies(res.Identity)
	require.NoError(t, err)
	require.Len(t, copies, 1)
}

func TestInstallMultipleProjectsCoexist(t *testing.T) {
	mgr, st, _ := setupManager(t)
	ctx := context.Background()
	projectA, projectB := t.TempDir(), t.TempDir()

	res := newResource("deploy")
	require.NoError(t, mgr.Install(ctx, newResource("deploy"), types.ProjectScope(projectA)))
	require.NoError(t, mgr.Install(ctx, newResource("deploy"), types.ProjectScope(projectB)))

	copies, err := st.ResourceCopies(res.Identity)
	require.NoError(t, err)
	assert.Len(t, copies, 2)

	for _, project := range []string{projectA, projectB} {
		_, err := os.Stat(paths.ProjectResourcePath(project, res.Identity))
		assert.NoError(t, err, project)
	}
}

func TestInstallInvalidScope(t *testing.T) {
	mgr, _, _ := setupManager(t)
	err := mgr.Install(context.Background(), newResource("x"), types.Scope{Kind: "workspace"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestInstallRejectsTraversal(t *testing.T) {
	mgr, _, _ := setupManager(t)
	res := newResource("x")
	res.Namespace = ".."
	err := mgr.Install(context.Background(), res, types.GlobalScope())
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestUninstallRemovesRowAndFiles(t *testing.T) {
	mgr, st, dirs := setupManager(t)
	ctx := context.Background()

	res := newResource("commit")
	require.NoError(t, mgr.Install(ctx, res, types.GlobalScope()))
	require.NoError(t, mgr.Uninstall(ctx, res.Identity, types.GlobalScope()))

	_, err := st.GetResource(res.Identity, types.GlobalScope())
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, statErr := os.Stat(dirs.ResourcePath(types.AppClaude, res.Identity))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUninstallAbsentIsNoop(t *testing.T) {
	mgr, _, _ := setupManager(t)
	err := mgr.Uninstall(context.Background(), types.ParseIdentity(types.KindCommand, "ghost"), types.GlobalScope())
	assert.NoError(t, err)
}

func TestCreateNamespaceValidation(t *testing.T) {
	mgr, _, _ := setupManager(t)

	tests := []struct {
		name  string
		valid bool
	}{
		{"sc", true},
		{"my-tools", true},
		{"a1", true},
		{"", false},
		{"1abc", false},
		{"Has-Upper", false},
		{"with space", false},
		{"-leading", false},
	}
	for _, tt := range tests {
		err := mgr.CreateNamespace(tt.name)
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, types.ErrValidation, tt.name)
		}
	}
}

func TestNamespaceLifecycle(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.CreateNamespace("sc"))
	assert.ErrorIs(t, mgr.CreateNamespace("sc"), types.ErrConflict)

	require.NoError(t, mgr.Install(ctx, newResource("sc/commit"), types.GlobalScope()))
	assert.ErrorIs(t, mgr.DeleteNamespace("sc"), types.ErrNamespaceNotEmpty)

	require.NoError(t, mgr.Uninstall(ctx, types.ParseIdentity(types.KindCommand, "sc/commit"), types.GlobalScope()))
	require.NoError(t, mgr.DeleteNamespace("sc"))

	assert.ErrorIs(t, mgr.DeleteNamespace("sc"), types.ErrNotFound)
}

func TestNamespacesAggregation(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Install(ctx, newResource("sc/commit"), types.GlobalScope()))
	require.NoError(t, mgr.Install(ctx, newResource("sc/review"), types.GlobalScope()))
	require.NoError(t, mgr.Install(ctx, newResource("ops/deploy"), types.GlobalScope()))
	require.NoError(t, mgr.CreateNamespace("empty"))

	namespaces, err := mgr.Namespaces()
	require.NoError(t, err)

	counts := map[string]int{}
	for _, ns := range namespaces {
		counts[ns.Name] = ns.Count
	}
	assert.Equal(t, 2, counts["sc"])
	assert.Equal(t, 1, counts["ops"])
	assert.Equal(t, 0, counts["empty"])
}
