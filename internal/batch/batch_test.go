package batch

import (
	"context"
	"fmt"
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

type fakeContent struct {
	failFor map[string]bool
	fetched int
}

func (f *fakeContent) FetchContent(ctx context.Context, item types.DiscoverableItem) ([]byte, error) {
	f.fetched++
	if f.failFor[item.Name()] {
		return nil, fmt.Errorf("%w: fetch %s", types.ErrRemote, item.Name())
	}
	return []byte("# " + item.Name() + "\n"), nil
}

func setupInstaller(t *testing.T, content ContentFetcher) (*Installer, *store.Store) {
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
	mgr := scope.NewManager(st, syncer.New(st, writer, dirs, log), log)
	return NewInstaller(st, mgr, content, log), st
}

func item(id string) types.DiscoverableItem {
	parsed := types.ParseIdentity(types.KindCommand, id)
	return types.DiscoverableItem{
		Kind:      types.KindCommand,
		Namespace: parsed.Namespace,
		Filename:  parsed.Filename,
		Path:      "commands/" + id + ".md",
		RepoOwner: "octo", RepoName: "toolkit", RepoBranch: "main",
	}
}

func preinstall(t *testing.T, st *store.Store, id string) {
	t.Helper()
	res := resfile.BuildResource(types.ParseIdentity(types.KindCommand, id), []byte("# "+id+"\n"))
	res.RepoOwner, res.RepoName, res.RepoBranch = "octo", "toolkit", "main"
	res.Apps = map[types.AppType]bool{types.AppClaude: true}
	res.Scope = types.GlobalScope()
	_, err := st.InstallGlobal(res)
	require.NoError(t, err)
}

func TestRunSkipsInstalledItems(t *testing.T) {
	content := &fakeContent{}
	installer, st := setupInstaller(t, content)

	var items []types.DiscoverableItem
	for i := 0; i < 10; i++ {
		items = append(items, item(fmt.Sprintf("cmd-%d", i)))
	}
	for i := 0; i < 4; i++ {
		preinstall(t, st, fmt.Sprintf("cmd-%d", i))
	}

	var progress []Progress
	summary, err := installer.Run(context.Background(), items, types.GlobalScope(),
		[]types.AppType{types.AppClaude}, func(p Progress) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Succeeded)
	assert.Equal(t, 4, summary.Skipped)
	assert.Empty(t, summary.Failed)

	// Skipped items were never attempted: 6 fetches, 6 progress events.
	assert.Equal(t, 6, content.fetched)
	require.Len(t, progress, 6)
	assert.Equal(t, Progress{Index: 1, Total: 6, Name: "cmd-4"}, progress[0])
	assert.Equal(t, Progress{Index: 6, Total: 6, Name: "cmd-9"}, progress[5])
}

func TestRunFailureIsolation(t *testing.T) {
	content := &fakeContent{failFor: map[string]bool{"cmd-1": true}}
	installer, st := setupInstaller(t, content)

	items := []types.DiscoverableItem{item("cmd-0"), item("cmd-1"), item("cmd-2")}
	summary, err := installer.Run(context.Background(), items, types.GlobalScope(),
		[]types.AppType{types.AppClaude}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "cmd-1", summary.Failed[0].Name)
	assert.ErrorIs(t, summary.Failed[0].Err, types.ErrRemote)

	// The failed item has no row; siblings do.
	_, err = st.GetResource(types.ParseIdentity(types.KindCommand, "cmd-1"), types.GlobalScope())
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = st.GetResource(types.ParseIdentity(types.KindCommand, "cmd-2"), types.GlobalScope())
	assert.NoError(t, err)
}

func TestRunCancellationBetweenItems(t *testing.T) {
	content := &fakeContent{}
	installer, _ := setupInstaller(t, content)

	ctx, cancel := context.WithCancel(context.Background())
	items := []types.DiscoverableItem{item("cmd-0"), item("cmd-1"), item("cmd-2")}

	var progress int
	summary, err := installer.Run(ctx, items, types.GlobalScope(),
		[]types.AppType{types.AppClaude}, func(p Progress) {
			progress++
			if p.Index == 1 {
				cancel()
			}
		})
	assert.ErrorIs(t, err, context.Canceled)

	// The in-flight item completed before cancellation took effect.
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, progress)
}

func TestRunEmptyInput(t *testing.T) {
	installer, _ := setupInstaller(t, &fakeContent{})
	summary, err := installer.Run(context.Background(), nil, types.GlobalScope(),
		[]types.AppType{types.AppClaude}, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestRunNamespacedItems(t *testing.T) {
	installer, st := setupInstaller(t, &fakeContent{})

	summary, err := installer.Run(context.Background(),
		[]types.DiscoverableItem{item("sc/commit")}, types.GlobalScope(),
		[]types.AppType{types.AppClaude, types.AppCodex}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	got, err := st.GetResource(types.ParseIdentity(types.KindCommand, "sc/commit"), types.GlobalScope())
	require.NoError(t, err)
	assert.Equal(t, "sc", got.Namespace)
	assert.True(t, got.Apps[types.AppClaude])
	assert.True(t, got.Apps[types.AppCodex])
}
