package syncer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangentlab/switchyard/pkg/types"
)

func TestWatcherEmitsDriftEvents(t *testing.T) {
	orch, st, dirs := setupOrch(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := installGlobal(t, st, "commit", "# commit\n", types.AppClaude)
	require.NoError(t, orch.SyncResource(ctx, res))

	watcher, err := NewWatcher(orch, 50*time.Millisecond)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	path := dirs.ResourcePath(types.AppClaude, res.Identity)
	require.NoError(t, os.WriteFile(path, []byte("# edited\n"), 0o644))

	select {
	case events := <-watcher.Events:
		require.NotEmpty(t, events)
		assert.Equal(t, types.ChangeExternalModified, events[0].Type)
		assert.Equal(t, "commit", events[0].ResourceID)
	case <-time.After(5 * time.Second):
		t.Fatal("no drift events before timeout")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherSkipsMissingDirs(t *testing.T) {
	orch, _, _ := setupOrch(t)

	// No live directories exist yet; the watcher still constructs.
	watcher, err := NewWatcher(orch, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, watcher.Run(ctx), context.Canceled)
}
