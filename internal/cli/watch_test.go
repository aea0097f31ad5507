package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFile_DetectsWrite(t *testing.T) {
	path := writeFlow(t, "flow.json", greetingFlow())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := WatchFile(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	select {
	case got := <-changes:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, got)
	case <-time.After(3 * time.Second):
		t.Fatal("change was not reported")
	}
}

func TestWatchFile_IgnoresSiblings(t *testing.T) {
	path := writeFlow(t, "flow.json", greetingFlow())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := WatchFile(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0644))

	select {
	case <-changes:
		t.Fatal("sibling file reported as a change")
	case <-time.After(4 * debounce):
	}
}

func TestWatchFile_ClosesOnCancel(t *testing.T) {
	path := writeFlow(t, "flow.json", greetingFlow())
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := WatchFile(ctx, path)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestRunWatch_RequiresFile(t *testing.T) {
	err := RunWatch(context.Background(), RunOptions{Watch: true}, nil, nil)
	assert.Error(t, err)

	err = RunWatch(context.Background(), RunOptions{Watch: true, JSON: true, FlowPath: "x.json"}, nil, nil)
	assert.Error(t, err)
}
