package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/testutil"
)

func TestNew_NoFiles(t *testing.T) {
	_, err := New([]string{""}, 0, nil)
	require.Error(t, err)
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	watched := testutil.WriteFile(t, dir, "rules.md", "# 状态\n- 启用\n")
	other := testutil.WriteFile(t, dir, "other.md", "")

	w, err := New([]string{watched}, 20*time.Millisecond, testutil.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		changed []string
	)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) {
			mu.Lock()
			changed = append(changed, path)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte("# 状态\n- 停用\n"), 0o644))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	abs, err := filepath.Abs(watched)
	require.NoError(t, err)
	for _, c := range changed {
		assert.Equal(t, abs, c)
	}
}
