package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderResolvesFromEnv(t *testing.T) {
	t.Setenv("TEST_COMPANION_KEY", "env-secret")
	p := New(Config{EnvVar: "TEST_COMPANION_KEY"})
	assert.Equal(t, "env-secret", p.Current())
}

func TestProviderFallsBackToKeyFile(t *testing.T) {
	t.Setenv("TEST_COMPANION_KEY", "")
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0600))

	p := New(Config{EnvVar: "TEST_COMPANION_KEY", KeyFile: path})
	assert.Equal(t, "file-secret", p.Current())
}

func TestProviderMissingCredential(t *testing.T) {
	t.Setenv("TEST_COMPANION_KEY", "")
	p := New(Config{EnvVar: "TEST_COMPANION_KEY"})
	assert.Empty(t, p.Current())
}

func TestReloadPicksUpReplacedKey(t *testing.T) {
	t.Setenv("TEST_COMPANION_KEY", "")
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))

	p := New(Config{EnvVar: "TEST_COMPANION_KEY", KeyFile: path})
	require.Equal(t, "old", p.Current())

	require.NoError(t, os.WriteFile(path, []byte("new"), 0600))
	p.Reload()
	assert.Equal(t, "new", p.Current())
}

func TestRequestReselectionInvokesHook(t *testing.T) {
	calls := 0
	p := New(Config{EnvVar: "TEST_COMPANION_KEY", OnReselection: func() { calls++ }})

	p.RequestReselection()
	p.RequestReselection()

	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), p.Reselections())
}

func TestRequestReselectionWithoutHook(t *testing.T) {
	p := New(Config{EnvVar: "TEST_COMPANION_KEY"})
	p.RequestReselection()
	assert.Equal(t, int64(1), p.Reselections())
}

func TestWatchReloadsOnRewrite(t *testing.T) {
	t.Setenv("TEST_COMPANION_KEY", "")
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))

	p := New(Config{EnvVar: "TEST_COMPANION_KEY", KeyFile: path})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	// Give the watcher a moment to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("rotated"), 0600))

	require.Eventually(t, func() bool {
		return p.Current() == "rotated"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
