package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmandfork/evelyn/audio"
)

func TestRecorderWritesSegment(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Dir: dir, Workers: 1, SampleRate: audio.OutputSampleRate})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	ts := time.Date(2024, 10, 12, 16, 30, 5, 0, time.UTC)
	pcm := make([]byte, audio.OutputSampleRate*2*2) // two seconds
	r.Archive("session-a", pcm, ts)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, r.Stop(stopCtx))

	path := filepath.Join(dir, "20241012", "session-a", "audio_163005.wav")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 44+len(pcm))
	assert.Equal(t, "RIFF", string(raw[0:4]))
}

func TestRecorderDropsSegmentsAfterStop(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Dir: dir, Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, r.Stop(stopCtx))

	// A late audio-callback segment racing shutdown is dropped, not a
	// send on the closed queue.
	r.Archive("session-c", make([]byte, audio.OutputSampleRate*2*2), time.Now())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecorderDropsShortSegments(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Dir: dir, Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	// Half a second at the default rate: below the minimum.
	r.Archive("session-b", make([]byte, audio.OutputSampleRate), time.Now())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, r.Stop(stopCtx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
