package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmandfork/evelyn/companion"
)

type fakeChannel struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeChannel) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type voiceEndpoint struct {
	channel *fakeChannel
	openErr error
	// dialHook, when set, runs while the dial is still in flight.
	dialHook func()
	cb       companion.VoiceCallbacks
	cfg      companion.VoiceConfig
}

func (e *voiceEndpoint) GenerateReply(ctx context.Context, turns []companion.PayloadTurn, system string) (*companion.Reply, error) {
	return nil, errors.New("not supported")
}

func (e *voiceEndpoint) GenerateImage(ctx context.Context, turns []companion.PayloadTurn, aspect string) (*companion.Image, error) {
	return nil, errors.New("not supported")
}

func (e *voiceEndpoint) OpenVoiceChannel(ctx context.Context, cfg companion.VoiceConfig, cb companion.VoiceCallbacks) (companion.VoiceChannel, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	if e.dialHook != nil {
		e.dialHook()
	}
	e.cb = cb
	e.cfg = cfg
	return e.channel, nil
}

type fakeSource struct {
	mu      sync.Mutex
	onFrame func([]byte)
	started bool
	stopped bool
}

func (s *fakeSource) Start(onFrame func(pcm []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.onFrame = onFrame
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeSource) emit(pcm []byte) {
	s.mu.Lock()
	fn := s.onFrame
	s.mu.Unlock()
	if fn != nil {
		fn(pcm)
	}
}

type fakeRecorder struct {
	mu       sync.Mutex
	segments [][]byte
}

func (r *fakeRecorder) Archive(sessionID string, pcm []byte, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = append(r.segments, pcm)
}

func newTestConnection(ep *voiceEndpoint, reselect func()) (*Connection, *fakeSource, *fakeSink, *fakeRecorder) {
	source := &fakeSource{}
	sink := &fakeSink{}
	rec := &fakeRecorder{}
	conn := NewConnection(Config{
		Endpoint:           ep,
		SessionID:          "test-session",
		Source:             source,
		Sink:               sink,
		Clock:              &fakeClock{},
		RequestReselection: reselect,
		Recorder:           rec,
	})
	return conn, source, sink, rec
}

func TestConnectionLifecycle(t *testing.T) {
	ep := &voiceEndpoint{channel: &fakeChannel{}}
	conn, source, _, _ := newTestConnection(ep, nil)

	assert.Equal(t, StateClosed, conn.State())
	require.NoError(t, conn.Open(context.Background()))
	assert.Equal(t, StateConnecting, conn.State())

	ep.cb.OnOpen()
	assert.Equal(t, StateOpen, conn.State())
	assert.True(t, source.started)

	// Microphone frames flow through to the channel while open.
	source.emit([]byte{1, 2})
	assert.Equal(t, 1, ep.channel.sentCount())

	require.NoError(t, conn.Close())
	assert.Equal(t, StateClosed, conn.State())
	assert.True(t, source.stopped)
	assert.True(t, ep.channel.closed)

	// Frames after close are dropped.
	source.emit([]byte{3, 4})
	assert.Equal(t, 1, ep.channel.sentCount())
}

func TestConnectionOpenWhileOpen(t *testing.T) {
	ep := &voiceEndpoint{channel: &fakeChannel{}}
	conn, _, _, _ := newTestConnection(ep, nil)

	require.NoError(t, conn.Open(context.Background()))
	ep.cb.OnOpen()

	assert.ErrorIs(t, conn.Open(context.Background()), ErrAlreadyOpen)
	assert.Equal(t, StateOpen, conn.State())
}

func TestConnectionClosedWhileDialing(t *testing.T) {
	ep := &voiceEndpoint{channel: &fakeChannel{}}
	conn, _, _, _ := newTestConnection(ep, nil)
	ep.dialHook = func() {
		require.NoError(t, conn.Close())
	}

	err := conn.Open(context.Background())
	assert.ErrorIs(t, err, ErrConnectAborted)
	assert.Equal(t, StateClosed, conn.State())
	// The dialed channel does not leak past the aborted open.
	assert.True(t, ep.channel.closed)
}

func TestConnectionDialFailureTriggersReselection(t *testing.T) {
	ep := &voiceEndpoint{openErr: errors.New("API_KEY_INVALID")}
	reselections := 0
	conn, _, _, _ := newTestConnection(ep, func() { reselections++ })

	err := conn.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateClosed, conn.State())
	assert.Equal(t, 1, reselections)
}

func TestConnectionChannelErrorForcesClosed(t *testing.T) {
	ep := &voiceEndpoint{channel: &fakeChannel{}}
	reselections := 0
	conn, source, _, _ := newTestConnection(ep, func() { reselections++ })

	require.NoError(t, conn.Open(context.Background()))
	ep.cb.OnOpen()
	require.Equal(t, StateOpen, conn.State())

	ep.cb.OnError(errors.New("stream reset"))
	assert.Equal(t, StateClosed, conn.State())
	assert.True(t, source.stopped)
	assert.Equal(t, 1, reselections)
}

func TestConnectionPlaybackAndInterrupt(t *testing.T) {
	ep := &voiceEndpoint{channel: &fakeChannel{}}
	conn, _, sink, rec := newTestConnection(ep, nil)

	require.NoError(t, conn.Open(context.Background()))
	ep.cb.OnOpen()

	ep.cb.OnAudioFrame(pcmOf(100 * time.Millisecond))
	ep.cb.OnAudioFrame(pcmOf(100 * time.Millisecond))
	require.Len(t, sink.scheduled, 2)
	assert.Equal(t, 100*time.Millisecond, sink.scheduled[1].start)

	ep.cb.OnInterrupt()
	assert.True(t, sink.scheduled[0].stopped)
	assert.True(t, sink.scheduled[1].stopped)
	assert.Equal(t, time.Duration(0), conn.scheduler.Watermark())

	// The interrupted speech segment was archived in one piece.
	require.Len(t, rec.segments, 1)
	assert.Len(t, rec.segments[0], len(pcmOf(200*time.Millisecond)))

	require.NoError(t, conn.Close())
}

func TestConnectionRemoteClose(t *testing.T) {
	ep := &voiceEndpoint{channel: &fakeChannel{}}
	conn, source, _, _ := newTestConnection(ep, nil)

	require.NoError(t, conn.Open(context.Background()))
	ep.cb.OnOpen()

	ep.cb.OnClose()
	assert.Equal(t, StateClosed, conn.State())
	assert.True(t, source.stopped)
}
