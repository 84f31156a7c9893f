// Package recorder archives synthesized speech segments from live voice
// sessions as WAV files, one directory per day and session.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/farmandfork/evelyn/audio"
)

// Config for the archive service.
type Config struct {
	// Dir is the base directory for recordings.
	Dir string

	// Workers writing segments concurrently.
	Workers int

	// SampleRate of archived PCM.
	SampleRate int

	// MinDuration below which a segment is dropped as noise.
	MinDuration time.Duration
}

// Segment is one finished stretch of speech queued for archiving.
type Segment struct {
	SessionID string
	PCM       []byte
	Timestamp time.Time
}

// Recorder drains a buffered queue of segments with a small worker pool.
type Recorder struct {
	config  Config
	queue   chan Segment
	workers sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(cfg Config) *Recorder {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.OutputSampleRate
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = time.Second
	}
	return &Recorder{
		config: cfg,
		queue:  make(chan Segment, 100),
	}
}

// Start launches the worker pool.
func (r *Recorder) Start(ctx context.Context) {
	for i := 0; i < r.config.Workers; i++ {
		r.workers.Add(1)
		go r.worker(ctx)
	}
}

// Stop closes the queue and waits for workers to drain it. Segments
// arriving after Stop are dropped.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recorder shutdown timed out")
	}
}

// Archive queues a segment. Full queues drop the segment rather than stall
// the audio path.
func (r *Recorder) Archive(sessionID string, pcm []byte, ts time.Time) {
	if audio.Duration(pcm, r.config.SampleRate) < r.config.MinDuration {
		slog.Debug("Dropping short segment",
			"sessionID", sessionID,
			"bytes", len(pcm))
		return
	}

	// The mutex also orders this send against Stop closing the queue; an
	// audio callback racing shutdown drops the segment instead of sending
	// on a closed channel.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		slog.Warn("Recorder stopped, dropping segment",
			"sessionID", sessionID,
			"bytes", len(pcm))
		return
	}

	select {
	case r.queue <- Segment{SessionID: sessionID, PCM: pcm, Timestamp: ts}:
	default:
		slog.Warn("Recording queue full, dropping segment",
			"sessionID", sessionID,
			"bytes", len(pcm))
	}
}

func (r *Recorder) worker(ctx context.Context) {
	slog.Debug("Recorder worker starting")
	defer func() {
		slog.Debug("Recorder worker shutting down")
		r.workers.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case segment, ok := <-r.queue:
			if !ok {
				return
			}
			if err := r.write(segment); err != nil {
				slog.Error("Failed to write segment",
					"error", err,
					"sessionID", segment.SessionID)
			}
		}
	}
}

func (r *Recorder) write(segment Segment) error {
	dir := filepath.Join(r.config.Dir, segment.Timestamp.Format("20060102"), segment.SessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	name := fmt.Sprintf("audio_%s.wav", segment.Timestamp.Format("150405"))
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer file.Close()

	if err := audio.WriteWavHeader(file, 0, uint32(r.config.SampleRate)); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if _, err := file.Write(segment.PCM); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := audio.UpdateWavHeader(file, uint32(len(segment.PCM))); err != nil {
		return fmt.Errorf("failed to update WAV header: %w", err)
	}

	slog.Info("Archived speech segment",
		"sessionID", segment.SessionID,
		"file", name,
		"bytes", len(segment.PCM))
	return nil
}
