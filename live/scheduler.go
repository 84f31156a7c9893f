package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/farmandfork/evelyn/audio"
)

// Clock reports the audio output clock: elapsed playback time since the
// sink started.
type Clock interface {
	Now() time.Duration
}

// Scheduled is one buffer handed to the sink. Stop discards whatever part
// of it has not played yet.
type Scheduled interface {
	Stop()
}

// Sink schedules a PCM16 buffer to begin playing at the given offset on
// the audio clock.
type Sink interface {
	Schedule(pcm []byte, start time.Duration) (Scheduled, error)
}

// Scheduler keeps synthesized speech gapless: each incoming buffer is
// scheduled immediately after the previous one ends, tracked by a
// monotonically advancing watermark. An interruption flushes everything
// still queued or playing and resets the watermark to zero.
type Scheduler struct {
	clock      Clock
	sink       Sink
	sampleRate int

	mu        sync.Mutex
	watermark time.Duration
	active    []activeBuffer
}

type activeBuffer struct {
	handle Scheduled
	end    time.Duration
}

func NewScheduler(clock Clock, sink Sink, sampleRate int) *Scheduler {
	return &Scheduler{
		clock:      clock,
		sink:       sink,
		sampleRate: sampleRate,
	}
}

// Enqueue schedules one received audio frame for playback right after the
// last scheduled buffer ends, never before the current clock position.
func (s *Scheduler) Enqueue(pcm []byte) error {
	d := audio.Duration(pcm, s.sampleRate)
	if d == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.watermark < now {
		s.watermark = now
	}

	handle, err := s.sink.Schedule(pcm, s.watermark)
	if err != nil {
		return err
	}

	// Drop bookkeeping for buffers that have finished playing.
	remaining := s.active[:0]
	for _, b := range s.active {
		if b.end > now {
			remaining = append(remaining, b)
		}
	}
	s.active = append(remaining, activeBuffer{handle: handle, end: s.watermark + d})
	s.watermark += d
	return nil
}

// Flush stops every buffer that has not finished playing and resets the
// watermark, modelling conversational barge-in.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.active {
		b.handle.Stop()
	}
	if len(s.active) > 0 {
		slog.Debug("Flushed playback queue", "buffers", len(s.active))
	}
	s.active = nil
	s.watermark = 0
}

// Watermark returns the offset at which the next buffer would start.
func (s *Scheduler) Watermark() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}
