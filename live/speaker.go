package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/farmandfork/evelyn/audio"
)

// SpeakerSink plays scheduled buffers through the default output device.
// Because every buffer is scheduled exactly at the watermark, strict FIFO
// draining of the queue realizes the requested start times; the sink also
// serves as the playback clock, counting samples actually consumed by the
// device callback.
type SpeakerSink struct {
	sampleRate int

	mu       sync.Mutex
	stream   *portaudio.Stream
	queue    []*speakerBuffer
	consumed int64
}

type speakerBuffer struct {
	samples []int16
	pos     int
	stopped bool
	sink    *SpeakerSink
}

func (b *speakerBuffer) Stop() {
	b.sink.mu.Lock()
	defer b.sink.mu.Unlock()
	b.stopped = true
}

func NewSpeakerSink(sampleRate int) *SpeakerSink {
	return &SpeakerSink{sampleRate: sampleRate}
}

// Start opens the output stream. The device callback drains the queue and
// pads with silence when it runs dry.
func (s *SpeakerSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return fmt.Errorf("speaker already started")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(
		0,
		audio.Channels,
		float64(s.sampleRate),
		captureFramesPerBuffer,
		s.fill,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	s.stream = stream
	return nil
}

func (s *SpeakerSink) fill(out []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := 0
	for i < len(out) && len(s.queue) > 0 {
		buf := s.queue[0]
		if buf.stopped || buf.pos >= len(buf.samples) {
			s.queue = s.queue[1:]
			continue
		}
		n := copy(out[i:], buf.samples[buf.pos:])
		buf.pos += n
		i += n
	}
	for ; i < len(out); i++ {
		out[i] = 0
	}
	s.consumed += int64(len(out))
}

// Schedule appends the buffer to the playback queue. The start offset is
// already guaranteed by the scheduler to line up with the end of the queue,
// so no gap insertion is needed.
func (s *SpeakerSink) Schedule(pcm []byte, start time.Duration) (Scheduled, error) {
	buf := &speakerBuffer{samples: audio.BytesToSamples(pcm), sink: s}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, buf)
	return buf, nil
}

// Now reports elapsed playback time on the device clock.
func (s *SpeakerSink) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.consumed) * time.Second / time.Duration(s.sampleRate)
}

// Stop releases the output stream.
func (s *SpeakerSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}

	var err error
	if stopErr := s.stream.Stop(); stopErr != nil {
		err = fmt.Errorf("failed to stop output stream: %w", stopErr)
	}
	s.stream.Close()
	s.stream = nil
	s.queue = nil
	portaudio.Terminate()
	return err
}
