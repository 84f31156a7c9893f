package live

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/farmandfork/evelyn/audio"
)

const captureFramesPerBuffer = 1024

// MicSource captures microphone audio through PortAudio and hands each
// buffer to the connection as little-endian PCM16 bytes.
type MicSource struct {
	deviceID int

	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewMicSource captures from the given input device, or the default device
// when deviceID is zero.
func NewMicSource(deviceID int) *MicSource {
	return &MicSource{deviceID: deviceID}
}

func (m *MicSource) Start(onFrame func(pcm []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return fmt.Errorf("microphone already started")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	params, err := m.inputParams()
	if err != nil {
		portaudio.Terminate()
		return err
	}

	stream, err := portaudio.OpenStream(params, func(in []int16) {
		onFrame(audio.SamplesToBytes(in))
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	m.stream = stream
	return nil
}

func (m *MicSource) inputParams() (portaudio.StreamParameters, error) {
	var device *portaudio.DeviceInfo

	if m.deviceID > 0 {
		devices, err := portaudio.Devices()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get audio devices: %w", err)
		}
		if m.deviceID >= len(devices) {
			return portaudio.StreamParameters{}, fmt.Errorf("invalid device ID %d", m.deviceID)
		}
		device = devices[m.deviceID]
		if device.MaxInputChannels == 0 {
			return portaudio.StreamParameters{}, fmt.Errorf("device %q is not an input device", device.Name)
		}
		slog.Info("Using specified audio device",
			"deviceID", m.deviceID,
			"deviceName", device.Name,
			"sampleRate", device.DefaultSampleRate,
			"inputChannels", device.MaxInputChannels)
	} else {
		defaultDevice, err := portaudio.DefaultInputDevice()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get default input device: %w", err)
		}
		device = defaultDevice
		slog.Info("Using default audio device",
			"deviceName", device.Name,
			"sampleRate", device.DefaultSampleRate,
			"inputChannels", device.MaxInputChannels)
	}

	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: audio.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      audio.InputSampleRate,
		FramesPerBuffer: captureFramesPerBuffer,
	}, nil
}

func (m *MicSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil
	}

	var err error
	if stopErr := m.stream.Stop(); stopErr != nil {
		err = fmt.Errorf("failed to stop audio stream: %w", stopErr)
	}
	m.stream.Close()
	m.stream = nil
	portaudio.Terminate()
	return err
}

// ListInputDevices enumerates available capture devices.
func ListInputDevices() ([]portaudio.DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	inputDevices := make([]portaudio.DeviceInfo, 0)
	for _, device := range devices {
		if device.MaxInputChannels > 0 {
			inputDevices = append(inputDevices, *device)
		}
	}

	return inputDevices, nil
}
