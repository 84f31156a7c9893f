package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/farmandfork/evelyn/audio"
	"github.com/farmandfork/evelyn/companion"
	"github.com/farmandfork/evelyn/credentials"
	"github.com/farmandfork/evelyn/gemini"
	"github.com/farmandfork/evelyn/live"
	"github.com/farmandfork/evelyn/recorder"
	"github.com/farmandfork/evelyn/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	serveMode := flag.Bool("serve", false, "Run the companion API server")
	configPath := flag.String("config", "companion.yaml", "Path to YAML config file")
	voiceMode := flag.Bool("voice", false, "Run a hands-free live voice session")
	playFile := flag.String("play", "", "Play a recorded session audio file")
	serverCertFile := flag.String("cert", "", "Path to server certificate file")
	serverKeyFile := flag.String("key", "", "Path to server key file")
	listDevices := flag.Bool("list-devices", false, "List available audio input devices")
	deviceID := flag.Int("device", 0, "Audio input device ID to use")
	flag.Parse()

	if *playFile != "" {
		if err := audio.PlayWavFile(*playFile); err != nil {
			slog.Error("Failed to play audio file", "error", err)
		}
		return
	}

	if *listDevices {
		devices, err := live.ListInputDevices()
		if err != nil {
			slog.Error("Failed to list audio devices", "error", err)
			os.Exit(1)
		}

		fmt.Println("Available audio input devices:")
		for i, device := range devices {
			fmt.Printf("[%d] %s\n", i, device.Name)
			fmt.Printf("    Max Input Channels: %d\n", device.MaxInputChannels)
			fmt.Printf("    Default Sample Rate: %f\n", device.DefaultSampleRate)
			fmt.Println()
		}
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err, "path", *configPath)
		os.Exit(1)
	}

	creds := credentials.New(credentials.Config{KeyFile: cfg.KeyFile})
	if creds.Current() == "" {
		slog.Warn("No API credential configured; requests will prompt for reselection",
			"env", credentials.DefaultEnvVar,
			"keyFile", cfg.KeyFile)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Debug("Received shutdown signal")
		cancel()
	}()

	// The key file is watched so an out-of-band reselection takes effect
	// without a restart.
	go func() {
		if err := creds.Watch(ctx); err != nil {
			slog.Error("Credential watcher failed", "error", err)
		}
	}()

	endpoint := gemini.New(gemini.Config{
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		LiveModel:  cfg.LiveModel,
		Voice:      cfg.Voice,
	}, creds.Current)

	switch {
	case *serveMode:
		srv := server.New(server.Config{
			HTTPAddr: cfg.HTTPAddr,
			CertFile: *serverCertFile,
			KeyFile:  *serverKeyFile,
			NewSession: func() *companion.Session {
				return companion.NewSession(companion.Config{
					Endpoint:           endpoint,
					RequestReselection: creds.RequestReselection,
					Persona:            cfg.Persona,
					Greeting:           greetingOf(cfg),
				})
			},
		})
		if err := srv.Start(ctx); err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}

	case *voiceMode:
		var rec *recorder.Recorder
		if cfg.RecordSessions {
			rec = recorder.New(recorder.Config{
				Dir:     cfg.RecordingsDir,
				Workers: cfg.RecorderWorkers,
			})
			rec.Start(ctx)
			defer func() {
				if err := rec.Stop(context.Background()); err != nil {
					slog.Error("Failed to stop recorder", "error", err)
				}
			}()
		}
		if err := runVoice(ctx, endpoint, creds, rec, *deviceID); err != nil {
			slog.Error("Voice session failed", "error", err)
			os.Exit(1)
		}

	default:
		if err := runChat(ctx, endpoint, creds, cfg); err != nil {
			slog.Error("Chat session failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Debug("Program exiting")
}

func greetingOf(cfg Config) string {
	if cfg.Greeting != "" {
		return cfg.Greeting
	}
	return companion.DefaultGreeting
}
