package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farmandfork/evelyn/audio"
	"github.com/farmandfork/evelyn/companion"
	"github.com/farmandfork/evelyn/credentials"
	"github.com/farmandfork/evelyn/live"
	"github.com/farmandfork/evelyn/recorder"
)

// runChat drives a single companion session from the terminal: one line in,
// one companion turn out.
func runChat(ctx context.Context, endpoint companion.Endpoint, creds *credentials.Provider, cfg Config) error {
	session := companion.NewSession(companion.Config{
		Endpoint:           endpoint,
		RequestReselection: creds.RequestReselection,
		Persona:            cfg.Persona,
		Greeting:           greetingOf(cfg),
	})
	defer session.Close()

	printTurn(session.Transcript()[0])
	fmt.Println("(try one of:", strings.Join(companion.Sparks, " | ")+")")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Text()
		err := session.Submit(ctx, line)
		if errors.Is(err, companion.ErrEmptyUtterance) {
			continue
		}
		if err != nil {
			return err
		}

		turns := session.Transcript()
		printTurn(turns[len(turns)-1])
	}
}

func printTurn(t companion.Turn) {
	fmt.Printf("Evelyn: %s\n", t.Text)
	if len(t.Image) > 0 {
		fmt.Printf("  [generated image, %d bytes %s]\n", len(t.Image), t.ImageMIME)
	}
	for _, c := range t.Citations {
		fmt.Printf("  - %s (%s)\n", c.Title, c.URI)
	}
}

// runVoice opens a hands-free live connection and holds it until the
// context is cancelled or the channel drops.
func runVoice(ctx context.Context, endpoint companion.Endpoint, creds *credentials.Provider, rec *recorder.Recorder, deviceID int) error {
	sessionID := uuid.New()

	sink := live.NewSpeakerSink(audio.OutputSampleRate)
	if err := sink.Start(); err != nil {
		return err
	}
	defer sink.Stop()

	connCfg := live.Config{
		Endpoint:           endpoint,
		SessionID:          sessionID.String(),
		Source:             live.NewMicSource(deviceID),
		Sink:               sink,
		Clock:              sink,
		RequestReselection: creds.RequestReselection,
	}
	if rec != nil {
		connCfg.Recorder = rec
	}

	conn := live.NewConnection(connCfg)
	if err := conn.Open(ctx); err != nil {
		return err
	}
	defer conn.Close()

	fmt.Println("Voice session open. Speak to Evelyn; press Ctrl-C to hang up.")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if conn.State() == live.StateClosed {
				return nil
			}
		}
	}
}
