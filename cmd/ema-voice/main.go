// Command ema-voice is a terminal client for a duplex voice backend: it
// streams the microphone, plays the streamed answer and shows the
// conversation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/ema-duplex/core"
	"github.com/koscakluka/ema-duplex/core/audio/miniaudio"
	"github.com/koscakluka/ema-duplex/core/audio/portaudio"
	"github.com/koscakluka/ema-duplex/core/events"
	"github.com/koscakluka/ema-duplex/core/transport"
	"github.com/koscakluka/ema-duplex/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ema-voice:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}

	if cfg.PrintSchema {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(transport.Schema())
	}

	output, err := miniaudio.NewClient(miniaudio.WithPlaybackSampleRate(cfg.PlaybackSampleRate))
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer output.Close()

	var input orchestration.AudioInput = output
	if cfg.InputBackend == config.InputPortaudio {
		microphone, err := portaudio.NewClient(0, 0)
		if err != nil {
			return fmt.Errorf("failed to open portaudio input: %w", err)
		}
		defer microphone.Close()
		input = microphone
	}

	var program *tea.Program
	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithServerURL(cfg.ServerURL),
		orchestration.WithSessionID(cfg.SessionID),
		orchestration.WithAudioInput(input),
		orchestration.WithAudioOutput(output),
		orchestration.WithPlaybackSampleRate(cfg.PlaybackSampleRate),
		orchestration.WithConstrainedDevice(cfg.ConstrainedDevice),
		orchestration.WithTextOnly(cfg.TextOnly),
		orchestration.WithEventHandler(func(event events.Event) {
			program.Send(eventMsg{event: event})
		}),
	)
	defer orchestrator.Close()

	program = tea.NewProgram(newModel(orchestrator, cfg.ClipDir), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- orchestrator.Run(ctx) }()

	if _, err := program.Run(); err != nil {
		return err
	}

	cancel()
	return <-runErr
}
