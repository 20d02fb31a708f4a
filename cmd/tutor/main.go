// Command tutor runs a spoken flashcard tutoring session in the terminal.
// It connects the orchestration core to a realtime dialogue agent, an
// optional local note-review service, and the microphone.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestration "github.com/koscakluka/tutor-core/core"
	"github.com/koscakluka/tutor-core/core/audio/miniaudio"
	"github.com/koscakluka/tutor-core/core/audio/portaudio"
	"github.com/koscakluka/tutor-core/core/cards/anki"
	"github.com/koscakluka/tutor-core/core/realtime"
	"github.com/koscakluka/tutor-core/ui"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "Voice flashcard tutor",
		Long: "tutor quizzes you on your flashcards through a spoken conversation " +
			"with a realtime dialogue agent. Without a deck it uses a built-in " +
			"demo deck; with --deck it reviews due cards from a local " +
			"note-review service and records your results there.",
		SilenceUsage: true,
		RunE:         runTutor,
	}

	flags := root.PersistentFlags()
	flags.String("realtime-url", "", "realtime agent websocket url")
	flags.String("model", "", "realtime agent model")
	flags.String("anki-url", anki.DefaultEndpoint, "note-review service endpoint")
	root.Flags().String("deck", "", "deck to review; empty uses the demo deck")
	root.Flags().Bool("no-audio", false, "run without microphone capture")
	root.Flags().String("audio-backend", "miniaudio", "microphone backend (miniaudio or portaudio)")

	viper.SetEnvPrefix("tutor")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(flags)
	viper.BindPFlags(root.Flags())

	root.AddCommand(newDecksCommand())
	return root
}

func newDecksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List decks known to the note-review service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := anki.NewClient(anki.WithEndpoint(viper.GetString("anki-url")))
			names, err := client.DeckNames(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list decks: %w", err)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func runTutor(cmd *cobra.Command, _ []string) error {
	opts := []orchestration.OrchestratorOption{
		orchestration.WithTransportDialer(transportDialer()),
		orchestration.WithRemoteCardSource(
			anki.NewClient(anki.WithEndpoint(viper.GetString("anki-url"))),
		),
	}

	if !viper.GetBool("no-audio") {
		audioInput, err := newAudioInput(viper.GetString("audio-backend"))
		if err != nil {
			return err
		}
		opts = append(opts, orchestration.WithAudioInput(audioInput))
	}

	orchestrator := orchestration.NewOrchestrator(opts...)
	defer orchestrator.Close()

	model := ui.NewModel(orchestrator, viper.GetString("deck"))
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("ui stopped: %w", err)
	}
	return nil
}

func transportDialer() orchestration.TransportDialer {
	var dialOpts []realtime.Option
	if baseURL := viper.GetString("realtime-url"); baseURL != "" {
		dialOpts = append(dialOpts, realtime.WithBaseURL(baseURL))
	}
	if model := viper.GetString("model"); model != "" {
		dialOpts = append(dialOpts, realtime.WithModel(model))
	}
	return func(ctx context.Context) (orchestration.Transport, error) {
		return realtime.Dial(ctx, dialOpts...)
	}
}

func newAudioInput(backend string) (orchestration.AudioInput, error) {
	switch backend {
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize microphone: %w", err)
		}
		return client, nil
	case "portaudio":
		client, err := portaudio.NewClient(1024)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize microphone: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}
