package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"darling/internal/bootstrap"
	"darling/internal/ports"
)

func newListenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Talk to the assistant through the microphone",
		Long: `Capture the microphone with ffmpeg, transcribe it with Deepgram and speak
replies with the configured speech command. Requires DEEPGRAM_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printer := newChatPrinter(cmd.OutOrStdout(), true)
			services, err := bootstrap.Build(bootstrap.Options{
				Config: e.cfg,
				Log:    e.log,
				Speech: bootstrap.NativeSpeech(e.cfg, e.log),
				Chat:   []ports.ChatSink{printer},
			})
			if err != nil {
				return err
			}
			defer services.Close()

			// The loop outlives ctx so the assistant can be closed after Ctrl+C.
			runCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- services.Run(runCtx) }()

			if err := services.Service.OpenAssistant(runCtx); err != nil {
				return err
			}
			status, err := services.Service.Status(runCtx)
			if err != nil {
				return err
			}
			if !status.VoiceAvailable {
				return fmt.Errorf("voice input is unavailable; try 'darling chat' instead")
			}
			printer.Println(dimStyle.Render(fmt.Sprintf("Say %q to begin. Press Ctrl+C to stop.", e.cfg.Assistant.WakePhrase)))

			select {
			case <-ctx.Done():
			case err := <-done:
				return err
			}

			closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer closeCancel()
			if err := services.Service.CloseAssistant(closeCtx); err != nil {
				e.log.Warn().Err(err).Msg("close assistant")
			}
			return nil
		},
	}
}
