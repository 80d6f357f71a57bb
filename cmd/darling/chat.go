package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"darling/internal/bootstrap"
	"darling/internal/config"
	"darling/internal/ports"
)

func newChatCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant by typing",
		Long:  "Start a text conversation. Typed requests never need the wake phrase.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			printer := newChatPrinter(out, false)
			services, err := bootstrap.Build(bootstrap.Options{
				Config: e.cfg,
				Log:    e.log,
				Chat:   []ports.ChatSink{printer},
			})
			if err != nil {
				return err
			}
			defer services.Close()

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := services.Run(runCtx); err != nil {
					e.log.Error().Err(err).Msg("event loop stopped")
				}
			}()

			input := chatInput(cmd.InOrStdin(), out)
			defer input.Close()

			printer.Println(dimStyle.Render(`Type a request such as "add task buy milk", or "exit" to quit.`))
			return runChat(runCtx, services, input)
		},
	}
}

// chatInput uses readline on a terminal and a plain reader otherwise.
func chatInput(in io.Reader, out io.Writer) lineInput {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		if input, err := newReadlineInput(historyPath()); err == nil {
			return input
		}
	}
	return newBasicLineInput(in, out)
}

func historyPath() string {
	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chat_history")
}

func runChat(ctx context.Context, services *bootstrap.Services, input lineInput) error {
	for {
		line, err := input.ReadLine("> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return nil
			}
			return err
		}
		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if _, err := services.Service.ProcessText(ctx, text); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("process %q: %w", text, err)
		}
	}
}
