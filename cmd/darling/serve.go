package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"darling/frontend"
	"darling/internal/bootstrap"
	"darling/internal/ports"
	"darling/internal/providers/wsbridge"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI; the browser handles speech",
		Long: `Serve the to-do list and assistant panel over HTTP. The page uses the
browser's Web Speech API and talks to the assistant over a websocket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			bridge := wsbridge.New(e.log.With().Str("component", "wsbridge").Logger())
			services, err := bootstrap.Build(bootstrap.Options{
				Config: e.cfg,
				Log:    e.log,
				Speech: bridge,
				Chat:   []ports.ChatSink{bridge},
				Status: []ports.StatusSink{bridge},
			})
			if err != nil {
				return err
			}
			defer services.Close()
			bridge.SetCommands(services.Service)

			assets, err := frontend.Dist()
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := services.Run(runCtx); err != nil {
					e.log.Error().Err(err).Msg("event loop stopped")
				}
			}()

			server := &http.Server{
				Addr:              addr,
				Handler:           newServeMux(bridge, assets),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer shutdownCancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			e.log.Info().Str("addr", addr).Msg("serving web UI")
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Darling is running at http://" + addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newServeMux(bridge http.Handler, assets fs.FS) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", bridge)
	mux.Handle("/", http.FileServer(http.FS(assets)))
	return mux
}
