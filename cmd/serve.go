package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/captionforge/captionforge/internal/handlers"
	"github.com/captionforge/captionforge/internal/project"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve <folder>",
		Short: "Serve the dataset engine over HTTP",
		Long: `Opens a project folder and exposes the engine to a UI: the image
list, tag and rating edits, duplicate scans, batch captioning with live
progress, and exports.`,
		Example: `  # Serve on default port 8877
  captionforge serve ./dataset

  # Custom port
  captionforge serve ./dataset --port 3000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := project.Open(args[0])
			if err != nil {
				return err
			}
			handler := handlers.New(store)

			// Set up routes
			mux := http.NewServeMux()
			handler.Register(mux)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Dataset engine available", "addr", addr, "root", store.Root())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8877", "Port to listen on")

	return cmd
}
