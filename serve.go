package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/brunoscheufler/quicknotes/restapi"
	"github.com/spf13/cobra"
)

// ServeOptions holds the load generator settings of the serve command
type ServeOptions struct {
	EnableLoadGen  bool
	Workers        int
	NotesPerWorker int
	RequestsPerMin int
}

func newServeCmd(app *App) *cobra.Command {
	var options ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the notes HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := fmt.Sprintf(":%d", app.Config.HTTP.Port)
			if err := checkPortAvailable(addr); err != nil {
				return err
			}

			httpServer := createHTTPServer(app, addr)

			var simulator *Simulator
			if options.EnableLoadGen {
				simulator = NewSimulator(app.Telemetry, SimulatorOptions{
					Workers:        options.Workers,
					NotesPerWorker: options.NotesPerWorker,
					RequestsPerMin: options.RequestsPerMin,
					BaseURL:        "http://localhost" + addr,
				})
			}

			return runHTTPServer(app.Telemetry.GetLogger(), httpServer, simulator)
		},
	}

	cmd.Flags().Int("port", constants.DefaultPort, "Port to run the HTTP server on")
	cmd.Flags().BoolVar(&options.EnableLoadGen, "gen", false, "Enable load generator")
	cmd.Flags().IntVar(&options.Workers, "concurrency", 3, "Number of load generator workers")
	cmd.Flags().IntVar(&options.NotesPerWorker, "notes", 3, "Number of notes each load generator worker starts with")
	cmd.Flags().IntVar(&options.RequestsPerMin, "rpm", 60, "Requests per minute for each load generator worker")

	return cmd
}

func createHTTPServer(app *App, addr string) *http.Server {
	server := restapi.NewServer(
		restapi.WithNoteStore(app.Store),
		restapi.WithTelemetry(app.Telemetry),
		restapi.WithCORSOrigins(app.Config.HTTP.CORSOrigins...),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
	}
}

// checkPortAvailable checks if the given address is available for binding
func checkPortAvailable(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %s is not available: %w", addr, err)
	}
	listener.Close()
	return nil
}

// checkServerHealth validates that the server is ready by calling /healthz
func checkServerHealth(ctx context.Context, baseURL string) error {
	client := restapi.NewClient(baseURL)

	var lastErr error
	for i := 0; i < constants.MaxHealthCheckRetries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, constants.HealthCheckTimeout)
		_, lastErr = client.Health(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(constants.HealthCheckRetryInterval):
		}
	}

	return fmt.Errorf("server health check failed after retries: %w", lastErr)
}

func runHTTPServer(logger *slog.Logger, httpServer *http.Server, simulator *Simulator) error {
	// Set up signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	stopError := make(chan error, 1)
	go func() {
		<-stop
		stopError <- nil
	}()

	return runServer(logger, httpServer, stopError, simulator)
}

func runServer(logger *slog.Logger, httpServer *http.Server, shutdownTrigger <-chan error, simulator *Simulator) error {
	serverError := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	if simulator != nil {
		go func() {
			time.Sleep(constants.LoadGenStartupDelay)
			if err := checkServerHealth(context.Background(), simulator.BaseURL()); err != nil {
				logger.Error("Load generator could not reach server", "error", err)
				return
			}
			if err := simulator.Start(); err != nil {
				logger.Error("Load generator failed to start", "error", err)
			}
		}()
	}

	select {
	case err := <-serverError:
		return fmt.Errorf("server failed to start: %w", err)
	case err := <-shutdownTrigger:
		logger.Info("Shutting down server...")

		// Stop load generator first
		if simulator != nil {
			simulator.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
		defer cancel()

		if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
			return fmt.Errorf("server shutdown failed: %w", shutdownErr)
		}

		return err
	}
}
