package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MegaGrindStone/genai-dashboard/internal/handlers"
	"github.com/spf13/cobra"
)

var version = "dev"

const errLoggerKey = "err"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath, port string

	serve := func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context(), cfgPath, port)
	}

	cmd := &cobra.Command{
		Use:          "genai-dashboard",
		Short:        "A dashboard for conversation, image and code generation",
		Long:         `genai-dashboard serves a web dashboard and JSON endpoints that forward requests to generative AI providers.`,
		SilenceUsage: true,
		RunE:         serve,
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on, overrides the configuration")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return cmd
}

func defaultConfigPath() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(cfgDir, "genai-dashboard", "config.yaml")
}

// newServer builds the HTTP server described by cfg.
func newServer(ctx context.Context, cfg config, logger *slog.Logger) (*http.Server, error) {
	chat, err := cfg.Chat.chat(logger)
	if err != nil {
		return nil, err
	}
	image, err := cfg.Image.image(ctx, logger)
	if err != nil {
		return nil, err
	}
	identity, err := cfg.Identity.identity(logger)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	m, err := handlers.NewMain(chat, image, identity, opts, logger)
	if err != nil {
		return nil, err
	}

	if !chat.Configured() {
		logger.Warn("Chat provider has no credential, chat requests will fail", slog.String("provider", chat.Name()))
	}
	if !image.Configured() {
		logger.Warn("Image provider has no credential, image requests will fail", slog.String("provider", image.Name()))
	}

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func runServe(ctx context.Context, cfgPath, port string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogJSON)

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", slog.String(errLoggerKey, err.Error()))
		return err
	}

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("addr", srv.Addr), slog.String("version", version))
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt/terminate signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("Server error", slog.String(errLoggerKey, err.Error()))
		return err

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String(errLoggerKey, err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String(errLoggerKey, err.Error()))
			}
			return err
		}
	}

	return nil
}
