package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frontline-ai/voice-pipeline/internal/config"
	"github.com/frontline-ai/voice-pipeline/internal/observability"
	"github.com/frontline-ai/voice-pipeline/internal/telephony"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from this config, so fall back to stderr.
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("voice pipeline starting")

	mux := http.NewServeMux()
	mux.HandleFunc("/streams/media", telephony.HandleMediaStream(cfg))
	mux.HandleFunc("/health", observability.HealthHandler)
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"transcription": func() error {
			if cfg.DeepgramAPIKey == "" {
				return fmt.Errorf("transcription API key missing")
			}
			return nil
		},
		"dialogue": func() error {
			if cfg.DialogueAPIKey == "" {
				return fmt.Errorf("dialogue API key missing")
			}
			return nil
		},
		"synthesis": func() error {
			if cfg.SynthesisAPIKey == "" {
				return fmt.Errorf("synthesis API key missing")
			}
			return nil
		},
	}))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/streams/media", cfg.Port)).
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server exited")
}
