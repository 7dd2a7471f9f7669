// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command account-research serves the account research API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlpodyssey/account-research/agents"
	"github.com/nlpodyssey/account-research/api"
	"github.com/nlpodyssey/account-research/config"
	"github.com/nlpodyssey/account-research/exa"
	"github.com/nlpodyssey/account-research/jobs"
	"github.com/nlpodyssey/account-research/research"
	"github.com/nlpodyssey/account-research/tracing"
	"github.com/openai/openai-go/v2"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "account-research:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	agents.SetLogger(logger.With(slog.String("component", "agents")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	exaOpts := []exa.Option{}
	if cfg.ExaBaseURL != "" {
		exaOpts = append(exaOpts, exa.WithBaseURL(cfg.ExaBaseURL))
	}
	if cfg.ExaRateLimit > 0 {
		exaOpts = append(exaOpts, exa.WithRateLimit(cfg.ExaRateLimit))
	}
	searcher, err := exa.NewClient(cfg.ExaAPIKey, exaOpts...)
	if err != nil {
		return err
	}

	model := agents.NewOpenAIChatCompletionsModel(openai.ChatModel(cfg.Model), agents.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	crew, err := research.NewCrew(research.Config{
		Model:        model,
		Searcher:     searcher,
		NumResults:   cfg.ExaNumResults,
		MaxTurns:     cfg.MaxTurns,
		ReviewRounds: cfg.ReviewRounds,
		Exporter:     exporter,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	runner := jobs.NewRunner(jobs.NewRegistry(jobs.WithLogger(logger)), logger)
	server := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewServer(api.Options{
			Runner:         runner,
			Crew:           crew,
			Logger:         logger,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", slog.String("addr", cfg.Addr), slog.String("model", cfg.Model))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down", slog.Int("jobs_in_flight", runner.InFlight()))
	}

	return shutdown(cfg.ShutdownTimeout, logger, server, runner, exporter)
}

func newExporter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tracing.Exporter, error) {
	if cfg.TraceloopAPIKey == "" {
		return tracing.NoopExporter{}, nil
	}
	exporter, err := tracing.NewTraceloopExporter(ctx, tracing.TraceloopParams{
		APIKey:  cfg.TraceloopAPIKey,
		BaseURL: cfg.TraceloopBaseURL,
		Model:   cfg.Model,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Tracing enabled", slog.String("exporter", "traceloop"))
	return exporter, nil
}

// shutdown stops accepting requests, then waits for in-flight jobs and
// flushes traces, all within timeout.
func shutdown(timeout time.Duration, logger *slog.Logger, server *http.Server, runner *jobs.Runner, exporter tracing.Exporter) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if err := runner.Wait(ctx); err != nil {
		logger.Warn("Jobs still running at shutdown", slog.Int("jobs_in_flight", runner.InFlight()))
		errs = append(errs, fmt.Errorf("wait for jobs: %w", err))
	}
	if err := exporter.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}
	return errors.Join(errs...)
}
