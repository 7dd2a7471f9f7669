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

// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAddr            = ":3001"
	DefaultModel           = "gpt-4o"
	DefaultNumResults      = 3
	DefaultMaxTurns        = 10
	DefaultReviewRounds    = 1
	DefaultShutdownTimeout = 30 * time.Second
)

type Config struct {
	Addr string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string

	ExaAPIKey     string
	ExaBaseURL    string
	ExaNumResults int
	// Requests per second sent to Exa. Zero means unlimited.
	ExaRateLimit float64

	MaxTurns     uint64
	ReviewRounds int

	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration

	// Tracing is disabled when TraceloopAPIKey is empty.
	TraceloopAPIKey  string
	TraceloopBaseURL string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the environment, after loading the
// given .env files. Missing files are ignored; with no arguments ".env" in
// the working directory is tried. Variables already set in the environment
// take precedence over the files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function, reporting every
// invalid or missing value at once.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}
	cfg := &Config{
		Addr:               p.str("ACCOUNT_RESEARCH_ADDR", DefaultAddr),
		OpenAIAPIKey:       p.required("OPENAI_API_KEY"),
		OpenAIBaseURL:      p.str("OPENAI_BASE_URL", ""),
		Model:              p.str("ACCOUNT_RESEARCH_MODEL", DefaultModel),
		ExaAPIKey:          p.required("EXA_API_KEY"),
		ExaBaseURL:         p.str("EXA_BASE_URL", ""),
		ExaNumResults:      p.integer("EXA_NUM_RESULTS", DefaultNumResults, 1),
		ExaRateLimit:       p.number("EXA_RATE_LIMIT", 0),
		MaxTurns:           uint64(p.integer("ACCOUNT_RESEARCH_MAX_TURNS", DefaultMaxTurns, 1)),
		ReviewRounds:       p.integer("ACCOUNT_RESEARCH_REVIEW_ROUNDS", DefaultReviewRounds, 0),
		CORSAllowedOrigins: p.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShutdownTimeout:    p.duration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		TraceloopAPIKey:    p.str("TRACELOOP_API_KEY", ""),
		TraceloopBaseURL:   p.str("TRACELOOP_BASE_URL", ""),
		LogLevel:           p.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat:          p.oneOf("LOG_FORMAT", "text", "text", "json"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger creates the logger described by the configuration, writing to stderr.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(key))
	return v, v != ""
}

func (p *parser) fail(key, format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return def
}

func (p *parser) required(key string) string {
	v, ok := p.lookup(key)
	if !ok {
		p.fail(key, "required")
	}
	return v
}

func (p *parser) integer(key string, def, minValue int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, "not an integer: %q", v)
		return def
	}
	if n < minValue {
		p.fail(key, "must be at least %d, got %d", minValue, n)
		return def
	}
	return n
}

func (p *parser) number(key string, def float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, "not a number: %q", v)
		return def
	}
	if f < 0 {
		p.fail(key, "must not be negative, got %v", f)
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Plain numbers are seconds.
		secs, convErr := strconv.Atoi(v)
		if convErr != nil {
			p.fail(key, "not a duration: %q", v)
			return def
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		p.fail(key, "must be positive, got %s", d)
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, "unknown log level %q", v)
		return def
	}
	return l
}

func (p *parser) oneOf(key, def string, allowed ...string) string {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.fail(key, "must be one of %s, got %q", strings.Join(allowed, ", "), v)
	return def
}
