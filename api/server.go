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

// Package api exposes research jobs over HTTP: job submission, status
// polling and a WebSocket stream of job events.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nlpodyssey/account-research/jobs"
	"github.com/nlpodyssey/account-research/research"
)

const DefaultPollInterval = 250 * time.Millisecond

// PipelineFactory builds the pipeline of a research job.
// *research.Crew implements it.
type PipelineFactory interface {
	Pipeline(req research.Request) jobs.Pipeline
}

type Options struct {
	Runner *jobs.Runner
	Crew   PipelineFactory
	Logger *slog.Logger

	// Origins allowed by CORS on /api routes. Empty or "*" allows any origin.
	AllowedOrigins []string

	// How often the event stream checks a job for news.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration
}

// Server serves the HTTP API.
type Server struct {
	runner         *jobs.Runner
	crew           PipelineFactory
	logger         *slog.Logger
	allowedOrigins []string
	pollInterval   time.Duration
	upgrader       websocket.Upgrader
}

func NewServer(opts Options) *Server {
	s := &Server{
		runner:         opts.Runner,
		crew:           opts.Crew,
		logger:         opts.Logger,
		allowedOrigins: opts.AllowedOrigins,
		pollInterval:   opts.PollInterval,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/crew", s.handleCreateJob)
	mux.HandleFunc("GET /api/crew/{job_id}", s.handleGetJob)
	mux.HandleFunc("GET /api/crew/{job_id}/events", s.handleStreamEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.recoverPanics(s.logRequests(s.cors(mux)))
}
