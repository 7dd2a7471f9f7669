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

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nlpodyssey/account-research/jobs"
	"github.com/nlpodyssey/account-research/research"
)

const maxRequestBody = 1 << 20

type createJobResponse struct {
	JobID string `json:"job_id"`
}

type jobResponse struct {
	JobID  string          `json:"job_id"`
	Status jobs.Status     `json:"status"`
	Result json.RawMessage `json:"result"`
	Events []eventResponse `json:"events"`
}

type eventResponse struct {
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req research.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req = req.Normalize()

	id, err := s.runner.Submit(r.Context(), s.crew.Pipeline(req))
	if err != nil {
		s.logger.Error("Failed to submit job", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	s.logger.Info("Job submitted",
		slog.String("job_id", id),
		slog.String("target_account", req.TargetAccount),
		slog.Int("topics", len(req.Topics)))
	s.writeJSON(w, http.StatusAccepted, createJobResponse{JobID: id})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, newJobResponse(job))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"jobs":   s.runner.Registry().Len(),
	})
}

// lookupJob writes a 404 and returns false when the job does not exist.
func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (jobs.Snapshot, bool) {
	job, err := s.runner.Registry().GetJob(r.PathValue("job_id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, "Job not found")
		return jobs.Snapshot{}, false
	}
	if err != nil {
		s.logger.Error("Failed to read job", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "failed to read job")
		return jobs.Snapshot{}, false
	}
	return job, true
}

func newJobResponse(job jobs.Snapshot) jobResponse {
	events := make([]eventResponse, len(job.Events))
	for i, ev := range job.Events {
		events[i] = newEventResponse(ev)
	}
	return jobResponse{
		JobID:  job.ID,
		Status: job.Status,
		Result: renderResult(job.Result),
		Events: events,
	}
}

func newEventResponse(ev jobs.Event) eventResponse {
	return eventResponse{Timestamp: formatTimestamp(ev.Timestamp), Data: ev.Data}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// renderResult converts a job result to its JSON representation:
// structured documents as they are, text as JSON when it parses (as a
// string otherwise), error descriptions as strings and no result as null.
func renderResult(r *jobs.Result) json.RawMessage {
	if r == nil {
		return json.RawMessage("null")
	}
	switch r.Kind {
	case jobs.ResultKindStructured:
		if json.Valid(r.Structured) {
			return r.Structured
		}
		return jsonString(string(r.Structured))
	case jobs.ResultKindText:
		if json.Valid([]byte(r.Text)) {
			return json.RawMessage(r.Text)
		}
		return jsonString(r.Text)
	case jobs.ResultKindError:
		return jsonString(r.Error)
	default:
		return json.RawMessage("null")
	}
}

func jsonString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
