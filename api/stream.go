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
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nlpodyssey/account-research/jobs"
)

const writeWait = 10 * time.Second

type streamEvent struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
}

type streamStatus struct {
	Type   string          `json:"type"`
	JobID  string          `json:"job_id"`
	Status jobs.Status     `json:"status"`
	Result json.RawMessage `json:"result"`
}

// handleStreamEvents upgrades to a WebSocket and sends every event of the
// job in order, then a final status message once the job is terminal.
// Clients joining late receive the events recorded so far first.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookupJob(w, r); !ok {
		return
	}
	id := r.PathValue("job_id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		s.logger.Debug("WebSocket upgrade failed", slog.String("job_id", id), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	// Reading is needed to process control frames and notice the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger := s.logger.With(slog.String("job_id", id))
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	sent := 0
	for {
		job, err := s.runner.Registry().GetJob(id)
		if err != nil {
			logger.Error("Job disappeared while streaming", slog.String("error", err.Error()))
			s.closeStream(conn, websocket.CloseInternalServerErr, "job not available")
			return
		}

		for _, ev := range job.Events[sent:] {
			msg := streamEvent{Type: "event", Timestamp: formatTimestamp(ev.Timestamp), Data: ev.Data}
			if err := s.writeMessage(conn, msg); err != nil {
				logger.Debug("Event stream write failed", slog.String("error", err.Error()))
				return
			}
			sent++
		}

		if job.Status.IsTerminal() {
			msg := streamStatus{Type: "status", JobID: job.ID, Status: job.Status, Result: renderResult(job.Result)}
			if err := s.writeMessage(conn, msg); err != nil {
				logger.Debug("Event stream write failed", slog.String("error", err.Error()))
				return
			}
			s.closeStream(conn, websocket.CloseNormalClosure, "")
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			logger.Debug("Event stream client went away")
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeMessage(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (s *Server) closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
