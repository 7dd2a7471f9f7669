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

package research

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is wrapped by every Request validation error.
var ErrInvalidRequest = errors.New("invalid research request")

// Request is the input of a research job.
type Request struct {
	TargetAccount string   `json:"target_account"`
	Topics        []string `json:"topics"`
}

// Validate reports every problem with the request at once.
func (r Request) Validate() error {
	var errs []error
	if strings.TrimSpace(r.TargetAccount) == "" {
		errs = append(errs, errors.New("target_account is required"))
	}
	if len(r.Normalize().Topics) == 0 {
		errs = append(errs, errors.New("topics must contain at least one non-empty topic"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, errors.Join(errs...))
	}
	return nil
}

// Normalize trims whitespace and drops empty or repeated topics, keeping
// their order.
func (r Request) Normalize() Request {
	out := Request{TargetAccount: strings.TrimSpace(r.TargetAccount)}
	seen := make(map[string]struct{}, len(r.Topics))
	for _, topic := range r.Topics {
		topic = strings.TrimSpace(topic)
		key := strings.ToLower(topic)
		if topic == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Topics = append(out.Topics, topic)
	}
	return out
}
