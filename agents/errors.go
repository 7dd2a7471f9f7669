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

package agents

import (
	"errors"
	"fmt"
)

// MaxTurnsExceededError is returned when the maximum number of turns is exceeded.
type MaxTurnsExceededError struct{ err error }

func (e MaxTurnsExceededError) Error() string { return e.err.Error() }
func (e MaxTurnsExceededError) Unwrap() error { return e.err }

func MaxTurnsExceededErrorf(format string, a ...any) MaxTurnsExceededError {
	return MaxTurnsExceededError{fmt.Errorf(format, a...)}
}

// ModelBehaviorError is returned when the model does something unexpected,
// e.g. calling a tool that doesn't exist, or providing malformed JSON.
type ModelBehaviorError struct{ err error }

func (e ModelBehaviorError) Error() string { return e.err.Error() }
func (e ModelBehaviorError) Unwrap() error { return e.err }

func NewModelBehaviorError(message string) ModelBehaviorError {
	return ModelBehaviorError{errors.New(message)}
}

func ModelBehaviorErrorf(format string, a ...any) ModelBehaviorError {
	return ModelBehaviorError{fmt.Errorf(format, a...)}
}

// UserError is returned when an agent or a run is misconfigured.
type UserError struct{ err error }

func (e UserError) Error() string { return e.err.Error() }
func (e UserError) Unwrap() error { return e.err }

func NewUserError(message string) UserError {
	return UserError{errors.New(message)}
}

func UserErrorf(format string, a ...any) UserError {
	return UserError{fmt.Errorf(format, a...)}
}
