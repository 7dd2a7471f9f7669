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
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// OutputTypeInterface describes the final output of an agent. Unless the
// output is plain text, it exposes a JSON schema and parses the JSON
// produced by the model into a Go value.
type OutputTypeInterface interface {
	IsPlainText() bool
	Name() string

	// JSONSchema returns the schema sent to the model. It is only called
	// when the output is not plain text.
	JSONSchema() (map[string]any, error)

	IsStrictJSONSchema() bool

	// ValidateJSON validates and decodes the model output. Failures are
	// reported as ModelBehaviorError.
	ValidateJSON(jsonStr string) (any, error)
}

type OutputTypeOpts struct {
	StrictJSONSchema bool
}

var defaultOutputTypeOpts = OutputTypeOpts{StrictJSONSchema: true}

// OutputType creates an output type for T with a strict schema.
// It panics on error; see SafeOutputType.
func OutputType[T any]() OutputTypeInterface {
	t, err := SafeOutputType[T](defaultOutputTypeOpts)
	if err != nil {
		panic(err)
	}
	return t
}

// SafeOutputType creates an output type for T with custom options.
func SafeOutputType[T any](opts OutputTypeOpts) (OutputTypeInterface, error) {
	var zero T
	if _, ok := any(zero).(string); ok {
		return &outputType[T]{
			isPlainText: true,
			schema:      map[string]any{"type": "string"},
			name:        "string",
		}, nil
	}

	// Values that cannot be a JSON object are wrapped as {"response": ...}.
	isWrapped := !isStruct[T]()
	var toReflect any = zero
	if isWrapped {
		toReflect = wrappedOutput[T]{}
	}

	schema, err := reflectSchema(toReflect, !opts.StrictJSONSchema)
	if err != nil {
		return nil, err
	}
	if opts.StrictJSONSchema {
		schema, err = EnsureStrictJSONSchema(schema)
		if err != nil {
			if userErr := (UserError{}); errors.As(err, &userErr) {
				return nil, UserErrorf("output type %T is not valid for a strict JSON schema: %w", zero, userErr)
			}
			return nil, err
		}
	}

	return &outputType[T]{
		isWrapped: isWrapped,
		schema:    schema,
		strict:    opts.StrictJSONSchema,
		name:      fmt.Sprintf("%T", zero),
	}, nil
}

type wrappedOutput[T any] struct {
	Response T `json:"response"`
}

type outputType[T any] struct {
	isWrapped   bool
	isPlainText bool
	strict      bool
	schema      map[string]any
	name        string

	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
}

func (t *outputType[T]) IsPlainText() bool        { return t.isPlainText }
func (t *outputType[T]) Name() string             { return t.name }
func (t *outputType[T]) IsStrictJSONSchema() bool { return t.strict }

func (t *outputType[T]) JSONSchema() (map[string]any, error) {
	if t.isPlainText {
		return nil, NewUserError("output type is plain text, so no JSON schema is available")
	}
	return t.schema, nil
}

func (t *outputType[T]) ValidateJSON(jsonStr string) (any, error) {
	if t.isPlainText {
		return nil, NewUserError("output type is plain text, so JSON validation is not available")
	}

	t.compileOnce.Do(func() {
		t.compiled, t.compileErr = compileSchema(t.schema)
	})
	if t.compileErr != nil {
		return nil, ModelBehaviorErrorf("failed to compile output JSON schema: %w", t.compileErr)
	}
	if err := ValidateJSON(t.compiled, jsonStr); err != nil {
		return nil, err
	}

	if t.isWrapped {
		var w wrappedOutput[T]
		if err := json.Unmarshal([]byte(jsonStr), &w); err != nil {
			return nil, ModelBehaviorErrorf("failed to unmarshal JSON output (wrapped): %w", err)
		}
		return w.Response, nil
	}
	var out T
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, ModelBehaviorErrorf("failed to unmarshal JSON output: %w", err)
	}
	return out, nil
}

func isStruct[T any]() bool {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ.Kind() == reflect.Struct
}

// reflectSchema builds a JSON schema for v as a generic map. Nested types
// are inlined, so recursive types are not supported.
func reflectSchema(v any, allowAdditional bool) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: allowAdditional,
		ExpandedStruct:            true,
		DoNotReference:            true,
	}
	b, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("failed to JSON-marshal JSON schema: %w", err)
	}
	var schema map[string]any
	if err = json.Unmarshal(b, &schema); err != nil {
		return nil, fmt.Errorf("failed to JSON-unmarshal JSON schema: %w", err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema, nil
}
