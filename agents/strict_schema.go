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
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// EnsureStrictJSONSchema mutates the given JSON schema so that it conforms
// to the "strict" subset accepted by OpenAI structured outputs: every object
// forbids additional properties and lists all of its properties as required.
func EnsureStrictJSONSchema(schema map[string]any) (map[string]any, error) {
	if len(schema) == 0 {
		return map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           map[string]any{},
			"required":             []string{},
		}, nil
	}
	s := strictifier{root: schema}
	return s.visit(schema, nil)
}

type strictifier struct {
	root map[string]any
}

func (s strictifier) visit(node any, path []string) (map[string]any, error) {
	schema, ok := node.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected %#v to be a map[string]any, path=%s", node, strings.Join(path, "/"))
	}

	for _, defKey := range []string{"$defs", "definitions"} {
		defs, ok := schema[defKey].(map[string]any)
		if !ok {
			continue
		}
		for name, def := range defs {
			if _, err := s.visit(def, slices.Concat(path, []string{defKey, name})); err != nil {
				return nil, err
			}
		}
	}

	if typ, _ := schema["type"].(string); typ == "object" {
		switch schema["additionalProperties"] {
		case nil:
			schema["additionalProperties"] = false
		case true:
			return nil, NewUserError(
				"additionalProperties should not be set for object types in a strict JSON schema " +
					"(path " + strings.Join(path, "/") + ")",
			)
		}
	}

	if properties, ok := schema["properties"].(map[string]any); ok {
		required := slices.Sorted(maps.Keys(properties))
		schema["required"] = required
		for _, key := range required {
			prop, err := s.visit(properties[key], slices.Concat(path, []string{"properties", key}))
			if err != nil {
				return nil, err
			}
			properties[key] = prop
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		v, err := s.visit(items, slices.Concat(path, []string{"items"}))
		if err != nil {
			return nil, err
		}
		schema["items"] = v
	}

	for _, key := range []string{"anyOf", "allOf"} {
		variants, ok := schema[key].([]any)
		if !ok {
			continue
		}
		for i, variant := range variants {
			v, err := s.visit(variant, slices.Concat(path, []string{key, strconv.Itoa(i)}))
			if err != nil {
				return nil, err
			}
			variants[i] = v
		}
		if key == "allOf" && len(variants) == 1 {
			delete(schema, "allOf")
			maps.Copy(schema, variants[0].(map[string]any))
		}
	}

	// A nil default carries no information: the model produces null anyway.
	if d, ok := schema["default"]; ok && d == nil {
		delete(schema, "default")
	}

	// "$ref" cannot have siblings, so inline the referenced schema.
	if rawRef, ok := schema["$ref"]; ok && len(schema) > 1 {
		ref, ok := rawRef.(string)
		if !ok {
			return nil, fmt.Errorf("received non-string $ref: %#v", rawRef)
		}
		resolved, err := s.resolveRef(ref)
		if err != nil {
			return nil, err
		}
		delete(schema, "$ref")
		for k, v := range resolved {
			if _, exists := schema[k]; !exists {
				schema[k] = v
			}
		}
		return s.visit(schema, path)
	}

	return schema, nil
}

func (s strictifier) resolveRef(ref string) (map[string]any, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, fmt.Errorf("unexpected $ref format %q: expected `#/` prefix", ref)
	}
	resolved := s.root
	for _, key := range strings.Split(ref[2:], "/") {
		next, ok := resolved[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot resolve $ref %q: %q is not an object", ref, key)
		}
		resolved = next
	}
	return resolved, nil
}
