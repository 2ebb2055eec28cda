// Copyright 2026 The Decoupled Resolver Authors
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

// Package config loads and validates the resolver settings snapshot.
//
// Settings come from layered sources — files (YAML, TOML, JSON), environment
// variables, or literal maps — merged in registration order, bound onto the
// Settings struct, and validated. The result is a plain value passed to
// constructors, never a process-wide singleton, so tests can supply arbitrary
// configurations deterministically.
//
// Example:
//
//	settings, err := config.New(
//	    config.WithFile("/etc/resolver/settings.yaml"),
//	    config.WithEnv("RESOLVER"),
//	).Load(ctx)
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cast"
)

// Loader assembles a Settings snapshot from its sources.
type Loader struct {
	sources []Source
	schema  *jsonschema.Schema
	errs    []error
}

// Option configures a Loader.
type Option func(*Loader)

// WithFile adds a settings file source. The format is detected from the
// extension (.yaml/.yml, .toml, .json). Paths support ${VAR} expansion.
func WithFile(path string) Option {
	return func(l *Loader) {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			l.errs = append(l.errs, err)
			return
		}
		l.sources = append(l.sources, &fileSource{path: path, format: format})
	}
}

// WithFileAs adds a settings file source with an explicit format, for files
// whose extension does not identify one.
func WithFileAs(path string, format Format) Option {
	return func(l *Loader) {
		l.sources = append(l.sources, &fileSource{path: os.ExpandEnv(path), format: format})
	}
}

// WithEnv adds an environment variable source. Variables are matched by
// prefix, lowercased, and nested on double underscores:
// RESOLVER_FEED__SECRET populates feed.secret.
func WithEnv(prefix string) Option {
	return func(l *Loader) {
		l.sources = append(l.sources, &envSource{prefix: prefix})
	}
}

// WithValues adds a literal value source, useful for programmatic overrides
// in tests and embedding applications.
func WithValues(values map[string]any) Option {
	return func(l *Loader) {
		l.sources = append(l.sources, &staticSource{values: values})
	}
}

// WithSource adds a custom source.
func WithSource(src Source) Option {
	return func(l *Loader) {
		if src == nil {
			l.errs = append(l.errs, errors.New("source cannot be nil"))
			return
		}
		l.sources = append(l.sources, src)
	}
}

// WithSchema registers a JSON Schema the merged settings document must
// satisfy before binding. Schema violations fail Load with the compiled
// schema's error detail.
func WithSchema(schemaJSON []byte) Option {
	return func(l *Loader) {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("parse settings schema: %w", err))
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("settings.json", doc); err != nil {
			l.errs = append(l.errs, fmt.Errorf("add settings schema: %w", err))
			return
		}
		schema, err := compiler.Compile("settings.json")
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("compile settings schema: %w", err))
			return
		}
		l.schema = schema
	}
}

// New creates a settings loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges all sources, validates, and binds the Settings snapshot.
// Sources registered later override earlier ones. Absent keys keep their
// Default() values.
func (l *Loader) Load(ctx context.Context) (Settings, error) {
	if len(l.errs) > 0 {
		return Settings{}, errors.Join(l.errs...)
	}

	merged := make(map[string]any)
	for _, src := range l.sources {
		layer, err := src.Load(ctx)
		if err != nil {
			return Settings{}, err
		}
		if err := mergo.Merge(&merged, layer, mergo.WithOverride); err != nil {
			return Settings{}, fmt.Errorf("merge settings: %w", err)
		}
	}

	if l.schema != nil {
		if err := l.validateSchema(merged); err != nil {
			return Settings{}, err
		}
	}

	settings := Default()
	if err := bind(merged, &settings); err != nil {
		return Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// MustLoad loads settings or panics. Intended for application wiring where a
// bad configuration should stop the process.
func (l *Loader) MustLoad(ctx context.Context) Settings {
	s, err := l.Load(ctx)
	if err != nil {
		panic("settings load failed: " + err.Error())
	}
	return s
}

// validateSchema checks the merged document against the registered schema.
// The document is round-tripped through JSON so schema validation sees the
// same value model regardless of which codec produced it.
func (l *Loader) validateSchema(merged map[string]any) error {
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal settings for schema validation: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("reparse settings for schema validation: %w", err)
	}
	if err := l.schema.Validate(doc); err != nil {
		return fmt.Errorf("settings schema violation: %w", err)
	}
	return nil
}

// bind decodes a merged value map onto a Settings struct.
func bind(values map[string]any, target *Settings) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "config",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			castScalarHook,
		),
	})
	if err != nil {
		return fmt.Errorf("build settings decoder: %w", err)
	}
	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("bind settings: %w", err)
	}
	return nil
}

// castScalarHook coerces scalar values (notably env var strings) onto the
// int and bool fields of Settings.
func castScalarHook(from reflect.Value, to reflect.Value) (any, error) {
	if from.Kind() == reflect.String {
		switch to.Kind() {
		case reflect.Int:
			return cast.ToIntE(from.Interface())
		case reflect.Bool:
			return cast.ToBoolE(from.Interface())
		}
	}
	return from.Interface(), nil
}
