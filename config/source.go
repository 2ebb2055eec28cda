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

package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Source loads one layer of settings data. Later sources override earlier
// ones key by key.
type Source interface {
	// Load returns a nested map of settings values. Keys are lowercase.
	Load(ctx context.Context) (map[string]any, error)
}

// fileSource reads a settings file in a fixed format.
type fileSource struct {
	path   string
	format Format
}

func (f *fileSource) Load(context.Context) (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	values, err := decode(f.format, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return values, nil
}

// envSource reads settings from environment variables with a prefix.
// Double underscores create nesting, single underscores stay part of the
// key: RESOLVER_FEED__DEFAULT_LIMIT=25 becomes feed.default_limit=25.
type envSource struct {
	prefix string
}

func (e *envSource) Load(context.Context) (map[string]any, error) {
	values := make(map[string]any)
	prefix := strings.ToUpper(e.prefix)
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		segments := strings.Split(strings.ToLower(strings.TrimPrefix(key, prefix)), "__")

		node := values
		for _, seg := range segments[:len(segments)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
		node[segments[len(segments)-1]] = value
	}
	return values, nil
}

// staticSource holds literal values, used for programmatic defaults.
type staticSource struct {
	values map[string]any
}

func (s *staticSource) Load(context.Context) (map[string]any, error) {
	return s.values, nil
}
