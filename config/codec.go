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
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Format identifies a settings file encoding.
type Format string

// Supported settings file formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// extensionFormats maps file extensions to formats for automatic detection.
var extensionFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".toml": FormatTOML,
	".json": FormatJSON,
}

// detectFormat detects the format from a file extension.
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("cannot detect settings format from extension %q; use WithFileAs to specify one", ext)
}

// decode parses raw file bytes into a nested key-value map.
func decode(format Format, data []byte) (map[string]any, error) {
	out := make(map[string]any)
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format %q", format)
	}
	return out, nil
}
