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

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"time"
)

// NewTestLogger creates a JSON logger writing into an in-memory buffer, for
// asserting on emitted entries.
func NewTestLogger() (*Config, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return MustNew(WithJSONHandler(), WithOutput(buf), WithLevel(LevelDebug)), buf
}

// Entry is a parsed log entry for test assertions.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Attrs   map[string]any
}

// ParseEntries parses JSON log entries from a buffer without consuming it.
func ParseEntries(buf *bytes.Buffer) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var raw map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			return nil, err
		}
		e := Entry{Attrs: make(map[string]any)}
		if msg, ok := raw["msg"].(string); ok {
			e.Message = msg
		}
		if level, ok := raw["level"].(string); ok {
			e.Level = level
		}
		for k, v := range raw {
			if k != "time" && k != "level" && k != "msg" {
				e.Attrs[k] = v
			}
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
