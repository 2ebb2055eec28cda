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

package pathutil

import (
	"strings"
	"testing"
)

// FuzzNormalize checks the structural invariants of Normalize for arbitrary
// inputs: idempotence, and the canonical shape of non-empty results.
func FuzzNormalize(f *testing.F) {
	seeds := []string{
		"", "/", "//a//", "/about-us?q=1#f", "   x   ", "?only=query",
		strings.Repeat("a", MaxLength),
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		got := Normalize(raw)

		if Normalize(got) != got {
			t.Fatalf("not idempotent: %q -> %q -> %q", raw, got, Normalize(got))
		}
		if len(got) > MaxLength {
			t.Fatalf("output exceeds cap: %q -> %d chars", raw, len(got))
		}
		if got == "" {
			return
		}
		if !strings.HasPrefix(got, "/") {
			t.Fatalf("missing leading slash: %q -> %q", raw, got)
		}
		if strings.Contains(got, "//") {
			t.Fatalf("consecutive slashes: %q -> %q", raw, got)
		}
		if len(got) > 1 && strings.HasSuffix(got, "/") {
			t.Fatalf("trailing slash: %q -> %q", raw, got)
		}
		if strings.ContainsAny(got, "?#") {
			t.Fatalf("query or fragment survived: %q -> %q", raw, got)
		}
	})
}
