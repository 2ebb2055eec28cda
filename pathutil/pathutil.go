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

// Package pathutil canonicalizes raw request paths into the single shape the
// resolver and routes feed operate on.
package pathutil

import "strings"

// MaxLength is the longest raw input Normalize accepts. Longer inputs
// normalize to the empty string.
const MaxLength = 2048

// Normalize canonicalizes a raw path string.
//
// The result has a single leading slash, no consecutive slashes, no query
// string or fragment, and no trailing slash unless the path is exactly "/".
// Empty input, whitespace-only input, and input longer than MaxLength all
// normalize to the empty string.
//
// Normalize is pure and idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > MaxLength {
		return ""
	}

	// Query string and fragment are not part of a path.
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}

	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}

	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	// Prepending the slash can push a maximum-length input over the cap;
	// the output must never exceed what Normalize itself accepts.
	if len(s) > MaxLength {
		return ""
	}
	return s
}

// SplitQuery separates a combined "path?query" input into its path and raw
// query components. The fragment, if any, is discarded.
func SplitQuery(raw string) (path, rawQuery string) {
	path = raw
	if i := strings.Index(path, "#"); i >= 0 {
		path = path[:i]
	}
	if i := strings.Index(path, "?"); i >= 0 {
		path, rawQuery = path[:i], path[i+1:]
	}
	return path, rawQuery
}
