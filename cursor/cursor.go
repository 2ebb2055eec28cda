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

// Package cursor encodes routes-feed pagination state as opaque, URL-safe
// tokens.
//
// A cursor is a pure snapshot of enumeration progress. It carries no secret
// and no capability: decoding a forged token can at worst reposition the feed
// within data the caller could enumerate anyway.
package cursor

import (
	"encoding/base64"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Segment identifies which half of the routes feed a cursor points into.
type Segment string

const (
	// SegmentViews is the precomputed view-route list, addressed by index.
	SegmentViews Segment = "views"

	// SegmentEntities is the per-bundle keyset walk, addressed by bundle
	// index and last-seen identifier.
	SegmentEntities Segment = "entities"
)

// State is the decoded pagination checkpoint.
//
// For SegmentViews only Index is meaningful; for SegmentEntities only
// BundleIndex and LastID are.
type State struct {
	Segment     Segment `msgpack:"s"`
	Index       int     `msgpack:"i,omitempty"`
	BundleIndex int     `msgpack:"b,omitempty"`
	LastID      string  `msgpack:"l,omitempty"`
}

// Encode serializes a state into a URL-safe token without padding.
func Encode(s State) (string, error) {
	raw, err := msgpack.Marshal(&s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a token back into a State.
//
// Decode never fails loudly. An empty or structurally unreadable token
// decodes to nil, which callers treat as "start of the first segment".
// A readable token with an unknown segment tag or negative positions
// degrades to the start of the entity segment, so a tampered cursor can
// never crash a page request or replay the views list indefinitely.
func Decode(token string) *State {
	if token == "" {
		return nil
	}

	// Tolerate clients that re-add standard base64 padding.
	token = strings.TrimRight(token, "=")

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}

	var s State
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return nil
	}

	switch s.Segment {
	case SegmentViews:
		if s.Index < 0 {
			s.Index = 0
		}
		s.BundleIndex = 0
		s.LastID = ""
	case SegmentEntities:
		if s.BundleIndex < 0 {
			s.BundleIndex = 0
			s.LastID = ""
		}
		s.Index = 0
	default:
		return &State{Segment: SegmentEntities}
	}
	return &s
}
