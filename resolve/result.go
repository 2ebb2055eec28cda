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

package resolve

import "encoding/json"

// Kind classifies what a resolved path points at.
type Kind string

// Resolution kinds. The zero value marshals as JSON null and means
// "not resolved".
const (
	// KindEntity is a content entity served through the JSON-resource API.
	KindEntity Kind = "entity"

	// KindView is a view page display served through a data endpoint.
	KindView Kind = "view"

	// KindRedirect is a redirect-table match; no content lookup happened.
	KindRedirect Kind = "redirect"

	// KindRoute is reserved for extension collaborators signalling a
	// non-API-backed route that should be proxied as-is.
	KindRoute Kind = "route"
)

// MarshalJSON renders the zero Kind as null.
func (k Kind) MarshalJSON() ([]byte, error) {
	if k == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(k))
}

// UnmarshalJSON accepts null as the zero Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = Kind(s)
	return nil
}

// EntityRef identifies the API resource backing a resolved entity path.
type EntityRef struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Langcode     string `json:"langcode"`
}

// Redirect is the redirect half of a resolution result. Status is always in
// the 300–399 range.
type Redirect struct {
	To     string `json:"to"`
	Status int    `json:"status"`
}

// Result is the canonical output shape of Resolver.Resolve.
//
// When Resolved is true, exactly one of Entity and Redirect may be non-nil;
// JSONAPIURL is set iff Kind is KindEntity and DataURL iff Kind is KindView.
// A false Resolved means not-found and every other field is its zero value —
// access-denied content is deliberately indistinguishable from content that
// does not exist.
type Result struct {
	Resolved    bool       `json:"resolved"`
	Kind        Kind       `json:"kind"`
	Canonical   *string    `json:"canonical"`
	Entity      *EntityRef `json:"entity"`
	Redirect    *Redirect  `json:"redirect"`
	JSONAPIURL  *string    `json:"jsonapiUrl"`
	DataURL     *string    `json:"dataUrl"`
	Headless    bool       `json:"headless"`
	ExternalURL *string    `json:"externalUrl"`
}

// NotFound returns the single not-found shape every failed resolution
// converges on.
func NotFound() Result {
	return Result{}
}

func strptr(s string) *string { return &s }
