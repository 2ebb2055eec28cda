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

import (
	"context"
	"errors"
	"sort"
	"strings"

	"decoupled.dev/resolver/content"
)

// Route naming conventions the classifier recognizes.
const (
	viewRoutePrefix      = "view."
	entityRoutePrefix    = "entity."
	canonicalRouteSuffix = ".canonical"
)

// viewRef identifies a view page display parsed from a route name.
type viewRef struct {
	ViewID    string
	DisplayID string
}

// classification is the outcome of classifying a matched route: exactly one
// of view and entity is set. A nil classification means the route backs
// neither an entity nor a view, which resolves to not-found upstream.
type classification struct {
	view   *viewRef
	entity *content.Entity
}

// classify turns a route-table match into a view reference or a loaded
// content entity.
//
// Decision order: view-route naming convention first, then any materialized
// entity parameter (avoids a redundant load), then the canonical-route
// naming convention, then a scan of parameters named after known content
// entity types. Load misses are soft; storage failures propagate.
func (r *Resolver) classify(ctx context.Context, match *content.RouteMatch) (*classification, error) {
	if ref, isView := parseViewRoute(match.Name); isView {
		if ref == nil {
			// Malformed view route name: fewer than three segments.
			return nil, nil
		}
		return &classification{view: ref}, nil
	}

	// Parameters are scanned in sorted name order so a route carrying two
	// entity parameters classifies the same way on every run.
	names := paramNames(match)
	for _, name := range names {
		if e, ok := match.Params[name].(*content.Entity); ok && e != nil {
			return &classification{entity: e}, nil
		}
	}

	known, err := r.contentTypeIDs(ctx)
	if err != nil {
		return nil, err
	}

	if typeID, ok := parseCanonicalRoute(match.Name); ok && known[typeID] {
		if e, err := r.loadParam(ctx, match, typeID); err != nil {
			return nil, err
		} else if e != nil {
			return &classification{entity: e}, nil
		}
	}

	for _, name := range names {
		if !known[name] {
			continue
		}
		if e, err := r.loadParam(ctx, match, name); err != nil {
			return nil, err
		} else if e != nil {
			return &classification{entity: e}, nil
		}
	}

	return nil, nil
}

// paramNames returns the route parameter names in sorted order.
func paramNames(match *content.RouteMatch) []string {
	names := make([]string, 0, len(match.Params))
	for name := range match.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadParam loads the entity identified by a raw string route parameter.
// A missing parameter, non-string value, or storage miss yields (nil, nil).
func (r *Resolver) loadParam(ctx context.Context, match *content.RouteMatch, typeID string) (*content.Entity, error) {
	id, ok := match.Params[typeID].(string)
	if !ok || id == "" {
		return nil, nil
	}
	e, err := r.collab.Store.Load(ctx, typeID, id)
	if errors.Is(err, content.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// contentTypeIDs returns the set of known content entity type ids.
func (r *Resolver) contentTypeIDs(ctx context.Context) (map[string]bool, error) {
	types, err := r.collab.Types.ContentTypes(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(types))
	for _, ti := range types {
		ids[ti.ID] = true
	}
	return ids, nil
}

// parseViewRoute recognizes "view.<id>.<display>" route names. The boolean
// reports whether the name uses the view convention at all; a true boolean
// with a nil ref means the name is malformed and unclassifiable.
func parseViewRoute(name string) (*viewRef, bool) {
	if !strings.HasPrefix(name, viewRoutePrefix) {
		return nil, false
	}
	parts := strings.SplitN(name, ".", 3)
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return nil, true
	}
	return &viewRef{ViewID: parts[1], DisplayID: parts[2]}, true
}

// parseCanonicalRoute recognizes "entity.<type>.canonical" route names.
func parseCanonicalRoute(name string) (string, bool) {
	if !strings.HasPrefix(name, entityRoutePrefix) || !strings.HasSuffix(name, canonicalRouteSuffix) {
		return "", false
	}
	typeID := strings.TrimSuffix(strings.TrimPrefix(name, entityRoutePrefix), canonicalRouteSuffix)
	if typeID == "" || strings.Contains(typeID, ".") {
		return "", false
	}
	return typeID, true
}
