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

package content

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates that an entity does not exist in storage.
	ErrNotFound = errors.New("entity not found")

	// ErrNoRoute indicates that an internal path matches no route.
	ErrNoRoute = errors.New("no matching route")

	// ErrNoAlias indicates that no alias exists for an internal path.
	ErrNoAlias = errors.New("no alias for path")
)

// Entity is a content entity as seen by the resolver core.
//
// Aliases maps langcodes to the preferred human-facing path for that
// language. Internal is the system path (e.g. "/node/42") that route
// matching operates on.
type Entity struct {
	ID       uuid.UUID
	TypeID   string // content entity type, e.g. "node"
	BundleID string // sub-type, e.g. "page"
	Langcode string
	Internal string
	Aliases  map[string]string
}

// ResourceType returns the JSON:API resource type name, e.g. "node--page".
func (e *Entity) ResourceType() string {
	return e.TypeID + "--" + e.BundleID
}

// TypeInfo describes one content entity type exposed by the repository.
type TypeInfo struct {
	ID           string   // entity type id, e.g. "node"
	Bundles      []string // bundle ids, e.g. ["article", "page"]
	HasCanonical bool     // whether the type has a canonical display route
}

// RouteMatch is the outcome of matching an internal path against the route
// table. Params may hold materialized *Entity values (preferred, avoids a
// redundant load) or raw identifier strings keyed by entity type id.
type RouteMatch struct {
	Name   string
	Params map[string]any
}

// ViewPage describes one page-type view display.
type ViewPage struct {
	ViewID    string
	DisplayID string
	Path      string
}

// Redirect is a redirect table row returned by RedirectLookup.
type Redirect struct {
	To     string
	Status int
}

// Store loads entities by type and identifier.
//
// Load returns ErrNotFound (possibly wrapped) when no entity exists; any
// other error indicates a storage failure and is propagated by callers.
type Store interface {
	Load(ctx context.Context, entityTypeID, id string) (*Entity, error)
}

// Query performs keyset-paginated identifier queries against one bundle.
type Query interface {
	// IDs returns up to limit entity identifiers of the given type and
	// bundle, strictly greater than afterID, in ascending identifier order.
	// An empty afterID starts at the beginning of the bundle.
	IDs(ctx context.Context, entityTypeID, bundleID, afterID string, limit int) ([]string, error)
}

// AliasManager translates between human-facing aliases and internal paths.
type AliasManager interface {
	// ToInternal resolves an alias to its internal path. Paths that are not
	// aliased are returned unchanged.
	ToInternal(ctx context.Context, alias, langcode string) (string, error)

	// ToAlias returns the preferred alias for an internal path, or
	// ErrNoAlias when none exists.
	ToAlias(ctx context.Context, internal, langcode string) (string, error)
}

// RouteTable validates internal paths and resolves them to route records.
type RouteTable interface {
	// Match resolves an internal path to a route. It returns ErrNoRoute
	// (possibly wrapped) when the path is unroutable.
	Match(ctx context.Context, internalPath string) (*RouteMatch, error)
}

// ViewRegistry exposes view-page metadata. It is an optional collaborator:
// when absent, view routes are never produced and view-route names are
// unresolvable.
type ViewRegistry interface {
	// Pages lists every page-type view display, including ones with dynamic
	// argument paths.
	Pages(ctx context.Context) ([]ViewPage, error)

	// Access reports whether the current execution identity may view the
	// given display.
	Access(ctx context.Context, viewID, displayID string) (bool, error)
}

// RedirectLookup consults an external redirect table. It is an optional
// collaborator; lookup failures are treated as "no match" by the caller.
type RedirectLookup interface {
	// Find returns the first redirect matching path and query, or nil when
	// none matches.
	Find(ctx context.Context, path string, query url.Values, langcode string) (*Redirect, error)
}

// AccessChecker evaluates the "view" permission for a specific entity under
// the current execution identity.
type AccessChecker interface {
	CanView(ctx context.Context, e *Entity) bool
}

// Accounts switches the ambient execution identity. The routes feed runs all
// access filtering as anonymous; the returned restore function must be called
// on every exit path.
type Accounts interface {
	SwitchToAnonymous(ctx context.Context) (restore func(), err error)
}

// LanguageNegotiator supplies the effective langcode when the caller passes
// none.
type LanguageNegotiator interface {
	// Current returns the negotiated content language for this request.
	Current(ctx context.Context) string

	// SiteDefault returns the configured site default language.
	SiteDefault() string
}

// TypeRegistry lists the content entity types known to the repository.
type TypeRegistry interface {
	ContentTypes(ctx context.Context) ([]TypeInfo, error)
}
