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

// Package feed enumerates every public route as one cursor-paginated,
// stable-ordered sequence: all eligible view-page routes first, then all
// content-entity routes bundle by bundle.
//
// The feed exists for build-time enumeration, so every page is computed
// under the anonymous execution identity regardless of who calls it, and
// access-denied content is silently skipped rather than substituted.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"decoupled.dev/resolver/config"
	"decoupled.dev/resolver/content"
	"decoupled.dev/resolver/cursor"
	"decoupled.dev/resolver/logging"
	"decoupled.dev/resolver/pathutil"
	"decoupled.dev/resolver/resolve"
)

// Hard bounds on the page size, applied after settings.
const (
	fallbackDefaultLimit = 50
	maxLimitCeiling      = 200
)

// ErrMissingCollaborator indicates a required collaborator was nil at
// construction time.
var ErrMissingCollaborator = errors.New("required collaborator is nil")

// Item is one enumerated route. Exactly one of JSONAPIURL and DataURL is
// non-nil, matching Kind.
type Item struct {
	Path       string       `json:"path"`
	Kind       resolve.Kind `json:"kind"`
	JSONAPIURL *string      `json:"jsonapiUrl"`
	DataURL    *string      `json:"dataUrl"`
}

// Request selects one page of the enumeration.
type Request struct {
	// Limit is the requested page size. Zero or negative means the
	// configured default; values above the configured maximum are clamped.
	Limit int

	// Cursor is the opaque continuation token from a previous page. Empty
	// starts the enumeration from the beginning.
	Cursor string

	// Langcode selects the alias language. Empty means the site default.
	Langcode string
}

// Page is one page of the enumeration. NextCursor is nil when both segments
// are exhausted.
type Page struct {
	Items      []Item
	NextCursor *string
	Limit      int
	Langcode   string
}

// Collaborators are the required external capabilities of the feed.
type Collaborators struct {
	Query    content.Query
	Store    content.Store
	Aliases  content.AliasManager
	Access   content.AccessChecker
	Accounts content.Accounts
}

func (c Collaborators) validate() error {
	missing := ""
	switch {
	case c.Query == nil:
		missing = "entity query"
	case c.Store == nil:
		missing = "entity store"
	case c.Aliases == nil:
		missing = "alias manager"
	case c.Access == nil:
		missing = "access checker"
	case c.Accounts == nil:
		missing = "accounts switcher"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s", ErrMissingCollaborator, missing)
	}
	return nil
}

// Builder produces feed pages. It is stateless across calls; all progress
// lives in the cursor token the client holds.
type Builder struct {
	settings config.Settings
	policy   *resolve.Policy
	collab   Collaborators
	views    content.ViewRegistry
	logger   logging.Logger
	tracer   trace.Tracer
}

// Option configures optional Builder capabilities.
type Option func(*Builder)

// WithViewRegistry injects the optional view metadata collaborator. Without
// it the views segment is empty.
func WithViewRegistry(views content.ViewRegistry) Option {
	return func(b *Builder) { b.views = views }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider for page spans. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Builder) {
		if tp != nil {
			b.tracer = tp.Tracer("decoupled.dev/resolver/feed")
		}
	}
}

// New creates a feed Builder sharing the resolver's headless policy.
func New(settings config.Settings, policy *resolve.Policy, collab Collaborators, opts ...Option) (*Builder, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: headless policy", ErrMissingCollaborator)
	}
	if err := collab.validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		settings: settings,
		policy:   policy,
		collab:   collab,
		logger:   logging.Discard(),
		tracer:   otel.GetTracerProvider().Tracer("decoupled.dev/resolver/feed"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Page computes one page of the enumeration.
//
// The whole page runs as the anonymous identity; the prior identity is
// restored on every exit path. Required-collaborator failures propagate;
// view-registry failures degrade to an empty views segment.
func (b *Builder) Page(ctx context.Context, req Request) (Page, error) {
	ctx, span := b.tracer.Start(ctx, "feed.page")
	defer span.End()

	limit := b.clampLimit(req.Limit)
	langcode := req.Langcode
	if langcode == "" {
		langcode = b.settings.Language.SiteDefault
	}

	state := cursor.Decode(req.Cursor)
	if state == nil {
		state = &cursor.State{Segment: cursor.SegmentViews}
	}
	span.SetAttributes(
		attribute.String("feed.segment", string(state.Segment)),
		attribute.Int("feed.limit", limit),
	)

	restore, err := b.collab.Accounts.SwitchToAnonymous(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("anonymous switch: %w", err)
	}
	defer restore()

	page := Page{Items: make([]Item, 0, limit), Limit: limit, Langcode: langcode}

	if state.Segment == cursor.SegmentViews {
		next, err := b.fillViews(ctx, &page, state.Index, limit)
		if err != nil {
			return Page{}, err
		}
		if next != nil {
			return b.finish(span, page, next)
		}
		// Views exhausted with room left; continue into the entity segment
		// from its beginning.
		state = &cursor.State{Segment: cursor.SegmentEntities}
	}

	next, err := b.fillEntities(ctx, &page, state, langcode, limit)
	if err != nil {
		return Page{}, err
	}
	return b.finish(span, page, next)
}

// fillViews appends view routes starting at index. A non-nil return is the
// continuation cursor for an unfinished views segment.
func (b *Builder) fillViews(ctx context.Context, page *Page, index, limit int) (*cursor.State, error) {
	routes := b.viewRoutes(ctx)
	for index < len(routes) && len(page.Items) < limit {
		page.Items = append(page.Items, routes[index])
		index++
	}
	if len(page.Items) == limit && index < len(routes) {
		return &cursor.State{Segment: cursor.SegmentViews, Index: index}, nil
	}
	return nil, nil
}

// fillEntities walks the sorted bundle list with keyset queries, resuming at
// the cursor position. A non-nil return is the continuation cursor.
func (b *Builder) fillEntities(ctx context.Context, page *Page, state *cursor.State, langcode string, limit int) (*cursor.State, error) {
	keys, err := b.policy.BundleKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("bundle keys: %w", err)
	}

	bi := state.BundleIndex
	lastID := state.LastID
	for bi < len(keys) {
		if len(page.Items) >= limit {
			return &cursor.State{Segment: cursor.SegmentEntities, BundleIndex: bi, LastID: lastID}, nil
		}

		key := keys[bi]
		want := limit - len(page.Items)
		ids, err := b.collab.Query.IDs(ctx, key.TypeID, key.BundleID, lastID, want)
		if err != nil {
			return nil, fmt.Errorf("bundle %s query: %w", key, err)
		}
		if len(ids) == 0 {
			bi++
			lastID = ""
			continue
		}

		for _, id := range ids {
			item, err := b.entityItem(ctx, key, id, langcode)
			if err != nil {
				return nil, err
			}
			if item != nil {
				page.Items = append(page.Items, *item)
			}
		}
		lastID = ids[len(ids)-1]

		// A short query conclusively exhausts the bundle. A full one is a
		// signal there may be more, even when every row was access-filtered
		// out, so the same bundle is queried again from the new keyset
		// position.
		if len(ids) < want {
			bi++
			lastID = ""
		}
	}
	return nil, nil
}

// entityItem loads, access-checks, and shapes one enumerated entity. It
// returns (nil, nil) for entities that vanished since the query or that the
// anonymous identity may not view.
func (b *Builder) entityItem(ctx context.Context, key resolve.BundleKey, id, langcode string) (*Item, error) {
	e, err := b.collab.Store.Load(ctx, key.TypeID, id)
	if errors.Is(err, content.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", key.TypeID, id, err)
	}
	if !b.collab.Access.CanView(ctx, e) {
		return nil, nil
	}

	path, err := b.collab.Aliases.ToAlias(ctx, e.Internal, langcode)
	if errors.Is(err, content.ErrNoAlias) {
		path = e.Internal
	} else if err != nil {
		return nil, fmt.Errorf("alias %s: %w", e.Internal, err)
	}

	jsonapi := strings.TrimSuffix(b.settings.JSONAPIBase, "/") + "/" + e.TypeID + "/" + e.BundleID + "/" + e.ID.String()
	return &Item{Path: path, Kind: resolve.KindEntity, JSONAPIURL: &jsonapi}, nil
}

// viewRoutes materializes the sorted views segment: every static-path,
// headless-eligible, anonymously-accessible page display. Registry failures
// degrade to an empty segment.
func (b *Builder) viewRoutes(ctx context.Context) []Item {
	if b.views == nil {
		return nil
	}
	pages, err := b.views.Pages(ctx)
	if err != nil {
		b.logger.Warn("view registry failed, views segment empty", "error", err.Error())
		return nil
	}

	var items []Item
	for _, p := range pages {
		// Dynamic-argument paths cannot be enumerated.
		if strings.Contains(p.Path, "%") {
			continue
		}
		if !b.policy.ViewHeadless(p.ViewID, p.DisplayID) {
			continue
		}
		allowed, err := b.views.Access(ctx, p.ViewID, p.DisplayID)
		if err != nil {
			b.logger.Warn("view access check failed, display skipped", "view", p.ViewID, "display", p.DisplayID, "error", err.Error())
			continue
		}
		if !allowed {
			continue
		}
		dataURL := strings.TrimSuffix(b.settings.ViewsBase, "/") + "/" + p.ViewID + "/" + p.DisplayID
		items = append(items, Item{
			Path:    pathutil.Normalize(p.Path),
			Kind:    resolve.KindView,
			DataURL: &dataURL,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items
}

// clampLimit applies the configured default and maximum, then the hard
// ceiling.
func (b *Builder) clampLimit(limit int) int {
	def := b.settings.Feed.DefaultLimit
	if def < 1 {
		def = fallbackDefaultLimit
	}
	ceiling := b.settings.Feed.MaxLimit
	if ceiling < 1 || ceiling > maxLimitCeiling {
		ceiling = maxLimitCeiling
	}
	if limit < 1 {
		limit = def
	}
	if limit > ceiling {
		limit = ceiling
	}
	return limit
}

// finish encodes the continuation cursor and annotates the span.
func (b *Builder) finish(span trace.Span, page Page, next *cursor.State) (Page, error) {
	if next != nil {
		token, err := cursor.Encode(*next)
		if err != nil {
			return Page{}, fmt.Errorf("cursor encode: %w", err)
		}
		page.NextCursor = &token
	}
	span.SetAttributes(
		attribute.Int("feed.items", len(page.Items)),
		attribute.Bool("feed.has_next", page.NextCursor != nil),
	)
	return page, nil
}
