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

// Package resolve classifies human-facing paths into API resources.
//
// The Resolver is a layered decision procedure: normalize the path, consult
// the optional redirect table, give registered extensions a chance to claim
// the path, translate the alias to an internal path, classify the matched
// route as a view or entity, enforce access control, and assemble a
// canonical, cache-safe result. Every failure mode converges on the single
// not-found shape — "doesn't exist" and "exists but you may not see it" are
// indistinguishable on purpose.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"decoupled.dev/resolver/config"
	"decoupled.dev/resolver/content"
	"decoupled.dev/resolver/logging"
	"decoupled.dev/resolver/pathutil"
)

// ErrMissingCollaborator indicates a required collaborator was nil at
// construction time.
var ErrMissingCollaborator = errors.New("required collaborator is nil")

// Collaborators are the required external capabilities. Optional ones
// (redirect lookup, view registry, extensions) are supplied via options.
type Collaborators struct {
	Aliases  content.AliasManager
	Routes   content.RouteTable
	Store    content.Store
	Types    content.TypeRegistry
	Access   content.AccessChecker
	Language content.LanguageNegotiator
}

func (c Collaborators) validate() error {
	missing := ""
	switch {
	case c.Aliases == nil:
		missing = "alias manager"
	case c.Routes == nil:
		missing = "route table"
	case c.Store == nil:
		missing = "entity store"
	case c.Types == nil:
		missing = "type registry"
	case c.Access == nil:
		missing = "access checker"
	case c.Language == nil:
		missing = "language negotiator"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s", ErrMissingCollaborator, missing)
	}
	return nil
}

// Resolver is the path-resolution orchestrator. It is stateless and safe for
// concurrent use; all configuration is captured at construction.
type Resolver struct {
	settings   config.Settings
	collab     Collaborators
	policy     *Policy
	redirects  content.RedirectLookup
	views      content.ViewRegistry
	extensions []Extension
	logger     logging.Logger
	tracer     trace.Tracer
}

// Option configures optional Resolver capabilities.
type Option func(*Resolver)

// WithRedirectLookup injects the optional redirect table collaborator. The
// redirect layer also requires Settings.Redirect.Enabled.
func WithRedirectLookup(lookup content.RedirectLookup) Option {
	return func(r *Resolver) { r.redirects = lookup }
}

// WithViewRegistry injects the optional view metadata collaborator. Without
// it, view routes resolve to not-found.
func WithViewRegistry(views content.ViewRegistry) Option {
	return func(r *Resolver) { r.views = views }
}

// WithExtensions registers extension classifiers, consulted in order.
func WithExtensions(exts ...Extension) Option {
	return func(r *Resolver) { r.extensions = append(r.extensions, exts...) }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider for resolution spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Resolver) {
		if tp != nil {
			r.tracer = tp.Tracer("decoupled.dev/resolver/resolve")
		}
	}
}

// New creates a Resolver for one settings snapshot.
func New(settings config.Settings, collab Collaborators, opts ...Option) (*Resolver, error) {
	if err := collab.validate(); err != nil {
		return nil, err
	}
	r := &Resolver{
		settings: settings,
		collab:   collab,
		policy:   NewPolicy(settings, collab.Types),
		logger:   logging.Discard(),
		tracer:   otel.GetTracerProvider().Tracer("decoupled.dev/resolver/resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// MustNew creates a Resolver or panics on error.
func MustNew(settings config.Settings, collab Collaborators, opts ...Option) *Resolver {
	r, err := New(settings, collab, opts...)
	if err != nil {
		panic("resolver construction failed: " + err.Error())
	}
	return r
}

// Policy exposes the headless policy so the routes feed shares one instance.
func (r *Resolver) Policy() *Policy { return r.policy }

// Request is one resolution input.
type Request struct {
	// Path is the raw human-facing path, optionally carrying a query string.
	Path string

	// Langcode selects the content language. Empty means "apply the
	// configured fallback policy".
	Langcode string

	// Origin is the live request origin (scheme://host), used as the
	// external-URL base for non-headless content when no site base is
	// configured.
	Origin string
}

// Resolve classifies a path.
//
// Soft failures (empty path, unroutable alias, missing entity, denied
// access, disabled view support) return the not-found Result with a nil
// error. A non-nil error is only returned for failing required
// collaborators, which indicates integration misconfiguration and should
// surface loudly.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.resolve",
		trace.WithAttributes(attribute.String("resolver.path", req.Path)))
	defer span.End()

	rawPath, rawQuery := pathutil.SplitQuery(req.Path)
	path := pathutil.Normalize(rawPath)
	if path == "" {
		return r.finish(span, NotFound(), nil)
	}

	langcode := r.effectiveLangcode(ctx, req.Langcode)
	span.SetAttributes(attribute.String("resolver.langcode", langcode))

	if redirect := r.tryRedirect(ctx, path, rawQuery, langcode); redirect != nil {
		return r.finish(span, Result{
			Resolved: true,
			Kind:     KindRedirect,
			Redirect: redirect,
		}, nil)
	}

	for _, ext := range r.extensions {
		if result, ok := ext.Resolve(ctx, path, langcode); ok {
			return r.finish(span, result, nil)
		}
	}

	internal, err := r.collab.Aliases.ToInternal(ctx, path, langcode)
	if err != nil {
		return r.finish(span, NotFound(), fmt.Errorf("alias translation: %w", err))
	}

	match, err := r.collab.Routes.Match(ctx, internal)
	if errors.Is(err, content.ErrNoRoute) {
		return r.finish(span, NotFound(), nil)
	}
	if err != nil {
		return r.finish(span, NotFound(), fmt.Errorf("route match: %w", err))
	}

	cls, err := r.classify(ctx, match)
	if err != nil {
		return r.finish(span, NotFound(), err)
	}
	if cls == nil {
		return r.finish(span, NotFound(), nil)
	}

	if cls.view != nil {
		result, err := r.assembleView(ctx, cls.view, internal, path, langcode, req.Origin)
		return r.finish(span, result, err)
	}

	result, err := r.assembleEntity(ctx, cls.entity, internal, path, langcode, req.Origin)
	return r.finish(span, result, err)
}

// assembleEntity runs the access check and builds the entity result shape.
func (r *Resolver) assembleEntity(ctx context.Context, e *content.Entity, internal, path, langcode, origin string) (Result, error) {
	if !r.collab.Access.CanView(ctx, e) {
		return NotFound(), nil
	}

	canonical, err := r.canonicalFor(ctx, internal, path, langcode)
	if err != nil {
		return NotFound(), err
	}

	headless := r.policy.EntityHeadless(e.TypeID, e.BundleID)
	result := Result{
		Resolved:  true,
		Kind:      KindEntity,
		Canonical: strptr(canonical),
		Entity: &EntityRef{
			ResourceType: e.ResourceType(),
			ID:           e.ID.String(),
			Langcode:     langcode,
		},
		JSONAPIURL: strptr(r.jsonapiURL(e)),
		Headless:   headless,
	}
	if !headless {
		result.ExternalURL = r.externalURL(canonical, origin)
	}
	return result, nil
}

// assembleView verifies the display exists and is accessible, then builds
// the view result shape. View access failure is indistinguishable from
// not-found.
func (r *Resolver) assembleView(ctx context.Context, ref *viewRef, internal, path, langcode, origin string) (Result, error) {
	if r.views == nil {
		return NotFound(), nil
	}

	exists, err := r.viewPageExists(ctx, ref)
	if err != nil {
		r.logger.Warn("view registry failed", "view", ref.ViewID, "display", ref.DisplayID, "error", err.Error())
		return NotFound(), nil
	}
	if !exists {
		return NotFound(), nil
	}

	allowed, err := r.views.Access(ctx, ref.ViewID, ref.DisplayID)
	if err != nil {
		r.logger.Warn("view access check failed", "view", ref.ViewID, "display", ref.DisplayID, "error", err.Error())
		return NotFound(), nil
	}
	if !allowed {
		return NotFound(), nil
	}

	canonical, err := r.canonicalFor(ctx, internal, path, langcode)
	if err != nil {
		return NotFound(), err
	}

	headless := r.policy.ViewHeadless(ref.ViewID, ref.DisplayID)
	result := Result{
		Resolved:  true,
		Kind:      KindView,
		Canonical: strptr(canonical),
		DataURL:   strptr(r.dataURL(ref.ViewID, ref.DisplayID)),
		Headless:  headless,
	}
	if !headless {
		result.ExternalURL = r.externalURL(canonical, origin)
	}
	return result, nil
}

// viewPageExists reports whether the registry knows the display.
func (r *Resolver) viewPageExists(ctx context.Context, ref *viewRef) (bool, error) {
	pages, err := r.views.Pages(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range pages {
		if p.ViewID == ref.ViewID && p.DisplayID == ref.DisplayID {
			return true, nil
		}
	}
	return false, nil
}

// effectiveLangcode applies the configured fallback policy when the request
// carries no explicit langcode.
func (r *Resolver) effectiveLangcode(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	var langcode string
	if r.settings.Language.Fallback == config.FallbackCurrent {
		langcode = r.collab.Language.Current(ctx)
	} else {
		langcode = r.collab.Language.SiteDefault()
	}
	if langcode == "" {
		langcode = r.settings.Language.SiteDefault
	}
	return langcode
}

// canonicalFor prefers the alias of the internal path in the requested
// language, falling back to the input path when none exists.
func (r *Resolver) canonicalFor(ctx context.Context, internal, fallback, langcode string) (string, error) {
	alias, err := r.collab.Aliases.ToAlias(ctx, internal, langcode)
	if errors.Is(err, content.ErrNoAlias) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("alias lookup: %w", err)
	}
	return alias, nil
}

// jsonapiURL builds the JSON-resource URL for an entity.
func (r *Resolver) jsonapiURL(e *content.Entity) string {
	return strings.TrimSuffix(r.settings.JSONAPIBase, "/") + "/" + e.TypeID + "/" + e.BundleID + "/" + e.ID.String()
}

// dataURL builds the data endpoint URL for a view display.
func (r *Resolver) dataURL(viewID, displayID string) string {
	return strings.TrimSuffix(r.settings.ViewsBase, "/") + "/" + viewID + "/" + displayID
}

// externalURL builds the legacy-origin URL for non-headless content: the
// configured site base, or the live request origin, plus the canonical path.
// It returns nil when neither base is known.
func (r *Resolver) externalURL(canonical, origin string) *string {
	base := r.settings.SiteBase
	if base == "" {
		base = origin
	}
	if base == "" {
		return nil
	}
	return strptr(strings.TrimSuffix(base, "/") + canonical)
}

// finish annotates the span and returns the result unchanged.
func (r *Resolver) finish(span trace.Span, result Result, err error) (Result, error) {
	span.SetAttributes(
		attribute.Bool("resolver.resolved", result.Resolved),
		attribute.String("resolver.kind", string(result.Kind)),
	)
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}
