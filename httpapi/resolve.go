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

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"decoupled.dev/resolver/config"
	"decoupled.dev/resolver/logging"
	"decoupled.dev/resolver/resolve"
)

// HandlerOption configures optional handler capabilities.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	logger       logging.Logger
	metrics      *Metrics
	anonymous    func(*http.Request) bool
	trustedProxy bool
}

// WithLogger sets the handler logger. Defaults to a discarding logger.
func WithLogger(logger logging.Logger) HandlerOption {
	return func(c *handlerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches request instrumentation.
func WithMetrics(m *Metrics) HandlerOption {
	return func(c *handlerConfig) { c.metrics = m }
}

// WithAnonymousCheck overrides how the resolve handler decides whether a
// request runs as an anonymous caller, which gates response caching. The
// default treats requests without credentials (Authorization or Cookie
// headers) as anonymous.
func WithAnonymousCheck(fn func(*http.Request) bool) HandlerOption {
	return func(c *handlerConfig) {
		if fn != nil {
			c.anonymous = fn
		}
	}
}

// WithTrustedProxy tells the resolve handler it sits behind a
// TLS-terminating proxy whose X-Forwarded-Proto header is authoritative for
// the request scheme. Off by default, so a direct client cannot spoof the
// scheme of origin-derived external URLs.
func WithTrustedProxy() HandlerOption {
	return func(c *handlerConfig) { c.trustedProxy = true }
}

func newHandlerConfig(opts []HandlerOption) handlerConfig {
	c := handlerConfig{
		logger:    logging.Discard(),
		anonymous: defaultAnonymous,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func defaultAnonymous(r *http.Request) bool {
	return r.Header.Get("Authorization") == "" && r.Header.Get("Cookie") == ""
}

// ResolveHandler serves the path-resolution operation: GET with a required
// `path` query parameter and an optional `langcode`.
//
// A path that resolves to nothing is a 200 response with resolved=false,
// not a 404; only a missing `path` parameter is a client error.
type ResolveHandler struct {
	resolver *resolve.Resolver
	settings config.Settings
	cfg      handlerConfig
}

// NewResolveHandler creates the resolve endpoint handler.
func NewResolveHandler(resolver *resolve.Resolver, settings config.Settings, opts ...HandlerOption) *ResolveHandler {
	return &ResolveHandler{
		resolver: resolver,
		settings: settings,
		cfg:      newHandlerConfig(opts),
	}
}

// ServeHTTP implements http.Handler.
func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serve(w, r)
	h.cfg.metrics.observe("resolve", status, start)
}

func (h *ResolveHandler) serve(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		return writeError(w, errMethodNotAllowed)
	}

	query := r.URL.Query()
	path := query.Get("path")
	if path == "" {
		return writeError(w, errMissingPath)
	}

	result, err := h.resolver.Resolve(r.Context(), resolve.Request{
		Path:     path,
		Langcode: query.Get("langcode"),
		Origin:   requestOrigin(r, h.cfg.trustedProxy),
	})
	if err != nil {
		h.cfg.logger.Error("resolution failed", "path", path, "error", err.Error())
		return writeError(w, err)
	}

	h.setCacheHeaders(w, r)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.cfg.logger.Error("response encoding failed", "error", err.Error())
	}
	return http.StatusOK
}

// setCacheHeaders allows shared caching only for anonymous callers with a
// positive configured max-age. When the langcode fallback is the negotiated
// current language, cached responses must additionally vary by it.
func (h *ResolveHandler) setCacheHeaders(w http.ResponseWriter, r *http.Request) {
	if h.cfg.anonymous(r) && h.settings.Cache.MaxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(h.settings.Cache.MaxAge))
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	if h.settings.Language.Fallback == config.FallbackCurrent {
		w.Header().Set("Vary", "Accept-Language")
	}
}

// requestOrigin reconstructs the live origin for external-URL assembly.
// X-Forwarded-Proto is only honored behind a declared trusted proxy.
func requestOrigin(r *http.Request, trustedProxy bool) string {
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if trustedProxy {
		if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
			scheme = forwarded
		}
	}
	return scheme + "://" + r.Host
}
