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
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"decoupled.dev/resolver/config"
	"decoupled.dev/resolver/feed"
)

// SecretHeader carries the routes feed shared secret.
const SecretHeader = "X-Routes-Secret"

// RoutesHandler serves the routes feed operation: GET with `page[limit]`,
// `page[cursor]`, and `langcode` query parameters, guarded by a shared
// secret header.
//
// The feed is build tooling, not browsing traffic: responses are never
// cacheable.
type RoutesHandler struct {
	builder  *feed.Builder
	settings config.Settings
	cfg      handlerConfig
}

// NewRoutesHandler creates the routes feed endpoint handler.
func NewRoutesHandler(builder *feed.Builder, settings config.Settings, opts ...HandlerOption) *RoutesHandler {
	return &RoutesHandler{
		builder:  builder,
		settings: settings,
		cfg:      newHandlerConfig(opts),
	}
}

type routesLinks struct {
	Self string  `json:"self"`
	Next *string `json:"next"`
}

type routesPageMeta struct {
	Limit  int     `json:"limit"`
	Cursor *string `json:"cursor"`
}

type routesMeta struct {
	Langcode string         `json:"langcode"`
	Page     routesPageMeta `json:"page"`
}

type routesBody struct {
	Data  []feed.Item `json:"data"`
	Links routesLinks `json:"links"`
	Meta  routesMeta  `json:"meta"`
}

// ServeHTTP implements http.Handler.
func (h *RoutesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serve(w, r)
	h.cfg.metrics.observe("routes", status, start)
}

func (h *RoutesHandler) serve(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		return writeError(w, errMethodNotAllowed)
	}

	// An exposed feed without a configured secret is a deployment mistake,
	// reported as such rather than as an auth failure.
	if h.settings.Feed.Secret == "" {
		h.cfg.logger.Error("routes feed called without a configured secret")
		return writeError(w, errSecretUnconfigured)
	}
	given := r.Header.Get(SecretHeader)
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.settings.Feed.Secret)) != 1 {
		return writeError(w, errSecretMismatch)
	}

	query := r.URL.Query()
	cursorParam := query.Get("page[cursor]")
	page, err := h.builder.Page(r.Context(), feed.Request{
		Limit:    cast.ToInt(query.Get("page[limit]")),
		Cursor:   cursorParam,
		Langcode: query.Get("langcode"),
	})
	if err != nil {
		h.cfg.logger.Error("feed page failed", "error", err.Error())
		return writeError(w, err)
	}

	body := routesBody{
		Data: page.Items,
		Links: routesLinks{
			Self: r.URL.RequestURI(),
			Next: h.nextLink(r, page.NextCursor),
		},
		Meta: routesMeta{
			Langcode: page.Langcode,
			Page: routesPageMeta{
				Limit:  page.Limit,
				Cursor: nilIfEmpty(cursorParam),
			},
		},
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.cfg.logger.Error("response encoding failed", "error", err.Error())
	}
	return http.StatusOK
}

// nextLink rebuilds the request URL with the cursor parameter replaced.
func (h *RoutesHandler) nextLink(r *http.Request, next *string) *string {
	if next == nil {
		return nil
	}
	u := *r.URL
	q := u.Query()
	q.Set("page[cursor]", *next)
	u.RawQuery = q.Encode()
	link := u.RequestURI()
	return &link
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
