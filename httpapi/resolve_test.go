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
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decoupled.dev/resolver/config"
	"decoupled.dev/resolver/content"
	"decoupled.dev/resolver/feed"
	"decoupled.dev/resolver/resolve"
)

var pageID = uuid.MustParse("00000001-0000-4000-8000-000000000000")

// stack wires in-memory fakes behind a resolver and feed builder, the way
// the composition layer of a deployment would.
type stack struct {
	settings config.Settings
	store    *content.MemoryStore
	accounts *content.MemoryAccounts
	resolver *resolve.Resolver
	builder  *feed.Builder
}

// newStack panics on wiring mistakes so it is usable from ginkgo specs too.
func newStack(mutate func(*config.Settings)) *stack {
	settings := config.Default()
	settings.SiteBase = "https://cms.example.org"
	settings.Headless.AllBundles = true
	settings.Headless.AllViews = true
	settings.Feed.Secret = "build-secret"
	if mutate != nil {
		mutate(&settings)
	}

	store := content.NewMemoryStore(content.TypeInfo{
		ID:           "node",
		Bundles:      []string{"article", "page"},
		HasCanonical: true,
	})
	aliases := content.NewMemoryAliases()
	routes := content.NewMemoryRoutes()
	accounts := &content.MemoryAccounts{}

	store.Add(&content.Entity{
		ID:       pageID,
		TypeID:   "node",
		BundleID: "page",
		Langcode: "en",
		Internal: "/node/1",
	})
	aliases.Add("en", "/about-us", "/node/1")
	routes.Add("/node/1", &content.RouteMatch{
		Name:   "entity.node.canonical",
		Params: map[string]any{"node": pageID.String()},
	})

	views := content.NewMemoryViews(content.ViewPage{
		ViewID: "frontpage", DisplayID: "page_1", Path: "/frontpage",
	})
	routes.Add("/frontpage", &content.RouteMatch{Name: "view.frontpage.page_1"})

	resolver := resolve.MustNew(settings, resolve.Collaborators{
		Aliases:  aliases,
		Routes:   routes,
		Store:    store,
		Types:    store,
		Access:   content.NewMemoryAccess(),
		Language: &content.MemoryNegotiator{Negotiated: "en", Default: "en"},
	}, resolve.WithViewRegistry(views))

	builder, err := feed.New(settings, resolver.Policy(), feed.Collaborators{
		Query:    store,
		Store:    store,
		Aliases:  aliases,
		Access:   content.NewMemoryAccess(),
		Accounts: accounts,
	}, feed.WithViewRegistry(views))
	if err != nil {
		panic(err)
	}

	return &stack{
		settings: settings,
		store:    store,
		accounts: accounts,
		resolver: resolver,
		builder:  builder,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestResolveHandlerEntity(t *testing.T) {
	s := newStack(nil)
	h := NewResolveHandler(s.resolver, s.settings)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/router/translate-path?path=/about-us&langcode=en", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["resolved"])
	assert.Equal(t, "entity", body["kind"])
	assert.Equal(t, "/about-us", body["canonical"])
	assert.Equal(t, "/jsonapi/node/page/"+pageID.String(), body["jsonapiUrl"])
	assert.Nil(t, body["dataUrl"])
	assert.Nil(t, body["redirect"])
}

func TestResolveHandlerNotFoundIsOK(t *testing.T) {
	s := newStack(nil)
	h := NewResolveHandler(s.resolver, s.settings)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/router/translate-path?path=/nowhere", nil))

	require.Equal(t, http.StatusOK, rec.Code, "a miss is a soft result, not an HTTP error")
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["resolved"])
	assert.Nil(t, body["kind"])
	assert.Nil(t, body["canonical"])
	assert.Nil(t, body["entity"])
}

func TestResolveHandlerMissingPath(t *testing.T) {
	s := newStack(nil)
	h := NewResolveHandler(s.resolver, s.settings)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/router/translate-path", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, jsonAPIContentType, rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	first := errs[0].(map[string]any)
	assert.Equal(t, "400", first["status"])
	assert.Equal(t, "MISSING_PATH", first["code"])
	assert.NotEmpty(t, first["id"])
}

func TestResolveHandlerMethodNotAllowed(t *testing.T) {
	s := newStack(nil)
	h := NewResolveHandler(s.resolver, s.settings)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/router/translate-path?path=/about-us", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestResolveHandlerCacheHeaders(t *testing.T) {
	t.Run("anonymous with max-age", func(t *testing.T) {
		s := newStack(func(c *config.Settings) { c.Cache.MaxAge = 300 })
		h := NewResolveHandler(s.resolver, s.settings)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?path=/about-us", nil))
		assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
		assert.Empty(t, rec.Header().Get("Vary"))
	})

	t.Run("credentialed request never cached", func(t *testing.T) {
		s := newStack(func(c *config.Settings) { c.Cache.MaxAge = 300 })
		h := NewResolveHandler(s.resolver, s.settings)

		req := httptest.NewRequest(http.MethodGet, "/x?path=/about-us", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("zero max-age disables caching", func(t *testing.T) {
		s := newStack(nil)
		h := NewResolveHandler(s.resolver, s.settings)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?path=/about-us", nil))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("current-language fallback varies", func(t *testing.T) {
		s := newStack(func(c *config.Settings) {
			c.Cache.MaxAge = 300
			c.Language.Fallback = config.FallbackCurrent
		})
		h := NewResolveHandler(s.resolver, s.settings)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?path=/about-us", nil))
		assert.Equal(t, "Accept-Language", rec.Header().Get("Vary"))
	})

	t.Run("custom anonymous check", func(t *testing.T) {
		s := newStack(func(c *config.Settings) { c.Cache.MaxAge = 300 })
		h := NewResolveHandler(s.resolver, s.settings,
			WithAnonymousCheck(func(*http.Request) bool { return false }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?path=/about-us", nil))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})
}

func TestResolveHandlerOriginFallback(t *testing.T) {
	s := newStack(func(c *config.Settings) {
		c.SiteBase = ""
		c.Headless.AllBundles = false
	})
	h := NewResolveHandler(s.resolver, s.settings)

	req := httptest.NewRequest(http.MethodGet, "https://live.example.org/x?path=/about-us", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["headless"])
	assert.Equal(t, "https://live.example.org/about-us", body["externalUrl"])
}

func TestResolveHandlerForwardedProto(t *testing.T) {
	newHandler := func(t *testing.T, opts ...HandlerOption) *ResolveHandler {
		t.Helper()
		s := newStack(func(c *config.Settings) {
			c.SiteBase = ""
			c.Headless.AllBundles = false
		})
		return NewResolveHandler(s.resolver, s.settings, opts...)
	}
	forwarded := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "http://live.example.org/x?path=/about-us", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		return req
	}

	t.Run("ignored by default", func(t *testing.T) {
		h := newHandler(t)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, forwarded())

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "http://live.example.org/about-us", body["externalUrl"],
			"a direct client must not choose the scheme")
	})

	t.Run("honored behind a trusted proxy", func(t *testing.T) {
		h := newHandler(t, WithTrustedProxy())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, forwarded())

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "https://live.example.org/about-us", body["externalUrl"])
	})
}

func TestResolveHandlerMetrics(t *testing.T) {
	s := newStack(nil)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := NewResolveHandler(s.resolver, s.settings, WithMetrics(m))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?path=/about-us", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("resolve", outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("resolve", outcomeClientError)))
}
