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

package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decoupled.dev/resolver/config"
	"decoupled.dev/resolver/content"
	"decoupled.dev/resolver/cursor"
	"decoupled.dev/resolver/logging"
	"decoupled.dev/resolver/resolve"
)

type fixture struct {
	store    *content.MemoryStore
	aliases  *content.MemoryAliases
	access   *content.MemoryAccess
	accounts *content.MemoryAccounts
	views    *content.MemoryViews
	settings config.Settings
}

func newFixture() *fixture {
	f := &fixture{
		store: content.NewMemoryStore(content.TypeInfo{
			ID:           "node",
			Bundles:      []string{"article", "page"},
			HasCanonical: true,
		}),
		aliases:  content.NewMemoryAliases(),
		access:   content.NewMemoryAccess(),
		accounts: &content.MemoryAccounts{},
		views:    content.NewMemoryViews(),
		settings: config.Default(),
	}
	f.settings.Headless.AllBundles = true
	f.settings.Headless.AllViews = true
	return f
}

// addEntity registers a page node with an ascending-sortable identifier and
// an English alias.
func (f *fixture) addEntity(n int, bundle string) *content.Entity {
	id := uuid.MustParse(fmt.Sprintf("%08d-0000-4000-8000-000000000000", n))
	e := &content.Entity{
		ID:       id,
		TypeID:   "node",
		BundleID: bundle,
		Langcode: "en",
		Internal: fmt.Sprintf("/node/%d", n),
	}
	f.store.Add(e)
	f.aliases.Add("en", fmt.Sprintf("/%s-%d", bundle, n), e.Internal)
	return e
}

func (f *fixture) builder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	policy := resolve.NewPolicy(f.settings, f.store)
	collab := Collaborators{
		Query:    f.store,
		Store:    f.store,
		Aliases:  f.aliases,
		Access:   f.access,
		Accounts: f.accounts,
	}
	b, err := New(f.settings, policy, collab, opts...)
	require.NoError(t, err)
	return b
}

// walk pages through the whole feed, bounding the number of requests so a
// cursor bug cannot loop forever.
func walk(t *testing.T, b *Builder, limit int) []Item {
	t.Helper()
	var items []Item
	req := Request{Limit: limit, Langcode: "en"}
	for i := 0; i < 50; i++ {
		page, err := b.Page(context.Background(), req)
		require.NoError(t, err)
		items = append(items, page.Items...)
		if page.NextCursor == nil {
			return items
		}
		req.Cursor = *page.NextCursor
	}
	t.Fatal("feed did not terminate within 50 pages")
	return nil
}

func TestNewRequiresCollaborators(t *testing.T) {
	f := newFixture()
	policy := resolve.NewPolicy(f.settings, f.store)

	_, err := New(f.settings, nil, Collaborators{})
	require.ErrorIs(t, err, ErrMissingCollaborator)

	_, err = New(f.settings, policy, Collaborators{Query: f.store})
	require.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestPageWalkAcrossSegments(t *testing.T) {
	f := newFixture()
	f.addEntity(1, "page")
	f.addEntity(2, "page")
	b := f.builder(t, WithViewRegistry(content.NewMemoryViews(
		content.ViewPage{ViewID: "frontpage", DisplayID: "page_1", Path: "/frontpage"},
	)))

	// limit=1: first page is the view route with a continuation cursor.
	first, err := b.Page(context.Background(), Request{Limit: 1, Langcode: "en"})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, resolve.KindView, first.Items[0].Kind)
	assert.Equal(t, "/frontpage", first.Items[0].Path)
	require.NotNil(t, first.Items[0].DataURL)
	assert.Equal(t, "/api/views/frontpage/page_1", *first.Items[0].DataURL)
	assert.Nil(t, first.Items[0].JSONAPIURL)
	require.NotNil(t, first.NextCursor)

	// Second page resumes into the entity segment.
	second, err := b.Page(context.Background(), Request{Limit: 1, Cursor: *first.NextCursor, Langcode: "en"})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, resolve.KindEntity, second.Items[0].Kind)
	assert.Equal(t, "/page-1", second.Items[0].Path)
	require.NotNil(t, second.NextCursor)

	// The full walk is the complete, non-overlapping, ordered union.
	items := walk(t, b, 1)
	require.Len(t, items, 3)
	assert.Equal(t, "/frontpage", items[0].Path)
	assert.Equal(t, "/page-1", items[1].Path)
	assert.Equal(t, "/page-2", items[2].Path)
	assert.True(t, f.accounts.Balanced(), "anonymous scope restored on every page")
}

func TestPageSingleRequestCoversEverything(t *testing.T) {
	f := newFixture()
	f.addEntity(1, "article")
	f.addEntity(2, "page")
	b := f.builder(t, WithViewRegistry(content.NewMemoryViews(
		content.ViewPage{ViewID: "frontpage", DisplayID: "page_1", Path: "/frontpage"},
	)))

	page, err := b.Page(context.Background(), Request{Limit: 50, Langcode: "en"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	// Views first, then bundles in lexicographic key order.
	assert.Equal(t, "/frontpage", page.Items[0].Path)
	assert.Equal(t, "/article-1", page.Items[1].Path)
	assert.Equal(t, "/page-2", page.Items[2].Path)
	assert.Nil(t, page.NextCursor)
	require.NotNil(t, page.Items[1].JSONAPIURL)
	assert.Equal(t, "/jsonapi/node/article/00000001-0000-4000-8000-000000000000", *page.Items[1].JSONAPIURL)
}

func TestPageEntityWithoutAliasFallsBackToInternalPath(t *testing.T) {
	f := newFixture()
	e := &content.Entity{
		ID:       uuid.MustParse("00000009-0000-4000-8000-000000000000"),
		TypeID:   "node",
		BundleID: "page",
		Langcode: "en",
		Internal: "/node/9",
	}
	f.store.Add(e)
	b := f.builder(t)

	page, err := b.Page(context.Background(), Request{Langcode: "en"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "/node/9", page.Items[0].Path)
}

func TestPageAccessFilteredBundleProgresses(t *testing.T) {
	f := newFixture()
	for n := 1; n <= 5; n++ {
		e := f.addEntity(n, "page")
		f.access.Deny(e.ID.String())
	}
	b := f.builder(t)

	page, err := b.Page(context.Background(), Request{Limit: 2, Langcode: "en"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor, "fully-denied bundle is drained, not stuck")

	// 2 + 2 + 1 rows across two bundles: article (empty, 1 query) plus three
	// queries draining page.
	assert.LessOrEqual(t, f.store.IDCalls.Load(), int64(4))
	assert.True(t, f.accounts.Balanced())
}

func TestPageDeniedEntitiesSkippedSilently(t *testing.T) {
	f := newFixture()
	f.addEntity(1, "page")
	denied := f.addEntity(2, "page")
	f.addEntity(3, "page")
	f.access.Deny(denied.ID.String())
	b := f.builder(t)

	items := walk(t, b, 2)
	require.Len(t, items, 2)
	assert.Equal(t, "/page-1", items[0].Path)
	assert.Equal(t, "/page-3", items[1].Path)
}

func TestPageDeterministicOrdering(t *testing.T) {
	f := newFixture()
	for n := 1; n <= 7; n++ {
		f.addEntity(n, "page")
	}
	for n := 8; n <= 10; n++ {
		f.addEntity(n, "article")
	}
	b := f.builder(t, WithViewRegistry(content.NewMemoryViews(
		content.ViewPage{ViewID: "blog", DisplayID: "page_1", Path: "/blog"},
		content.ViewPage{ViewID: "archive", DisplayID: "page_1", Path: "/archive"},
	)))

	first := walk(t, b, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, walk(t, b, 3))
	}
	// Different page sizes yield the same sequence.
	assert.Equal(t, first, walk(t, b, 4))
	assert.Equal(t, first, walk(t, b, 200))
}

func TestPageViewsSegmentFiltering(t *testing.T) {
	f := newFixture()
	f.settings.Headless.AllViews = false
	f.settings.Headless.Views = []string{"blog:page_1", "archive:page_1", "secret:page_1"}
	views := content.NewMemoryViews(
		content.ViewPage{ViewID: "blog", DisplayID: "page_1", Path: "/blog/"},
		content.ViewPage{ViewID: "archive", DisplayID: "page_1", Path: "/archive"},
		content.ViewPage{ViewID: "taxonomy", DisplayID: "page_1", Path: "/tags/%"},
		content.ViewPage{ViewID: "admin", DisplayID: "page_1", Path: "/admin/reports"},
		content.ViewPage{ViewID: "secret", DisplayID: "page_1", Path: "/secret"},
	)
	views.Deny("secret", "page_1")
	b := f.builder(t, WithViewRegistry(views))

	page, err := b.Page(context.Background(), Request{Langcode: "en"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	// Dynamic, non-headless, and denied displays are excluded; survivors are
	// sorted by normalized path.
	assert.Equal(t, "/archive", page.Items[0].Path)
	assert.Equal(t, "/blog", page.Items[1].Path)
}

func TestPageViewRegistryFailureDegrades(t *testing.T) {
	f := newFixture()
	f.addEntity(1, "page")
	views := content.NewMemoryViews()
	views.Err = assert.AnError
	logger, buf := logging.NewTestLogger()
	b := f.builder(t, WithViewRegistry(views), WithLogger(logger))

	page, err := b.Page(context.Background(), Request{Langcode: "en"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "entity segment still enumerated")
	assert.Equal(t, "/page-1", page.Items[0].Path)

	entries, err := logging.ParseEntries(buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0].Level)
}

func TestPageForgedCursor(t *testing.T) {
	f := newFixture()
	f.addEntity(1, "page")
	b := f.builder(t, WithViewRegistry(content.NewMemoryViews(
		content.ViewPage{ViewID: "frontpage", DisplayID: "page_1", Path: "/frontpage"},
	)))

	t.Run("garbage restarts from views", func(t *testing.T) {
		page, err := b.Page(context.Background(), Request{Cursor: "!!not-a-cursor!!", Langcode: "en"})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "/frontpage", page.Items[0].Path)
	})

	t.Run("unknown segment degrades to entity start", func(t *testing.T) {
		token, err := cursor.Encode(cursor.State{Segment: "bogus"})
		require.NoError(t, err)

		page, err := b.Page(context.Background(), Request{Cursor: token, Langcode: "en"})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, resolve.KindEntity, page.Items[0].Kind)
	})
}

func TestPageLimitClamping(t *testing.T) {
	f := newFixture()
	b := f.builder(t)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero takes default", 0, 50},
		{"negative takes default", -3, 50},
		{"in range", 25, 25},
		{"above max clamped", 1000, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := b.Page(context.Background(), Request{Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Limit)
		})
	}
}

func TestPageLangcode(t *testing.T) {
	f := newFixture()
	e := f.addEntity(1, "page")
	f.aliases.Add("fr", "/la-page-1", e.Internal)
	b := f.builder(t)

	t.Run("explicit langcode selects alias", func(t *testing.T) {
		page, err := b.Page(context.Background(), Request{Langcode: "fr"})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "/la-page-1", page.Items[0].Path)
		assert.Equal(t, "fr", page.Langcode)
	})

	t.Run("empty langcode takes site default", func(t *testing.T) {
		page, err := b.Page(context.Background(), Request{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "/page-1", page.Items[0].Path)
		assert.Equal(t, "en", page.Langcode)
	})
}

func TestPageAnonymousSwitchFailure(t *testing.T) {
	f := newFixture()
	f.accounts.Err = assert.AnError
	b := f.builder(t)

	_, err := b.Page(context.Background(), Request{})
	require.ErrorIs(t, err, assert.AnError)
}
