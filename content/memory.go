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
	"fmt"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryStore is an in-memory Store, Query, and TypeRegistry backed by maps.
// It keeps call counters so tests can assert that a collaborator was (or was
// not) consulted.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]map[string]*Entity // typeID -> id -> entity
	types    []TypeInfo

	LoadCalls atomic.Int64
	IDCalls   atomic.Int64
}

// NewMemoryStore creates an empty MemoryStore for the given entity types.
func NewMemoryStore(types ...TypeInfo) *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]map[string]*Entity),
		types:    types,
	}
}

// Add registers an entity.
func (s *MemoryStore) Add(e *Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.entities[e.TypeID]
	if !ok {
		byID = make(map[string]*Entity)
		s.entities[e.TypeID] = byID
	}
	byID[e.ID.String()] = e
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, entityTypeID, id string) (*Entity, error) {
	s.LoadCalls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entities[entityTypeID][id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%s/%s: %w", entityTypeID, id, ErrNotFound)
}

// IDs implements Query with ascending identifier order.
func (s *MemoryStore) IDs(_ context.Context, entityTypeID, bundleID, afterID string, limit int) ([]string, error) {
	s.IDCalls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, e := range s.entities[entityTypeID] {
		if e.BundleID != bundleID {
			continue
		}
		if afterID != "" && id <= afterID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ContentTypes implements TypeRegistry.
func (s *MemoryStore) ContentTypes(_ context.Context) ([]TypeInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TypeInfo, len(s.types))
	copy(out, s.types)
	return out, nil
}

// MemoryAliases is an in-memory AliasManager.
type MemoryAliases struct {
	mu sync.RWMutex
	// langcode -> alias -> internal
	toInternal map[string]map[string]string
	// langcode -> internal -> alias
	toAlias map[string]map[string]string

	ToInternalCalls atomic.Int64
}

// NewMemoryAliases creates an empty alias table.
func NewMemoryAliases() *MemoryAliases {
	return &MemoryAliases{
		toInternal: make(map[string]map[string]string),
		toAlias:    make(map[string]map[string]string),
	}
}

// Add registers an alias for an internal path in one language.
func (a *MemoryAliases) Add(langcode, alias, internal string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.toInternal[langcode] == nil {
		a.toInternal[langcode] = make(map[string]string)
		a.toAlias[langcode] = make(map[string]string)
	}
	a.toInternal[langcode][alias] = internal
	a.toAlias[langcode][internal] = alias
}

// ToInternal implements AliasManager. Unaliased paths pass through unchanged.
func (a *MemoryAliases) ToInternal(_ context.Context, alias, langcode string) (string, error) {
	a.ToInternalCalls.Add(1)
	a.mu.RLock()
	defer a.mu.RUnlock()
	if internal, ok := a.toInternal[langcode][alias]; ok {
		return internal, nil
	}
	return alias, nil
}

// ToAlias implements AliasManager.
func (a *MemoryAliases) ToAlias(_ context.Context, internal, langcode string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if alias, ok := a.toAlias[langcode][internal]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%s (%s): %w", internal, langcode, ErrNoAlias)
}

// MemoryRoutes is an in-memory RouteTable.
type MemoryRoutes struct {
	mu     sync.RWMutex
	routes map[string]*RouteMatch

	MatchCalls atomic.Int64
}

// NewMemoryRoutes creates an empty route table.
func NewMemoryRoutes() *MemoryRoutes {
	return &MemoryRoutes{routes: make(map[string]*RouteMatch)}
}

// Add registers a route record for an internal path.
func (r *MemoryRoutes) Add(internalPath string, match *RouteMatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[internalPath] = match
}

// Match implements RouteTable.
func (r *MemoryRoutes) Match(_ context.Context, internalPath string) (*RouteMatch, error) {
	r.MatchCalls.Add(1)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.routes[internalPath]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%s: %w", internalPath, ErrNoRoute)
}

// MemoryViews is an in-memory ViewRegistry.
//
// Err, when set, is returned from Pages to simulate a failing collaborator.
type MemoryViews struct {
	mu     sync.RWMutex
	pages  []ViewPage
	denied map[string]bool // "viewID:displayID"

	Err error
}

// NewMemoryViews creates a registry holding the given pages.
func NewMemoryViews(pages ...ViewPage) *MemoryViews {
	return &MemoryViews{pages: pages, denied: make(map[string]bool)}
}

// Deny marks a display as access-denied.
func (v *MemoryViews) Deny(viewID, displayID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.denied[viewID+":"+displayID] = true
}

// Pages implements ViewRegistry.
func (v *MemoryViews) Pages(_ context.Context) ([]ViewPage, error) {
	if v.Err != nil {
		return nil, v.Err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]ViewPage, len(v.pages))
	copy(out, v.pages)
	return out, nil
}

// Access implements ViewRegistry.
func (v *MemoryViews) Access(_ context.Context, viewID, displayID string) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.denied[viewID+":"+displayID], nil
}

// RedirectRow is one entry in a MemoryRedirects table. Query, when non-nil,
// must be an exact subset of the request query for the row to match.
type RedirectRow struct {
	Path   string
	Query  url.Values
	To     string
	Status int
}

// MemoryRedirects is an in-memory RedirectLookup.
//
// Err, when set, is returned from Find; PanicMsg, when non-empty, makes Find
// panic. Both exist so tests can exercise the best-effort contract of the
// redirect layer.
type MemoryRedirects struct {
	mu   sync.RWMutex
	rows []RedirectRow

	Err       error
	PanicMsg  string
	FindCalls atomic.Int64
}

// NewMemoryRedirects creates a redirect table holding the given rows.
func NewMemoryRedirects(rows ...RedirectRow) *MemoryRedirects {
	return &MemoryRedirects{rows: rows}
}

// Find implements RedirectLookup.
func (m *MemoryRedirects) Find(_ context.Context, path string, query url.Values, _ string) (*Redirect, error) {
	m.FindCalls.Add(1)
	if m.PanicMsg != "" {
		panic(m.PanicMsg)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.rows {
		if row.Path != path {
			continue
		}
		if !querySubset(row.Query, query) {
			continue
		}
		return &Redirect{To: row.To, Status: row.Status}, nil
	}
	return nil, nil
}

// querySubset reports whether every key/value of want appears in got.
func querySubset(want, got url.Values) bool {
	for k, vs := range want {
		for _, v := range vs {
			found := false
			for _, g := range got[k] {
				if g == v {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// MemoryAccess is an in-memory AccessChecker denying a configurable set of
// entity identifiers.
type MemoryAccess struct {
	mu     sync.RWMutex
	denied map[string]bool
}

// NewMemoryAccess creates a checker that grants everything.
func NewMemoryAccess() *MemoryAccess {
	return &MemoryAccess{denied: make(map[string]bool)}
}

// Deny marks an entity id as not viewable.
func (a *MemoryAccess) Deny(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denied[id] = true
}

// CanView implements AccessChecker.
func (a *MemoryAccess) CanView(_ context.Context, e *Entity) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return !a.denied[e.ID.String()]
}

// MemoryAccounts records privilege switches so tests can assert that the
// anonymous scope is always restored.
type MemoryAccounts struct {
	Switches atomic.Int64
	Restores atomic.Int64

	Err error
}

// SwitchToAnonymous implements Accounts.
func (a *MemoryAccounts) SwitchToAnonymous(_ context.Context) (func(), error) {
	if a.Err != nil {
		return nil, a.Err
	}
	a.Switches.Add(1)
	return func() { a.Restores.Add(1) }, nil
}

// Balanced reports whether every switch has been restored.
func (a *MemoryAccounts) Balanced() bool {
	return a.Switches.Load() == a.Restores.Load()
}

// MemoryNegotiator is a fixed-answer LanguageNegotiator.
type MemoryNegotiator struct {
	Negotiated string
	Default    string
}

// Current implements LanguageNegotiator.
func (n *MemoryNegotiator) Current(context.Context) string { return n.Negotiated }

// SiteDefault implements LanguageNegotiator.
func (n *MemoryNegotiator) SiteDefault() string { return n.Default }
