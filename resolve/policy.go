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
	"sort"
	"strings"

	"decoupled.dev/resolver/config"
	"decoupled.dev/resolver/content"
)

// BundleKey identifies one headless-eligibility unit: an entity type plus
// bundle.
type BundleKey struct {
	TypeID   string
	BundleID string
}

// String renders the key in its configuration form, "entityTypeId:bundleId".
func (k BundleKey) String() string {
	return k.TypeID + ":" + k.BundleID
}

// ParseBundleKey parses "entityTypeId:bundleId". The boolean is false for
// malformed keys.
func ParseBundleKey(s string) (BundleKey, bool) {
	typeID, bundleID, ok := strings.Cut(s, ":")
	if !ok || typeID == "" || bundleID == "" {
		return BundleKey{}, false
	}
	return BundleKey{TypeID: typeID, BundleID: bundleID}, true
}

// Policy answers headless-eligibility questions from the settings snapshot.
//
// Eligibility and access are independent: content can be viewable but not
// headless (proxied to the legacy origin) and access is always checked
// separately, whatever the headless verdict.
type Policy struct {
	settings config.Settings
	types    content.TypeRegistry

	bundleSet map[string]bool
	viewSet   map[string]bool
}

// NewPolicy builds a policy for one settings snapshot.
func NewPolicy(settings config.Settings, types content.TypeRegistry) *Policy {
	p := &Policy{
		settings:  settings,
		types:     types,
		bundleSet: make(map[string]bool, len(settings.Headless.Bundles)),
		viewSet:   make(map[string]bool, len(settings.Headless.Views)),
	}
	for _, key := range settings.Headless.Bundles {
		p.bundleSet[key] = true
	}
	for _, key := range settings.Headless.Views {
		p.viewSet[key] = true
	}
	return p
}

// EntityHeadless reports whether a bundle is headless-eligible.
func (p *Policy) EntityHeadless(entityTypeID, bundleID string) bool {
	if p.settings.Headless.AllBundles {
		return true
	}
	return p.bundleSet[entityTypeID+":"+bundleID]
}

// ViewHeadless reports whether a view display is headless-eligible.
func (p *Policy) ViewHeadless(viewID, displayID string) bool {
	if p.settings.Headless.AllViews {
		return true
	}
	return p.viewSet[viewID+":"+displayID]
}

// BundleKeys returns the ordered set of headless bundle keys the routes feed
// iterates: every type/bundle combination with a canonical display route in
// allow-all mode, or the configured allow-list otherwise. The order is
// lexicographic and stable across calls, which is what keeps entity-segment
// cursors resumable.
func (p *Policy) BundleKeys(ctx context.Context) ([]BundleKey, error) {
	var keys []BundleKey

	if p.settings.Headless.AllBundles {
		types, err := p.types.ContentTypes(ctx)
		if err != nil {
			return nil, err
		}
		for _, ti := range types {
			if !ti.HasCanonical {
				continue
			}
			for _, bundle := range ti.Bundles {
				keys = append(keys, BundleKey{TypeID: ti.ID, BundleID: bundle})
			}
		}
	} else {
		for _, raw := range p.settings.Headless.Bundles {
			if key, ok := ParseBundleKey(raw); ok {
				keys = append(keys, key)
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}
