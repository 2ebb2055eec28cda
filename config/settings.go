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

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Language fallback policies for requests that carry no explicit langcode.
const (
	// FallbackSiteDefault resolves missing langcodes to the configured site
	// default language. Deterministic; safe for shared caches.
	FallbackSiteDefault = "site_default"

	// FallbackCurrent resolves missing langcodes to the negotiated current
	// content language. Cache keys must vary by negotiated language.
	FallbackCurrent = "current"
)

// Settings is the immutable configuration snapshot handed to the resolver,
// routes feed, and HTTP operations at construction time. It is a plain value
// object: nothing in this module reads configuration from process globals.
type Settings struct {
	// SiteBase is the legacy/CMS origin used for external URLs of
	// non-headless content, e.g. "https://cms.example.org". When empty, the
	// live request origin is used instead.
	SiteBase string `config:"site_base"`

	// FrontendBase is the public origin of the consuming frontend. Used for
	// absolute link generation in feed responses when set.
	FrontendBase string `config:"frontend_base"`

	// JSONAPIBase is the path prefix of the JSON-resource API.
	JSONAPIBase string `config:"jsonapi_base" validate:"required,startswith=/"`

	// ViewsBase is the path prefix under which view data endpoints live.
	ViewsBase string `config:"views_base" validate:"required,startswith=/"`

	Language LanguageSettings `config:"language"`
	Headless HeadlessSettings `config:"headless"`
	Redirect RedirectSettings `config:"redirect"`
	Feed     FeedSettings     `config:"feed"`
	Cache    CacheSettings    `config:"cache"`
}

// LanguageSettings controls langcode resolution.
type LanguageSettings struct {
	Fallback    string `config:"fallback" validate:"oneof=site_default current"`
	SiteDefault string `config:"site_default" validate:"required"`
}

// HeadlessSettings controls which content is headless-eligible.
//
// Bundle keys are "entityTypeId:bundleId"; view keys are "viewId:displayId".
// The All* flags make every candidate of that kind eligible, ignoring the
// corresponding list.
type HeadlessSettings struct {
	AllBundles bool     `config:"all_bundles"`
	Bundles    []string `config:"bundles" validate:"dive,contains=:"`
	AllViews   bool     `config:"all_views"`
	Views      []string `config:"views" validate:"dive,contains=:"`
}

// RedirectSettings controls the redirect layer.
type RedirectSettings struct {
	Enabled bool `config:"enabled"`
}

// FeedSettings controls the routes feed operation.
type FeedSettings struct {
	// Secret guards the routes feed. An empty secret with the feed exposed
	// is a server configuration error, not an auth failure.
	Secret string `config:"secret"`

	DefaultLimit int `config:"default_limit" validate:"min=1,max=200"`
	MaxLimit     int `config:"max_limit" validate:"min=1,max=200,gtefield=DefaultLimit"`
}

// CacheSettings controls resolve-operation caching.
type CacheSettings struct {
	// MaxAge is the max-age in seconds for anonymous resolve responses.
	// Zero disables caching entirely.
	MaxAge int `config:"max_age" validate:"min=0"`
}

// Default returns the settings every deployment starts from.
func Default() Settings {
	return Settings{
		JSONAPIBase: "/jsonapi",
		ViewsBase:   "/api/views",
		Language: LanguageSettings{
			Fallback:    FallbackSiteDefault,
			SiteDefault: "en",
		},
		Feed: FeedSettings{
			DefaultLimit: 50,
			MaxLimit:     200,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the snapshot for structural mistakes. It is called by the
// Loader after binding; callers constructing Settings literals in code should
// call it themselves.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}
