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
	"fmt"
	"net/url"
	"strings"

	"decoupled.dev/resolver/content"
)

// defaultRedirectStatus is used when the redirect table supplies a status
// outside the 3xx range.
const defaultRedirectStatus = 301

// tryRedirect consults the optional redirect table for a normalized path and
// its raw query string. It returns nil when the layer is disabled, the
// collaborator is absent, nothing matches, or the lookup fails — redirect
// matching is best-effort and must never break resolution.
func (r *Resolver) tryRedirect(ctx context.Context, path, rawQuery, langcode string) *Redirect {
	if r.redirects == nil || !r.settings.Redirect.Enabled {
		return nil
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}

	match := r.findRedirect(ctx, path, query, langcode)
	if match == nil || match.To == "" {
		return nil
	}

	status := match.Status
	if status < 300 || status > 399 {
		status = defaultRedirectStatus
	}

	return &Redirect{To: redirectTarget(match.To), Status: status}
}

// findRedirect isolates the collaborator call so that errors and panics both
// collapse to "no match".
func (r *Resolver) findRedirect(ctx context.Context, path string, query url.Values, langcode string) (match *content.Redirect) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("redirect lookup panicked", "path", path, "panic", fmt.Sprint(p))
			match = nil
		}
	}()

	found, err := r.redirects.Find(ctx, path, query, langcode)
	if err != nil {
		r.logger.Warn("redirect lookup failed", "path", path, "error", err.Error())
		return nil
	}
	return found
}

// redirectTarget forces a target into one of the two shapes the frontend can
// follow: an absolute URL, or a site-relative path with a leading slash.
func redirectTarget(to string) string {
	if u, err := url.Parse(to); err == nil && u.Scheme != "" {
		return to
	}
	if !strings.HasPrefix(to, "/") {
		return "/" + to
	}
	return to
}
