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

// Package httpapi exposes the resolver and the routes feed as plain
// net/http handlers.
//
// The handlers own the HTTP contract only: parameter parsing, the JSON:API
// error vocabulary, cache headers, the feed secret check, and metrics. All
// resolution and pagination semantics live in the resolve and feed
// packages. Mount the handlers on any mux:
//
//	mux.Handle("/router/translate-path", httpapi.NewResolveHandler(r, settings))
//	mux.Handle("/api/routes", httpapi.NewRoutesHandler(b, settings))
package httpapi
