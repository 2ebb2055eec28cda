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

// Package content defines the collaborator boundary between the resolver core
// and the content repository backing it.
//
// The resolver and routes feed never talk to a CMS directly. Everything they
// need — entity storage and queries, alias translation, route matching, view
// metadata, redirect lookup, access control, and execution identity — is
// expressed here as a small interface, injected once at construction time.
// Optional capabilities (redirects, views) are modeled as optional interface
// values rather than runtime probing: a nil RedirectLookup simply means the
// redirect layer is not consulted.
//
// The package also ships in-memory implementations of every interface
// (Memory*) used throughout the test suites. They are deterministic and safe
// for concurrent reads.
package content
