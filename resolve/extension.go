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

import "context"

// Extension lets add-on packages claim paths the core cannot classify as
// entities or views, typically emitting KindRoute results that tell the
// frontend to proxy a legacy route.
//
// Extensions are registered at construction time and consulted in order
// after the redirect layer and before alias translation; the first extension
// to claim a path wins and its result is returned unmodified.
type Extension interface {
	// Resolve inspects a normalized path. The boolean reports whether the
	// extension claims it.
	Resolve(ctx context.Context, path, langcode string) (Result, bool)
}

// ExtensionFunc adapts a function to the Extension interface.
type ExtensionFunc func(ctx context.Context, path, langcode string) (Result, bool)

// Resolve implements Extension.
func (f ExtensionFunc) Resolve(ctx context.Context, path, langcode string) (Result, bool) {
	return f(ctx, path, langcode)
}
