// Copyright 2026 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"strings"
)

// Names is a scoped C name, in the way nanopb builds them: the package
// components followed by the names of enclosing messages, joined with "_".
type Names []string

// PackageNames returns the base scope for a proto package.
func PackageNames(pkg string) Names {
	if pkg == "" {
		return nil
	}
	return Names(strings.Split(pkg, "."))
}

// Append returns a new Names with the given component added.
func (n Names) Append(name string) Names {
	out := make(Names, len(n), len(n)+1)
	copy(out, n)
	return append(out, name)
}

// Last returns the innermost component.
func (n Names) Last() string {
	if len(n) == 0 {
		return ""
	}
	return n[len(n)-1]
}

func (n Names) String() string {
	return strings.Join(n, "_")
}
