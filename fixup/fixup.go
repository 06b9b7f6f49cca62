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

// Package fixup implements line-oriented massaging of the text emitted by the
// base nanopb generator.
package fixup

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Processor transforms the lines of a generated file.
//
// Lines keep their trailing newline, so that joining them gives back the
// content. name is the path of the file being processed.
type Processor func(name string, lines []string) []string

// Apply runs the processors over content in order.
func Apply(name, content string, procs ...Processor) string {
	if len(procs) == 0 {
		return content
	}
	lines := SplitLines(content)
	for _, p := range procs {
		lines = p(name, lines)
	}
	return strings.Join(lines, "")
}

// SplitLines splits text after each newline.
func SplitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

var deleteRe = regexp.MustCompile(`\bdelete\b`)

// RenameDelete renames the identifier `delete`, a valid C name but a C++
// keyword, to `delete_`.
func RenameDelete(_ string, lines []string) []string {
	return mapLines(lines, func(line string) string {
		return deleteRe.ReplaceAllString(line, "delete_")
	})
}

// RemoveExternC removes `#ifdef __cplusplus` blocks, up to and including the
// next `#endif`.
func RemoveExternC(_ string, lines []string) []string {
	out := make([]string, 0, len(lines))
	inIfdef := false
	for _, line := range lines {
		switch {
		case inIfdef:
			if strings.Contains(line, "#endif") {
				inIfdef = false
			}
		case strings.Contains(line, "#ifdef __cplusplus"):
			inIfdef = true
		default:
			out = append(out, line)
		}
	}
	return out
}

// ModuleImport includes nanopb's pb.h through the nanopb module.
func ModuleImport(_ string, lines []string) []string {
	return mapLines(lines, func(line string) string {
		return strings.ReplaceAll(line, "#include <pb.h>", "#include <nanopb/pb.h>")
	})
}

// Copyright returns a Processor prepending a license notice for the given
// holder, unless the file already carries it.
func Copyright(holder string) Processor {
	notice := CopyrightNotice(holder)
	return func(_ string, lines []string) []string {
		if strings.HasPrefix(strings.Join(lines, ""), notice) {
			return lines
		}
		out := make([]string, 0, len(lines)+1)
		out = append(out, SplitLines(notice)...)
		out = append(out, "\n")
		return append(out, lines...)
	}
}

// CopyrightNotice is the Apache 2.0 notice for the given holder, e.g.
// "2022 Google LLC", as a C block comment.
func CopyrightNotice(holder string) string {
	return fmt.Sprintf(`/*
 * Copyright %s
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
`, holder)
}

// IncludePrefix returns a Processor making source files include generated
// headers through prefix.
//
// Only bare includes of files ending with headerExt are changed, and only in
// files that are not headers themselves: headers including each other keep
// their relative includes.
func IncludePrefix(prefix, headerExt string) Processor {
	re := regexp.MustCompile(`#include "([^"/]+` + regexp.QuoteMeta(headerExt) + `)"`)
	return func(name string, lines []string) []string {
		if strings.HasPrefix(path.Ext(name), ".h") {
			return lines
		}
		return mapLines(lines, func(line string) string {
			return re.ReplaceAllString(line, `#include "`+strings.ReplaceAll(prefix, "$", "$$")+`$1"`)
		})
	}
}

func mapLines(lines []string, fn func(string) string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fn(l)
	}
	return out
}
