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

// Package insertion models generated files as text interleaved with protoc
// insertion points.
//
// An insertion point is a line of a generated file containing
// `@@protoc_insertion_point(NAME)`. Other plugins, or later stages of the same
// plugin, may add text right before such a line.
package insertion

import (
	"regexp"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/data/text/indented"
	"go.chromium.org/luci/common/errors"
)

// Names of the insertion points nanopb emits.
const (
	// Includes follows the #include block of headers and sources.
	Includes = "includes"
	// EOF is right before the end of headers and sources.
	EOF = "eof"

	structPrefix = "struct:"
)

// Struct is the insertion point inside the body of the struct generated for
// the given message.
func Struct(message string) string {
	return structPrefix + message
}

// Fragment is a piece of text destined to an insertion point.
type Fragment struct {
	Point string
	Text  string
}

// Region is a part of a Document: either plain text or a single line holding
// an insertion point marker.
type Region struct {
	// Text is the verbatim text of the region. For markers, it is the whole
	// marker line, including its newline if present.
	Text string
	// Point is the name of the insertion point. Empty for plain text.
	Point string
}

// Indent returns the leading whitespace of a marker line.
func (r Region) Indent() string {
	return r.Text[:len(r.Text)-len(strings.TrimLeft(r.Text, " \t"))]
}

// Document is a generated file split into regions.
type Document struct {
	// Name is the path of the file, relative to the output directory.
	Name    string
	Regions []Region
}

var markerRe = regexp.MustCompile(`@@protoc_insertion_point\(([^)]*)\)`)

// ParseDocument splits content into text and marker regions.
func ParseDocument(name, content string) *Document {
	doc := &Document{Name: name}
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			doc.Regions = append(doc.Regions, Region{Text: text.String()})
			text.Reset()
		}
	}
	for len(content) > 0 {
		line := content
		if idx := strings.IndexByte(content, '\n'); idx >= 0 {
			line = content[:idx+1]
		}
		content = content[len(line):]

		if m := markerRe.FindStringSubmatch(line); m != nil {
			flush()
			doc.Regions = append(doc.Regions, Region{Text: line, Point: m[1]})
		} else {
			text.WriteString(line)
		}
	}
	flush()
	return doc
}

// Points returns the set of insertion points declared in the document.
func (d *Document) Points() stringset.Set {
	points := stringset.New(0)
	for _, r := range d.Regions {
		if r.Point != "" {
			points.Add(r.Point)
		}
	}
	return points
}

// HasPoint returns true if the document declares the given insertion point.
func (d *Document) HasPoint(point string) bool {
	for _, r := range d.Regions {
		if r.Point == point {
			return true
		}
	}
	return false
}

// String returns the content of the document.
func (d *Document) String() string {
	var sb strings.Builder
	for _, r := range d.Regions {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Splice returns the content of the document with the fragments inserted,
// the way protoc applies insertion records.
//
// Fragments land right before their marker line, in order, with the marker's
// indentation added to each non-blank line. If a point is declared more than
// once, only its first marker receives text. Markers are kept, so the result
// may be spliced into again.
func (d *Document) Splice(fragments []Fragment) (string, error) {
	byPoint := map[string][]string{}
	for _, f := range fragments {
		if !d.HasPoint(f.Point) {
			return "", errors.Fmt("%s: no insertion point %q", d.Name, f.Point)
		}
		byPoint[f.Point] = append(byPoint[f.Point], f.Text)
	}

	var sb strings.Builder
	for _, r := range d.Regions {
		if r.Point != "" {
			indent := r.Indent()
			w := &indented.Writer{
				Writer:    &sb,
				Level:     len(indent),
				UseSpaces: !strings.HasPrefix(indent, "\t"),
			}
			for _, text := range byPoint[r.Point] {
				if text != "" && !strings.HasSuffix(text, "\n") {
					text += "\n"
				}
				if _, err := w.Write([]byte(text)); err != nil {
					return "", errors.Fmt("%s: splicing into %q: %w", d.Name, r.Point, err)
				}
			}
			delete(byPoint, r.Point)
		}
		sb.WriteString(r.Text)
	}
	return sb.String(), nil
}
