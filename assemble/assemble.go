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

// Package assemble turns generated documents and the fragments destined to
// their insertion points into protoc response records.
package assemble

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/errors"

	"github.com/firebase/protoc-gen-nanopb-cpp/insertion"
)

type entry struct {
	doc       *insertion.Document
	fragments []insertion.Fragment
}

// Assembler collects files and insertions.
//
// The zero value is ready to use.
type Assembler struct {
	entries []*entry
	byName  map[string]*entry
}

// AddFile registers a file with its full content.
func (a *Assembler) AddFile(doc *insertion.Document) error {
	if a.byName == nil {
		a.byName = map[string]*entry{}
	}
	if a.byName[doc.Name] != nil {
		return errors.Fmt("file %q is added twice", doc.Name)
	}
	e := &entry{doc: doc}
	a.entries = append(a.entries, e)
	a.byName[doc.Name] = e
	return nil
}

// Insert queues fragments for insertion into a previously added file.
//
// Every fragment must target an insertion point the file declares. On error
// nothing is queued.
func (a *Assembler) Insert(file string, fragments ...insertion.Fragment) error {
	e := a.byName[file]
	if e == nil {
		return errors.Fmt("inserting into %q, which was not added", file)
	}
	for _, f := range fragments {
		if !e.doc.HasPoint(f.Point) {
			return errors.Fmt("inserting into %q: no insertion point %q", file, f.Point)
		}
	}
	e.fragments = append(e.fragments, fragments...)
	return nil
}

// Response returns the records for protoc to write.
//
// Files come in the order they were added, each full-content record followed
// by the insertion records for that file in the order they were queued.
func (a *Assembler) Response() *pluginpb.CodeGeneratorResponse {
	resp := &pluginpb.CodeGeneratorResponse{}
	for _, e := range a.entries {
		resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
			Name:    proto.String(e.doc.Name),
			Content: proto.String(e.doc.String()),
		})
		for _, f := range e.fragments {
			resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
				Name:           proto.String(e.doc.Name),
				InsertionPoint: proto.String(f.Point),
				Content:        proto.String(f.Text),
			})
		}
	}
	return resp
}

// Splice applies queued insertions locally and returns one record per file,
// in the order they were added.
func (a *Assembler) Splice() (*pluginpb.CodeGeneratorResponse, error) {
	resp := &pluginpb.CodeGeneratorResponse{}
	for _, e := range a.entries {
		content, err := e.doc.Splice(e.fragments)
		if err != nil {
			return nil, err
		}
		resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
			Name:    proto.String(e.doc.Name),
			Content: proto.String(content),
		})
	}
	return resp, nil
}
