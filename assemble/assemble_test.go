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

package assemble

import (
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"github.com/firebase/protoc-gen-nanopb-cpp/insertion"
)

const header = `#include <pb.h>
/* @@protoc_insertion_point(includes) */

typedef struct _pkg_M {
    int32_t x;
    /* @@protoc_insertion_point(struct:pkg_M) */
} pkg_M;
/* @@protoc_insertion_point(eof) */
`

const source = `#include "m.nanopb.h"
/* @@protoc_insertion_point(includes) */
/* @@protoc_insertion_point(eof) */
`

func record(name, point, content string) *pluginpb.CodeGeneratorResponse_File {
	f := &pluginpb.CodeGeneratorResponse_File{
		Name:    proto.String(name),
		Content: proto.String(content),
	}
	if point != "" {
		f.InsertionPoint = proto.String(point)
	}
	return f
}

func TestAssembler(t *testing.T) {
	t.Parallel()

	ftt.Run("Assembler", t, func(t *ftt.Test) {
		a := &Assembler{}
		assert.Loosely(t, a.AddFile(insertion.ParseDocument("m.nanopb.h", header)), should.BeNil)
		assert.Loosely(t, a.AddFile(insertion.ParseDocument("m.nanopb.cc", source)), should.BeNil)

		assert.Loosely(t, a.Insert("m.nanopb.cc",
			insertion.Fragment{Point: insertion.Includes, Text: "#include <string>\n"},
			insertion.Fragment{Point: insertion.EOF, Text: "// source eof\n"},
		), should.BeNil)
		assert.Loosely(t, a.Insert("m.nanopb.h",
			insertion.Fragment{Point: insertion.Struct("pkg_M"), Text: "void f();\n"},
		), should.BeNil)
		assert.Loosely(t, a.Insert("m.nanopb.h",
			insertion.Fragment{Point: insertion.EOF, Text: "// header eof\n"},
		), should.BeNil)

		t.Run("Response", func(t *ftt.Test) {
			assert.Loosely(t, a.Response(), should.Match(&pluginpb.CodeGeneratorResponse{
				File: []*pluginpb.CodeGeneratorResponse_File{
					record("m.nanopb.h", "", header),
					record("m.nanopb.h", "struct:pkg_M", "void f();\n"),
					record("m.nanopb.h", "eof", "// header eof\n"),
					record("m.nanopb.cc", "", source),
					record("m.nanopb.cc", "includes", "#include <string>\n"),
					record("m.nanopb.cc", "eof", "// source eof\n"),
				},
			}))
		})

		t.Run("Splice", func(t *ftt.Test) {
			resp, err := a.Splice()
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, resp.File, should.HaveLength(2))
			assert.Loosely(t, resp.File[0].GetName(), should.Equal("m.nanopb.h"))
			assert.Loosely(t, resp.File[0].GetContent(), should.Equal(`#include <pb.h>
/* @@protoc_insertion_point(includes) */

typedef struct _pkg_M {
    int32_t x;
    void f();
    /* @@protoc_insertion_point(struct:pkg_M) */
} pkg_M;
// header eof
/* @@protoc_insertion_point(eof) */
`))
			assert.Loosely(t, resp.File[1].GetContent(), should.Equal(`#include "m.nanopb.h"
#include <string>
/* @@protoc_insertion_point(includes) */
// source eof
/* @@protoc_insertion_point(eof) */
`))
			for _, f := range resp.File {
				assert.Loosely(t, f.InsertionPoint, should.BeNil)
			}
		})

		t.Run("unknown file", func(t *ftt.Test) {
			err := a.Insert("other.h", insertion.Fragment{Point: insertion.EOF, Text: "x"})
			assert.Loosely(t, err, should.ErrLike(`inserting into "other.h", which was not added`))
		})

		t.Run("unknown point", func(t *ftt.Test) {
			err := a.Insert("m.nanopb.cc",
				insertion.Fragment{Point: insertion.EOF, Text: "ok\n"},
				insertion.Fragment{Point: insertion.Struct("pkg_M"), Text: "void f();\n"},
			)
			assert.Loosely(t, err, should.ErrLike(`inserting into "m.nanopb.cc": no insertion point "struct:pkg_M"`))
			// Nothing is queued on error.
			assert.Loosely(t, a.Response().File, should.HaveLength(6))
		})

		t.Run("duplicate file", func(t *ftt.Test) {
			err := a.AddFile(insertion.ParseDocument("m.nanopb.h", ""))
			assert.Loosely(t, err, should.ErrLike(`file "m.nanopb.h" is added twice`))
		})
	})

	ftt.Run("empty", t, func(t *ftt.Test) {
		a := &Assembler{}
		assert.Loosely(t, a.Response().File, should.HaveLength(0))
		resp, err := a.Splice()
		assert.Loosely(t, err, should.BeNil)
		assert.Loosely(t, resp.File, should.HaveLength(0))
	})
}
