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

package basegen

import (
	"context"
	"os"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/exec/execmock"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"github.com/firebase/protoc-gen-nanopb-cpp/basegen/basegentest"
	"github.com/firebase/protoc-gen-nanopb-cpp/insertion"
	"github.com/firebase/protoc-gen-nanopb-cpp/params"
	"github.com/firebase/protoc-gen-nanopb-cpp/schema"
)

func TestMain(m *testing.M) {
	execmock.Intercept(execmock.Strict)
	os.Exit(m.Run())
}

func file(name string, deps ...string) *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(name),
		Package:    proto.String("pkg"),
		Dependency: deps,
	}
}

func TestOrder(t *testing.T) {
	t.Parallel()

	ftt.Run("Order", t, func(t *ftt.Test) {
		req := &pluginpb.CodeGeneratorRequest{
			FileToGenerate: []string{"c.proto", "a.proto", "b.proto"},
			ProtoFile: []*descriptorpb.FileDescriptorProto{
				file("google/protobuf/timestamp.proto"),
				file("a.proto", "google/protobuf/timestamp.proto"),
				file("b.proto", "a.proto"),
				file("c.proto", "b.proto", "a.proto"),
			},
		}

		t.Run("dependencies first", func(t *ftt.Test) {
			order, err := Order(req)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, order, should.Match([]string{"a.proto", "b.proto", "c.proto"}))
		})

		t.Run("missing file to generate", func(t *ftt.Test) {
			req.FileToGenerate = append(req.FileToGenerate, "d.proto")
			_, err := Order(req)
			assert.Loosely(t, err, should.ErrLike(`file to generate "d.proto" is not among the request files`))
		})

		t.Run("missing dependency", func(t *ftt.Test) {
			req.ProtoFile = req.ProtoFile[1:]
			_, err := Order(req)
			assert.Loosely(t, err, should.ErrLike(`"a.proto" imports "google/protobuf/timestamp.proto", which is not among the request files`))
		})
	})
}

func testRequest() *pluginpb.CodeGeneratorRequest {
	return &pluginpb.CodeGeneratorRequest{
		FileToGenerate: []string{"google/firestore/v1/write.proto"},
		Parameter:      proto.String("--source-extension=.cc --splice"),
		ProtoFile: []*descriptorpb.FileDescriptorProto{{
			Name:    proto.String("google/firestore/v1/write.proto"),
			Package: proto.String("google.firestore.v1"),
			Syntax:  proto.String("proto3"),
			MessageType: []*descriptorpb.DescriptorProto{{
				Name: proto.String("Write"),
				Field: []*descriptorpb.FieldDescriptorProto{{
					Name:   proto.String("delete"),
					Number: proto.Int32(1),
					Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:   descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum(),
				}},
			}},
		}},
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	ftt.Run("Run", t, func(t *ftt.Test) {
		ctx := memlogger.Use(context.Background())
		ctx = logging.SetLevel(ctx, logging.Debug)

		req := testRequest()
		cfg, err := params.Parse(req.GetParameter())
		assert.Loosely(t, err, should.BeNil)
		table, err := schema.Build(req.ProtoFile)
		assert.Loosely(t, err, should.BeNil)
		gen := &basegentest.Fake{}

		t.Run("OK", func(t *ftt.Test) {
			out, err := Run(ctx, gen, req, table, &cfg)
			assert.Loosely(t, err, should.BeNil)

			assert.Loosely(t, gen.Requests, should.HaveLength(1))
			assert.Loosely(t, gen.Requests[0].GetParameter(), should.Equal(
				"--source-extension=.cc --extension=.nanopb --options-path=google/firestore/v1"))

			assert.Loosely(t, out.Files, should.HaveLength(1))
			f := out.Files[0]
			assert.Loosely(t, f.Proto, should.Equal("google/firestore/v1/write.proto"))
			assert.Loosely(t, f.Schema, should.Equal(table.File("google/firestore/v1/write.proto")))
			assert.Loosely(t, f.Header.Name, should.Equal("google/firestore/v1/write.nanopb.h"))
			assert.Loosely(t, f.Source.Name, should.Equal("google/firestore/v1/write.nanopb.cc"))
			assert.Loosely(t, f.Header.Points().ToSortedSlice(), should.Match([]string{
				insertion.EOF, insertion.Includes, insertion.Struct("google_firestore_v1_Write"),
			}))

			// Base text is fixed up, markers are not.
			assert.Loosely(t, f.Header.String(), should.ContainSubstring("pb_scalar_t delete_;\n"))
			assert.Loosely(t, f.Source.String(), should.ContainSubstring("SINGULAR, delete_)"))
			assert.Loosely(t, out.Extra, should.HaveLength(0))

			log := logging.Get(ctx).(*memlogger.MemLogger)
			assert.Loosely(t, log.HasFunc(func(e *memlogger.LogEntry) bool {
				return e.Level == logging.Debug && strings.Contains(e.Msg, "1 message(s), 0 enum(s)")
			}), should.BeTrue)
		})

		t.Run("extra files pass through", func(t *ftt.Test) {
			extra := &pluginpb.CodeGeneratorResponse_File{
				Name:    proto.String("nanopb_extra.txt"),
				Content: proto.String("hi"),
			}
			gen.Extra = append(gen.Extra, extra)
			out, err := Run(ctx, gen, req, table, &cfg)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, out.Extra, should.HaveLength(1))
			assert.Loosely(t, out.Extra[0].GetName(), should.Equal("nanopb_extra.txt"))
		})

		t.Run("base generator error", func(t *ftt.Test) {
			gen.Error = "boom"
			_, err := Run(ctx, gen, req, table, &cfg)
			assert.Loosely(t, err, should.ErrLike("base generator: boom"))
		})

		t.Run("missing source", func(t *ftt.Test) {
			gen.Skip = []string{"google/firestore/v1/write.nanopb.cc"}
			_, err := Run(ctx, gen, req, table, &cfg)
			assert.Loosely(t, err, should.ErrLike(`base generator produced no "google/firestore/v1/write.nanopb.cc"`))
		})

		t.Run("malformed request", func(t *ftt.Test) {
			req.FileToGenerate = []string{"nope.proto"}
			_, err := Run(ctx, gen, req, table, &cfg)
			assert.Loosely(t, err, should.ErrLike("malformed request"))
			assert.Loosely(t, gen.Requests, should.HaveLength(0))
		})
	})
}

func TestPlugin(t *testing.T) {
	t.Parallel()

	ftt.Run("Plugin", t, func(t *ftt.Test) {
		ctx := execmock.Init(memlogger.Use(context.Background()))
		req := testRequest()
		p := &Plugin{Path: "protoc-gen-nanopb"}

		t.Run("OK", func(t *ftt.Test) {
			resp := &pluginpb.CodeGeneratorResponse{
				File: []*pluginpb.CodeGeneratorResponse_File{{
					Name:    proto.String("write.nanopb.h"),
					Content: proto.String("/* header */\n"),
				}},
			}
			blob, err := proto.Marshal(resp)
			assert.Loosely(t, err, should.BeNil)
			uses := execmock.Simple.Mock(ctx, execmock.SimpleInput{
				ConsumeStdin: true,
				Stdout:       string(blob),
			})

			got, err := p.Generate(ctx, req)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, got, should.Match(resp))

			calls := uses.Snapshot()
			assert.Loosely(t, calls, should.HaveLength(1))
			stdin, _, err := calls[0].GetOutput(ctx)
			assert.Loosely(t, err, should.BeNil)
			sent := &pluginpb.CodeGeneratorRequest{}
			assert.Loosely(t, proto.Unmarshal([]byte(stdin), sent), should.BeNil)
			assert.Loosely(t, sent, should.Match(req))
		})

		t.Run("non-zero exit", func(t *ftt.Test) {
			execmock.Simple.Mock(ctx, execmock.SimpleInput{
				ConsumeStdin: true,
				Stderr:       "nanopb: cannot find options file\n",
				ExitCode:     2,
			})
			_, err := p.Generate(ctx, req)
			assert.Loosely(t, err, should.ErrLike("protoc-gen-nanopb exited with code 2: nanopb: cannot find options file"))
		})

		t.Run("garbage output", func(t *ftt.Test) {
			execmock.Simple.Mock(ctx, execmock.SimpleInput{
				ConsumeStdin: true,
				Stdout:       "\xff\xff\xff",
			})
			_, err := p.Generate(ctx, req)
			assert.Loosely(t, err, should.ErrLike("parsing the response of protoc-gen-nanopb"))
		})
	})
}
