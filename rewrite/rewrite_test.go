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

package rewrite

import (
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"github.com/firebase/protoc-gen-nanopb-cpp/nanopb"
)

func testFile() *descriptorpb.FileDescriptorProto {
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	return &descriptorpb.FileDescriptorProto{
		Name:   proto.String("test.proto"),
		Syntax: proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Single"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: proto.String("s"), Number: proto.Int32(1), Label: optional, Type: descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(), OneofIndex: proto.Int32(0)},
					{Name: proto.String("i"), Number: proto.Int32(2), Label: optional, Type: descriptorpb.FieldDescriptorProto_TYPE_INT64.Enum(), OneofIndex: proto.Int32(0)},
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("choice")}},
				NestedType: []*descriptorpb.DescriptorProto{{
					Name: proto.String("Nested"),
					Field: []*descriptorpb.FieldDescriptorProto{
						{Name: proto.String("nums"), Number: proto.Int32(1), Label: descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(), Type: descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum()},
						{Name: proto.String("n"), Number: proto.Int32(2), Label: optional, Type: descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum()},
					},
				}},
			},
			{
				Name: proto.String("Double"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: proto.String("a"), Number: proto.Int32(1), Label: optional, Type: descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum(), OneofIndex: proto.Int32(0)},
					{Name: proto.String("b"), Number: proto.Int32(2), Label: optional, Type: descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum(), OneofIndex: proto.Int32(1)},
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("x")}, {Name: proto.String("y")}},
			},
			{
				Name: proto.String("WithOptional"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: proto.String("o"), Number: proto.Int32(1), Label: optional, Type: descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum(), OneofIndex: proto.Int32(0), Proto3Optional: proto.Bool(true)},
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("_o")}},
			},
		},
	}
}

func TestRewrite(t *testing.T) {
	t.Parallel()

	ftt.Run("Apply", t, func(t *ftt.Test) {
		file := testFile()
		files := []*descriptorpb.FileDescriptorProto{file}
		single, double, withOptional := file.MessageType[0], file.MessageType[1], file.MessageType[2]
		nested := single.NestedType[0]

		t.Run("all passes", func(t *ftt.Test) {
			Apply(files, AllPasses)

			assert.Loosely(t, nanopb.IsAnonymousOneof(single), should.BeTrue)
			assert.Loosely(t, nanopb.IsAnonymousOneof(double), should.BeFalse)
			assert.Loosely(t, nanopb.IsAnonymousOneof(withOptional), should.BeFalse)
			assert.Loosely(t, nanopb.IsAnonymousOneof(nested), should.BeFalse)

			s := single.Field[0]
			assert.Loosely(t, s.GetType(), should.Equal(descriptorpb.FieldDescriptorProto_TYPE_BYTES))
			assert.Loosely(t, nanopb.GetFieldType(s), should.Equal(nanopb.FieldTypePointer))
			assert.Loosely(t, nanopb.GetFieldType(single.Field[1]), should.Equal(nanopb.FieldTypeDefault))
			assert.Loosely(t, nanopb.GetFieldType(double.Field[0]), should.Equal(nanopb.FieldTypePointer))
			assert.Loosely(t, nanopb.GetFieldType(nested.Field[0]), should.Equal(nanopb.FieldTypePointer))
			assert.Loosely(t, nanopb.GetFieldType(nested.Field[1]), should.Equal(nanopb.FieldTypeDefault))
		})

		t.Run("idempotent", func(t *ftt.Test) {
			Apply(files, AllPasses)
			once := proto.Clone(file).(*descriptorpb.FileDescriptorProto)
			Apply(files, AllPasses)
			assert.Loosely(t, file, should.Match(once))
		})

		t.Run("disabled passes", func(t *ftt.Test) {
			orig := proto.Clone(file).(*descriptorpb.FileDescriptorProto)
			Apply(files, Passes{})
			assert.Loosely(t, file, should.Match(orig))
		})

		t.Run("bytes only", func(t *ftt.Test) {
			Apply(files, Passes{BytesForStrings: true})
			assert.Loosely(t, single.Field[0].GetType(), should.Equal(descriptorpb.FieldDescriptorProto_TYPE_BYTES))
			assert.Loosely(t, nanopb.GetFieldType(single.Field[0]), should.Equal(nanopb.FieldTypeDefault))
			assert.Loosely(t, nanopb.IsAnonymousOneof(single), should.BeFalse)
		})
	})

	ftt.Run("ForEachMessage visits in pre-order", t, func(t *ftt.Test) {
		var names []string
		ForEachMessage([]*descriptorpb.FileDescriptorProto{testFile()}, func(m *descriptorpb.DescriptorProto) {
			names = append(names, m.GetName())
		})
		assert.Loosely(t, names, should.Match([]string{"Single", "Nested", "Double", "WithOptional"}))
	})
}
