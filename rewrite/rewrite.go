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

// Package rewrite adjusts descriptors before they are handed to nanopb.
//
// Each pass sets nanopb options on the descriptors so that the generated
// structs take the shape the pretty printers expect. Passes mutate the
// descriptors in place, never fail and are idempotent: applying a pass twice
// gives the same result as applying it once.
package rewrite

import (
	"google.golang.org/protobuf/types/descriptorpb"

	"go.chromium.org/luci/common/proto/google/descutil"

	"github.com/firebase/protoc-gen-nanopb-cpp/nanopb"
)

// Passes selects the rewrite passes to apply.
type Passes struct {
	// AnonymousOneofs renders the oneof of messages with exactly one oneof as
	// an anonymous union.
	AnonymousOneofs bool
	// BytesForStrings turns string fields into bytes fields.
	BytesForStrings bool
	// PointerAllocation allocates strings, bytes and repeated fields
	// dynamically.
	PointerAllocation bool
}

// AllPasses enables every pass.
var AllPasses = Passes{
	AnonymousOneofs:   true,
	BytesForStrings:   true,
	PointerAllocation: true,
}

// ForEachMessage calls cb for every message of the files, nested messages
// included, in pre-order.
func ForEachMessage(files []*descriptorpb.FileDescriptorProto, cb func(*descriptorpb.DescriptorProto)) {
	var visit func(msgs []*descriptorpb.DescriptorProto)
	visit = func(msgs []*descriptorpb.DescriptorProto) {
		for _, m := range msgs {
			cb(m)
			visit(m.NestedType)
		}
	}
	for _, f := range files {
		visit(f.MessageType)
	}
}

// ForEachField calls cb for every field of every message of the files.
func ForEachField(files []*descriptorpb.FileDescriptorProto, cb func(*descriptorpb.FieldDescriptorProto)) {
	ForEachMessage(files, func(m *descriptorpb.DescriptorProto) {
		for _, f := range m.Field {
			cb(f)
		}
	})
}

// Apply applies the selected passes to all files.
//
// Bytes are forced before allocation, so that with both passes on, former
// string fields become pointers too.
func Apply(files []*descriptorpb.FileDescriptorProto, p Passes) {
	if p.AnonymousOneofs {
		ForEachMessage(files, AnonymousOneof)
	}
	if p.BytesForStrings {
		ForEachField(files, BytesForString)
	}
	if p.PointerAllocation {
		ForEachField(files, PointerAllocation)
	}
}

// AnonymousOneof marks the message's oneof as anonymous if the message has
// exactly one.
//
// Synthetic oneofs of proto3 optional fields aren't rendered as unions, so
// they don't count.
func AnonymousOneof(m *descriptorpb.DescriptorProto) {
	if realOneofs(m) == 1 {
		nanopb.SetAnonymousOneof(m, true)
	}
}

// BytesForString turns a string field into a bytes field.
func BytesForString(f *descriptorpb.FieldDescriptorProto) {
	if f.GetType() == descriptorpb.FieldDescriptorProto_TYPE_STRING {
		f.Type = descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum()
	}
}

// PointerAllocation sets FT_POINTER on string, bytes and repeated fields.
func PointerAllocation(f *descriptorpb.FieldDescriptorProto) {
	switch {
	case f.GetType() == descriptorpb.FieldDescriptorProto_TYPE_STRING,
		f.GetType() == descriptorpb.FieldDescriptorProto_TYPE_BYTES,
		descutil.Repeated(f):
		nanopb.SetFieldType(f, nanopb.FieldTypePointer)
	}
}

func realOneofs(m *descriptorpb.DescriptorProto) int {
	synthetic := map[int32]bool{}
	for _, f := range m.Field {
		if f.GetProto3Optional() && f.OneofIndex != nil {
			synthetic[f.GetOneofIndex()] = true
		}
	}
	return len(m.OneofDecl) - len(synthetic)
}
