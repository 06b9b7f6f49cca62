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

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/proto/google/descutil"

	"github.com/firebase/protoc-gen-nanopb-cpp/nanopb"
)

// Table holds every message and enum of a request, keyed by proto full name.
//
// Fields reference other types by name only; the table is how such a name
// turns into the C name of the type, regardless of the file defining it.
type Table struct {
	files    map[string]*File
	order    []string
	messages map[protoreflect.FullName]*Message
	enums    map[protoreflect.FullName]*EnumType
	// cNames maps full names of all messages and enums, including skipped
	// ones, to their C names.
	cNames map[protoreflect.FullName]string
}

// Build builds the model of all given files.
//
// Files must be the descriptors of a request, dependencies included. They are
// expected to have been validated by protoc; the only failure is a field that
// references a type that none of the files define.
func Build(files []*descriptorpb.FileDescriptorProto) (*Table, error) {
	t := &Table{
		files:    make(map[string]*File, len(files)),
		messages: map[protoreflect.FullName]*Message{},
		enums:    map[protoreflect.FullName]*EnumType{},
		cNames:   map[protoreflect.FullName]string{},
	}

	// Names first, so that fields can reference types declared later or in
	// other files.
	for _, f := range files {
		pkg := protoreflect.FullName(f.GetPackage())
		names := PackageNames(f.GetPackage())
		for _, e := range f.EnumType {
			t.cNames[pkg.Append(protoreflect.Name(e.GetName()))] = names.Append(e.GetName()).String()
		}
		forEachMessage(f.MessageType, pkg, names, func(m *descriptorpb.DescriptorProto, full protoreflect.FullName, n Names) {
			t.cNames[full] = n.String()
			for _, e := range m.EnumType {
				t.cNames[full.Append(protoreflect.Name(e.GetName()))] = n.Append(e.GetName()).String()
			}
		})
	}

	for _, f := range files {
		file, err := t.buildFile(f)
		if err != nil {
			return nil, errors.Fmt("building model of %q: %w", f.GetName(), err)
		}
		t.files[file.Proto] = file
		t.order = append(t.order, file.Proto)
	}
	return t, nil
}

// File returns the model of the given .proto file, or nil if unknown.
func (t *Table) File(proto string) *File {
	return t.files[proto]
}

// Files returns the names of all files in the table, in request order.
func (t *Table) Files() []string {
	return append([]string(nil), t.order...)
}

// Message returns the message with the given proto full name, or nil.
func (t *Table) Message(name protoreflect.FullName) *Message {
	return t.messages[name]
}

// Enum returns the enum with the given proto full name, or nil.
func (t *Table) Enum(name protoreflect.FullName) *EnumType {
	return t.enums[name]
}

func (t *Table) buildFile(f *descriptorpb.FileDescriptorProto) (*File, error) {
	file := &File{
		Proto:   f.GetName(),
		Package: f.GetPackage(),
	}
	pkg := protoreflect.FullName(f.GetPackage())
	names := PackageNames(f.GetPackage())
	proto3 := f.GetSyntax() == "proto3"

	for _, e := range f.EnumType {
		file.Enums = append(file.Enums, t.buildEnum(e, pkg, names))
	}

	var err error
	forEachMessage(f.MessageType, pkg, names, func(m *descriptorpb.DescriptorProto, full protoreflect.FullName, n Names) {
		if err != nil {
			return
		}
		// Skipped messages get no struct, but their nested types still do.
		if !nanopb.IsSkipped(m) {
			var msg *Message
			if msg, err = t.buildMessage(m, full, n, proto3); err != nil {
				return
			}
			file.Messages = append(file.Messages, msg)
		}
		for _, e := range m.EnumType {
			file.Enums = append(file.Enums, t.buildEnum(e, full, n))
		}
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (t *Table) buildEnum(e *descriptorpb.EnumDescriptorProto, scope protoreflect.FullName, scopeNames Names) *EnumType {
	names := scopeNames.Append(e.GetName())
	enum := &EnumType{
		Name:     names.String(),
		FullName: scope.Append(protoreflect.Name(e.GetName())),
	}
	seen := map[int32]bool{}
	for _, v := range e.Value {
		if seen[v.GetNumber()] {
			continue
		}
		seen[v.GetNumber()] = true
		enum.Values = append(enum.Values, EnumValue{
			LongName: names.Append(v.GetName()).String(),
			Number:   v.GetNumber(),
		})
	}
	t.enums[enum.FullName] = enum
	return enum
}

func (t *Table) buildMessage(m *descriptorpb.DescriptorProto, full protoreflect.FullName, names Names, proto3 bool) (*Message, error) {
	msg := &Message{
		Name:      names.String(),
		ShortName: names.Last(),
		FullName:  full,
	}

	anonymous := nanopb.IsAnonymousOneof(m)
	oneofs := make([]*Oneof, len(m.OneofDecl))
	for _, f := range m.Field {
		ft := nanopb.GetFieldType(f)
		if ft == nanopb.FieldTypeIgnore {
			continue
		}

		field := &Field{
			Name: f.GetName(),
			Tag:  f.GetNumber(),
			Kind: kindOf(f),
		}
		if ft == nanopb.FieldTypePointer {
			field.Allocation = Dynamic
		}
		if field.Kind != Primitive {
			cName, ok := t.cNames[protoreflect.FullName(strings.TrimPrefix(f.GetTypeName(), "."))]
			if !ok {
				return nil, errors.Fmt("field %s.%s references unknown type %q", full, f.GetName(), f.GetTypeName())
			}
			field.TypeName = cName
		}

		switch {
		case descutil.Repeated(f):
			field.Rule = Repeated
		case f.OneofIndex != nil && !f.GetProto3Optional():
			idx := f.GetOneofIndex()
			if int(idx) >= len(oneofs) {
				return nil, errors.Fmt("field %s.%s references missing oneof #%d", full, f.GetName(), idx)
			}
			if oneofs[idx] == nil {
				oneofs[idx] = &Oneof{
					Name:      m.OneofDecl[idx].GetName(),
					Anonymous: anonymous,
				}
				msg.Members = append(msg.Members, Member{Oneof: oneofs[idx]})
			}
			field.Rule = OneofMember
			field.Oneof = oneofs[idx]
			oneofs[idx].Members = append(oneofs[idx].Members, field)
			continue
		case hasPresence(f, proto3) && field.Allocation == Static:
			field.Rule = Optional
		default:
			field.Rule = Singular
		}
		msg.Members = append(msg.Members, Member{Field: field})
	}

	msg.sortMembers()
	t.messages[full] = msg
	return msg, nil
}

// hasPresence returns true for fields nanopb tracks with a `has_` flag when
// they are statically allocated.
//
// In proto3 files nanopb keeps the flag for submessages even without an
// explicit `optional`.
func hasPresence(f *descriptorpb.FieldDescriptorProto, proto3 bool) bool {
	if f.GetLabel() != descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL {
		return false
	}
	if proto3 {
		return f.GetProto3Optional() || kindOf(f) == Submessage
	}
	return true
}

func kindOf(f *descriptorpb.FieldDescriptorProto) Kind {
	switch f.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return Enum
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		return Submessage
	default:
		return Primitive
	}
}

// forEachMessage calls cb for every message, in pre-order over nesting.
func forEachMessage(msgs []*descriptorpb.DescriptorProto, scope protoreflect.FullName, scopeNames Names, cb func(*descriptorpb.DescriptorProto, protoreflect.FullName, Names)) {
	for _, m := range msgs {
		full := scope.Append(protoreflect.Name(m.GetName()))
		names := scopeNames.Append(m.GetName())
		cb(m, full, names)
		forEachMessage(m.NestedType, full, names, cb)
	}
}
