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

// Package nanopb gives access to the nanopb generator options attached to
// descriptors.
//
// nanopb reads its per-field and per-message settings from the `(nanopb)` and
// `(nanopb_msgopt)` extensions declared in nanopb.proto. We don't link the
// generated Go code for that file; instead the subset of nanopb.proto we care
// about is described here and materialized with dynamicpb. Unknown fields of
// NanoPBOptions are preserved as-is, so options set by the user in .proto
// files survive a rewrite.
package nanopb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ExtensionNumber is the field number of both `nanopb` and `nanopb_msgopt`
// extensions.
const ExtensionNumber = 1010

// FieldType mirrors nanopb's FieldType enum.
type FieldType int32

// Values of FieldType, matching nanopb.proto.
const (
	FieldTypeDefault  FieldType = 0
	FieldTypeCallback FieldType = 1
	FieldTypeStatic   FieldType = 2
	FieldTypeIgnore   FieldType = 3
	FieldTypePointer  FieldType = 4
	FieldTypeInline   FieldType = 5
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeDefault:
		return "FT_DEFAULT"
	case FieldTypeCallback:
		return "FT_CALLBACK"
	case FieldTypeStatic:
		return "FT_STATIC"
	case FieldTypeIgnore:
		return "FT_IGNORE"
	case FieldTypePointer:
		return "FT_POINTER"
	case FieldTypeInline:
		return "FT_INLINE"
	}
	return fmt.Sprintf("FieldType(%d)", int32(t))
}

// Tags of the NanoPBOptions fields we read or write.
const (
	typeTag           = 3
	skipMessageTag    = 6
	anonymousOneofTag = 11
)

var (
	fieldExt   protoreflect.ExtensionType
	messageExt protoreflect.ExtensionType

	optionsDesc    protoreflect.MessageDescriptor
	typeField      protoreflect.FieldDescriptor
	skipField      protoreflect.FieldDescriptor
	anonymousField protoreflect.FieldDescriptor

	types protoregistry.Types
)

func init() {
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	file := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("nanopb.proto"),
		Dependency: []string{"google/protobuf/descriptor.proto"},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("FieldType"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("FT_DEFAULT"), Number: proto.Int32(int32(FieldTypeDefault))},
				{Name: proto.String("FT_CALLBACK"), Number: proto.Int32(int32(FieldTypeCallback))},
				{Name: proto.String("FT_POINTER"), Number: proto.Int32(int32(FieldTypePointer))},
				{Name: proto.String("FT_STATIC"), Number: proto.Int32(int32(FieldTypeStatic))},
				{Name: proto.String("FT_IGNORE"), Number: proto.Int32(int32(FieldTypeIgnore))},
				{Name: proto.String("FT_INLINE"), Number: proto.Int32(int32(FieldTypeInline))},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("NanoPBOptions"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{
					Name:     proto.String("type"),
					Number:   proto.Int32(typeTag),
					Label:    optional,
					Type:     descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum(),
					TypeName: proto.String(".FieldType"),
				},
				{
					Name:   proto.String("skip_message"),
					Number: proto.Int32(skipMessageTag),
					Label:  optional,
					Type:   descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum(),
				},
				{
					Name:   proto.String("anonymous_oneof"),
					Number: proto.Int32(anonymousOneofTag),
					Label:  optional,
					Type:   descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum(),
				},
			},
		}},
		Extension: []*descriptorpb.FieldDescriptorProto{
			{
				Name:     proto.String("nanopb"),
				Number:   proto.Int32(ExtensionNumber),
				Label:    optional,
				Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
				TypeName: proto.String(".NanoPBOptions"),
				Extendee: proto.String(".google.protobuf.FieldOptions"),
			},
			{
				Name:     proto.String("nanopb_msgopt"),
				Number:   proto.Int32(ExtensionNumber),
				Label:    optional,
				Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
				TypeName: proto.String(".NanoPBOptions"),
				Extendee: proto.String(".google.protobuf.MessageOptions"),
			},
		},
	}

	fd, err := protodesc.NewFile(file, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("nanopb: building nanopb.proto descriptor: %s", err))
	}

	optionsDesc = fd.Messages().ByName("NanoPBOptions")
	typeField = optionsDesc.Fields().ByNumber(typeTag)
	skipField = optionsDesc.Fields().ByNumber(skipMessageTag)
	anonymousField = optionsDesc.Fields().ByNumber(anonymousOneofTag)

	fieldExt = dynamicpb.NewExtensionType(fd.Extensions().ByName("nanopb"))
	messageExt = dynamicpb.NewExtensionType(fd.Extensions().ByName("nanopb_msgopt"))
	for _, xt := range []protoreflect.ExtensionType{fieldExt, messageExt} {
		if err := types.RegisterExtension(xt); err != nil {
			panic(fmt.Sprintf("nanopb: registering %s: %s", xt.TypeDescriptor().FullName(), err))
		}
	}
}

// Resolver resolves the nanopb extensions.
//
// Pass it to proto.UnmarshalOptions when parsing a CodeGeneratorRequest, so
// that nanopb options already present in the descriptors are decoded as
// extensions rather than kept as unknown fields.
func Resolver() *protoregistry.Types {
	return &types
}

// options returns the NanoPBOptions stored in the given extension of opts,
// or nil if it is not set.
func options(opts proto.Message, xt protoreflect.ExtensionType) protoreflect.Message {
	if opts == nil {
		return nil
	}
	m := opts.ProtoReflect()
	if !m.IsValid() || !m.Has(xt.TypeDescriptor()) {
		return nil
	}
	return m.Get(xt.TypeDescriptor()).Message()
}

// GetFieldType returns the nanopb allocation type of the field.
func GetFieldType(f *descriptorpb.FieldDescriptorProto) FieldType {
	opts := options(f.GetOptions(), fieldExt)
	if opts == nil || !opts.Has(typeField) {
		return FieldTypeDefault
	}
	return FieldType(opts.Get(typeField).Enum())
}

// SetFieldType sets the nanopb allocation type of the field, keeping all other
// nanopb options of the field.
func SetFieldType(f *descriptorpb.FieldDescriptorProto, t FieldType) {
	if f.Options == nil {
		f.Options = &descriptorpb.FieldOptions{}
	}
	opts := f.Options.ProtoReflect().Mutable(fieldExt.TypeDescriptor()).Message()
	opts.Set(typeField, protoreflect.ValueOfEnum(protoreflect.EnumNumber(t)))
}

// IsAnonymousOneof returns true if the message has its oneofs rendered as
// anonymous unions.
func IsAnonymousOneof(m *descriptorpb.DescriptorProto) bool {
	opts := options(m.GetOptions(), messageExt)
	return opts != nil && opts.Get(anonymousField).Bool()
}

// SetAnonymousOneof sets `anonymous_oneof` on the message.
func SetAnonymousOneof(m *descriptorpb.DescriptorProto, anonymous bool) {
	if m.Options == nil {
		m.Options = &descriptorpb.MessageOptions{}
	}
	opts := m.Options.ProtoReflect().Mutable(messageExt.TypeDescriptor()).Message()
	opts.Set(anonymousField, protoreflect.ValueOfBool(anonymous))
}

// IsSkipped returns true if nanopb is told not to generate the message.
func IsSkipped(m *descriptorpb.DescriptorProto) bool {
	opts := options(m.GetOptions(), messageExt)
	return opts != nil && opts.Get(skipField).Bool()
}

// SetSkipped sets `skip_message` on the message.
func SetSkipped(m *descriptorpb.DescriptorProto, skip bool) {
	if m.Options == nil {
		m.Options = &descriptorpb.MessageOptions{}
	}
	opts := m.Options.ProtoReflect().Mutable(messageExt.TypeDescriptor()).Message()
	opts.Set(skipField, protoreflect.ValueOfBool(skip))
}
