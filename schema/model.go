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

// Package schema is the in-memory model of the messages, fields, oneofs and
// enums that the pretty-printing code is generated for.
//
// The model is built from descriptors after they were rewritten, and follows
// the shape of the C structs the nanopb generator produces for them: names are
// nanopb's qualified C names, allocation reflects nanopb's field type option
// and only fields and messages nanopb actually emits are present.
//
// A model is built once per generator invocation and is read-only afterwards.
package schema

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Rule describes how a field is stored relative to its message.
type Rule int

const (
	// Singular fields are always present in the struct.
	Singular Rule = iota
	// Optional fields have an accompanying `has_<name>` presence flag.
	Optional
	// Repeated fields are arrays with an accompanying `<name>_count`.
	Repeated
	// OneofMember fields are alternatives of a oneof group, selected by the
	// group's `which_<group>` discriminant.
	OneofMember
)

func (r Rule) String() string {
	switch r {
	case Singular:
		return "SINGULAR"
	case Optional:
		return "OPTIONAL"
	case Repeated:
		return "REPEATED"
	case OneofMember:
		return "ONEOF_MEMBER"
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// Kind is the kind of value a field holds.
type Kind int

const (
	Primitive Kind = iota
	Enum
	Submessage
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "PRIMITIVE"
	case Enum:
		return "ENUM"
	case Submessage:
		return "MESSAGE"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Allocation is the storage strategy nanopb uses for a field.
type Allocation int

const (
	Static Allocation = iota
	Dynamic
)

func (a Allocation) String() string {
	if a == Dynamic {
		return "DYNAMIC"
	}
	return "STATIC"
}

// Field is a single field of a message.
type Field struct {
	Name       string
	Tag        int32
	Rule       Rule
	Kind       Kind
	Allocation Allocation

	// TypeName is the qualified C name of the enum or message type of the
	// field. Empty for primitives.
	TypeName string

	// Oneof is the group this field belongs to, if Rule is OneofMember.
	Oneof *Oneof
}

// Oneof is a group of mutually exclusive fields sharing storage.
type Oneof struct {
	Name string

	// Anonymous oneofs are rendered as anonymous unions, so their members are
	// referenced without the group name.
	Anonymous bool

	// Members are sorted by tag.
	Members []*Field
}

// Tag returns the smallest tag among the group members, which is where the
// group sorts among its message's members.
func (o *Oneof) Tag() int32 {
	if len(o.Members) == 0 {
		return 0
	}
	return o.Members[0].Tag
}

// Discriminant is the name of the struct field telling which member is set.
func (o *Oneof) Discriminant() string {
	return "which_" + o.Name
}

// Member is a direct member of a message: either a field or a oneof group.
// Exactly one of Field and Oneof is set.
type Member struct {
	Field *Field
	Oneof *Oneof
}

// Tag returns the sort key of the member.
func (m Member) Tag() int32 {
	if m.Oneof != nil {
		return m.Oneof.Tag()
	}
	return m.Field.Tag
}

// Message is a message type, in the shape of the struct nanopb generates.
type Message struct {
	// Name is the qualified C name, e.g. "google_firestore_v1_Document".
	Name string
	// ShortName is the name of the message without its scope, e.g. "Document".
	ShortName string
	// FullName is the fully-qualified proto name.
	FullName protoreflect.FullName

	// Members are sorted by tag.
	Members []Member
}

// CanBeEmpty returns true if the rendered form of a default instance of this
// message can legitimately be empty.
//
// This is the case when no member is an always-present nested message.
// Oneof groups count as possibly empty: nothing is printed unless one of the
// members is set.
func (m *Message) CanBeEmpty() bool {
	for _, mem := range m.Members {
		if mem.Oneof != nil {
			continue
		}
		f := mem.Field
		if f.Kind == Submessage && f.Rule != Repeated {
			return false
		}
	}
	return true
}

// sortMembers sorts members and oneof members by tag.
func (m *Message) sortMembers() {
	for _, mem := range m.Members {
		if mem.Oneof != nil {
			sort.SliceStable(mem.Oneof.Members, func(i, j int) bool {
				return mem.Oneof.Members[i].Tag < mem.Oneof.Members[j].Tag
			})
		}
	}
	sort.SliceStable(m.Members, func(i, j int) bool {
		return m.Members[i].Tag() < m.Members[j].Tag()
	})
}

// EnumValue is a single value of an enum.
type EnumValue struct {
	// LongName is the qualified C name of the value, e.g. "Color_RED" for
	// value RED of enum Color.
	LongName string
	Number   int32
}

// UnknownEnumValue is the label of any number not declared by an enum.
const UnknownEnumValue = "<unknown enum value>"

// EnumType is an enum type.
type EnumType struct {
	// Name is the qualified C name.
	Name     string
	FullName protoreflect.FullName

	// Values are in declaration order, with aliases removed: each number
	// appears once, with the first name declared for it.
	Values []EnumValue
}

// ShortLabel returns the display label of the value: its long name with the
// enum name prefix stripped.
func (e *EnumType) ShortLabel(v EnumValue) string {
	prefix := e.Name + "_"
	if len(v.LongName) > len(prefix) && v.LongName[:len(prefix)] == prefix {
		return v.LongName[len(prefix):]
	}
	return v.LongName
}

// Label returns the display label of the given number, or UnknownEnumValue if
// the enum doesn't declare it.
func (e *EnumType) Label(number int32) string {
	for _, v := range e.Values {
		if v.Number == number {
			return e.ShortLabel(v)
		}
	}
	return UnknownEnumValue
}

// File holds the messages and enums of a single .proto file.
type File struct {
	// Proto is the name of the .proto file, as in the request.
	Proto   string
	Package string

	// Messages are in nanopb order: pre-order over nesting.
	Messages []*Message
	// Enums are in nanopb order: top-level enums first, then enums nested in
	// each message, following Messages order.
	Enums []*EnumType
}
