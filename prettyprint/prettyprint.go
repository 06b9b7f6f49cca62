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

// Package prettyprint generates C++ pretty-printing support for nanopb structs.
//
// Every message gets a member function
//
//	std::string ToString(int indent = 0) const;
//
// rendering the message in proto text format, and every enum gets a free
// function
//
//	const char* EnumToString(SomeEnum value);
//
// returning the name of the given value.
//
// The generated code delegates to PrintHeader, PrintTail, PrintPrimitiveField,
// PrintEnumField and PrintMessageField, which are expected to be provided by
// the runtime support header included into generated sources.
//
// Declarations go into the header and definitions into the source produced by
// the base generator, as fragments attached to insertion points.
package prettyprint

import (
	"fmt"
	"strings"

	"github.com/firebase/protoc-gen-nanopb-cpp/insertion"
	"github.com/firebase/protoc-gen-nanopb-cpp/schema"
)

// LineWidth is the width generated statements try to fit in.
const LineWidth = 80

const indentPerLevel = 4

func indent(level int) string {
	return strings.Repeat(" ", indentPerLevel*level)
}

// printer accumulates generated C++ code.
type printer struct {
	sb strings.Builder
}

// pl prints a line at the given indentation level.
func (p *printer) pl(level int, format string, args ...any) {
	p.sb.WriteString(indent(level))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) nl() {
	p.sb.WriteByte('\n')
}

// block prints the opening line, the body one level deeper and the closing
// line.
func (p *printer) block(level int, open, end string, body func()) {
	p.pl(level, "%s", open)
	body()
	p.pl(level, "%s", end)
}

func (p *printer) String() string {
	return p.sb.String()
}

// MessageDeclaration is the declaration of ToString, to be inserted at the end
// of the struct of every message.
func MessageDeclaration() string {
	return "\n" + indent(1) + "std::string ToString(int indent = 0) const;\n"
}

// MessageDefinition is the out-of-class definition of ToString for m.
//
// Members are printed in tag order. Unset optional fields, empty repeated
// fields and unset oneofs print nothing; set ones print even default values.
func MessageDefinition(m *schema.Message) string {
	p := &printer{}
	p.pl(0, "std::string %s::ToString(int indent) const {", m.Name)
	p.pl(1, "std::string tostring_header = PrintHeader(indent, %q, this);", m.ShortName)
	p.pl(1, "std::string tostring_result;")
	p.nl()
	for _, mem := range m.Members {
		if mem.Oneof != nil {
			printOneof(p, m, mem.Oneof)
		} else {
			printField(p, mem.Field)
		}
	}
	p.nl()
	printTail(p, m.CanBeEmpty())
	p.pl(0, "}")
	p.nl()
	return p.String()
}

// printTail prints the end of ToString.
//
// A nested message whose rendering came out empty collapses to nothing, unless
// it's the root of the printout: the root always shows its header.
func printTail(p *printer, canBeEmpty bool) {
	if !canBeEmpty {
		p.pl(1, "std::string tostring_tail = PrintTail(indent);")
		p.pl(1, "return tostring_header + tostring_result + tostring_tail;")
		return
	}
	p.pl(1, "bool is_root = indent == 0;")
	p.pl(1, "if (!tostring_result.empty() || is_root) {")
	p.pl(1, "  std::string tostring_tail = PrintTail(indent);")
	p.pl(1, "  return tostring_header + tostring_result + tostring_tail;")
	p.pl(1, "} else {")
	p.pl(1, `  return "";`)
	p.pl(1, "}")
}

func printField(p *printer, f *schema.Field) {
	switch f.Rule {
	case schema.Singular:
		p.sb.WriteString(leaf(1, f, false))
	case schema.Optional:
		p.block(1, fmt.Sprintf("if (has_%s) {", f.Name), "}", func() {
			p.sb.WriteString(leaf(2, f, true))
		})
	case schema.Repeated:
		p.block(1, fmt.Sprintf("for (pb_size_t i = 0; i != %s_count; ++i) {", f.Name), "}", func() {
			p.sb.WriteString(leaf(2, f, true))
		})
	case schema.OneofMember:
		panic(fmt.Sprintf("oneof member %s printed outside of its group", f.Name))
	default:
		panic(fmt.Sprintf("unexpected rule %s", f.Rule))
	}
}

func printOneof(p *printer, m *schema.Message, o *schema.Oneof) {
	p.block(1, fmt.Sprintf("switch (%s) {", o.Discriminant()), "}", func() {
		for _, f := range o.Members {
			p.pl(1, "case %s_%s_tag:", m.Name, f.Name)
			p.sb.WriteString(leaf(2, f, true))
			p.pl(2, "break;")
		}
	})
}

// leaf is the statement appending the field to tostring_result.
//
// The statement is wrapped after the label if it doesn't fit in LineWidth,
// counting the trailing newline.
func leaf(level int, f *schema.Field, always bool) string {
	var helper string
	switch f.Kind {
	case schema.Enum:
		helper = "PrintEnumField"
	case schema.Submessage:
		helper = "PrintMessageField"
	default:
		helper = "PrintPrimitiveField"
	}

	label := f.Name
	if f.Kind != schema.Submessage {
		label += ":"
	}

	format := "%stostring_result += %s(\"%s \",%s%s, indent + 1, %t);\n"
	stmt := fmt.Sprintf(format, indent(level), helper, label, " ", identifier(f), always)
	if len(stmt) > LineWidth {
		stmt = fmt.Sprintf(format, indent(level), helper, label, "\n"+indent(level+1), identifier(f), always)
	}
	return stmt
}

// identifier is the C++ expression referring to the field value from within a
// member function.
func identifier(f *schema.Field) string {
	id := safeName(f.Name)
	if f.Rule == schema.Repeated {
		id += "[i]"
	}
	if o := f.Oneof; o != nil && !o.Anonymous {
		id = safeName(o.Name) + "." + id
	}
	return id
}

// safeName is the name of a struct member in generated headers, after `delete`
// was renamed.
func safeName(name string) string {
	if name == "delete" {
		return "delete_"
	}
	return name
}

// EnumDeclaration is the declaration of EnumToString for e.
func EnumDeclaration(e *schema.EnumType) string {
	decl := fmt.Sprintf("const char* EnumToString(%s value);\n", e.Name)
	if len(decl) > LineWidth {
		decl = fmt.Sprintf("const char* EnumToString(\n%s%s value);\n", indent(1), e.Name)
	}
	return decl
}

// EnumDefinition is the definition of EnumToString for e.
//
// Numbers not declared by e map to schema.UnknownEnumValue.
func EnumDefinition(e *schema.EnumType) string {
	p := &printer{}
	p.pl(0, "const char* EnumToString(")
	p.pl(0, "  %s value) {", e.Name)
	p.block(1, "switch (value) {", "}", func() {
		for _, v := range e.Values {
			p.pl(1, "case %s:", v.LongName)
			p.pl(2, "return %q;", e.ShortLabel(v))
		}
	})
	p.pl(1, "return %q;", schema.UnknownEnumValue)
	p.pl(0, "}")
	p.nl()
	return p.String()
}

// Options control the code surrounding the generated functions.
type Options struct {
	// Namespace wraps generated functions, outermost first. Empty means the
	// global namespace.
	Namespace []string
	// HeaderIncludes and SourceIncludes are #include targets with their quotes
	// or angle brackets.
	HeaderIncludes []string
	SourceIncludes []string
}

func includes(targets []string) string {
	p := &printer{}
	for _, t := range targets {
		p.pl(0, "#include %s", t)
	}
	p.nl()
	return p.String()
}

func (o *Options) openNamespace() string {
	if len(o.Namespace) == 0 {
		return ""
	}
	p := &printer{}
	for _, ns := range o.Namespace {
		p.pl(0, "namespace %s {", ns)
	}
	p.nl()
	return p.String()
}

func (o *Options) closeNamespace() string {
	if len(o.Namespace) == 0 {
		return ""
	}
	p := &printer{}
	for i := len(o.Namespace) - 1; i >= 0; i-- {
		p.pl(0, "}  // namespace %s", o.Namespace[i])
	}
	p.nl()
	return p.String()
}

// fragments collects non-empty fragments in order.
type fragments []insertion.Fragment

func (fs *fragments) add(point, text string) {
	if text != "" {
		*fs = append(*fs, insertion.Fragment{Point: point, Text: text})
	}
}

// HeaderFragments returns what goes into the generated header of file.
//
// Includes and the namespace opening go to the `includes` point, the ToString
// declaration of each message to the `struct:<message>` point, and enum
// declarations followed by the namespace closing to the `eof` point.
func HeaderFragments(file *schema.File, opts *Options) []insertion.Fragment {
	var fs fragments
	if len(opts.HeaderIncludes) > 0 {
		fs.add(insertion.Includes, includes(opts.HeaderIncludes))
	}
	fs.add(insertion.Includes, opts.openNamespace())
	for _, m := range file.Messages {
		fs.add(insertion.Struct(m.Name), MessageDeclaration())
	}
	for _, e := range file.Enums {
		fs.add(insertion.EOF, EnumDeclaration(e))
	}
	fs.add(insertion.EOF, opts.closeNamespace())
	return fs
}

// SourceFragments returns what goes into the generated source of file.
//
// Includes and the namespace opening go to the `includes` point. Enum
// definitions, then message definitions, then the namespace closing go to the
// `eof` point.
func SourceFragments(file *schema.File, opts *Options) []insertion.Fragment {
	var fs fragments
	if len(opts.SourceIncludes) > 0 {
		fs.add(insertion.Includes, includes(opts.SourceIncludes))
	}
	fs.add(insertion.Includes, opts.openNamespace())
	for _, e := range file.Enums {
		fs.add(insertion.EOF, EnumDefinition(e))
	}
	for _, m := range file.Messages {
		fs.add(insertion.EOF, MessageDefinition(m))
	}
	fs.add(insertion.EOF, opts.closeNamespace())
	return fs
}
