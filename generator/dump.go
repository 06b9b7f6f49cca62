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

package generator

import (
	"strings"

	txtpb "github.com/protocolbuffers/txtpbfmt/parser"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/proto/google/descutil/printer"

	"github.com/firebase/protoc-gen-nanopb-cpp/basegen"
	"github.com/firebase/protoc-gen-nanopb-cpp/nanopb"
)

// dumpSchema renders the rewritten descriptors of generated files, as seen by
// the base generator.
//
// For `foo.proto` it produces `foo.rewritten.proto`, a .proto rendition
// showing nanopb options set by the rewrite passes, and `foo.request.textpb`,
// the descriptor in text format.
func dumpSchema(req *pluginpb.CodeGeneratorRequest, out *basegen.Output) ([]*pluginpb.CodeGeneratorResponse_File, error) {
	byName := make(map[string]*descriptorpb.FileDescriptorProto, len(req.ProtoFile))
	for _, f := range req.ProtoFile {
		byName[f.GetName()] = f
	}

	var dumps []*pluginpb.CodeGeneratorResponse_File
	for _, f := range out.Files {
		fd := byName[f.Proto]
		base := strings.TrimSuffix(f.Proto, ".proto")

		text, err := protoText(fd)
		if err != nil {
			return nil, errors.Fmt("dumping %q: %w", f.Proto, err)
		}
		textpb, err := descriptorText(fd)
		if err != nil {
			return nil, errors.Fmt("dumping %q: %w", f.Proto, err)
		}
		dumps = append(dumps,
			&pluginpb.CodeGeneratorResponse_File{
				Name:    proto.String(base + ".rewritten.proto"),
				Content: proto.String(text),
			},
			&pluginpb.CodeGeneratorResponse_File{
				Name:    proto.String(base + ".request.textpb"),
				Content: proto.String(textpb),
			},
		)
	}
	return dumps, nil
}

// protoText renders fd as a .proto file.
//
// Nested types are printed at the top level, under a comment naming their
// scope.
func protoText(fd *descriptorpb.FileDescriptorProto) (string, error) {
	var sb strings.Builder
	p := printer.NewPrinter(&sb)
	if err := p.SetFile(fd); err != nil {
		return "", err
	}

	p.Printf("// %s\n", fd.GetName())
	p.Printf("syntax = %q;\n\n", syntax(fd))
	if fd.GetPackage() != "" {
		p.Package(fd.GetPackage())
		p.Printf("\n")
	}
	for _, dep := range fd.Dependency {
		p.Printf("import %q;\n", dep)
	}
	if len(fd.Dependency) > 0 {
		p.Printf("\n")
	}

	for _, e := range fd.EnumType {
		p.Enum(e)
		p.Printf("\n")
	}
	var message func(m *descriptorpb.DescriptorProto, scope string)
	message = func(m *descriptorpb.DescriptorProto, scope string) {
		if scope != "" {
			p.Printf("// Nested in %s.\n", scope)
		}
		p.Message(m)
		p.Printf("\n")

		nested := m.GetName()
		if scope != "" {
			nested = scope + "." + nested
		}
		for _, e := range m.EnumType {
			p.Printf("// Nested in %s.\n", nested)
			p.Enum(e)
			p.Printf("\n")
		}
		for _, n := range m.NestedType {
			message(n, nested)
		}
	}
	for _, m := range fd.MessageType {
		message(m, "")
	}
	return sb.String(), p.Err
}

func syntax(fd *descriptorpb.FileDescriptorProto) string {
	if s := fd.GetSyntax(); s != "" {
		return s
	}
	return "proto2"
}

// descriptorText renders fd in stable text format.
func descriptorText(fd *descriptorpb.FileDescriptorProto) (string, error) {
	fd = proto.Clone(fd).(*descriptorpb.FileDescriptorProto)
	fd.SourceCodeInfo = nil
	data, err := prototext.MarshalOptions{
		Multiline: true,
		Resolver:  nanopb.Resolver(),
	}.Marshal(fd)
	if err != nil {
		return "", err
	}
	data, err = txtpb.Format(data)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
