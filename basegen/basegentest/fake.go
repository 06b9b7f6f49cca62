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

// Package basegentest implements a fake base generator producing nanopb-like
// output, for tests.
package basegentest

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/shlex"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/firebase/protoc-gen-nanopb-cpp/schema"
)

// Fake mimics the layout of nanopb 0.3.9 output: headers with one struct per
// message and sources with field tables, both carrying the `includes`,
// `struct:<name>` and `eof` insertion points.
//
// Struct members are rendered by name only, so it is enough to observe
// renames. Output file names follow the --extension, --header-extension and
// --source-extension flags of the request parameter.
type Fake struct {
	// Error, if set, is reported in the response instead of files.
	Error string
	// Extra files are appended to the response.
	Extra []*pluginpb.CodeGeneratorResponse_File
	// Skip lists file names to leave out of the response.
	Skip []string

	// Requests are all requests received so far.
	Requests []*pluginpb.CodeGeneratorRequest
}

// Generate implements basegen.Generator.
func (f *Fake) Generate(ctx context.Context, req *pluginpb.CodeGeneratorRequest) (*pluginpb.CodeGeneratorResponse, error) {
	f.Requests = append(f.Requests, proto.Clone(req).(*pluginpb.CodeGeneratorRequest))
	if f.Error != "" {
		return &pluginpb.CodeGeneratorResponse{Error: proto.String(f.Error)}, nil
	}

	ext, hdrExt, srcExt, err := extensions(req.GetParameter())
	if err != nil {
		return nil, err
	}
	table, err := schema.Build(req.ProtoFile)
	if err != nil {
		return nil, err
	}

	skip := map[string]bool{}
	for _, s := range f.Skip {
		skip[s] = true
	}

	resp := &pluginpb.CodeGeneratorResponse{}
	for _, name := range req.FileToGenerate {
		file := table.File(name)
		base := strings.TrimSuffix(name, ".proto") + ext
		hdr, src := base+hdrExt, base+srcExt
		if !skip[hdr] {
			resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
				Name:    proto.String(hdr),
				Content: proto.String(Header(file, hdr)),
			})
		}
		if !skip[src] {
			resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
				Name:    proto.String(src),
				Content: proto.String(Source(file, path.Base(hdr))),
			})
		}
	}
	resp.File = append(resp.File, f.Extra...)
	return resp, nil
}

func extensions(parameter string) (ext, hdrExt, srcExt string, err error) {
	ext, hdrExt, srcExt = ".pb", ".h", ".c"
	tokens, err := shlex.Split(parameter)
	if err != nil {
		return
	}
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "--extension="):
			ext = strings.TrimPrefix(tok, "--extension=")
		case strings.HasPrefix(tok, "--header-extension="):
			hdrExt = strings.TrimPrefix(tok, "--header-extension=")
		case strings.HasPrefix(tok, "--source-extension="):
			srcExt = strings.TrimPrefix(tok, "--source-extension=")
		}
	}
	return
}

// Header renders a nanopb-like header for the file.
func Header(file *schema.File, name string) string {
	guard := strings.ToUpper(strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(name))

	var sb strings.Builder
	fmt.Fprintf(&sb, "/* Automatically generated nanopb header */\n\n")
	fmt.Fprintf(&sb, "#ifndef PB_%s_INCLUDED\n#define PB_%s_INCLUDED\n#include <pb.h>\n\n", guard, guard)
	fmt.Fprintf(&sb, "/* @@protoc_insertion_point(includes) */\n\n")
	fmt.Fprintf(&sb, "#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n")
	for _, e := range file.Enums {
		fmt.Fprintf(&sb, "typedef enum _%s {\n", e.Name)
		for i, v := range e.Values {
			sep := ","
			if i == len(e.Values)-1 {
				sep = ""
			}
			fmt.Fprintf(&sb, "    %s = %d%s\n", v.LongName, v.Number, sep)
		}
		fmt.Fprintf(&sb, "} %s;\n\n", e.Name)
	}
	for _, m := range file.Messages {
		fmt.Fprintf(&sb, "typedef struct _%s {\n", m.Name)
		for _, mem := range m.Members {
			if mem.Oneof != nil {
				fmt.Fprintf(&sb, "    pb_size_t %s;\n    union {\n", mem.Oneof.Discriminant())
				for _, f := range mem.Oneof.Members {
					fmt.Fprintf(&sb, "        %s;\n", member(f))
				}
				if mem.Oneof.Anonymous {
					fmt.Fprintf(&sb, "    };\n")
				} else {
					fmt.Fprintf(&sb, "    } %s;\n", mem.Oneof.Name)
				}
				continue
			}
			fmt.Fprintf(&sb, "    %s;\n", member(mem.Field))
		}
		fmt.Fprintf(&sb, "/* @@protoc_insertion_point(struct:%s) */\n} %s;\n\n", m.Name, m.Name)
	}
	fmt.Fprintf(&sb, "#ifdef __cplusplus\n} /* extern \"C\" */\n#endif\n")
	fmt.Fprintf(&sb, "/* @@protoc_insertion_point(eof) */\n\n#endif\n")
	return sb.String()
}

// Source renders a nanopb-like source for the file, including header.
func Source(file *schema.File, header string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "/* Automatically generated nanopb constant definitions */\n\n")
	fmt.Fprintf(&sb, "#include \"%s\"\n\n", header)
	fmt.Fprintf(&sb, "/* @@protoc_insertion_point(includes) */\n\n")
	for _, m := range file.Messages {
		fmt.Fprintf(&sb, "const pb_field_t %s_fields[] = {\n", m.Name)
		for _, mem := range m.Members {
			fields := []*schema.Field{mem.Field}
			if mem.Oneof != nil {
				fields = mem.Oneof.Members
			}
			for _, f := range fields {
				fmt.Fprintf(&sb, "    PB_FIELD(%3d, %s, %s),\n", f.Tag, f.Rule, f.Name)
			}
		}
		fmt.Fprintf(&sb, "    PB_LAST_FIELD\n};\n\n")
	}
	fmt.Fprintf(&sb, "/* @@protoc_insertion_point(eof) */\n")
	return sb.String()
}

func member(f *schema.Field) string {
	var decl string
	switch f.Kind {
	case schema.Primitive:
		decl = "pb_scalar_t"
	default:
		decl = f.TypeName
	}
	if f.Allocation == schema.Dynamic {
		decl += " *"
	} else {
		decl += " "
	}
	switch f.Rule {
	case schema.Repeated:
		return fmt.Sprintf("pb_size_t %s_count;\n    %s%s", f.Name, decl, f.Name)
	case schema.Optional:
		return fmt.Sprintf("bool has_%s;\n    %s%s", f.Name, decl, f.Name)
	}
	return decl + f.Name
}
