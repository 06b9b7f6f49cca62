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

// Package basegen runs the base nanopb generator and captures its output.
//
// The base generator turns rewritten descriptors into C headers and sources
// carrying insertion point markers. This package hands it the request, checks
// it produced what is expected for every requested file, and pairs the
// produced documents with the schema model of the file.
package basegen

import (
	"context"
	"path"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/firebase/protoc-gen-nanopb-cpp/fixup"
	"github.com/firebase/protoc-gen-nanopb-cpp/insertion"
	"github.com/firebase/protoc-gen-nanopb-cpp/params"
	"github.com/firebase/protoc-gen-nanopb-cpp/schema"
)

// Generator is a protoc plugin.
type Generator interface {
	Generate(ctx context.Context, req *pluginpb.CodeGeneratorRequest) (*pluginpb.CodeGeneratorResponse, error)
}

// File is the base output for a single .proto file.
type File struct {
	// Proto is the name of the .proto file.
	Proto  string
	Header *insertion.Document
	Source *insertion.Document
	Schema *schema.File
}

// Output is what the base generator produced for a request.
type Output struct {
	// Files are in dependency order: a file comes after the files it imports.
	Files []*File
	// Extra are files the base generator produced besides headers and sources
	// of requested files. They are passed through unchanged.
	Extra []*pluginpb.CodeGeneratorResponse_File
	// SupportedFeatures as reported by the base generator.
	SupportedFeatures uint64
}

// Order returns the files to generate in dependency order.
//
// It fails if a file to generate or any transitive dependency is missing from
// the request.
func Order(req *pluginpb.CodeGeneratorRequest) ([]string, error) {
	byName := make(map[string]*descriptorpb.FileDescriptorProto, len(req.ProtoFile))
	for _, f := range req.ProtoFile {
		byName[f.GetName()] = f
	}

	wanted := stringset.NewFromSlice(req.FileToGenerate...)
	visited := stringset.New(len(req.ProtoFile))
	var order []string

	var visit func(name, importedBy string) error
	visit = func(name, importedBy string) error {
		if !visited.Add(name) {
			return nil
		}
		f := byName[name]
		if f == nil {
			if importedBy == "" {
				return errors.Fmt("file to generate %q is not among the request files", name)
			}
			return errors.Fmt("%q imports %q, which is not among the request files", importedBy, name)
		}
		for _, dep := range f.Dependency {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		if wanted.Has(name) {
			order = append(order, name)
		}
		return nil
	}
	for _, name := range req.FileToGenerate {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Run runs gen over the rewritten request and collects its output.
//
// table must be the model of req's files. Any failure of the base generator is
// fatal: without a base file there is nothing to insert into.
func Run(ctx context.Context, gen Generator, req *pluginpb.CodeGeneratorRequest, table *schema.Table, cfg *params.Config) (*Output, error) {
	order, err := Order(req)
	if err != nil {
		return nil, errors.Fmt("malformed request: %w", err)
	}

	baseReq := proto.Clone(req).(*pluginpb.CodeGeneratorRequest)
	baseReq.FileToGenerate = order
	var optionsPath string
	if len(order) > 0 {
		optionsPath = path.Dir(order[0])
	}
	baseReq.Parameter = proto.String(cfg.BaseParameter(optionsPath))

	logging.Debugf(ctx, "running base generator on %d file(s) with parameter %q", len(order), baseReq.GetParameter())
	resp, err := gen.Generate(ctx, baseReq)
	if err != nil {
		return nil, errors.Fmt("base generator: %w", err)
	}
	if resp.Error != nil {
		return nil, errors.Fmt("base generator: %s", resp.GetError())
	}

	produced := make(map[string]*pluginpb.CodeGeneratorResponse_File, len(resp.File))
	for _, f := range resp.File {
		if f.InsertionPoint == nil {
			produced[f.GetName()] = f
		}
	}

	out := &Output{SupportedFeatures: resp.GetSupportedFeatures()}
	used := stringset.New(2 * len(order))
	fixups := cfg.Fixups()
	document := func(name, proto string) (*insertion.Document, error) {
		f := produced[name]
		if f == nil {
			return nil, errors.Fmt("base generator produced no %q for %q", name, proto)
		}
		used.Add(name)
		return insertion.ParseDocument(name, fixup.Apply(name, f.GetContent(), fixups...)), nil
	}
	for _, name := range order {
		file := &File{Proto: name, Schema: table.File(name)}
		if file.Schema == nil {
			return nil, errors.Fmt("no model of %q", name)
		}
		if file.Header, err = document(cfg.HeaderName(name), name); err != nil {
			return nil, err
		}
		if file.Source, err = document(cfg.SourceName(name), name); err != nil {
			return nil, err
		}
		logging.Debugf(ctx, "%s: %d message(s), %d enum(s)", name, len(file.Schema.Messages), len(file.Schema.Enums))
		out.Files = append(out.Files, file)
	}

	for _, f := range resp.File {
		if f.InsertionPoint != nil || !used.Has(f.GetName()) {
			logging.Debugf(ctx, "passing through %q", f.GetName())
			out.Extra = append(out.Extra, f)
		}
	}
	return out, nil
}
