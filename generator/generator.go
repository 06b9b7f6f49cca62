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

// Package generator implements the protoc-gen-nanopb-cpp plugin: it rewrites
// the request descriptors, runs the base nanopb generator over them and adds
// C++ pretty-printing support to its output.
package generator

import (
	"context"

	"github.com/dustin/go-humanize"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/firebase/protoc-gen-nanopb-cpp/assemble"
	"github.com/firebase/protoc-gen-nanopb-cpp/basegen"
	"github.com/firebase/protoc-gen-nanopb-cpp/params"
	"github.com/firebase/protoc-gen-nanopb-cpp/prettyprint"
	"github.com/firebase/protoc-gen-nanopb-cpp/rewrite"
	"github.com/firebase/protoc-gen-nanopb-cpp/schema"
)

// Generator turns a CodeGeneratorRequest into a CodeGeneratorResponse.
type Generator struct {
	// Base, if set, is used instead of the base generator named by the request
	// parameter.
	Base basegen.Generator
}

// Generate processes a request.
//
// The request is not modified. Any error is fatal: no partial response is
// produced.
func (g *Generator) Generate(ctx context.Context, req *pluginpb.CodeGeneratorRequest) (*pluginpb.CodeGeneratorResponse, error) {
	cfg, err := params.Parse(req.GetParameter())
	if err != nil {
		return nil, errors.Fmt("malformed request: %w", err)
	}
	ctx = logging.SetLevel(ctx, cfg.LogLevel)

	req = proto.Clone(req).(*pluginpb.CodeGeneratorRequest)
	rewrite.Apply(req.ProtoFile, cfg.Passes)

	table, err := schema.Build(req.ProtoFile)
	if err != nil {
		return nil, errors.Fmt("malformed request: %w", err)
	}

	base := g.Base
	if base == nil {
		base = &basegen.Plugin{Path: cfg.BaseGenerator}
	}
	out, err := basegen.Run(ctx, base, req, table, &cfg)
	if err != nil {
		return nil, err
	}

	opts := &prettyprint.Options{
		Namespace:      cfg.Namespace,
		HeaderIncludes: cfg.HeaderIncludes,
		SourceIncludes: cfg.SourceIncludes,
	}
	var asm assemble.Assembler
	for _, f := range out.Files {
		if err := asm.AddFile(f.Header); err != nil {
			return nil, err
		}
		if err := asm.Insert(f.Header.Name, prettyprint.HeaderFragments(f.Schema, opts)...); err != nil {
			return nil, err
		}
		if err := asm.AddFile(f.Source); err != nil {
			return nil, err
		}
		if err := asm.Insert(f.Source.Name, prettyprint.SourceFragments(f.Schema, opts)...); err != nil {
			return nil, err
		}
	}

	var resp *pluginpb.CodeGeneratorResponse
	if cfg.Splice {
		if resp, err = asm.Splice(); err != nil {
			return nil, err
		}
	} else {
		resp = asm.Response()
	}
	resp.File = append(resp.File, out.Extra...)

	if cfg.DumpSchema {
		dumps, err := dumpSchema(req, out)
		if err != nil {
			return nil, err
		}
		resp.File = append(resp.File, dumps...)
	}

	if out.SupportedFeatures != 0 {
		resp.SupportedFeatures = proto.Uint64(out.SupportedFeatures)
	}
	var size uint64
	for _, f := range resp.File {
		size += uint64(len(f.GetContent()))
	}
	logging.Infof(ctx, "generated %d file(s): %d record(s), %s", 2*len(out.Files), len(resp.File), humanize.Bytes(size))
	return resp, nil
}
