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

// Command protoc-gen-nanopb-cpp is a protoc plugin generating nanopb C structs
// with C++ pretty-printing support.
//
// Usage:
//
//	protoc --plugin=protoc-gen-nanopb-cpp --nanopb-cpp_out=OUT_DIR \
//	  --nanopb-cpp_opt='--source-extension=.cc' foo.proto
//
// The base nanopb generator (protoc-gen-nanopb by default) must be in PATH.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"
	"go.chromium.org/luci/common/system/exitcode"

	"github.com/firebase/protoc-gen-nanopb-cpp/generator"
	"github.com/firebase/protoc-gen-nanopb-cpp/nanopb"
)

var requestFile = flag.String(
	"request", "",
	"read a serialized CodeGeneratorRequest from this file instead of stdin")

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	blob, err := io.ReadAll(in)
	if err != nil {
		return errors.Fmt("reading the request: %w", err)
	}
	req := &pluginpb.CodeGeneratorRequest{}
	if err := (proto.UnmarshalOptions{Resolver: nanopb.Resolver()}).Unmarshal(blob, req); err != nil {
		return errors.Fmt("parsing the request: %w", err)
	}
	logging.Debugf(ctx, "generating %q", req.FileToGenerate)

	resp, err := (&generator.Generator{}).Generate(ctx, req)
	if err != nil {
		return err
	}

	blob, err = proto.Marshal(resp)
	if err != nil {
		return errors.Fmt("marshaling the response: %w", err)
	}
	_, err = out.Write(blob)
	return err
}

func setupLogging(ctx context.Context) context.Context {
	return logging.SetLevel(gologger.StdConfig.Use(ctx), logging.Warning)
}

func main() {
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *requestFile != "" {
		f, err := os.Open(*requestFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	ctx := setupLogging(context.Background())
	if err := run(ctx, in, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode := 1
		if rc, ok := exitcode.Get(err); ok {
			exitCode = rc
		}
		os.Exit(exitCode)
	}
}
