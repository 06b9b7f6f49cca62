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

// Package params parses the plugin parameter passed by protoc.
//
// The parameter is the text after `--nanopb_cpp_opt=` (or before the colon of
// `--nanopb_cpp_out=`), split with shell rules. It mixes flags of this plugin
// with flags of the base nanopb generator: the former are consumed here, the
// latter are forwarded untouched.
package params

import (
	"flag"
	"io"
	"strings"

	"github.com/google/shlex"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/flag/stringlistflag"
	"go.chromium.org/luci/common/logging"

	"github.com/firebase/protoc-gen-nanopb-cpp/fixup"
	"github.com/firebase/protoc-gen-nanopb-cpp/rewrite"
)

// Defaults of nanopb's own options that this plugin depends on.
const (
	DefaultExtension       = ".nanopb"
	DefaultHeaderExtension = ".h"
	DefaultSourceExtension = ".c"
	DefaultBaseGenerator   = "protoc-gen-nanopb"
	DefaultNamespace       = "firebase::firestore"
)

// Config is the parsed plugin parameter.
//
// A Config is produced once by Parse and must not be modified afterwards.
type Config struct {
	// BaseGenerator is the plugin binary producing the nanopb output.
	BaseGenerator string
	// Namespace is the C++ namespace wrapping generated code, outermost first.
	// Empty means the global namespace.
	Namespace []string
	// HeaderIncludes and SourceIncludes are #include targets, with their
	// quotes or angle brackets, e.g. `<string>`.
	HeaderIncludes []string
	SourceIncludes []string

	// Passes are the descriptor rewrites to apply.
	Passes rewrite.Passes

	// Extension, HeaderExtension and SourceExtension name the files of the
	// base generator: `foo.proto` -> `foo<Extension><HeaderExtension>`.
	Extension       string
	HeaderExtension string
	SourceExtension string

	// CopyrightHolder, if set, adds a license notice to base files.
	CopyrightHolder string
	RemoveExternC   bool
	ModuleImport    bool
	// IncludePrefix, if set, prefixes includes of generated headers in
	// sources.
	IncludePrefix string

	// Splice applies insertions locally instead of emitting insertion records.
	Splice bool
	// DumpSchema emits the rewritten descriptors next to generated files.
	DumpSchema bool

	LogLevel logging.Level

	// Forwarded are the parameter tokens meant for the base generator.
	Forwarded []string
}

// HeaderName returns the name of the header generated for a .proto file.
func (c *Config) HeaderName(proto string) string {
	return strings.TrimSuffix(proto, ".proto") + c.Extension + c.HeaderExtension
}

// SourceName returns the name of the source generated for a .proto file.
func (c *Config) SourceName(proto string) string {
	return strings.TrimSuffix(proto, ".proto") + c.Extension + c.SourceExtension
}

// BaseParameter returns the parameter for the base generator.
//
// It carries the forwarded tokens, the forced extension and, if not empty,
// optionsPath as an additional directory to look for .options files in.
func (c *Config) BaseParameter(optionsPath string) string {
	tokens := make([]string, 0, len(c.Forwarded)+2)
	tokens = append(tokens, c.Forwarded...)
	tokens = append(tokens, "--extension="+c.Extension)
	if optionsPath != "" {
		tokens = append(tokens, "--options-path="+optionsPath)
	}
	for i, t := range tokens {
		tokens[i] = quote(t)
	}
	return strings.Join(tokens, " ")
}

// Fixups returns the processors to run over base generator output, in order.
func (c *Config) Fixups() []fixup.Processor {
	var procs []fixup.Processor
	if c.CopyrightHolder != "" {
		procs = append(procs, fixup.Copyright(c.CopyrightHolder))
	}
	if c.RemoveExternC {
		procs = append(procs, fixup.RemoveExternC)
	}
	procs = append(procs, fixup.RenameDelete)
	if c.ModuleImport {
		procs = append(procs, fixup.ModuleImport)
	}
	if c.IncludePrefix != "" {
		procs = append(procs, fixup.IncludePrefix(c.IncludePrefix, c.Extension+c.HeaderExtension))
	}
	return procs
}

type flags struct {
	cfg Config

	namespace      string
	headerIncludes stringlistflag.Flag
	sourceIncludes stringlistflag.Flag

	noAnonymousOneof    bool
	noBytesForStrings   bool
	noPointerAllocation bool
}

func (f *flags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.cfg.BaseGenerator, "base-generator", DefaultBaseGenerator,
		"nanopb plugin binary to generate the C code with")
	fs.StringVar(&f.namespace, "namespace", DefaultNamespace,
		"C++ namespace of generated pretty printers, empty for the global namespace")
	fs.Var(&f.headerIncludes, "header-include",
		"#include of generated headers, may be specified multiple times (default <string>)")
	fs.Var(&f.sourceIncludes, "source-include",
		"#include of generated sources, may be specified multiple times (default \"nanopb_pretty_printers.h\")")
	fs.StringVar(&f.cfg.Extension, "extension", DefaultExtension,
		"extension inserted before the header and source extensions of generated files")
	fs.BoolVar(&f.noAnonymousOneof, "no-anonymous-oneof", false,
		"don't render single oneofs as anonymous unions")
	fs.BoolVar(&f.noBytesForStrings, "no-bytes-for-strings", false,
		"don't turn string fields into bytes fields")
	fs.BoolVar(&f.noPointerAllocation, "no-pointer-allocation", false,
		"don't allocate strings, bytes and repeated fields dynamically")
	fs.StringVar(&f.cfg.CopyrightHolder, "copyright", "",
		"add an Apache 2.0 notice for the given holder, e.g. '2022 Google LLC'")
	fs.BoolVar(&f.cfg.RemoveExternC, "remove-extern-c", false,
		"remove the extern \"C\" blocks from generated files")
	fs.BoolVar(&f.cfg.ModuleImport, "module-import", false,
		"include pb.h as <nanopb/pb.h>")
	fs.StringVar(&f.cfg.IncludePrefix, "include-prefix", "",
		"prefix of generated headers included by generated sources")
	fs.BoolVar(&f.cfg.Splice, "splice", false,
		"emit whole files instead of insertion records")
	fs.BoolVar(&f.cfg.DumpSchema, "dump-schema", false,
		"emit the rewritten descriptors next to generated files")
	f.cfg.LogLevel = logging.Warning
	fs.Var(&f.cfg.LogLevel, "log-level",
		"log level of the plugin: debug, info, warning or error")
}

// Parse parses a plugin parameter.
func Parse(parameter string) (Config, error) {
	tokens, err := shlex.Split(parameter)
	if err != nil {
		return Config{}, errors.Fmt("bad parameter %q: %w", parameter, err)
	}

	f := &flags{}
	fs := flag.NewFlagSet("protoc-gen-nanopb-cpp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f.register(fs)

	var own []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		name, hasValue := flagName(tok)
		fl := fs.Lookup(name)
		if fl == nil {
			f.cfg.Forwarded = append(f.cfg.Forwarded, tok)
			continue
		}
		own = append(own, tok)
		if !hasValue && !isBool(fl) {
			if i+1 == len(tokens) {
				return Config{}, errors.Fmt("flag %q needs a value", tok)
			}
			i++
			own = append(own, tokens[i])
		}
	}
	if err := fs.Parse(own); err != nil {
		return Config{}, errors.Fmt("bad parameter %q: %w", parameter, err)
	}

	cfg := f.cfg
	if f.namespace != "" {
		cfg.Namespace = strings.Split(f.namespace, "::")
	}
	cfg.HeaderIncludes = includes(f.headerIncludes, "<string>")
	cfg.SourceIncludes = includes(f.sourceIncludes, `"nanopb_pretty_printers.h"`)
	cfg.Passes = rewrite.Passes{
		AnonymousOneofs:   !f.noAnonymousOneof,
		BytesForStrings:   !f.noBytesForStrings,
		PointerAllocation: !f.noPointerAllocation,
	}
	cfg.HeaderExtension = peek(cfg.Forwarded, DefaultHeaderExtension, "header-extension", "H")
	cfg.SourceExtension = peek(cfg.Forwarded, DefaultSourceExtension, "source-extension", "S")

	// Drop nanopb's short form of --extension, which we force.
	forwarded := cfg.Forwarded[:0:0]
	for i := 0; i < len(cfg.Forwarded); i++ {
		switch tok := cfg.Forwarded[i]; {
		case tok == "-e":
			i++
		case strings.HasPrefix(tok, "-e"):
		case nanopbValueFlags.Has(tok) && i+1 < len(cfg.Forwarded):
			forwarded = append(forwarded, tok, cfg.Forwarded[i+1])
			i++
		default:
			forwarded = append(forwarded, tok)
		}
	}
	cfg.Forwarded = forwarded
	return cfg, nil
}

// flagName returns the name of the flag in tok, if it is a flag, and whether
// the value is part of the token.
func flagName(tok string) (name string, hasValue bool) {
	if !strings.HasPrefix(tok, "-") {
		return "", false
	}
	name = strings.TrimLeft(tok, "-")
	if idx := strings.IndexByte(name, '='); idx >= 0 {
		return name[:idx], true
	}
	return name, false
}

func isBool(fl *flag.Flag) bool {
	b, ok := fl.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// peek returns the value of a forwarded nanopb flag, given its long and short
// names, or def if absent. The last occurrence wins.
// nanopbValueFlags are the options of the base generator that take their
// value as the next token.
var nanopbValueFlags = stringset.NewFromSlice(
	"-x", "--exclude",
	"-e", "--extension",
	"-H", "--header-extension",
	"-S", "--source-extension",
	"-f", "--options-file",
	"-I", "--options-path",
	"-D", "--output-dir",
	"-Q", "--generated-include-format",
	"-L", "--library-include-format",
	"-s",
)

func peek(tokens []string, def, long, short string) string {
	val := def
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "--"+long || tok == "-"+short:
			if i+1 < len(tokens) {
				i++
				val = tokens[i]
			}
		case strings.HasPrefix(tok, "--"+long+"="):
			val = strings.TrimPrefix(tok, "--"+long+"=")
		case strings.HasPrefix(tok, "-"+short) && !strings.HasPrefix(tok, "--"):
			val = strings.TrimPrefix(tok[len(short)+1:], "=")
		case nanopbValueFlags.Has(tok):
			i++
		}
	}
	return val
}

func includes(vals []string, def string) []string {
	if len(vals) == 0 {
		return []string{def}
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if strings.HasPrefix(v, "<") || strings.HasPrefix(v, `"`) {
			out[i] = v
		} else {
			out[i] = `"` + v + `"`
		}
	}
	return out
}

// quote quotes tok for shlex, if needed.
func quote(tok string) string {
	if tok != "" && !strings.ContainsAny(tok, " \t\n'\"\\#") {
		return tok
	}
	return "'" + strings.ReplaceAll(tok, "'", `'"'"'`) + "'"
}
