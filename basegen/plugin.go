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

package basegen

import (
	"bytes"
	"context"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/exec"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/exitcode"
)

// Plugin is a Generator running a protoc plugin binary.
type Plugin struct {
	// Path is the binary to run, looked up in PATH if it has no slashes.
	Path string
	Args []string
}

// Generate implements Generator.
func (p *Plugin) Generate(ctx context.Context, req *pluginpb.CodeGeneratorRequest) (*pluginpb.CodeGeneratorResponse, error) {
	in, err := proto.Marshal(req)
	if err != nil {
		return nil, errors.Fmt("marshaling request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debugf(ctx, "running %q", append([]string{p.Path}, p.Args...))
	err = cmd.Run()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		logging.Infof(ctx, "%s:\n%s", p.Path, msg)
	}
	if err != nil {
		if rc, ok := exitcode.Get(err); ok && rc != 0 {
			return nil, errors.Fmt("%s exited with code %d: %s", p.Path, rc, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.Fmt("running %s: %w", p.Path, err)
	}

	resp := &pluginpb.CodeGeneratorResponse{}
	if err := proto.Unmarshal(stdout.Bytes(), resp); err != nil {
		return nil, errors.Fmt("parsing the response of %s: %w", p.Path, err)
	}
	return resp, nil
}
