// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/fosol/cmd/fosol/opts"
)

func runCapture(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		stdin      string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "render_stdin", stdin: "Hi {name}!", args: []string{"render", "--set", "name=Ada"}, wantStdout: "Hi Ada!"},
		{name: "uri_match", args: []string{"uri", "match", "/img/**", "/IMG/a/b.png"}, wantStdout: "match\n"},
		{name: "uri_no_match", args: []string{"uri", "match", "/img/*", "/img/a/b.png"}, wantCode: 1, wantStdout: "no match\n"},
		{name: "uri_parse_invalid", args: []string{"uri", "parse", "http://host:abc/"}, wantCode: 1, wantStderr: "❌"},
		{name: "unknown_command", args: []string{"bogus"}, wantCode: 1, wantStderr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCapture(t, tt.stdin, tt.args...)
			assert.Equal(t, tt.wantCode, code, "stderr: %s", stderr)
			if tt.wantStdout != "" {
				assert.Equal(t, tt.wantStdout, stdout)
			}
			if tt.wantStderr != "" {
				assert.Contains(t, stderr, tt.wantStderr)
			} else {
				assert.Empty(t, stderr)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCapture(t, "", "version", "--json")
	require.Equal(t, 0, code)

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Version)

	out := FormatVersion(&VersionInfo{Version: "v1.2.3", Revision: "abc", Modified: true})
	assert.Contains(t, out, "fosol version info")
	assert.Contains(t, out, "Revision:  abc (modified)")
}

func TestRootFlags(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		args       []string
		wantConfig string
		wantDebug  bool
	}{
		{name: "defaults", wantConfig: "fosol.yaml"},
		{name: "env", env: map[string]string{"FOSOL_CONFIG": "from-env.hcl", "FOSOL_DEBUG": "true"}, wantConfig: "from-env.hcl", wantDebug: true},
		{name: "flag_beats_env", env: map[string]string{"FOSOL_CONFIG": "from-env.hcl"}, args: []string{"-c", "from-flag.json", "-d"}, wantConfig: "from-flag.json", wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			o := &opts.RootOpts{}
			cmd := newRootCmd(o)
			cmd.AddCommand(&cobra.Command{Use: "noop", RunE: func(*cobra.Command, []string) error { return nil }})
			cmd.SetArgs(append(tt.args, "noop"))
			cmd.SetOut(&bytes.Buffer{})
			require.NoError(t, cmd.ExecuteContext(context.Background()))

			assert.Equal(t, tt.wantConfig, o.ConfigFile)
			assert.Equal(t, tt.wantDebug, o.Debug)
			assert.NotNil(t, o.Console)
		})
	}
}
