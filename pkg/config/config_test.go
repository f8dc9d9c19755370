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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/fosol/pkg/text"
	"github.com/walteh/fosol/pkg/validate"
)

func TestLoad(t *testing.T) {
	t.Setenv("FOSOL_TEST_LISTEN", ":9999")

	tests := []struct {
		name        string
		filename    string
		config      string
		wantErr     bool
		errContains []string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:     "valid_yaml",
			filename: "fosol.yaml",
			config: `
server:
  listen: ":9090"
  headers:
    - name: X-Request-Id
      value: "{request_id}"
  allowed_ips:
    - 10.0.0.0/8
    - "::1"
  trust_forwarded_for: true
  public_paths:
    - /healthz
templates:
  - name: greeting
    text: "Hello {name=world}"
  - name: page
    file: page.tmpl
    open: "<%"
    close: "%>"
    allow_missing: true
images:
  max_width: 800
  quality: 70
  filter: bilinear
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":9090", cfg.Server.Listen, "listen should match")
				require.Len(t, cfg.Server.Headers, 1, "should have 1 header")
				assert.Equal(t, "X-Request-Id", cfg.Server.Headers[0].Name)
				assert.Equal(t, []string{"10.0.0.0/8", "::1"}, cfg.Server.AllowedIPs)
				assert.True(t, cfg.Server.TrustForwardedFor)
				assert.Equal(t, []string{"/healthz"}, cfg.Server.PublicPaths)
				require.Len(t, cfg.Templates, 2)
				assert.Equal(t, "{", cfg.Templates[0].Open, "open should have default value")
				assert.Equal(t, "<%", cfg.Templates[1].Open)
				assert.True(t, cfg.Templates[1].AllowMissing)
				assert.Equal(t, 800, cfg.Images.MaxWidth)
				assert.Equal(t, DefaultMaxSize, cfg.Images.MaxHeight, "max height should have default value")
				assert.Equal(t, 70, cfg.Images.Quality)
				assert.Equal(t, "bilinear", cfg.Images.Filter)
			},
		},
		{
			name:     "empty_yaml_uses_defaults",
			filename: "fosol.yml",
			config:   "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultListen, cfg.Server.Listen)
				assert.Equal(t, DefaultMaxSize, cfg.Images.MaxWidth)
				assert.Equal(t, DefaultQuality, cfg.Images.Quality)
				assert.Equal(t, DefaultFilter, cfg.Images.Filter)
				assert.Empty(t, cfg.Templates)
			},
		},
		{
			name:        "yaml_unknown_field",
			filename:    "fosol.yaml",
			config:      "bogus: true\n",
			wantErr:     true,
			errContains: []string{"parsing YAML"},
		},
		{
			name:     "valid_hcl_with_env",
			filename: "fosol.hcl",
			config: `
server {
  listen = env.FOSOL_TEST_LISTEN
  allowed_ips = ["192.168.1.0/24"]
  header "X-Served-By" {
    value = "fosol"
  }
  header "X-Path" {
    value = "{path}"
  }
}

template "greeting" {
  text = "Hi {name}"
}

images {
  quality = 90
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":9999", cfg.Server.Listen, "listen should come from env")
				require.Len(t, cfg.Server.Headers, 2)
				assert.Equal(t, HeaderElement{Name: "X-Served-By", Value: "fosol"}, cfg.Server.Headers[0])
				assert.Equal(t, HeaderElement{Name: "X-Path", Value: "{path}"}, cfg.Server.Headers[1])
				require.Len(t, cfg.Templates, 1)
				assert.Equal(t, "greeting", cfg.Templates[0].Name)
				assert.Equal(t, 90, cfg.Images.Quality)
			},
		},
		{
			name:        "hcl_syntax_error",
			filename:    "fosol.hcl",
			config:      "server {",
			wantErr:     true,
			errContains: []string{"parsing HCL"},
		},
		{
			name:     "valid_json",
			filename: "fosol.json",
			config: `{
				"server": {"listen": ":7000", "headers": [{"name": "X-A", "value": "a"}]},
				"templates": [{"name": "t", "text": "{x}"}]
			}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":7000", cfg.Server.Listen)
				assert.Equal(t, "X-A", cfg.Server.Headers[0].Name)
				assert.Equal(t, "{x}", cfg.Templates[0].Text)
			},
		},
		{
			name:        "json_schema_violation",
			filename:    "fosol.json",
			config:      `{"images": {"quality": "high"}}`,
			wantErr:     true,
			errContains: []string{"schema validation failed", "quality"},
		},
		{
			name:        "json_unknown_field",
			filename:    "fosol.json",
			config:      `{"extra": 1}`,
			wantErr:     true,
			errContains: []string{"schema validation failed"},
		},
		{
			name:     "all_violations_reported",
			filename: "fosol.yaml",
			config: `
server:
  headers:
    - name: " "
      value: "{unterminated"
  allowed_ips: [not-an-ip]
  public_paths: ['/bad\']
templates:
  - name: a
  - name: a
    text: x
    file: y
images:
  quality: 101
  filter: lanczos
`,
			wantErr: true,
			errContains: []string{
				"server.headers[0].name: must not be blank",
				"server.headers[0].value",
				`server.allowed_ips[0]: "not-an-ip" is not an IP address or CIDR`,
				"server.public_paths[0]",
				"templates[0].text: exactly one of text or file is required",
				`templates[1].name: duplicate template "a"`,
				"templates[1].text: exactly one of text or file is required",
				"images.quality: 101 is not between 1 and 100",
				"images.filter: lanczos is not one of",
			},
		},
		{
			name:        "yaml_fractional_quality",
			filename:    "fosol.yaml",
			config:      "images:\n  quality: 0.5\n",
			wantErr:     true,
			errContains: []string{"parsing YAML", `images.quality: "0.5" is not an integer`},
		},
		{
			name:        "yaml_explicit_zero",
			filename:    "fosol.yaml",
			config:      "images:\n  quality: 0\n  max_width: 0\n",
			wantErr:     true,
			errContains: []string{"images.quality: 0 must be positive", "images.max_width: 0 must be positive"},
		},
		{
			name:        "yaml_string_quality",
			filename:    "fosol.yaml",
			config:      "images:\n  quality: high\n",
			wantErr:     true,
			errContains: []string{`images.quality: "high" is not an integer`},
		},
		{
			name:        "hcl_explicit_zero",
			filename:    "fosol.hcl",
			config:      "images {\n  quality = 0\n}\n",
			wantErr:     true,
			errContains: []string{"decoding HCL", "images.quality: 0 must be positive"},
		},
		{
			name:        "hcl_fractional_quality",
			filename:    "fosol.hcl",
			config:      "images {\n  quality = 0.5\n}\n",
			wantErr:     true,
			errContains: []string{"decoding HCL"},
		},
		{
			name:        "json_explicit_zero",
			filename:    "fosol.json",
			config:      `{"images": {"quality": 0}}`,
			wantErr:     true,
			errContains: []string{"schema validation failed", "quality"},
		},
		{
			name:        "unknown_extension",
			filename:    "fosol.toml",
			config:      "",
			wantErr:     true,
			errContains: []string{"no parser found"},
		},
	}

	ctx := zerolog.New(os.Stderr).WithContext(context.Background())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create temporary config file
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, tt.filename)
			err := os.WriteFile(configPath, []byte(tt.config), 0644)
			require.NoError(t, err, "writing config file should succeed")

			// Load config
			cfg, err := Load(ctx, configPath)
			if tt.wantErr {
				require.Error(t, err, "Load should return error")
				for _, want := range tt.errContains {
					assert.Contains(t, err.Error(), want, "error should contain expected message")
				}
				return
			}

			require.NoError(t, err, "Load should succeed")
			assert.Equal(t, configPath, cfg.Location())
			assert.Equal(t, tmpDir, cfg.Dir())
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ErrorKinds(t *testing.T) {
	cfg := &Config{Images: ImageElement{Quality: 500}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, validate.ErrOutOfRange)
}

func TestParserSelection(t *testing.T) {
	tests := []struct {
		filename string
		want     Parser
	}{
		{filename: "config.yaml", want: &YAMLParser{}},
		{filename: "config.yml", want: &YAMLParser{}},
		{filename: "config.hcl", want: &HCLParser{}},
		{filename: "config.json", want: &JSONParser{}},
		{filename: "CONFIG.JSON", want: &JSONParser{}},
		{filename: "config.ini", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := GetParser(tt.filename)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestTemplateElement_Compile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.tmpl"), []byte("<h1><%title%></h1>{raw}"), 0644))

	inline := &TemplateElement{Name: "inline", Text: "Hi {name}"}
	tmpl, err := inline.Compile(dir)
	require.NoError(t, err)
	out, err := tmpl.Render(text.Map{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada", out)

	file := &TemplateElement{Name: "page", File: "page.tmpl", Open: "<%", Close: "%>", AllowMissing: true}
	tmpl, err = file.Compile(dir)
	require.NoError(t, err)
	out, err = tmpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "<h1></h1>{raw}", out)

	missing := &TemplateElement{Name: "gone", File: "gone.tmpl"}
	_, err = missing.Compile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `reading template "gone"`)

	broken := &TemplateElement{Name: "broken", Text: "{oops"}
	_, err = broken.Compile(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, text.ErrUnterminated)
}

func TestConfig_Template(t *testing.T) {
	cfg := &Config{Templates: []TemplateElement{{Name: "a", Text: "x"}, {Name: "b", Text: "y"}}}

	tmpl, ok := cfg.Template("b")
	require.True(t, ok)
	assert.Equal(t, "y", tmpl.Text)

	_, ok = cfg.Template("c")
	assert.False(t, ok)
	assert.Equal(t, ".", cfg.Dir())
}
