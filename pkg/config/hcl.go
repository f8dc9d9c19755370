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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/walteh/fosol/pkg/validate"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": environment(),
		},
	}

	// Define HCL schema
	type hclHeader struct {
		Name  string `hcl:"name,label"`
		Value string `hcl:"value"`
	}
	type hclTemplate struct {
		Name         string `hcl:"name,label"`
		Text         string `hcl:"text,optional"`
		File         string `hcl:"file,optional"`
		Open         string `hcl:"open,optional"`
		Close        string `hcl:"close,optional"`
		AllowMissing bool   `hcl:"allow_missing,optional"`
	}
	type hclConfig struct {
		Server *struct {
			Listen            string      `hcl:"listen,optional"`
			Headers           []hclHeader `hcl:"header,block"`
			AllowedIPs        []string    `hcl:"allowed_ips,optional"`
			TrustForwardedFor bool        `hcl:"trust_forwarded_for,optional"`
			PublicPaths       []string    `hcl:"public_paths,optional"`
		} `hcl:"server,block"`
		Templates []hclTemplate `hcl:"template,block"`
		Images    *struct {
			MaxWidth  *int   `hcl:"max_width,optional"`
			MaxHeight *int   `hcl:"max_height,optional"`
			Quality   *int   `hcl:"quality,optional"`
			Filter    string `hcl:"filter,optional"`
		} `hcl:"images,block"`
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{}
	if s := hclCfg.Server; s != nil {
		cfg.Server = ServerElement{
			Listen:            s.Listen,
			AllowedIPs:        s.AllowedIPs,
			TrustForwardedFor: s.TrustForwardedFor,
			PublicPaths:       s.PublicPaths,
		}
		for _, h := range s.Headers {
			cfg.Server.Headers = append(cfg.Server.Headers, HeaderElement{Name: h.Name, Value: h.Value})
		}
	}
	for _, t := range hclCfg.Templates {
		cfg.Templates = append(cfg.Templates, TemplateElement(t))
	}
	if i := hclCfg.Images; i != nil {
		cfg.Images.Filter = i.Filter
		var errs []error
		for _, n := range []struct {
			key string
			src *int
			dst *int
		}{
			{"max_width", i.MaxWidth, &cfg.Images.MaxWidth},
			{"max_height", i.MaxHeight, &cfg.Images.MaxHeight},
			{"quality", i.Quality, &cfg.Images.Quality},
		} {
			if n.src == nil {
				continue
			}
			errs = append(errs, explicitImageNumber(n.key, *n.src))
			*n.dst = *n.src
		}
		if err := validate.All(errs...); err != nil {
			return nil, errors.Errorf("decoding HCL: %w", err)
		}
	}

	return cfg, nil
}

// environment exposes the process environment as the HCL variable "env".
func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vars)
}
