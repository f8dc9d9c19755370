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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/fosol/pkg/imaging"
	"github.com/walteh/fosol/pkg/text"
	"github.com/walteh/fosol/pkg/uri"
	"github.com/walteh/fosol/pkg/validate"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📨 HeaderElement is a response header added to every request
type HeaderElement struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"` // text template, rendered per request
}

// 🌐 ServerElement configures the HTTP service
type ServerElement struct {
	Listen            string          `json:"listen,omitempty" yaml:"listen,omitempty"`
	Headers           []HeaderElement `json:"headers,omitempty" yaml:"headers,omitempty"`
	AllowedIPs        []string        `json:"allowed_ips,omitempty" yaml:"allowed_ips,omitempty"`                 // IPs or CIDRs; empty allows all
	TrustForwardedFor bool            `json:"trust_forwarded_for,omitempty" yaml:"trust_forwarded_for,omitempty"` // use X-Forwarded-For for the client address
	PublicPaths       []string        `json:"public_paths,omitempty" yaml:"public_paths,omitempty"`               // uri patterns exempt from the IP list
}

// 📄 TemplateElement is a named text template
type TemplateElement struct {
	Name         string `json:"name" yaml:"name"`
	Text         string `json:"text,omitempty" yaml:"text,omitempty"`
	File         string `json:"file,omitempty" yaml:"file,omitempty"`
	Open         string `json:"open,omitempty" yaml:"open,omitempty"`
	Close        string `json:"close,omitempty" yaml:"close,omitempty"`
	AllowMissing bool   `json:"allow_missing,omitempty" yaml:"allow_missing,omitempty"`
}

// 🖼️ ImageElement bounds image processing
type ImageElement struct {
	MaxWidth  int    `json:"max_width,omitempty" yaml:"max_width,omitempty"`
	MaxHeight int    `json:"max_height,omitempty" yaml:"max_height,omitempty"`
	Quality   int    `json:"quality,omitempty" yaml:"quality,omitempty"`
	Filter    string `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Server    ServerElement     `json:"server" yaml:"server"`
	Templates []TemplateElement `json:"templates,omitempty" yaml:"templates,omitempty"`
	Images    ImageElement      `json:"images" yaml:"images"`

	location string
}

const (
	DefaultListen    = ":8080"
	DefaultMaxSize   = 4096
	DefaultQuality   = 85
	DefaultFilter    = "catmull-rom"
	defaultFileLimit = 1 << 20
)

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	// Get parser
	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	// Parse config
	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	logger.Debug().
		Str("path", path).
		Int("templates", len(cfg.Templates)).
		Int("headers", len(cfg.Server.Headers)).
		Int("allowed_ips", len(cfg.Server.AllowedIPs)).
		Msg("configuration loaded")

	return cfg, nil
}

// 🔍 Validate fills in defaults and reports every invalid element at once
func (cfg *Config) Validate() error {
	// Set defaults
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Images.MaxWidth == 0 {
		cfg.Images.MaxWidth = DefaultMaxSize
	}
	if cfg.Images.MaxHeight == 0 {
		cfg.Images.MaxHeight = DefaultMaxSize
	}
	if cfg.Images.Quality == 0 {
		cfg.Images.Quality = DefaultQuality
	}
	if cfg.Images.Filter == "" {
		cfg.Images.Filter = DefaultFilter
	}
	for i := range cfg.Templates {
		if cfg.Templates[i].Open == "" {
			cfg.Templates[i].Open = text.DefaultOpen
		}
		if cfg.Templates[i].Close == "" {
			cfg.Templates[i].Close = text.DefaultClose
		}
	}

	var errs []error

	for i, h := range cfg.Server.Headers {
		owner := fmt.Sprintf("server.headers[%d]", i)
		errs = append(errs, validate.Property(owner, validate.NotBlank("name", h.Name)))
		if _, err := text.Parse(h.Value); err != nil {
			errs = append(errs, errors.Errorf("%s.value: %w", owner, err))
		}
	}
	for i, ip := range cfg.Server.AllowedIPs {
		errs = append(errs, validate.Property("server", validate.True(
			fmt.Sprintf("allowed_ips[%d]", i), validIPOrCIDR(ip), fmt.Sprintf("%q is not an IP address or CIDR", ip))))
	}
	for i, p := range cfg.Server.PublicPaths {
		if _, err := uri.CompilePattern(p); err != nil {
			errs = append(errs, errors.Errorf("server.public_paths[%d]: %w", i, err))
		}
	}

	seen := map[string]bool{}
	for i, t := range cfg.Templates {
		owner := fmt.Sprintf("templates[%d]", i)
		errs = append(errs,
			validate.Property(owner, validate.NotBlank("name", t.Name)),
			validate.Property(owner, validate.True("name", !seen[t.Name], fmt.Sprintf("duplicate template %q", t.Name))),
			validate.Property(owner, validate.True("text", (t.Text == "") != (t.File == ""), "exactly one of text or file is required")),
		)
		seen[t.Name] = true
		if _, err := text.NewParser(t.Open, t.Close); err != nil {
			errs = append(errs, errors.Errorf("%s: %w", owner, err))
		}
	}

	errs = append(errs,
		validate.Property("images", validate.Positive("max_width", cfg.Images.MaxWidth)),
		validate.Property("images", validate.Positive("max_height", cfg.Images.MaxHeight)),
		validate.Property("images", validate.InRange("quality", cfg.Images.Quality, 1, 100)),
		validate.Property("images", validate.OneOf("filter", cfg.Images.Filter, imaging.FilterNames()...)),
	)

	return validate.All(errs...)
}

// imageNumberKeys are the integer image settings where zero means unset.
var imageNumberKeys = []string{"max_width", "max_height", "quality"}

// explicitImageNumber rejects an image setting written out as zero or less,
// which Validate would otherwise replace with a default.
func explicitImageNumber(key string, v int) error {
	return validate.Property("images", validate.Positive(key, v))
}

// checkYAMLImageNumbers rejects image settings that are not whole numbers.
// yaml.v3 truncates a float into an int field without complaint.
func checkYAMLImageNumbers(root *yaml.Node) error {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	images := mappingValue(doc, "images")
	if images == nil || images.Kind != yaml.MappingNode {
		return nil
	}

	var errs []error
	for i := 0; i+1 < len(images.Content); i += 2 {
		key, val := images.Content[i].Value, images.Content[i+1]
		if !slices.Contains(imageNumberKeys, key) {
			continue
		}
		if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!int" {
			errs = append(errs, validate.Property("images", validate.True(key, false, fmt.Sprintf("%q is not an integer", val.Value))))
			continue
		}
		var n int
		if err := val.Decode(&n); err != nil {
			errs = append(errs, errors.Errorf("images.%s: %w", key, err))
			continue
		}
		errs = append(errs, explicitImageNumber(key, n))
	}
	return validate.All(errs...)
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func validIPOrCIDR(s string) bool {
	s = strings.TrimSpace(s)
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(s)
	return err == nil
}

// Dir is the directory the config was loaded from, used to resolve template files.
func (cfg *Config) Dir() string {
	if cfg.location == "" {
		return "."
	}
	return filepath.Dir(cfg.location)
}

// Location is the path the config was loaded from, if any.
func (cfg *Config) Location() string {
	return cfg.location
}

// Template looks a template up by name.
func (cfg *Config) Template(name string) (*TemplateElement, bool) {
	for i := range cfg.Templates {
		if cfg.Templates[i].Name == name {
			return &cfg.Templates[i], true
		}
	}
	return nil, false
}

// Compile parses the template text, reading File relative to baseDir when set.
func (t *TemplateElement) Compile(baseDir string) (*text.Template, error) {
	src := t.Text
	if t.File != "" {
		path := t.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := readLimited(path)
		if err != nil {
			return nil, errors.Errorf("reading template %q: %w", t.Name, err)
		}
		src = string(data)
	}

	open, close := t.Open, t.Close
	if open == "" {
		open = text.DefaultOpen
	}
	if close == "" {
		close = text.DefaultClose
	}
	p, err := text.NewParser(open, close)
	if err != nil {
		return nil, errors.Errorf("template %q: %w", t.Name, err)
	}

	tmpl, err := p.Parse(src)
	if err != nil {
		return nil, errors.Errorf("parsing template %q: %w", t.Name, err)
	}
	tmpl.AllowMissing = t.AllowMissing
	return tmpl, nil
}

func readLimited(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > defaultFileLimit {
		return nil, errors.Errorf("%s is larger than %d bytes", path, defaultFileLimit)
	}
	return os.ReadFile(path)
}

// 📝 String returns a short summary of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("listen=%s templates=%d headers=%d allowed_ips=%d",
		cfg.Server.Listen, len(cfg.Templates), len(cfg.Server.Headers), len(cfg.Server.AllowedIPs))
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	if err := checkYAMLImageNumbers(&root); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}
