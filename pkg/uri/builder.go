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

package uri

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// uriRegex splits a URI into scheme, userinfo, host, port, path, query and fragment.
var uriRegex = regexp.MustCompile(`^(?:([a-zA-Z][a-zA-Z0-9+.-]*):)?(?://(?:([^@/?#]*)@)?(\[[^\]]*\]|[^:/?#]*)(?::(\d*))?)?([^?#]*)(?:\?([^#]*))?(?:#(.*))?$`)

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ws":    80,
	"wss":   443,
	"ftp":   21,
}

// DefaultPort returns the well-known port for scheme, or 0.
func DefaultPort(scheme string) int {
	return defaultPorts[strings.ToLower(scheme)]
}

// 🏗️ Builder holds the components of a URI and recomposes them
type Builder struct {
	Scheme   string
	User     string // Raw userinfo, without the '@'
	Host     string
	Port     int    // 0 means the scheme default; an explicit ":0" parses to this too
	Path     string // Decoded; escaped again by String
	Query    Query
	Fragment string

	authority bool // whether "//" was present or a host has been set
}

// 🏭 NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Parse splits raw into a Builder. An explicit ":0" is read as the scheme
// default, so String omits it along with any port equal to that default.
func Parse(raw string) (*Builder, error) {
	m := uriRegex.FindStringSubmatchIndex(raw)
	if m == nil {
		return nil, errors.Errorf("parsing %q: %w", raw, ErrInvalid)
	}
	group := func(i int) (string, bool) {
		if m[2*i] < 0 {
			return "", false
		}
		return raw[m[2*i]:m[2*i+1]], true
	}

	b := &Builder{}
	b.Scheme, _ = group(1)
	b.Scheme = strings.ToLower(b.Scheme)
	b.User, _ = group(2)
	host, hasHost := group(3)
	b.authority = hasHost
	b.Host = strings.ToLower(host)

	if port, ok := group(4); ok && port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p < 0 || p > 65535 {
			return nil, errors.Errorf("parsing port %q: %w", port, ErrInvalid)
		}
		b.Port = p
	}

	path, _ := group(5)
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return nil, errors.Errorf("decoding path %q: %w: %w", path, ErrInvalid, err)
	}
	if hasHost && unescaped != "" && !strings.HasPrefix(unescaped, "/") {
		return nil, errors.Errorf("parsing %q: authority must be followed by '/': %w", raw, ErrInvalid)
	}
	b.Path = unescaped

	if rawQuery, ok := group(6); ok {
		q, err := ParseQuery(rawQuery)
		if err != nil {
			return nil, errors.Errorf("parsing query: %w", err)
		}
		b.Query = q
	}

	b.Fragment, _ = group(7)
	return b, nil
}

// MustParse is Parse for package-level literals.
func MustParse(raw string) *Builder {
	b, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) WithScheme(scheme string) *Builder {
	b.Scheme = strings.ToLower(scheme)
	return b
}

func (b *Builder) WithHost(host string) *Builder {
	b.Host = strings.ToLower(host)
	b.authority = true
	return b
}

func (b *Builder) WithPort(port int) *Builder {
	b.Port = port
	return b
}

func (b *Builder) WithPath(path string) *Builder {
	b.Path = path
	return b
}

// JoinPath appends segments to the path, collapsing duplicate slashes.
// Segments are escaped when the URI is rendered.
func (b *Builder) JoinPath(segments ...string) *Builder {
	parts := []string{strings.TrimRight(b.Path, "/")}
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	b.Path = strings.Join(parts, "/")
	if b.Path == "" {
		b.Path = "/"
	}
	return b
}

func (b *Builder) SetParam(key, value string) *Builder {
	b.Query = b.Query.Set(key, value)
	return b
}

func (b *Builder) AddParam(key, value string) *Builder {
	b.Query = b.Query.Add(key, value)
	return b
}

func (b *Builder) DelParam(key string) *Builder {
	b.Query = b.Query.Del(key)
	return b
}

func (b *Builder) WithFragment(fragment string) *Builder {
	b.Fragment = fragment
	return b
}

// Clone returns a deep copy.
func (b *Builder) Clone() *Builder {
	cp := *b
	cp.Query = append(Query(nil), b.Query...)
	return &cp
}

// EffectivePort returns the explicit port or the scheme default.
func (b *Builder) EffectivePort() int {
	if b.Port != 0 {
		return b.Port
	}
	return DefaultPort(b.Scheme)
}

func (b *Builder) hasAuthority() bool {
	return b.authority || b.Host != "" || b.User != ""
}

// String recomposes the URI. A port equal to the scheme default is omitted.
func (b *Builder) String() string {
	var sb strings.Builder
	if b.Scheme != "" {
		sb.WriteString(b.Scheme)
		sb.WriteByte(':')
	}

	path := b.Path
	if b.hasAuthority() {
		sb.WriteString("//")
		if b.User != "" {
			sb.WriteString(b.User)
			sb.WriteByte('@')
		}
		sb.WriteString(b.Host)
		if b.Port != 0 && b.Port != DefaultPort(b.Scheme) {
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(b.Port))
		}
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
	}
	sb.WriteString(escapePath(path))

	if len(b.Query) > 0 {
		sb.WriteByte('?')
		sb.WriteString(b.Query.Encode())
	}
	if b.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(b.Fragment)
	}
	return sb.String()
}

// URL converts to a net/url URL.
func (b *Builder) URL() (*url.URL, error) {
	u, err := url.Parse(b.String())
	if err != nil {
		return nil, errors.Errorf("converting to url: %w: %w", ErrInvalid, err)
	}
	return u, nil
}

// escapePath escapes each segment and keeps the '/' separators.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
