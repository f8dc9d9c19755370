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

package text

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	DefaultOpen  = "{"
	DefaultClose = "}"
)

// 🚫 Parse failures. Every one is reported inside a *ParseError.
var (
	ErrUnterminated = errors.Base("unterminated token")
	ErrUnbalanced   = errors.Base("unbalanced boundary")
	ErrEmptyKey     = errors.Base("empty key")
)

// ParseError locates a parse failure by byte offset.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// 🔍 Parser splits text into static and dynamic elements.
//
// A token is Open + key + Close, optionally Open + key=default + Close.
// A doubled boundary is an escape for one literal boundary.
type Parser struct {
	Open  string
	Close string
}

var defaultParser = &Parser{Open: DefaultOpen, Close: DefaultClose}

// NewParser validates the boundaries.
func NewParser(open, close string) (*Parser, error) {
	if open == "" || close == "" {
		return nil, errors.Errorf("boundaries must not be empty")
	}
	if open == close {
		return nil, errors.Errorf("open and close boundaries must differ, both are %q", open)
	}
	return &Parser{Open: open, Close: close}, nil
}

// Parse parses src with the default boundaries.
func Parse(src string) (*Template, error) {
	return defaultParser.Parse(src)
}

// MustParse panics if src does not parse.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

func (p *Parser) Parse(src string) (*Template, error) {
	open, close := p.Open, p.Close
	tmpl := &Template{Source: src, open: open, close: close}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			tmpl.Elements = append(tmpl.Elements, &StaticElement{Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); {
		rest := src[i:]
		switch {
		case strings.HasPrefix(rest, open):
			if strings.HasPrefix(rest[len(open):], open) {
				lit.WriteString(open)
				i += 2 * len(open)
				continue
			}

			bodyStart := i + len(open)
			j := bodyStart
			for {
				if j >= len(src) {
					return nil, &ParseError{Offset: i, Err: ErrUnterminated}
				}
				if strings.HasPrefix(src[j:], close) {
					break
				}
				if strings.HasPrefix(src[j:], open) {
					return nil, &ParseError{Offset: j, Err: ErrUnbalanced}
				}
				j++
			}

			el, err := parseToken(src[bodyStart:j])
			if err != nil {
				return nil, &ParseError{Offset: i, Err: err}
			}
			flush()
			tmpl.Elements = append(tmpl.Elements, el)
			i = j + len(close)

		case strings.HasPrefix(rest, close):
			if strings.HasPrefix(rest[len(close):], close) {
				lit.WriteString(close)
				i += 2 * len(close)
				continue
			}
			return nil, &ParseError{Offset: i, Err: ErrUnbalanced}

		default:
			lit.WriteByte(src[i])
			i++
		}
	}
	flush()

	return tmpl, nil
}

func parseToken(body string) (*DynamicElement, error) {
	key, def, hasDef := strings.Cut(body, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &DynamicElement{Key: key, Default: def, HasDefault: hasDef}, nil
}
