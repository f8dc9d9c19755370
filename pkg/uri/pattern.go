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
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🃏 Pattern is a wildcard URI pattern compiled to a regular expression.
//
//	token  matches
//	*      any run of characters except '/'
//	**     any run of characters, including '/'
//	?      one character other than '/'
//	\x     the literal character x
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// CompilePattern translates p into an anchored, case-insensitive expression.
func CompilePattern(p string) (*Pattern, error) {
	var sb strings.Builder
	sb.WriteString(`(?i)^`)

	rs := []rune(p)
	for i := 0; i < len(rs); i++ {
		switch c := rs[i]; c {
		case '\\':
			if i+1 >= len(rs) {
				return nil, errors.Errorf("compiling pattern %q: trailing escape: %w", p, ErrInvalid)
			}
			i++
			sb.WriteString(regexp.QuoteMeta(string(rs[i])))
		case '*':
			if i+1 < len(rs) && rs[i+1] == '*' {
				sb.WriteString(`.*`)
				i++
			} else {
				sb.WriteString(`[^/]*`)
			}
		case '?':
			sb.WriteString(`[^/]`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString(`$`)

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, errors.Errorf("compiling pattern %q: %w: %w", p, ErrInvalid, err)
	}
	return &Pattern{source: p, re: re}, nil
}

// MustCompilePattern panics if p does not compile.
func MustCompilePattern(p string) *Pattern {
	pat, err := CompilePattern(p)
	if err != nil {
		panic(err)
	}
	return pat
}

// CompilePatterns compiles every entry, stopping at the first failure.
func CompilePatterns(ps []string) ([]*Pattern, error) {
	out := make([]*Pattern, 0, len(ps))
	for _, p := range ps {
		pat, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pat)
	}
	return out, nil
}

func (p *Pattern) Match(s string) bool {
	return p.re.MatchString(s)
}

func (p *Pattern) String() string {
	return p.source
}

// MatchAny reports whether any pattern matches s.
func MatchAny(patterns []*Pattern, s string) bool {
	for _, p := range patterns {
		if p.Match(s) {
			return true
		}
	}
	return false
}
