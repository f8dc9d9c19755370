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
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrInvalid is wrapped by every parse failure in this package.
var ErrInvalid = errors.Base("invalid uri")

// 🔑 Param is a single query pair
type Param struct {
	Key      string
	Value    string
	HasValue bool // false for a bare key such as "?debug"
}

// 📋 Query is an ordered query string. Unlike url.Values it keeps insertion
// order and remembers bare keys.
type Query []Param

// ParseQuery decodes raw into an ordered Query. A leading '?' is ignored and
// both '&' and ';' separate pairs.
func ParseQuery(raw string) (Query, error) {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil, nil
	}

	var q Query
	for _, pair := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' || r == ';' }) {
		key, value, hasValue := strings.Cut(pair, "=")

		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, errors.Errorf("decoding query key %q: %w: %w", key, ErrInvalid, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, errors.Errorf("decoding query value for %q: %w: %w", k, ErrInvalid, err)
		}

		q = append(q, Param{Key: k, Value: v, HasValue: hasValue})
	}
	return q, nil
}

// Get returns the first value for key.
func (q Query) Get(key string) string {
	for _, p := range q {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// GetAll returns every value for key, in order.
func (q Query) GetAll(key string) []string {
	var out []string
	for _, p := range q {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

// Has reports whether key appears at all, with or without a value.
func (q Query) Has(key string) bool {
	for _, p := range q {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Set replaces the first occurrence of key in place and drops the rest.
// A missing key is appended.
func (q Query) Set(key, value string) Query {
	out := make(Query, 0, len(q)+1)
	found := false
	for _, p := range q {
		if p.Key != key {
			out = append(out, p)
			continue
		}
		if !found {
			out = append(out, Param{Key: key, Value: value, HasValue: true})
			found = true
		}
	}
	if !found {
		out = append(out, Param{Key: key, Value: value, HasValue: true})
	}
	return out
}

// Add appends a pair.
func (q Query) Add(key, value string) Query {
	return append(q, Param{Key: key, Value: value, HasValue: true})
}

// Del removes every occurrence of key.
func (q Query) Del(key string) Query {
	out := q[:0:0]
	for _, p := range q {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return out
}

// Keys returns the distinct keys in first-seen order.
func (q Query) Keys() []string {
	seen := make(map[string]bool, len(q))
	var keys []string
	for _, p := range q {
		if !seen[p.Key] {
			seen[p.Key] = true
			keys = append(keys, p.Key)
		}
	}
	return keys
}

func (q Query) Len() int {
	return len(q)
}

// Values converts to url.Values. Ordering across keys is lost.
func (q Query) Values() url.Values {
	v := make(url.Values, len(q))
	for _, p := range q {
		v[p.Key] = append(v[p.Key], p.Value)
	}
	return v
}

// Encode writes the query without a leading '?'.
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		if p.HasValue {
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(p.Value))
		}
	}
	return sb.String()
}

func (q Query) String() string {
	return q.Encode()
}
