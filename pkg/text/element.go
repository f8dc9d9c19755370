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
	"io"

	"gitlab.com/tozd/go/errors"
)

// ErrMissingKey is returned when a dynamic element has no value and no default.
var ErrMissingKey = errors.Base("missing key")

// 🧩 Element is one token of a parsed template
type Element interface {
	// Render writes the element's output for data
	Render(w io.Writer, data Data) error

	// Dynamic reports whether the element needs runtime data
	Dynamic() bool

	// String returns the element in template syntax with default boundaries
	String() string
}

// 📝 StaticElement is literal text
type StaticElement struct {
	Text string
}

func (e *StaticElement) Render(w io.Writer, _ Data) error {
	_, err := io.WriteString(w, e.Text)
	return err
}

func (e *StaticElement) Dynamic() bool { return false }

func (e *StaticElement) String() string { return e.Text }

// 🔑 DynamicElement is a token filled in from Data at render time
type DynamicElement struct {
	Key        string
	Default    string
	HasDefault bool
}

func (e *DynamicElement) Render(w io.Writer, data Data) error {
	var (
		v  any
		ok bool
	)
	if data != nil {
		v, ok = data.Lookup(e.Key)
	}
	if !ok {
		if !e.HasDefault {
			return errors.Errorf("rendering %q: %w", e.Key, ErrMissingKey)
		}
		_, err := io.WriteString(w, e.Default)
		return err
	}
	_, err := io.WriteString(w, formatValue(v))
	return err
}

func (e *DynamicElement) Dynamic() bool { return true }

func (e *DynamicElement) String() string {
	return e.token(DefaultOpen, DefaultClose)
}

func (e *DynamicElement) token(open, close string) string {
	if e.HasDefault {
		return open + e.Key + "=" + e.Default + close
	}
	return open + e.Key + close
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}

// 📦 Data supplies values for dynamic elements
type Data interface {
	Lookup(key string) (any, bool)
}

// Map adapts a map[string]any.
type Map map[string]any

func (m Map) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// StringMap adapts a map[string]string.
type StringMap map[string]string

func (m StringMap) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// DataFunc adapts a lookup function.
type DataFunc func(key string) (any, bool)

func (f DataFunc) Lookup(key string) (any, bool) {
	return f(key)
}

// Chain looks a key up in each source in turn.
func Chain(sources ...Data) Data {
	return DataFunc(func(key string) (any, bool) {
		for _, s := range sources {
			if s == nil {
				continue
			}
			if v, ok := s.Lookup(key); ok {
				return v, true
			}
		}
		return nil, false
	})
}
