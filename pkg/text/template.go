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
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📄 Template is a parsed sequence of elements
type Template struct {
	Source   string
	Elements []Element

	// AllowMissing renders a missing key without a default as empty text
	AllowMissing bool

	open, close string
}

// Execute writes the rendered template to w.
func (t *Template) Execute(w io.Writer, data Data) error {
	_, err := t.execute(w, data)
	return err
}

// execute returns how many dynamic elements produced output.
func (t *Template) execute(w io.Writer, data Data) (int, error) {
	n := 0
	for _, el := range t.Elements {
		if err := el.Render(w, data); err != nil {
			if t.AllowMissing && errors.Is(err, ErrMissingKey) {
				continue
			}
			return n, err
		}
		if el.Dynamic() {
			n++
		}
	}
	return n, nil
}

// Render returns the rendered template as a string.
func (t *Template) Render(data Data) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Keys lists the dynamic keys in first-seen order.
func (t *Template) Keys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, el := range t.Elements {
		d, ok := el.(*DynamicElement)
		if !ok || seen[d.Key] {
			continue
		}
		seen[d.Key] = true
		keys = append(keys, d.Key)
	}
	return keys
}

// Dynamic reports whether any element needs runtime data.
func (t *Template) Dynamic() bool {
	for _, el := range t.Elements {
		if el.Dynamic() {
			return true
		}
	}
	return false
}

// String re-encodes the template so that parsing it gives back the same elements.
func (t *Template) String() string {
	open, close := t.open, t.close
	if open == "" || close == "" {
		open, close = DefaultOpen, DefaultClose
	}
	escape := strings.NewReplacer(open, open+open, close, close+close)

	var sb strings.Builder
	for _, el := range t.Elements {
		switch e := el.(type) {
		case *StaticElement:
			sb.WriteString(escape.Replace(e.Text))
		case *DynamicElement:
			sb.WriteString(e.token(open, close))
		default:
			sb.WriteString(el.String())
		}
	}
	return sb.String()
}
