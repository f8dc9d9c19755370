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
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// RenderResult contains the results of rendering a stream
type RenderResult struct {
	// WasModified indicates the output differs from the input
	WasModified bool

	// SubstitutionCount is the number of dynamic elements written
	SubstitutionCount int

	// OriginalContent is the content before rendering
	OriginalContent []byte

	// RenderedContent is the content after rendering
	RenderedContent []byte
}

// Renderer reads template text from a stream and renders it
type Renderer struct {
	parser       *Parser
	allowMissing bool
}

// NewRenderer creates a Renderer. A nil parser uses the default boundaries.
func NewRenderer(p *Parser, allowMissing bool) *Renderer {
	if p == nil {
		p = defaultParser
	}
	return &Renderer{parser: p, allowMissing: allowMissing}
}

// Render parses everything in content as a template and renders it with data.
func (r *Renderer) Render(ctx context.Context, content io.Reader, data Data) (*RenderResult, error) {
	original, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	tmpl, err := r.parser.Parse(string(original))
	if err != nil {
		return nil, errors.Errorf("parsing template: %w", err)
	}
	tmpl.AllowMissing = r.allowMissing

	var out bytes.Buffer
	n, err := tmpl.execute(&out, data)
	if err != nil {
		return nil, errors.Errorf("rendering template: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Int("elements", len(tmpl.Elements)).
		Int("substitutions", n).
		Msg("rendered template")

	return &RenderResult{
		WasModified:       !bytes.Equal(original, out.Bytes()),
		SubstitutionCount: n,
		OriginalContent:   original,
		RenderedContent:   out.Bytes(),
	}, nil
}
