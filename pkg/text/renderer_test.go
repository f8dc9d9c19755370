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
	"context"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	tests := []struct {
		name         string
		parser       *Parser
		content      string
		data         Data
		allowMissing bool
		want         string
		wantCount    int
		wantModified bool
		wantError    string
	}{
		{
			name:         "simple_substitution",
			content:      "Hello {name}",
			data:         Map{"name": "Universe"},
			want:         "Hello Universe",
			wantCount:    1,
			wantModified: true,
		},
		{
			name:         "repeated_key",
			content:      "{w} {w}",
			data:         Map{"w": "World"},
			want:         "World World",
			wantCount:    2,
			wantModified: true,
		},
		{
			name:         "no_tokens",
			content:      "Hello World",
			data:         Map{},
			want:         "Hello World",
			wantCount:    0,
			wantModified: false,
		},
		{
			name:         "escaped_only",
			content:      "{{literal}}",
			want:         "{literal}",
			wantModified: true,
		},
		{
			name:         "empty_content",
			content:      "",
			want:         "",
			wantModified: false,
		},
		{
			name:         "identity_substitution",
			content:      "{x}",
			data:         StringMap{"x": "{x}"},
			want:         "{x}",
			wantCount:    1,
			wantModified: false,
		},
		{
			name:         "missing_allowed",
			content:      "a{x}b",
			allowMissing: true,
			want:         "ab",
			wantCount:    0,
			wantModified: true,
		},
		{
			name:         "custom_parser",
			parser:       &Parser{Open: "[[", Close: "]]"},
			content:      "{keep} [[v]]",
			data:         Map{"v": 7},
			want:         "{keep} 7",
			wantCount:    1,
			wantModified: true,
		},
		{
			name:      "missing_key",
			content:   "{x}",
			wantError: "missing key",
		},
		{
			name:      "parse_error",
			content:   "{x",
			wantError: "unterminated token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.New(zerolog.NewTestWriter(t))
			ctx := logger.WithContext(context.Background())

			renderer := NewRenderer(tt.parser, tt.allowMissing)
			result, err := renderer.Render(ctx, strings.NewReader(tt.content), tt.data)

			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.content, string(result.OriginalContent))
			assert.Equal(t, tt.want, string(result.RenderedContent))
			assert.Equal(t, tt.wantCount, result.SubstitutionCount)
			assert.Equal(t, tt.wantModified, result.WasModified)
		})
	}
}

func TestRenderer_ReadError(t *testing.T) {
	renderer := NewRenderer(nil, false)
	_, err := renderer.Render(context.Background(), iotest.ErrReader(assert.AnError), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "reading content")
}
