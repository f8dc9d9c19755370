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

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/fosol/cmd/fosol/opts"
	"github.com/walteh/fosol/pkg/imaging"
	"github.com/walteh/fosol/pkg/uri"
)

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, imaging.Encode(f, img, imaging.PNG, imaging.DefaultOptions()))
}

func imageSize(t *testing.T, path string) image.Point {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := imaging.Decode(f)
	require.NoError(t, err)
	return img.Bounds().Size()
}

func TestRenderCmd(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.tmpl")
	require.NoError(t, os.WriteFile(file, []byte("<h1><%title%></h1> {kept}"), 0644))

	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr string
	}{
		{name: "stdin_default", stdin: "Hello {name=world}", want: "Hello world"},
		{name: "stdin_dash", stdin: "{a}+{b}", args: []string{"-", "--set", "a=1", "--set", "b=2"}, want: "1+2"},
		{name: "value_with_equals", stdin: "{q}", args: []string{"--set", "q=x=y"}, want: "x=y"},
		{name: "escapes", stdin: "{{literal}}", want: "{literal}"},
		{name: "file_custom_boundaries", args: []string{file, "--open", "<%", "--close", "%>", "--set", "title=Hi"}, want: "<h1>Hi</h1> {kept}"},
		{name: "allow_missing", stdin: "[{gone}]", args: []string{"--allow-missing"}, want: "[]"},
		{name: "missing_key", stdin: "{gone}", wantErr: "missing key"},
		{name: "unterminated", stdin: "{oops", wantErr: "unterminated token"},
		{name: "bad_set", stdin: "x", args: []string{"--set", "novalue"}, wantErr: "expected key=value"},
		{name: "same_boundaries", stdin: "x", args: []string{"--open", "|", "--close", "|"}, wantErr: "must differ"},
		{name: "missing_file", args: []string{filepath.Join(dir, "nope")}, wantErr: "opening template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewRenderCmd(&opts.RootOpts{}), tt.stdin, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestURICmd(t *testing.T) {
	out, err := execute(t, NewURICmd(&opts.RootOpts{}), "", "parse", "https://user@Example.com:8443/a%20b?x=1#top")
	require.NoError(t, err)
	for _, want := range []string{"scheme", "https", "example.com", "8443", "/a b", "query x", "top", "normalized"} {
		assert.Contains(t, out, want)
	}

	out, err = execute(t, NewURICmd(&opts.RootOpts{}), "", "parse", "--json", "http://example.com/p?k=v")
	require.NoError(t, err)
	var b uri.Builder
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, "http", b.Scheme)
	assert.Equal(t, "example.com", b.Host)
	assert.Equal(t, "v", b.Query.Get("k"))

	out, err = execute(t, NewURICmd(&opts.RootOpts{}), "",
		"build", "--host", "Example.com", "--path", "/a b", "--param", "q=1", "--param", "r=two words", "--fragment", "f")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a%20b?q=1&r=two+words#f\n", out)

	out, err = execute(t, NewURICmd(&opts.RootOpts{}), "", "build", "--scheme", "http", "--host", "h", "--port", "80")
	require.NoError(t, err)
	assert.Equal(t, "http://h\n", out, "default port is omitted")

	_, err = execute(t, NewURICmd(&opts.RootOpts{}), "", "match", "/img/*.png", "/img/sub/a.png")
	var exit *opts.ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.Code)

	out, err = execute(t, NewURICmd(&opts.RootOpts{}), "", "match", "/img/*.png", "/img/a.png")
	require.NoError(t, err)
	assert.Equal(t, "match\n", out)

	_, err = execute(t, NewURICmd(&opts.RootOpts{}), "", "match", `bad\`, "x")
	assert.ErrorIs(t, err, uri.ErrInvalid)
}

func TestImageCmd_SingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeImage(t, src, 80, 40)

	tests := []struct {
		name string
		args []string
		out  string
		want image.Point
	}{
		{name: "resize", args: []string{"resize", "--width", "20"}, out: "resize.png", want: image.Pt(20, 10)},
		{name: "fit", args: []string{"fit", "--width", "10", "--height", "10"}, out: "fit.jpg", want: image.Pt(10, 5)},
		{name: "fill", args: []string{"fill", "--width", "10", "--height", "10", "--anchor", "left"}, out: "fill.gif", want: image.Pt(10, 10)},
		{name: "crop_anchor", args: []string{"crop", "--width", "5", "--height", "6", "--anchor", "bottom-right"}, out: "crop.png", want: image.Pt(5, 6)},
		{name: "crop_rect", args: []string{"crop", "--rect", "10,10,30,15"}, out: "rect.png", want: image.Pt(20, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(dir, tt.out)
			args := append(tt.args, "--in", src, "--out", dst)
			out, err := execute(t, NewImageCmd(&opts.RootOpts{}), "", args...)
			require.NoError(t, err)
			assert.Contains(t, out, "in.png")
			assert.Equal(t, tt.want, imageSize(t, dst))
		})
	}
}

func TestImageCmd_Batch(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "thumbs")
	writeImage(t, filepath.Join(root, "a.png"), 40, 40)
	writeImage(t, filepath.Join(root, "nested", "b.png"), 20, 80)

	out, err := execute(t, NewImageCmd(&opts.RootOpts{}), "",
		"fit", "--root", root, "--glob", "**/*.png", "--out-dir", outDir, "--width", "10", "--height", "10", "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 2 images")
	assert.Contains(t, out, filepath.Join("nested", "b.png"))
	assert.Equal(t, image.Pt(10, 10), imageSize(t, filepath.Join(outDir, "a.png")))
	assert.Equal(t, image.Pt(3, 10), imageSize(t, filepath.Join(outDir, "nested", "b.png")))

	out, err = execute(t, NewImageCmd(&opts.RootOpts{}), "",
		"fit", "--root", root, "--glob", "*.jpg", "--out-dir", outDir, "--width", "10", "--height", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "no files under")
}

func TestImageCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeImage(t, src, 8, 8)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no_source", args: []string{"fit", "--width", "2", "--height", "2"}, wantErr: "at least one of the flags"},
		{name: "in_without_out", args: []string{"fit", "--in", src}, wantErr: "must all be set"},
		{name: "bad_filter", args: []string{"fit", "--in", src, "--out", filepath.Join(dir, "o.png"), "--filter", "lanczos"}, wantErr: "unknown filter"},
		{name: "bad_quality", args: []string{"fit", "--in", src, "--out", filepath.Join(dir, "o.png"), "--quality", "0"}, wantErr: "quality 0"},
		{name: "bad_anchor", args: []string{"fill", "--in", src, "--out", filepath.Join(dir, "o.png"), "--width", "2", "--height", "2", "--anchor", "middle"}, wantErr: "unknown anchor"},
		{name: "bad_rect", args: []string{"crop", "--in", src, "--out", filepath.Join(dir, "o.png"), "--rect", "1,2,3"}, wantErr: "needs 4 values"},
		{name: "zero_size", args: []string{"resize", "--in", src, "--out", filepath.Join(dir, "o.png")}, wantErr: "invalid size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewImageCmd(&opts.RootOpts{}), "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
