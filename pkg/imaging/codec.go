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

package imaging

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrUnsupportedFormat is returned for formats other than JPEG, PNG and GIF.
	ErrUnsupportedFormat = errors.Base("unsupported image format")

	// ErrTooManyPixels is returned by DecodeLimited for oversized images.
	ErrTooManyPixels = errors.Base("image has too many pixels")
)

// 🖼️ Format is an encoded image format
type Format int

const (
	JPEG Format = iota
	PNG
	GIF
)

func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case PNG:
		return "png"
	case GIF:
		return "gif"
	}
	return "unknown"
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	return "image/" + f.String()
}

// ParseFormat maps a format name as reported by image.Decode.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	}
	return 0, errors.Errorf("%q: %w", name, ErrUnsupportedFormat)
}

// FormatFromExt picks the format from a file name's extension.
func FormatFromExt(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, errors.Errorf("%q has no extension: %w", path, ErrUnsupportedFormat)
	}
	return ParseFormat(ext)
}

// ⚙️ Options control scaling and encoding
type Options struct {
	Filter Filter

	// Quality is the JPEG quality, 1 to 100. Zero means DefaultQuality.
	Quality int
}

const DefaultQuality = 85

// DefaultOptions returns CatmullRom at DefaultQuality.
func DefaultOptions() Options {
	return Options{Filter: CatmullRom, Quality: DefaultQuality}
}

// Decode reads an image and reports its format.
func Decode(r io.Reader) (image.Image, Format, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, 0, errors.Errorf("decoding image: %w", ErrUnsupportedFormat)
		}
		return nil, 0, errors.Errorf("decoding image: %w", err)
	}
	f, err := ParseFormat(name)
	if err != nil {
		return nil, 0, err
	}
	return img, f, nil
}

// DecodeLimited is Decode that first reads the image header and refuses
// images larger than maxPixels before allocating them. A maxPixels of zero
// or less means no limit.
func DecodeLimited(r io.Reader, maxPixels int64) (image.Image, Format, error) {
	if maxPixels <= 0 {
		return Decode(r)
	}

	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, 0, errors.Errorf("decoding image: %w", ErrUnsupportedFormat)
		}
		return nil, 0, errors.Errorf("decoding image header: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
		return nil, 0, errors.Errorf("decoding image: %dx%d is over %d pixels: %w", cfg.Width, cfg.Height, maxPixels, ErrTooManyPixels)
	}

	return Decode(io.MultiReader(&head, r))
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f Format, opts Options) error {
	var err error
	switch f {
	case JPEG:
		q := opts.Quality
		if q <= 0 {
			q = DefaultQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: min(q, 100)})
	case PNG:
		err = png.Encode(w, img)
	case GIF:
		err = gif.Encode(w, img, nil)
	default:
		return errors.Errorf("encoding %v: %w", f, ErrUnsupportedFormat)
	}
	if err != nil {
		return errors.Errorf("encoding %v: %w", f, err)
	}
	return nil
}
