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

// Package imaging resizes, fits, fills and crops images and runs those
// operations over globs of files.
package imaging

import (
	"image"
	"math"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/image/draw"
)

// ErrInvalidSize is returned for non-positive target sizes and empty crops.
var ErrInvalidSize = errors.Base("invalid size")

// 🎚️ Filter selects the scaling kernel
type Filter int

const (
	CatmullRom Filter = iota
	BiLinear
	ApproxBiLinear
	Nearest
)

var filterNames = map[Filter]string{
	Nearest:        "nearest",
	ApproxBiLinear: "approx-bilinear",
	BiLinear:       "bilinear",
	CatmullRom:     "catmull-rom",
}

func (f Filter) String() string {
	if n, ok := filterNames[f]; ok {
		return n
	}
	return "unknown"
}

func (f Filter) interpolator() draw.Interpolator {
	switch f {
	case Nearest:
		return draw.NearestNeighbor
	case ApproxBiLinear:
		return draw.ApproxBiLinear
	case BiLinear:
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}

// FilterNames lists the accepted filter names, fastest first.
func FilterNames() []string {
	return []string{"nearest", "approx-bilinear", "bilinear", "catmull-rom"}
}

// ParseFilter maps a name from FilterNames to a Filter.
func ParseFilter(name string) (Filter, error) {
	for f, n := range filterNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return 0, errors.Errorf("unknown filter %q, want one of %v", name, FilterNames())
}

// ⚓ Anchor picks which part of an image survives a crop
type Anchor int

const (
	Center Anchor = iota
	TopLeft
	Top
	TopRight
	Left
	Right
	BottomLeft
	Bottom
	BottomRight
)

var anchorNames = map[string]Anchor{
	"center":       Center,
	"top-left":     TopLeft,
	"top":          Top,
	"top-right":    TopRight,
	"left":         Left,
	"right":        Right,
	"bottom-left":  BottomLeft,
	"bottom":       Bottom,
	"bottom-right": BottomRight,
}

// ParseAnchor maps names such as "top-left" to an Anchor.
func ParseAnchor(name string) (Anchor, error) {
	if a, ok := anchorNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}
	return 0, errors.Errorf("unknown anchor %q", name)
}

func (a Anchor) String() string {
	for n, v := range anchorNames {
		if v == a {
			return n
		}
	}
	return "unknown"
}

// Resize scales img to w×h. A zero dimension is derived from the aspect ratio.
func Resize(img image.Image, w, h int, filter Filter) (image.Image, error) {
	src := img.Bounds()
	if w < 0 || h < 0 || (w == 0 && h == 0) {
		return nil, errors.Errorf("resizing to %dx%d: %w", w, h, ErrInvalidSize)
	}
	if src.Empty() {
		return nil, errors.Errorf("resizing empty image: %w", ErrInvalidSize)
	}

	if w == 0 {
		w = scaleDim(src.Dx(), float64(h)/float64(src.Dy()))
	}
	if h == 0 {
		h = scaleDim(src.Dy(), float64(w)/float64(src.Dx()))
	}

	return scale(img, w, h, filter), nil
}

// Fit scales img down to fit inside maxW×maxH, keeping the aspect ratio.
// Images that already fit are returned unchanged.
func Fit(img image.Image, maxW, maxH int, filter Filter) (image.Image, error) {
	if maxW <= 0 || maxH <= 0 {
		return nil, errors.Errorf("fitting into %dx%d: %w", maxW, maxH, ErrInvalidSize)
	}
	src := img.Bounds()
	if src.Empty() {
		return nil, errors.Errorf("fitting empty image: %w", ErrInvalidSize)
	}
	if src.Dx() <= maxW && src.Dy() <= maxH {
		return img, nil
	}

	ratio := math.Min(float64(maxW)/float64(src.Dx()), float64(maxH)/float64(src.Dy()))
	w := min(scaleDim(src.Dx(), ratio), maxW)
	h := min(scaleDim(src.Dy(), ratio), maxH)
	return scale(img, w, h, filter), nil
}

// Fill scales img to cover w×h and crops the overflow at anchor.
func Fill(img image.Image, w, h int, anchor Anchor, filter Filter) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("filling %dx%d: %w", w, h, ErrInvalidSize)
	}
	src := img.Bounds()
	if src.Empty() {
		return nil, errors.Errorf("filling empty image: %w", ErrInvalidSize)
	}

	ratio := math.Max(float64(w)/float64(src.Dx()), float64(h)/float64(src.Dy()))
	sw := max(int(math.Ceil(float64(src.Dx())*ratio)), w)
	sh := max(int(math.Ceil(float64(src.Dy())*ratio)), h)

	scaled := scale(img, sw, sh, filter)
	return CropAnchor(scaled, w, h, anchor)
}

// Crop copies the part of img inside rect. rect is clipped to the image bounds.
func Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, errors.Errorf("cropping %v from %v: %w", rect, img.Bounds(), ErrInvalidSize)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, img, r, draw.Src, nil)
	return dst, nil
}

// CropAnchor cuts a w×h region positioned by anchor. Sizes larger than the
// image are clamped to it.
func CropAnchor(img image.Image, w, h int, anchor Anchor) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("cropping to %dx%d: %w", w, h, ErrInvalidSize)
	}
	b := img.Bounds()
	w = min(w, b.Dx())
	h = min(h, b.Dy())

	var x, y int
	switch anchor {
	case TopLeft, Left, BottomLeft:
		x = b.Min.X
	case TopRight, Right, BottomRight:
		x = b.Max.X - w
	default:
		x = b.Min.X + (b.Dx()-w)/2
	}
	switch anchor {
	case TopLeft, Top, TopRight:
		y = b.Min.Y
	case BottomLeft, Bottom, BottomRight:
		y = b.Max.Y - h
	default:
		y = b.Min.Y + (b.Dy()-h)/2
	}

	return Crop(img, image.Rect(x, y, x+w, y+h))
}

func scale(img image.Image, w, h int, filter Filter) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	filter.interpolator().Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func scaleDim(n int, ratio float64) int {
	return max(int(math.Round(float64(n)*ratio)), 1)
}
