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
	"fmt"
	"image"
)

// 🛠️ Op is one transformation applied to a decoded image
type Op interface {
	Apply(img image.Image) (image.Image, error)
	String() string
}

// ResizeOp scales to Width×Height. A zero side keeps the aspect ratio.
type ResizeOp struct {
	Width, Height int
	Filter        Filter
}

func (o ResizeOp) Apply(img image.Image) (image.Image, error) {
	return Resize(img, o.Width, o.Height, o.Filter)
}

func (o ResizeOp) String() string {
	return fmt.Sprintf("resize %dx%d", o.Width, o.Height)
}

// FitOp scales down into MaxWidth×MaxHeight.
type FitOp struct {
	MaxWidth, MaxHeight int
	Filter              Filter
}

func (o FitOp) Apply(img image.Image) (image.Image, error) {
	return Fit(img, o.MaxWidth, o.MaxHeight, o.Filter)
}

func (o FitOp) String() string {
	return fmt.Sprintf("fit %dx%d", o.MaxWidth, o.MaxHeight)
}

// FillOp covers Width×Height and crops at Anchor.
type FillOp struct {
	Width, Height int
	Anchor        Anchor
	Filter        Filter
}

func (o FillOp) Apply(img image.Image) (image.Image, error) {
	return Fill(img, o.Width, o.Height, o.Anchor, o.Filter)
}

func (o FillOp) String() string {
	return fmt.Sprintf("fill %dx%d %s", o.Width, o.Height, o.Anchor)
}

// CropOp cuts Rect when it is set, otherwise a Width×Height region at Anchor.
type CropOp struct {
	Rect          image.Rectangle
	Width, Height int
	Anchor        Anchor
}

func (o CropOp) Apply(img image.Image) (image.Image, error) {
	if o.Rect != (image.Rectangle{}) {
		return Crop(img, o.Rect)
	}
	return CropAnchor(img, o.Width, o.Height, o.Anchor)
}

func (o CropOp) String() string {
	if o.Rect != (image.Rectangle{}) {
		return fmt.Sprintf("crop %v", o.Rect)
	}
	return fmt.Sprintf("crop %dx%d %s", o.Width, o.Height, o.Anchor)
}
