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
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/fosol/cmd/fosol/opts"
	"github.com/walteh/fosol/pkg/imaging"
	"github.com/walteh/fosol/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// imageFlags are shared by every image subcommand
type imageFlags struct {
	in, out              string
	root, glob, outDir   string
	concurrency, quality int
	filter, anchor       string
	width, height        int
	rect                 []int
}

func (f *imageFlags) register(cmd *cobra.Command, withAnchor bool) {
	cmd.Flags().StringVar(&f.in, "in", "", "source image")
	cmd.Flags().StringVar(&f.out, "out", "", "output image; the extension picks the format")
	cmd.Flags().StringVar(&f.root, "root", ".", "batch source directory")
	cmd.Flags().StringVar(&f.glob, "glob", "", "batch source pattern relative to --root, e.g. **/*.jpg")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "batch output directory")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "images processed in parallel")
	cmd.Flags().IntVar(&f.quality, "quality", imaging.DefaultQuality, "JPEG quality, 1 to 100")
	cmd.Flags().StringVar(&f.filter, "filter", imaging.CatmullRom.String(), "scaling filter")
	cmd.Flags().IntVar(&f.width, "width", 0, "target width")
	cmd.Flags().IntVar(&f.height, "height", 0, "target height")
	if withAnchor {
		cmd.Flags().StringVar(&f.anchor, "anchor", imaging.Center.String(), "which part of the image to keep")
	}
	cmd.MarkFlagsMutuallyExclusive("in", "glob")
	cmd.MarkFlagsRequiredTogether("in", "out")
	cmd.MarkFlagsRequiredTogether("glob", "out-dir")
	cmd.MarkFlagsOneRequired("in", "glob")
}

func (f *imageFlags) options() (imaging.Options, error) {
	filter, err := imaging.ParseFilter(f.filter)
	if err != nil {
		return imaging.Options{}, err
	}
	if f.quality < 1 || f.quality > 100 {
		return imaging.Options{}, errors.Errorf("quality %d is not between 1 and 100", f.quality)
	}
	return imaging.Options{Filter: filter, Quality: f.quality}, nil
}

// NewImageCmd creates the image command group
func NewImageCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Resize, fit, fill or crop images",
		Long: `Each subcommand works on one file (--in/--out) or on every file under
--root matching --glob, written with the same relative path under --out-dir.`,
	}

	cmd.AddCommand(
		newImageOpCmd(o, "resize", "Scale to --width x --height; a zero side keeps the aspect ratio", false,
			func(f *imageFlags, opt imaging.Options) (imaging.Op, error) {
				return imaging.ResizeOp{Width: f.width, Height: f.height, Filter: opt.Filter}, nil
			}),
		newImageOpCmd(o, "fit", "Scale down to fit inside --width x --height", false,
			func(f *imageFlags, opt imaging.Options) (imaging.Op, error) {
				return imaging.FitOp{MaxWidth: f.width, MaxHeight: f.height, Filter: opt.Filter}, nil
			}),
		newImageOpCmd(o, "fill", "Scale to cover --width x --height and crop at --anchor", true,
			func(f *imageFlags, opt imaging.Options) (imaging.Op, error) {
				anchor, err := imaging.ParseAnchor(f.anchor)
				if err != nil {
					return nil, err
				}
				return imaging.FillOp{Width: f.width, Height: f.height, Anchor: anchor, Filter: opt.Filter}, nil
			}),
		newImageCropCmd(o),
	)
	return cmd
}

type opBuilder func(f *imageFlags, opt imaging.Options) (imaging.Op, error)

func newImageOpCmd(o *opts.RootOpts, name, short string, withAnchor bool, build opBuilder) *cobra.Command {
	f := &imageFlags{}
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageOp(cmd, o, f, build)
		},
	}
	f.register(cmd, withAnchor)
	if name == "crop" {
		cmd.Flags().IntSliceVar(&f.rect, "rect", nil, "crop rectangle as x0,y0,x1,y1")
	}
	return cmd
}

func newImageCropCmd(o *opts.RootOpts) *cobra.Command {
	return newImageOpCmd(o, "crop", "Cut --rect x0,y0,x1,y1, or --width x --height at --anchor", true,
		func(f *imageFlags, opt imaging.Options) (imaging.Op, error) {
			if len(f.rect) > 0 {
				if len(f.rect) != 4 {
					return nil, errors.Errorf("--rect needs 4 values, got %d", len(f.rect))
				}
				return imaging.CropOp{Rect: image.Rect(f.rect[0], f.rect[1], f.rect[2], f.rect[3])}, nil
			}
			anchor, err := imaging.ParseAnchor(f.anchor)
			if err != nil {
				return nil, err
			}
			return imaging.CropOp{Width: f.width, Height: f.height, Anchor: anchor}, nil
		})
}

func runImageOp(cmd *cobra.Command, o *opts.RootOpts, f *imageFlags, build opBuilder) error {
	ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "image "+cmd.Name()).Logger().WithContext(cmd.Context())
	console := o.ConsoleOr(cmd.OutOrStdout())

	opt, err := f.options()
	if err != nil {
		return err
	}
	op, err := build(f, opt)
	if err != nil {
		return err
	}

	if f.in != "" {
		res, err := imaging.ProcessFile(ctx, f.in, f.out, op, opt)
		console.LogImageOperation(ctx, imageOperation(res, err))
		return err
	}

	return runBatch(ctx, console, imaging.BatchRequest{
		Root:        f.root,
		Glob:        f.glob,
		OutDir:      f.outDir,
		Op:          op,
		Options:     opt,
		Concurrency: f.concurrency,
	})
}

func runBatch(ctx context.Context, console *log.Logger, req imaging.BatchRequest) error {
	console.StartBatch(ctx, log.BatchOperation{Root: req.Root, Glob: req.Glob, OutDir: req.OutDir})

	results, err := imaging.Batch(ctx, req)
	for _, res := range results {
		res.Source = relOrSelf(req.Root, res.Source)
		console.LogImageOperation(ctx, imageOperation(res, nil))
	}
	if err != nil {
		console.LogImageOperation(ctx, log.ImageOperation{Source: req.Glob, Op: req.Op.String(), Err: err})
	}
	console.EndBatch(ctx)

	if err != nil {
		return err
	}
	if len(results) == 0 {
		console.Warningf("no files under %s match %s", req.Root, req.Glob)
		return nil
	}
	console.Successf("processed %d images", len(results))
	return nil
}

func imageOperation(res imaging.Result, err error) log.ImageOperation {
	op := log.ImageOperation{
		Source:   res.Source,
		Dest:     res.Dest,
		Op:       res.Op,
		Bytes:    res.Bytes,
		Duration: res.Duration,
		Err:      err,
	}
	if err == nil {
		op.From = dims(res.From)
		op.To = dims(res.To)
	}
	return op
}

func dims(p image.Point) string {
	return fmt.Sprintf("%dx%d", p.X, p.Y)
}

func relOrSelf(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
