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
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📋 Result describes one processed file
type Result struct {
	Source   string
	Dest     string
	Op       string
	Format   Format
	From     image.Point
	To       image.Point
	Bytes    int64
	Duration time.Duration
}

// ProcessFile decodes src, applies op, and writes dst in the format named by
// its extension. dst only appears once fully written.
func ProcessFile(ctx context.Context, src, dst string, op Op, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Source: src, Dest: dst, Op: op.String()}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	format, err := FormatFromExt(dst)
	if err != nil {
		return res, errors.Errorf("choosing output format: %w", err)
	}
	res.Format = format

	in, err := os.Open(src)
	if err != nil {
		return res, errors.Errorf("opening source: %w", err)
	}
	defer in.Close()

	img, _, err := Decode(in)
	if err != nil {
		return res, errors.Errorf("reading %s: %w", src, err)
	}
	res.From = img.Bounds().Size()

	out, err := op.Apply(img)
	if err != nil {
		return res, errors.Errorf("applying %s to %s: %w", op, src, err)
	}
	res.To = out.Bounds().Size()

	n, err := writeAtomic(dst, out, format, opts)
	if err != nil {
		return res, err
	}
	res.Bytes = n
	res.Duration = time.Since(start)

	zerolog.Ctx(ctx).Debug().
		Str("src", src).
		Str("dst", dst).
		Str("op", res.Op).
		Stringer("from", res.From).
		Stringer("to", res.To).
		Dur("took", res.Duration).
		Msg("processed image")

	return res, nil
}

func writeAtomic(dst string, img image.Image, format Format, opts Options) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, errors.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return 0, errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, img, format, opts); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, errors.Errorf("stat temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath) // Clean up temp file
		return 0, errors.Errorf("renaming temp file: %w", err)
	}
	return info.Size(), nil
}

// 📦 BatchRequest processes every file under Root matching Glob
type BatchRequest struct {
	Root    string
	Glob    string
	OutDir  string
	Op      Op
	Options Options

	// Concurrency caps parallel files. Zero or less means 8.
	Concurrency int
}

const defaultConcurrency = 8

// Batch expands the glob and processes the matches concurrently. Each output
// keeps its path relative to Root under OutDir. The first failure cancels the
// rest. Results are sorted by source path.
func Batch(ctx context.Context, req BatchRequest) ([]Result, error) {
	if req.Op == nil {
		return nil, errors.Errorf("batch: no operation")
	}
	if req.OutDir == "" {
		return nil, errors.Errorf("batch: no output directory")
	}
	if !doublestar.ValidatePattern(req.Glob) {
		return nil, errors.Errorf("batch: invalid glob %q", req.Glob)
	}
	root := req.Root
	if root == "" {
		root = "."
	}

	matches, err := doublestar.Glob(os.DirFS(root), req.Glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("expanding glob %q: %w", req.Glob, err)
	}
	sort.Strings(matches)

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("root", root).Str("glob", req.Glob).Int("matches", len(matches)).Msg("starting batch")

	results := make([]Result, len(matches))
	if len(matches) == 0 {
		return results, nil
	}

	limit := req.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, rel := range matches {
		i, rel := i, rel
		src := filepath.Join(root, filepath.FromSlash(rel))
		dst := filepath.Join(req.OutDir, filepath.FromSlash(rel))
		g.Go(func() error {
			res, err := ProcessFile(gctx, src, dst, req.Op, req.Options)
			if err != nil {
				return errors.Errorf("processing %s: %w", rel, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug().Int("processed", len(results)).Msg("batch complete")
	return results, nil
}
