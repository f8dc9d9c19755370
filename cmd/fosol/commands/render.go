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
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/fosol/cmd/fosol/opts"
	"github.com/walteh/fosol/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// NewRenderCmd creates a new render command
func NewRenderCmd(o *opts.RootOpts) *cobra.Command {
	var (
		sets         []string
		open, close  string
		allowMissing bool
	)

	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a text template to stdout",
		Long: `Render fills the {key} and {key=default} tokens of a template.
Values come from --set key=value. A doubled boundary ({{ or }}) is a literal.
The template is read from the file argument, or stdin when it is "-" or missing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "render").Logger().WithContext(cmd.Context())

			pairs, err := opts.ParsePairs(sets)
			if err != nil {
				return errors.Errorf("parsing --set: %w", err)
			}
			data := text.StringMap{}
			for _, p := range pairs {
				data[p[0]] = p[1]
			}

			parser, err := text.NewParser(open, close)
			if err != nil {
				return errors.Errorf("creating parser: %w", err)
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Errorf("opening template: %w", err)
				}
				defer f.Close()
				in = f
			}

			res, err := text.NewRenderer(parser, allowMissing).Render(ctx, in, data)
			if err != nil {
				return err
			}

			if _, err := cmd.OutOrStdout().Write(res.RenderedContent); err != nil {
				return errors.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "template value as key=value (repeatable)")
	cmd.Flags().StringVar(&open, "open", text.DefaultOpen, "opening token boundary")
	cmd.Flags().StringVar(&close, "close", text.DefaultClose, "closing token boundary")
	cmd.Flags().BoolVar(&allowMissing, "allow-missing", false, "render keys without a value or default as empty")

	return cmd
}
