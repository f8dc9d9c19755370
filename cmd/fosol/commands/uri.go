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
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/fosol/cmd/fosol/opts"
	"github.com/walteh/fosol/pkg/uri"
	"gitlab.com/tozd/go/errors"
)

// NewURICmd creates the uri command group
func NewURICmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uri",
		Short: "Parse, build and match URIs",
	}

	cmd.AddCommand(newURIParseCmd(), newURIBuildCmd(), newURIMatchCmd())
	return cmd
}

func newURIParseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse <uri>",
		Short: "Show the components of a URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := uri.Parse(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			}

			port := ""
			if b.Port != 0 {
				port = strconv.Itoa(b.Port)
			}
			data := pterm.TableData{
				{"component", "value"},
				{"scheme", b.Scheme},
				{"user", b.User},
				{"host", b.Host},
				{"port", port},
				{"effective port", strconv.Itoa(b.EffectivePort())},
				{"path", b.Path},
				{"fragment", b.Fragment},
			}
			for _, p := range b.Query {
				data = append(data, []string{"query " + p.Key, p.Value})
			}
			data = append(data, []string{"normalized", b.String()})

			if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render(); err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the components as JSON")
	return cmd
}

func newURIBuildCmd() *cobra.Command {
	var (
		scheme, host, path, fragment string
		port                         int
		params                       []string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compose a URI from its components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := opts.ParsePairs(params)
			if err != nil {
				return errors.Errorf("parsing --param: %w", err)
			}

			b := uri.NewBuilder().WithScheme(scheme)
			if host != "" {
				b.WithHost(host)
			}
			if port != 0 {
				b.WithPort(port)
			}
			if path != "" {
				b.WithPath(path)
			}
			for _, p := range pairs {
				b.AddParam(p[0], p[1])
			}
			b.WithFragment(fragment)

			_, err = fmt.Fprintln(cmd.OutOrStdout(), b.String())
			return err
		},
	}

	cmd.Flags().StringVar(&scheme, "scheme", "https", "scheme")
	cmd.Flags().StringVar(&host, "host", "", "host")
	cmd.Flags().IntVar(&port, "port", 0, "port, omitted when it is the scheme default")
	cmd.Flags().StringVar(&path, "path", "", "path, unescaped")
	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&fragment, "fragment", "", "fragment")
	return cmd
}

func newURIMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <pattern> <uri>",
		Short: "Exit 0 if the URI matches the wildcard pattern, 1 otherwise",
		Long: `Match tests a URI against a case-insensitive wildcard pattern.
"*" matches within one path segment, "**" across segments and "?" one character.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := uri.CompilePattern(args[0])
			if err != nil {
				return err
			}
			if !p.Match(args[1]) {
				fmt.Fprintln(cmd.OutOrStdout(), "no match")
				return &opts.ExitError{Code: 1}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "match")
			return nil
		},
	}
}
