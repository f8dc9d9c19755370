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
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/fosol/cmd/fosol/opts"
	"github.com/walteh/fosol/pkg/server"
	"gitlab.com/tozd/go/errors"
)

// NewServeCmd creates a new serve command
func NewServeCmd(o *opts.RootOpts) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve templates, uri parsing and image fitting over HTTP",
		Long: `Serve loads the config file, watches it for changes and serves:

  GET  /healthz
  GET  /metrics
  GET  /render/{name}?key=value
  GET  /uri?u=<uri>
  POST /images/fit?w=&h=&format=

It stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = zerolog.Ctx(ctx).With().Str("command", "serve").Logger().WithContext(ctx)

			watcher, err := o.Watcher(ctx)
			if err != nil {
				return err
			}
			if listen != "" {
				watcher.Current().Server.Listen = listen
			}

			srv, err := server.New(ctx, watcher)
			if err != nil {
				return errors.Errorf("creating server: %w", err)
			}

			if err := watcher.Start(ctx); err != nil {
				return errors.Errorf("watching config: %w", err)
			}
			defer watcher.Stop()

			o.ConsoleOr(cmd.OutOrStdout()).Infof("serving on %s", watcher.Current().Server.Listen)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override the configured listen address")
	return cmd
}
