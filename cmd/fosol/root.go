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

package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/walteh/fosol/cmd/fosol/commands"
	"github.com/walteh/fosol/cmd/fosol/opts"
	"github.com/walteh/fosol/pkg/log"
)

const envPrefix = "FOSOL"

// newRootCmd wires the command tree. Root flags may also come from FOSOL_* variables.
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "fosol",
		Short:         "Text templates, URI helpers, image processing and an HTTP service for them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			o.ConfigFile = v.GetString("config")
			o.Debug = v.GetBool("debug")

			logger := setupLogging(o.Debug)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			o.Console = log.NewWithZerolog(cmd.OutOrStdout(), logger)
			return nil
		},
	}

	addRootFlags(cmd, v)

	cmd.AddCommand(
		commands.NewRenderCmd(o),
		commands.NewURICmd(o),
		commands.NewImageCmd(o),
		commands.NewServeCmd(o),
		newVersionCmd(),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.PersistentFlags().StringP("config", "c", "fosol.yaml", "config file path")
	cmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
}

// setupLogging configures zerolog based on flags
func setupLogging(debug bool) zerolog.Logger {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}
