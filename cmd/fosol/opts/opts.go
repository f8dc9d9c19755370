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

package opts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/fosol/pkg/config"
	"github.com/walteh/fosol/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string
	Debug      bool

	// Console is set before any subcommand runs
	Console *log.Logger
}

// Watcher loads ConfigFile and keeps it current once started.
func (o *RootOpts) Watcher(ctx context.Context) (*config.Watcher, error) {
	w, err := config.NewWatcher(ctx, o.ConfigFile)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}
	return w, nil
}

// ConsoleOr returns Console, or a logger writing to w when none was set up.
func (o *RootOpts) ConsoleOr(w io.Writer) *log.Logger {
	if o.Console != nil {
		return o.Console
	}
	return log.NewWithZerolog(w, zerolog.Nop())
}

// ExitError ends the process with Code without printing usage.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ParsePairs splits "k=v" arguments. A pair without '=' is an error.
func ParsePairs(pairs []string) ([][2]string, error) {
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.Errorf("expected key=value, got %q", p)
		}
		out = append(out, [2]string{strings.TrimSpace(k), v})
	}
	return out, nil
}
