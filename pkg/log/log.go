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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent = 4  // spaces to indent file entries
	nameWidth  = 35 // Base width for filename
	opWidth    = 22 // Width for the operation
	sizeWidth  = 20 // Width for the size change
)

// 🖼️ ImageOperation is one processed image
type ImageOperation struct {
	Source   string        // Source path
	Dest     string        // Output path
	Op       string        // Operation, e.g. "fit 800x600"
	From     string        // Source dimensions
	To       string        // Output dimensions
	Bytes    int64         // Output size in bytes
	Duration time.Duration // Time spent
	Err      error         // Failure, if any
}

// 📦 BatchOperation is a group of image operations sharing a glob
type BatchOperation struct {
	Root   string // Source root
	Glob   string // Source pattern
	OutDir string // Output directory
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog       zerolog.Logger
	console    io.Writer
	mu         sync.Mutex
	currentOp  *BatchOperation
	operations []ImageOperation
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🏭 NewWithZerolog uses zlog for the structured side instead of stderr
func NewWithZerolog(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{zlog: zlog, console: console}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatImageOperation formats an image operation for display
func (l *Logger) formatImageOperation(op ImageOperation) string {
	symbol, symbolColor := '✓', color.FgGreen
	status := fmt.Sprintf("%s → %s", op.From, op.To)
	if op.Err != nil {
		symbol, symbolColor = '✗', color.FgRed
		status = op.Err.Error()
	} else if op.From == op.To {
		symbol, symbolColor = '•', color.FgCyan
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Source),
		color.New(color.FgBlue).Sprint(fmt.Sprintf("%-*s", opWidth, op.Op)),
		fmt.Sprintf("%-*s", sizeWidth, status))
}

// 📝 LogImageOperation logs an image operation
func (l *Logger) LogImageOperation(ctx context.Context, op ImageOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.operations = append(l.operations, op)

	fmt.Fprintln(l.console, l.formatImageOperation(op))

	ev := l.zlog.Info()
	if op.Err != nil {
		ev = l.zlog.Error().Err(op.Err)
	}
	ev.Str("src", op.Source).
		Str("dst", op.Dest).
		Str("op", op.Op).
		Str("from", op.From).
		Str("to", op.To).
		Int64("bytes", op.Bytes).
		Dur("took", op.Duration).
		Msg("image operation")
}

// 📝 StartBatch starts a new batch of image operations
func (l *Logger) StartBatch(ctx context.Context, op BatchOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.operations = nil

	fmt.Fprintf(l.console, "[writing %s]\n",
		color.New(color.FgCyan).Sprint(op.OutDir))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Root),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(op.Glob))

	l.zlog.Info().
		Str("root", op.Root).
		Str("glob", op.Glob).
		Str("out_dir", op.OutDir).
		Msg("starting batch")
}

// 📝 EndBatch ends the current batch and returns how many images failed
func (l *Logger) EndBatch(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return 0
	}

	failed := 0
	for _, op := range l.operations {
		if op.Err != nil {
			failed++
		}
	}

	l.zlog.Info().
		Str("glob", l.currentOp.Glob).
		Int("images", len(l.operations)).
		Int("failed", failed).
		Msg("batch complete")

	l.currentOp = nil
	l.operations = nil
	return failed
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("fosol")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
