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

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	actionIndent = 4  // spaces to indent action entries
	kindWidth    = 20 // width for the action kind
	targetWidth  = 35 // width for the action target
	statusWidth  = 12 // width for status text
)

// 🚦 ActionStatus is the outcome of one queued action
type ActionStatus int

const (
	ActionApplied ActionStatus = iota
	ActionSkipped
	ActionFailed
)

func (s ActionStatus) String() string {
	switch s {
	case ActionApplied:
		return "applied"
	case ActionSkipped:
		return "skipped"
	case ActionFailed:
		return "failed"
	}
	return "unknown"
}

// 🎯 ActionOperation represents one executed action for logging
type ActionOperation struct {
	Index  int          // position in the queue, 1-based
	Kind   string       // action kind (search_and_replace, add_file, ...)
	Target string       // file or find text the action touched
	Status ActionStatus // outcome
	Detail string       // optional free-form note
}

// 📦 ConfigOperation represents one patch config applied to a package
type ConfigOperation struct {
	Package string // package name
	Branch  string // destination branch, may be empty
	Config  string // patch config file
}

// 🎯 Logger handles operator-facing console output mirrored into zerolog
type Logger struct {
	zlog       zerolog.Logger
	console    io.Writer
	mu         sync.Mutex
	currentOp  *ConfigOperation
	operations []ActionOperation
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

var discard = New(io.Discard, zerolog.Nop())

// 🎯 FromContext gets the logger from context, or a logger that drops everything
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return discard
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatActionOperation formats an action outcome for display
func (l *Logger) formatActionOperation(op ActionOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch op.Status {
	case ActionApplied:
		symbol = '✓'
		symbolColor = color.FgGreen
	case ActionSkipped:
		symbol = '•'
		symbolColor = color.FgYellow
	default:
		symbol = '✗'
		symbolColor = color.FgRed
	}

	line := fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", actionIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		color.New(color.FgCyan).Sprint(fmt.Sprintf("%-*s", kindWidth, op.Kind)),
		fmt.Sprintf("%-*s", targetWidth, op.Target),
		fmt.Sprintf("%-*s", statusWidth, op.Status))
	if op.Detail != "" {
		line += color.New(color.Faint).Sprint(op.Detail)
	}
	return line
}

// 📝 LogAction logs the outcome of one action
func (l *Logger) LogAction(ctx context.Context, op ActionOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.operations = append(l.operations, op)

	fmt.Fprintln(l.console, l.formatActionOperation(op))

	ev := l.zlog.Info()
	if op.Status == ActionFailed {
		ev = l.zlog.Error()
	}
	ev.Int("index", op.Index).
		Str("kind", op.Kind).
		Str("target", op.Target).
		Str("status", op.Status.String()).
		Str("detail", op.Detail).
		Msg("action")
}

// 📝 StartConfig starts applying a patch config
func (l *Logger) StartConfig(ctx context.Context, op ConfigOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.operations = nil

	fmt.Fprintf(l.console, "[patching %s]\n",
		color.New(color.FgCyan).Sprint(op.Package))

	branch := op.Branch
	if branch == "" {
		branch = "-"
	}
	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Config),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(branch))

	l.zlog.Info().
		Str("package", op.Package).
		Str("branch", op.Branch).
		Str("config", op.Config).
		Msg("applying patch config")
}

// 📝 EndConfig ends the current patch config and logs a summary
func (l *Logger) EndConfig(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	applied, skipped, failed := 0, 0, 0
	for _, op := range l.operations {
		switch op.Status {
		case ActionApplied:
			applied++
		case ActionSkipped:
			skipped++
		default:
			failed++
		}
	}

	l.zlog.Info().
		Str("config", l.currentOp.Config).
		Int("applied", applied).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("patch config complete")

	l.currentOp = nil
	l.operations = nil
}

// 📝 Operations returns the actions logged since the last StartConfig
func (l *Logger) Operations() []ActionOperation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActionOperation, len(l.operations))
	copy(out, l.operations)
	return out
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
	name := color.New(color.Bold, color.FgCyan).Sprint("srpmproc")
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
