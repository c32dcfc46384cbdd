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
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(symbol, kind, target, status string) string {
	return strings.TrimSpace(fmt.Sprintf("%s %-*s %-*s %s", symbol, kindWidth, kind, targetWidth, target, status))
}

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_action",
			op: func(t *testing.T, logger *Logger) {
				logger.LogAction(context.Background(), ActionOperation{
					Index:  1,
					Kind:   "search_and_replace",
					Target: "specfile",
					Status: ActionApplied,
				})
			},
			wantLogs: []string{
				row("✓", "search_and_replace", "specfile", "applied"),
			},
		},
		{
			name: "log_config_operation",
			op: func(t *testing.T, logger *Logger) {
				logger.StartConfig(context.Background(), ConfigOperation{
					Package: "bash",
					Branch:  "r9",
					Config:  "main.yml",
				})
			},
			wantLogs: []string{
				"[patching bash]",
				"◆ main.yml • r9",
			},
		},
		{
			name: "log_config_operation_without_branch",
			op: func(t *testing.T, logger *Logger) {
				logger.StartConfig(context.Background(), ConfigOperation{
					Package: "bash",
					Config:  "bash.yml",
				})
			},
			wantLogs: []string{
				"[patching bash]",
				"◆ bash.yml • -",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("patching package")
			},
			wantLogs: []string{
				"srpmproc • patching package",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.New(zerolog.NewTestWriter(t)))

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.Nop())

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "logger from context should be the same instance")

	fallback := FromContext(context.Background())
	require.NotNil(t, fallback, "missing logger should fall back to a discarding logger")
	assert.NotPanics(t, func() { fallback.Info("dropped") })
}

func TestActionFormatting(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name string
		op   ActionOperation
		want string
	}{
		{
			name: "applied_action",
			op:   ActionOperation{Kind: "delete_line", Target: "BuildRequires: foo", Status: ActionApplied},
			want: row("✓", "delete_line", "BuildRequires: foo", "applied"),
		},
		{
			name: "skipped_action",
			op:   ActionOperation{Kind: "append_release", Target: "specfile", Status: ActionSkipped},
			want: row("•", "append_release", "specfile", "skipped"),
		},
		{
			name: "failed_action_with_detail",
			op:   ActionOperation{Kind: "apply_patch", Target: "fix.patch", Status: ActionFailed, Detail: "exit 1"},
			want: strings.TrimSpace(fmt.Sprintf("✗ %-*s %-*s %-*sexit 1", kindWidth, "apply_patch", targetWidth, "fix.patch", statusWidth, "failed")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.Nop())

			logger.LogAction(context.Background(), tt.op)

			assert.Equal(t, tt.want, strings.TrimSpace(buf.String()))
		})
	}
}

func TestEndConfig_ResetsOperations(t *testing.T) {
	logger := New(io.Discard, zerolog.Nop())
	ctx := context.Background()

	logger.StartConfig(ctx, ConfigOperation{Package: "bash", Config: "main.yml"})
	logger.LogAction(ctx, ActionOperation{Index: 1, Kind: "delete_line", Status: ActionApplied})
	logger.LogAction(ctx, ActionOperation{Index: 2, Kind: "append_release", Status: ActionSkipped})
	require.Len(t, logger.Operations(), 2)

	logger.EndConfig(ctx)
	assert.Empty(t, logger.Operations())
}
