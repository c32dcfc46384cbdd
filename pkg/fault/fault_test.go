package fault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil_error", err: nil, want: 0},
		{name: "plain_error", err: errors.New("boom"), want: UnexpectedExitCode},
		{name: "not_applied", err: New(NotApplied, "no changes"), want: 9600},
		{name: "config_value", err: New(ConfigValue, "missing key"), want: 9601},
		{name: "config_type", err: New(ConfigType, "wrong type"), want: 9602},
		{name: "too_many_files", err: New(TooManyFiles, "ambiguous"), want: 9603},
		{name: "git_init", err: New(GitInit, "not a repo"), want: 9303},
		{name: "missing_value", err: New(MissingValue, "missing"), want: 9003},
		{
			name: "wrapped_fault",
			err:  errors.Errorf("running config: %w", New(GitApply, "apply failed")),
			want: 9305,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := New(GitApply, "patch did not apply",
		WithAction("apply_patch"),
		WithTarget("fix.patch"),
		WithStderr("error: corrupt patch at line 3\n"),
	)

	msg := err.Error()
	assert.Contains(t, msg, "apply_patch: patch did not apply")
	assert.Contains(t, msg, "[fix.patch]")
	assert.Contains(t, msg, "corrupt patch at line 3")
}

func TestWithActionName(t *testing.T) {
	t.Run("stamps_missing_action", func(t *testing.T) {
		err := WithActionName(New(NotFound, "gone"), "delete_file")
		fe, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, "delete_file", fe.Action)
		assert.Equal(t, NotFound, fe.Kind)
	})

	t.Run("keeps_existing_action", func(t *testing.T) {
		err := WithActionName(New(NotFound, "gone", WithAction("add_file")), "delete_file")
		fe, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, "add_file", fe.Action)
	})

	t.Run("wraps_plain_errors", func(t *testing.T) {
		err := WithActionName(errors.New("disk full"), "replace_file")
		assert.True(t, Is(err, General))
		assert.Equal(t, 9000, CodeOf(err))
	})
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "not applied", NotApplied.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Equal(t, 9000, Kind(99).Code())
}
