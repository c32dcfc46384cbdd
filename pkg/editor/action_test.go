package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/rpmspec"
	"github.com/walteh/srpmproc/pkg/text"
)

func TestNewAction_Validation(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		raw      map[string]any
		wantKind fault.Kind
	}{
		{
			name:     "missing_required_key",
			kind:     KindSearchAndReplace,
			raw:      map[string]any{"target": "specfile", "find": "a"},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "unexpected_key",
			kind:     KindApplyScript,
			raw:      map[string]any{"script": "x.sh", "shell": "zsh"},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "wrong_type",
			kind:     KindSearchAndReplace,
			raw:      map[string]any{"target": "specfile", "find": "a", "replace": "b", "count": "1"},
			wantKind: fault.ConfigType,
		},
		{
			name:     "bool_is_not_int",
			kind:     KindSearchAndReplace,
			raw:      map[string]any{"target": "specfile", "find": "a", "replace": "b", "count": true},
			wantKind: fault.ConfigType,
		},
		{
			name:     "empty_string",
			kind:     KindApplyPatch,
			raw:      map[string]any{"filename": ""},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "null_value",
			kind:     KindDeleteFile,
			raw:      map[string]any{"filename": nil},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "empty_list",
			kind:     KindDeleteLine,
			raw:      map[string]any{"target": "specfile", "lines": []any{}},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "non_string_list_item",
			kind:     KindSpecChangelog,
			raw:      map[string]any{"name": "T", "email": "t@e.com", "line": []any{"ok", 3}},
			wantKind: fault.ConfigType,
		},
		{
			name:     "add_file_bad_type",
			kind:     KindAddFile,
			raw:      map[string]any{"type": "binary", "name": "x", "number": "latest"},
			wantKind: fault.ConfigType,
		},
		{
			name:     "add_file_integer_number_is_type_error",
			kind:     KindAddFile,
			raw:      map[string]any{"type": "source", "name": "x", "number": 3},
			wantKind: fault.ConfigType,
		},
		{
			name:     "add_file_bad_number",
			kind:     KindAddFile,
			raw:      map[string]any{"type": "source", "name": "x", "number": "next"},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "add_file_name_with_directory",
			kind:     KindAddFile,
			raw:      map[string]any{"type": "source", "name": "../x", "number": "latest"},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "invalid_regex",
			kind:     KindSearchAndReplace,
			raw:      map[string]any{"target": "specfile", "find": "(", "replace": "b", "regex": true},
			wantKind: fault.ConfigValue,
		},
		{
			name:     "unknown_kind",
			kind:     Kind("rename_file"),
			raw:      map[string]any{"filename": "x"},
			wantKind: fault.ConfigValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAction(tt.kind, tt.raw)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, fault.KindOf(err), "unexpected error: %v", err)
		})
	}
}

func TestNewAction_StampsActionName(t *testing.T) {
	_, err := NewAction(KindApplyPatch, map[string]any{})
	require.Error(t, err)

	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, string(KindApplyPatch), f.Action)
	assert.Equal(t, "filename", f.Target)
}

func TestNewAction_Defaults(t *testing.T) {
	t.Run("search_and_replace", func(t *testing.T) {
		a, err := NewAction(KindSearchAndReplace, map[string]any{
			"target": "specfile", "find": "a\nb", "replace": "c",
		})
		require.NoError(t, err)

		sr := a.(*SearchAndReplace)
		assert.Equal(t, text.Unbounded, sr.Rule.Count)
		assert.False(t, sr.Rule.Regex)
		assert.Equal(t, []string{"a", "b"}, sr.Rule.Find)
		assert.Equal(t, []string{"c"}, sr.Rule.Replace)
	})

	t.Run("add_file", func(t *testing.T) {
		a, err := NewAction(KindAddFile, map[string]any{
			"type": "patch", "name": "fix.patch", "number": "latest",
		})
		require.NoError(t, err)

		af := a.(*AddFile)
		assert.Equal(t, rpmspec.Patch, af.Directive)
		assert.Equal(t, rpmspec.Latest, af.Number)
		assert.True(t, af.AddToSpec, "add_to_spec defaults to true")
		assert.False(t, af.Upload, "upload defaults to false")
	})

	t.Run("false_is_not_empty", func(t *testing.T) {
		a, err := NewAction(KindAppendRelease, map[string]any{"suffix": ".1", "enabled": false})
		require.NoError(t, err)
		assert.False(t, a.(*AppendRelease).Enabled)
	})

	t.Run("zero_count_is_allowed", func(t *testing.T) {
		_, err := NewAction(KindSearchAndReplace, map[string]any{
			"target": "specfile", "find": "a", "replace": "b", "count": 0,
		})
		require.NoError(t, err)
	})
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	assert.Len(t, kinds, 9)
	assert.True(t, IsKind("spec_changelog"))
	assert.False(t, IsKind("SpecChangelog"))
}
