package text

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/srpmproc/pkg/fault"
)

func TestLineProcessor_Process(t *testing.T) {
	tests := []struct {
		name         string
		lines        []string
		rule         ReplacementRule
		want         []string
		wantModified bool
		wantCount    int
	}{
		{
			name:  "exact_single_line_replace",
			lines: []string{"Name: foo", "Release:  1%{?dist}", "License: MIT"},
			rule: ReplacementRule{
				Target: SpecTarget, Find: []string{"1%{?dist}"}, Replace: []string{"2%{?dist}"}, Count: 1,
			},
			want:         []string{"Name: foo", "Release:  2%{?dist}", "License: MIT"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "count_bounds_matches",
			lines: []string{"a foo", "b foo", "c foo"},
			rule:  ReplacementRule{Find: []string{"foo"}, Replace: []string{"bar"}, Count: 2},
			want:  []string{"a bar", "b bar", "c foo"},
			wantModified: true,
			wantCount:    2,
		},
		{
			name:  "unbounded_replaces_first_occurrence_per_line",
			lines: []string{"foo foo", "foo"},
			rule:  ReplacementRule{Find: []string{"foo"}, Replace: []string{"bar"}, Count: Unbounded},
			want:  []string{"bar foo", "bar"},
			wantModified: true,
			wantCount:    2,
		},
		{
			name:  "whole_line_delete",
			lines: []string{"Name: foo", "BuildRequires: foo", "BuildRequires: bar", "License: MIT"},
			rule:  ReplacementRule{Target: SpecTarget, Find: []string{"BuildRequires: foo"}, Count: Unbounded},
			want:  []string{"Name: foo", "BuildRequires: bar", "License: MIT"},
			wantModified: true,
		},
		{
			name:  "empty_replace_removes_substring_only",
			lines: []string{"%build", "make %{?_smp_mflags}"},
			rule:  ReplacementRule{Target: SpecTarget, Find: []string{"make"}, Count: Unbounded},
			want:  []string{"%build", " %{?_smp_mflags}"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "empty_replace_mixes_delete_and_substring",
			lines: []string{"BuildRequires: foo", "BuildRequires: foo-devel"},
			rule:  ReplacementRule{Find: []string{"BuildRequires: foo"}, Count: Unbounded},
			want:  []string{"-devel"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "empty_replace_substring_respects_count",
			lines: []string{"a make", "b make"},
			rule:  ReplacementRule{Find: []string{"make"}, Count: 1},
			want:  []string{"a ", "b make"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "delete_consecutive_lines",
			lines: []string{"x", "x", "y"},
			rule:  ReplacementRule{Find: []string{"x"}, Count: Unbounded},
			want:  []string{"y"},
			wantModified: true,
		},
		{
			name:  "substring_replace_multiline_indents_continuation",
			lines: []string{"    make %{?_smp_mflags}"},
			rule:  ReplacementRule{Find: []string{"make %{?_smp_mflags}"}, Replace: []string{"make one", "make two"}, Count: Unbounded},
			want:  []string{"    make one", "    make two"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name: "block_replace_reindents",
			lines: []string{
				"%build",
				"    ./configure",
				"    make",
				"%install",
			},
			rule: ReplacementRule{
				Find:    []string{"./configure", "make"},
				Replace: []string{"./configure --with-foo", "make V=1"},
				Count:   Unbounded,
			},
			want: []string{
				"%build",
				"    ./configure --with-foo",
				"    make V=1",
				"%install",
			},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "block_delete",
			lines: []string{"a", "  b", "  c", "d"},
			rule:  ReplacementRule{Find: []string{"b", "c"}, Count: Unbounded},
			want:  []string{"a", "d"},
			wantModified: true,
		},
		{
			name:  "block_with_regex_flag_compares_literally",
			lines: []string{"a", "  x.*", "  (y", "d"},
			rule:  ReplacementRule{Find: []string{"x.*", "(y"}, Replace: []string{"z"}, Count: Unbounded, Regex: true},
			want:  []string{"a", "  z", "d"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "block_partial_match_untouched",
			lines: []string{"a", "b", "x"},
			rule:  ReplacementRule{Find: []string{"b", "c"}, Replace: []string{"z"}, Count: Unbounded},
			want:  []string{"a", "b", "x"},
		},
		{
			name:  "spec_comments_skipped",
			lines: []string{"#BuildRequires: foo", "BuildRequires: foo"},
			rule:  ReplacementRule{Target: SpecTarget, Find: []string{"foo"}, Replace: []string{"bar"}, Count: Unbounded},
			want:  []string{"#BuildRequires: foo", "BuildRequires: bar"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "spec_comment_targeted_explicitly",
			lines: []string{"#%global with_foo 0", "BuildRequires: foo"},
			rule:  ReplacementRule{Target: SpecTarget, Find: []string{"#%global with_foo 0"}, Replace: []string{"%global with_foo 1"}, Count: 1},
			want:  []string{"%global with_foo 1", "BuildRequires: foo"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "comments_not_skipped_outside_specfile",
			lines: []string{"# foo"},
			rule:  ReplacementRule{Target: "foo.conf", Find: []string{"foo"}, Replace: []string{"bar"}, Count: Unbounded},
			want:  []string{"# bar"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "changelog_marker_never_touched",
			lines: []string{"%changelog", "* Mon Jan 01 2024 changelog person"},
			rule:  ReplacementRule{Target: SpecTarget, Find: []string{"changelog"}, Replace: []string{"log"}, Count: Unbounded},
			want:  []string{"%changelog", "* Mon Jan 01 2024 log person"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "regex_with_backreference",
			lines: []string{"Version: 1.2.3", "Release: 4%{?dist}"},
			rule:  ReplacementRule{Find: []string{`^Release: (\d+)`}, Replace: []string{`Release: \1.rocky`}, Count: 1, Regex: true},
			want:  []string{"Version: 1.2.3", "Release: 4.rocky%{?dist}"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "regex_bounded_replaces_first_match_only",
			lines: []string{"aaa"},
			rule:  ReplacementRule{Find: []string{"a"}, Replace: []string{"b"}, Count: 1, Regex: true},
			want:  []string{"baa"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "regex_unbounded_replaces_all",
			lines: []string{"aaa", "xa"},
			rule:  ReplacementRule{Find: []string{"a"}, Replace: []string{"b"}, Count: Unbounded, Regex: true},
			want:  []string{"bbb", "xb"},
			wantModified: true,
			wantCount:    2,
		},
		{
			name:  "regex_literal_dollar_kept",
			lines: []string{"price 5"},
			rule:  ReplacementRule{Find: []string{`(\d+)`}, Replace: []string{`$\1`}, Count: 1, Regex: true},
			want:  []string{"price $5"},
			wantModified: true,
			wantCount:    1,
		},
		{
			name:  "no_match",
			lines: []string{"Name: foo"},
			rule:  ReplacementRule{Find: []string{"missing"}, Replace: []string{"x"}, Count: Unbounded},
			want:  []string{"Name: foo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
			original := append([]string(nil), tt.lines...)

			result, err := NewLineProcessor().Process(ctx, tt.lines, tt.rule)
			require.NoError(t, err)

			assert.Equal(t, tt.want, result.ModifiedLines)
			assert.Equal(t, tt.wantModified, result.WasModified)
			assert.Equal(t, tt.wantCount, result.ReplacementCount)
			assert.Equal(t, original, tt.lines, "input must not be mutated")
		})
	}
}

func TestLineProcessor_ValidateRule(t *testing.T) {
	p := NewLineProcessor()

	tests := []struct {
		name    string
		rule    ReplacementRule
		wantErr string
	}{
		{name: "valid_exact", rule: ReplacementRule{Find: []string{"x"}, Count: Unbounded}},
		{name: "missing_find", rule: ReplacementRule{Count: 1}, wantErr: "find is required"},
		{name: "bad_count", rule: ReplacementRule{Find: []string{"x"}, Count: -5}, wantErr: "count must be"},
		{name: "bad_regex", rule: ReplacementRule{Find: []string{"("}, Regex: true}, wantErr: "compiling"},
		{name: "multiline_regex_is_block_match", rule: ReplacementRule{Find: []string{"a(", "b"}, Regex: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateRule(tt.rule)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLineProcessor_ProcessFile(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())

	t.Run("writes_on_success", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "foo.spec")
		require.NoError(t, os.WriteFile(path, []byte("Release:  1%{?dist}\n"), 0o644))

		_, err := NewLineProcessor().ProcessFile(ctx, path, ReplacementRule{
			Target: SpecTarget, Find: []string{"1%{?dist}"}, Replace: []string{"2%{?dist}"}, Count: 1,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Release:  2%{?dist}\n", string(data))
	})

	t.Run("unmatched_rule_leaves_file_untouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "foo.spec")
		original := "Name: foo\r\nRelease: 1\n"
		require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

		_, err := NewLineProcessor().ProcessFile(ctx, path, ReplacementRule{
			Target: SpecTarget, Find: []string{"BuildRequires: nope"}, Count: Unbounded,
		})
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.NotApplied))
		assert.Contains(t, err.Error(), "BuildRequires: nope")
		assert.Contains(t, err.Error(), "foo.spec")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, original, string(data))
	})
}

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`\1`, `${1}`},
		{`\g<2>x`, `${2}x`},
		{`\g<name>`, `${name}`},
		{`a$b`, `a$$b`},
		{`x\ny`, "x\ny"},
		{`\\1`, `\1`},
		{`\12`, `${12}`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandTemplate(tt.in))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a"}, SplitLines("a"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb"))
}
