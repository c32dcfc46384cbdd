package rpmspec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/srpmproc/pkg/fault"
)

func TestParseEVR(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		want    EVR
		wantStr string
		wantErr bool
	}{
		{
			name:    "version_release",
			lines:   []string{"Name: foo", "Version:   1.2.3", "Release: 4.el9"},
			want:    EVR{Version: "1.2.3", Release: "4.el9"},
			wantStr: "1.2.3-4.el9",
		},
		{
			name:    "with_epoch",
			lines:   []string{"Epoch: 2", "Version: 1.0", "Release: 1"},
			want:    EVR{Epoch: "2", Version: "1.0", Release: "1"},
			wantStr: "2:1.0-1",
		},
		{
			name:    "first_tag_wins",
			lines:   []string{"Version: 1.0", "Release: 1", "Version: 9.9"},
			want:    EVR{Version: "1.0", Release: "1"},
			wantStr: "1.0-1",
		},
		{
			name:    "missing_release",
			lines:   []string{"Version: 1.0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEVR(tt.lines)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, fault.Is(err, fault.RpmInfo))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}

func TestChangelogEntry_Render(t *testing.T) {
	entry := ChangelogEntry{
		Date:  time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC),
		Name:  "Jane Packager",
		Email: "jane@example.org",
		EVR:   EVR{Version: "1.0", Release: "1.el9"},
		Lines: []string{
			"Rebuilt for ABI change",
			strings.Repeat("word ", 30),
		},
	}

	got := entry.Render()
	require.GreaterOrEqual(t, len(got), 4)
	assert.Equal(t, "* Sun Oct 18 2026 Jane Packager <jane@example.org> - 1.0-1.el9", got[0])
	assert.Equal(t, "- Rebuilt for ABI change", got[1])
	assert.True(t, strings.HasPrefix(got[2], "- word"))
	assert.True(t, strings.HasPrefix(got[3], "  word"))
	assert.Equal(t, "", got[len(got)-1])

	for _, line := range got {
		assert.LessOrEqual(t, len(line), ChangelogWidth, "line %q is too long", line)
	}
}

func TestChangelogEntry_RenderBreaksLongWords(t *testing.T) {
	url := "https://example.org/" + strings.Repeat("a", 90)

	tests := []struct {
		name      string
		line      string
		wantLines int
	}{
		{name: "bare_long_word", line: url, wantLines: 2},
		{name: "long_word_after_text", line: "see " + url, wantLines: 3},
		{name: "word_of_exact_width", line: strings.Repeat("b", ChangelogWidth-2), wantLines: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := ChangelogEntry{
				Date:  time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC),
				Name:  "A",
				Email: "a@b.c",
				EVR:   EVR{Version: "1", Release: "1"},
				Lines: []string{tt.line},
			}

			got := entry.Render()
			body := got[1 : len(got)-1]
			require.Len(t, body, tt.wantLines)
			assert.True(t, strings.HasPrefix(body[0], "- "))

			var joined strings.Builder
			for i, line := range body {
				assert.LessOrEqual(t, len(line), ChangelogWidth, "line %q is too long", line)
				if i > 0 {
					assert.True(t, strings.HasPrefix(line, "  "), "continuation %q is not indented", line)
				}
				joined.WriteString(line[2:])
			}
			assert.Equal(t, strings.ReplaceAll(tt.line, " ", ""), strings.ReplaceAll(joined.String(), " ", ""))
		})
	}
}

func TestChangelogEntry_HeaderKeepsBracketedEmail(t *testing.T) {
	entry := ChangelogEntry{
		Date:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Name:  "A",
		Email: "<a@b.c>",
		EVR:   EVR{Epoch: "1", Version: "2", Release: "3"},
	}
	assert.Equal(t, "* Mon Jan 01 2024 A <a@b.c> - 1:2-3", entry.Header())
}

func TestInsertChangelog(t *testing.T) {
	entry := ChangelogEntry{
		Date:  time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC),
		Name:  "T",
		Email: "t@e.com",
		EVR:   EVR{Version: "1.0", Release: "1"},
		Lines: []string{"bump"},
	}

	t.Run("inserts_below_marker", func(t *testing.T) {
		lines := []string{"%build", "make", "", "%changelog", "* Mon Jan 01 2024 A <a@b.c> - 1.0-0", "- init"}
		got, err := InsertChangelog(lines, entry)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"%build", "make", "", "%changelog",
			"* Fri Feb 02 2024 T <t@e.com> - 1.0-1",
			"- bump",
			"",
			"* Mon Jan 01 2024 A <a@b.c> - 1.0-0", "- init",
		}, got)
	})

	t.Run("missing_marker", func(t *testing.T) {
		_, err := InsertChangelog([]string{"Name: foo"}, entry)
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.NotApplied))
	})
}

func TestSpecPredicates(t *testing.T) {
	assert.True(t, UsesAutosetup([]string{"%autosetup -p1"}))
	assert.True(t, UsesAutosetup([]string{" %autopatch"}))
	assert.False(t, UsesAutosetup([]string{"#%autosetup -p1"}))
	assert.True(t, UsesAutochangelog([]string{"%changelog", "%autochangelog"}))
	assert.True(t, UsesAutorelease([]string{"Release: %autorelease"}))
	assert.False(t, UsesAutorelease([]string{"Release: 1%{?dist}"}))
	assert.True(t, IsChangelogMarker("  %changelog\t"))
	assert.False(t, IsChangelogMarker("%changelogs"))
}
