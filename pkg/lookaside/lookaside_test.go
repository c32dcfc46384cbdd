package lookaside

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
)

const (
	helloSHA256 = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"
	helloMD5    = "b1946ac92492d2347c6235b4d2611184"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Entry
		ok   bool
	}{
		{
			name: "classic_sha256",
			line: helloSHA256 + "  SOURCES/hello.txt",
			want: Entry{Hash: helloSHA256, HashType: fsutil.SHA256, Path: "SOURCES/hello.txt"},
			ok:   true,
		},
		{
			name: "classic_md5_single_space",
			line: helloMD5 + " SOURCES/hello.txt",
			want: Entry{Hash: helloMD5, HashType: fsutil.MD5, Path: "SOURCES/hello.txt"},
			ok:   true,
		},
		{
			name: "bsd_style",
			line: "SHA256 (hello.txt) = " + helloSHA256,
			want: Entry{Hash: helloSHA256, HashType: fsutil.SHA256, Path: "hello.txt", BSD: true},
			ok:   true,
		},
		{name: "garbage", line: "not a manifest line", ok: false},
		{name: "odd_digest_length", line: "abc123 SOURCES/x", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMetadata_RemoveAndSave(t *testing.T) {
	pkg := filepath.Join(t.TempDir(), "bash")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	mdPath := MetadataPath(pkg)
	assert.Equal(t, filepath.Join(pkg, ".bash.metadata"), mdPath)

	content := helloSHA256 + "  SOURCES/bash-5.1.tar.gz\n" + helloMD5 + "  SOURCES/bash-doc.tar.gz\n"
	require.NoError(t, os.WriteFile(mdPath, []byte(content), 0o644))

	md, err := Load(mdPath)
	require.NoError(t, err)
	require.Len(t, md.Entries(), 2)

	removed, err := md.Remove("bash-5.1.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "SOURCES/bash-5.1.tar.gz", removed.Path)

	_, err = md.Remove("bash-5.1.tar.gz")
	assert.True(t, fault.Is(err, fault.NotApplied))

	require.NoError(t, md.Save())
	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, helloMD5+"  SOURCES/bash-doc.tar.gz\n", string(data))
}

func TestMetadata_AddReplacesSamePath(t *testing.T) {
	md := &Metadata{Path: filepath.Join(t.TempDir(), ".x.metadata")}
	md.Add(Entry{Hash: helloMD5, HashType: fsutil.MD5, Path: "SOURCES/a"})
	md.Add(Entry{Hash: helloSHA256, HashType: fsutil.SHA256, Path: "SOURCES/a"})

	entries := md.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, helloSHA256, entries[0].Hash)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".nope.metadata"))
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.NotFound))

	md, err := LoadOrCreate(filepath.Join(t.TempDir(), ".nope.metadata"))
	require.NoError(t, err)
	assert.Empty(t, md.Entries())
}

func TestUpload_ChecksExistenceFirst(t *testing.T) {
	ctx := testContext(t)
	src := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello\n"), 0o644))

	store := NewLocalStore(t.TempDir())

	first, err := Upload(ctx, store, src)
	require.NoError(t, err)
	assert.Equal(t, helloSHA256, first.Hash)
	assert.True(t, first.Uploaded)

	blob, err := os.ReadFile(filepath.Join(store.Root, helloSHA256[:2], helloSHA256))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(blob))

	second, err := Upload(ctx, store, src)
	require.NoError(t, err)
	assert.False(t, second.Uploaded)
}

func TestVerify(t *testing.T) {
	ctx := testContext(t)
	pkg := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(pkg, "SOURCES"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "SOURCES", "good.txt"), []byte("hello\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "SOURCES", "bad.txt"), []byte("tampered\n"), 0o644))

	md := &Metadata{Path: MetadataPath(pkg)}
	md.Add(Entry{Hash: helloSHA256, HashType: fsutil.SHA256, Path: "SOURCES/good.txt"})
	md.Add(Entry{Hash: helloMD5, HashType: fsutil.MD5, Path: "SOURCES/bad.txt"})
	md.Add(Entry{Hash: helloSHA256, HashType: fsutil.SHA256, Path: "SOURCES/remote.tar.gz"})

	report, err := Verify(ctx, pkg, md, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, []string{"SOURCES/remote.tar.gz"}, report.Missing)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "SOURCES/bad.txt", report.Mismatches[0].Path)
	assert.False(t, report.OK())
}
