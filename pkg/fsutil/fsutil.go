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

// Package fsutil holds the file plumbing shared by the editor and the
// importer: whole-file line IO, atomic rewrites, file resolution inside a
// package tree, and checksums.
package fsutil

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

// PatchDir is the directory name holding patch configs; it is never searched
// when resolving package files.
const PatchDir = "PATCH"

// 📖 ReadLines reads a file into a list of lines without terminators. An empty
// file is reported as not found, there is nothing to edit in it.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fault.New(fault.NotFound, "file does not exist", fault.WithTarget(path))
		}
		return nil, errors.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fault.New(fault.NotFound, "file is empty", fault.WithTarget(path))
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n"), nil
}

// ✍️ WriteLines writes each line followed by a newline, replacing the file
// atomically and keeping its permissions.
func WriteLines(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return WriteFileAtomic(path, []byte(b.String()))
}

// WriteFileAtomic writes content to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, content []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting mode on temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// 🔍 FindFiles returns every regular file under root matching pattern at any
// depth, skipping anything inside a PATCH directory. Results are relative to
// root and sorted.
func FindFiles(root, pattern string) ([]string, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "/")
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+pattern)
	if err != nil {
		return nil, errors.Errorf("matching %q under %s: %w", pattern, root, err)
	}

	var out []string
	for _, match := range matches {
		if underPatchDir(match) {
			continue
		}
		info, err := os.Stat(filepath.Join(root, match))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, match)
	}
	sort.Strings(out)
	return out, nil
}

func underPatchDir(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, p := range parts[:len(parts)-1] {
		if p == PatchDir {
			return true
		}
	}
	return false
}

// 🎯 FindFile resolves pattern to exactly one file under root and returns its
// absolute path.
func FindFile(ctx context.Context, root, pattern string) (string, error) {
	matches, err := FindFiles(root, pattern)
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fault.New(fault.NotFound, "no file found", fault.WithTarget(pattern))
	case 1:
		zerolog.Ctx(ctx).Debug().Str("pattern", pattern).Str("file", matches[0]).Msg("resolved file")
		return filepath.Join(root, matches[0]), nil
	default:
		return "", fault.New(fault.TooManyFiles,
			"more than one file matches: "+strings.Join(matches, ", "),
			fault.WithTarget(pattern))
	}
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// 📋 CopyFile copies src to dst keeping the permission bits and modification
// time, creating parent directories as needed.
func CopyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return errors.Errorf("reading source file info: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	destination, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}

	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return errors.Errorf("copying file: %w", err)
	}
	if err := destination.Close(); err != nil {
		return errors.Errorf("closing destination file: %w", err)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return errors.Errorf("setting destination mode: %w", err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.Errorf("setting destination times: %w", err)
	}

	return nil
}

// Within reports whether path is base itself or lies below it once both are
// cleaned. Used to refuse payload names that climb out of their directory.
func Within(base, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// 🔐 HashType names a supported checksum algorithm
type HashType string

const (
	SHA512 HashType = "sha512"
	SHA256 HashType = "sha256"
	SHA1   HashType = "sha1"
	MD5    HashType = "md5"
)

// HashTypeForDigest guesses the algorithm from the length of a hex digest.
func HashTypeForDigest(digest string) (HashType, bool) {
	switch len(digest) {
	case 128:
		return SHA512, true
	case 64:
		return SHA256, true
	case 40:
		return SHA1, true
	case 32:
		return MD5, true
	}
	return "", false
}

func (h HashType) newHash() (hash.Hash, error) {
	switch HashType(strings.ToLower(string(h))) {
	case SHA512:
		return sha512.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA1:
		return sha1.New(), nil
	case MD5:
		return md5.New(), nil
	}
	return nil, fault.New(fault.ProvidedValue, "unsupported hash type", fault.WithTarget(string(h)))
}

// 🔍 Checksum returns the hex digest of the file at path.
func Checksum(path string, ht HashType) (string, error) {
	h, err := ht.newHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
