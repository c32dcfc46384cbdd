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

// Package lookaside reads and edits a package's checksum manifest and moves
// source payloads into a content-addressed store.
package lookaside

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"gitlab.com/tozd/go/errors"
)

var (
	classicLineRe = regexp.MustCompile(`^([0-9a-fA-F]+)\s+(.+)$`)
	bsdLineRe     = regexp.MustCompile(`^([A-Za-z0-9]+) \((.+)\) = ([0-9a-fA-F]+)$`)
)

// 📄 Entry is one line of the manifest
type Entry struct {
	Hash     string
	HashType fsutil.HashType
	Path     string // relative to the package root, usually SOURCES/<name>
	BSD      bool   // written as "SHA512 (path) = hash"
}

// String renders the entry in its original style.
func (e Entry) String() string {
	if e.BSD {
		return fmt.Sprintf("%s (%s) = %s", strings.ToUpper(string(e.HashType)), e.Path, e.Hash)
	}
	return e.Hash + "  " + e.Path
}

// Matches reports whether the entry refers to name, either by its full
// relative path or by its base name.
func (e Entry) Matches(name string) bool {
	name = filepath.ToSlash(name)
	return e.Path == name || path.Base(e.Path) == path.Base(name)
}

// ParseLine parses a classic or BSD-style manifest line.
func ParseLine(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if m := bsdLineRe.FindStringSubmatch(line); m != nil {
		return Entry{Hash: strings.ToLower(m[3]), HashType: fsutil.HashType(strings.ToLower(m[1])), Path: m[2], BSD: true}, true
	}
	if m := classicLineRe.FindStringSubmatch(line); m != nil {
		ht, ok := fsutil.HashTypeForDigest(m[1])
		if !ok {
			return Entry{}, false
		}
		return Entry{Hash: strings.ToLower(m[1]), HashType: ht, Path: m[2]}, true
	}
	return Entry{}, false
}

// 📚 Metadata is the .<package>.metadata manifest of a package
type Metadata struct {
	Path  string
	lines []string
}

// MetadataPath returns where the manifest of pkgDir lives.
func MetadataPath(pkgDir string) string {
	return filepath.Join(pkgDir, "."+filepath.Base(filepath.Clean(pkgDir))+".metadata")
}

// Load reads the manifest. A missing manifest is NotFound; an empty one is
// valid and has no entries.
func Load(p string) (*Metadata, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fault.New(fault.NotFound, "metadata file not found", fault.WithTarget(p))
		}
		return nil, errors.Errorf("reading metadata: %w", err)
	}

	md := &Metadata{Path: p}
	content := strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if content != "" {
		md.lines = strings.Split(content, "\n")
	}
	return md, nil
}

// LoadOrCreate is Load that starts an empty manifest when none exists.
func LoadOrCreate(p string) (*Metadata, error) {
	md, err := Load(p)
	if fault.Is(err, fault.NotFound) {
		return &Metadata{Path: p}, nil
	}
	return md, err
}

// Entries returns every parseable line.
func (m *Metadata) Entries() []Entry {
	var out []Entry
	for _, line := range m.lines {
		if e, ok := ParseLine(line); ok {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry for name.
func (m *Metadata) Find(name string) (Entry, bool) {
	for _, e := range m.Entries() {
		if e.Matches(name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Add appends an entry, replacing any existing entry for the same path.
func (m *Metadata) Add(e Entry) {
	for i, line := range m.lines {
		if old, ok := ParseLine(line); ok && old.Path == e.Path {
			m.lines[i] = e.String()
			return
		}
	}
	m.lines = append(m.lines, e.String())
}

// Remove drops the first entry for name. It is a NotApplied failure when
// the manifest has no such entry.
func (m *Metadata) Remove(name string) (Entry, error) {
	for i, line := range m.lines {
		e, ok := ParseLine(line)
		if !ok || !e.Matches(name) {
			continue
		}
		m.lines = append(m.lines[:i:i], m.lines[i+1:]...)
		return e, nil
	}
	return Entry{}, fault.New(fault.NotApplied, "file not found in metadata", fault.WithTarget(name))
}

// Save writes the manifest back.
func (m *Metadata) Save() error {
	if len(m.lines) == 0 {
		return fsutil.WriteFileAtomic(m.Path, nil)
	}
	return fsutil.WriteLines(m.Path, m.lines)
}
