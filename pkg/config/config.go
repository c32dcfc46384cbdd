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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/editor"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/importer"
	"github.com/walteh/srpmproc/pkg/lookaside"
	"github.com/walteh/srpmproc/pkg/rpmspec"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for settings parsers
type Parser interface {
	// 📝 Parse parses the settings from bytes
	Parse(ctx context.Context, data []byte) (*Settings, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Settings describes one import: which package, where it lives and where
// its patches come from
type Settings struct {
	Package      string            `json:"package,omitempty" yaml:"package,omitempty" hcl:"package,optional"`
	PackageDir   string            `json:"package_dir,omitempty" yaml:"package_dir,omitempty" hcl:"package_dir,optional"`
	Branch       string            `json:"branch,omitempty" yaml:"branch,omitempty" hcl:"branch,optional"`
	PatchRepo    string            `json:"patch_repo,omitempty" yaml:"patch_repo,omitempty" hcl:"patch_repo,optional"`
	PatchRef     string            `json:"patch_ref,omitempty" yaml:"patch_ref,omitempty" hcl:"patch_ref,optional"`
	LookasideDir string            `json:"lookaside_dir,omitempty" yaml:"lookaside_dir,omitempty" hcl:"lookaside_dir,optional"`
	Dist         string            `json:"dist,omitempty" yaml:"dist,omitempty" hcl:"dist,optional"`
	MajorRelease string            `json:"major_release,omitempty" yaml:"major_release,omitempty" hcl:"major_release,optional"`
	Defines      map[string]string `json:"defines,omitempty" yaml:"defines,omitempty" hcl:"defines,optional"`
	Cleanup      *bool             `json:"cleanup,omitempty" yaml:"cleanup,omitempty" hcl:"cleanup,optional"`

	location string
}

// 🎯 Load reads a settings file. The parser is picked by extension; files
// with an unknown extension are tried as YAML, then HCL. Relative paths in
// the file are resolved against the file's directory.
func Load(ctx context.Context, path string) (*Settings, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading settings")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.New(fault.NotFound, "settings file does not exist", fault.WithTarget(path))
		}
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	var s *Settings
	if p := GetParser(path); p != nil {
		s, err = p.Parse(ctx, data)
	} else {
		s, err = detect(ctx, data, path)
	}
	if err != nil {
		return nil, fault.New(fault.Configuration, "invalid settings file", fault.WithTarget(path), fault.WithCause(err))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving settings path: %w", err)
	}
	s.location = abs
	s.resolvePaths(filepath.Dir(abs))

	return s, nil
}

// detect tries YAML first, then HCL.
func detect(ctx context.Context, data []byte, path string) (*Settings, error) {
	s, yerr := (&YAMLParser{}).Parse(ctx, data)
	if yerr == nil {
		return s, nil
	}
	s, herr := (&HCLParser{}).Parse(ctx, data)
	if herr == nil {
		return s, nil
	}
	return nil, errors.Errorf("failed to parse %s as YAML (%v) or HCL: %w", filepath.Base(path), yerr, herr)
}

// Location is the absolute path the settings were loaded from, empty for
// settings built in code.
func (s *Settings) Location() string {
	return s.location
}

func (s *Settings) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	s.PackageDir = abs(s.PackageDir)
	s.LookasideDir = abs(s.LookasideDir)
	if s.PatchRepo != "" && !isRemote(s.PatchRepo) {
		s.PatchRepo = abs(s.PatchRepo)
	}
}

func isRemote(repo string) bool {
	return strings.Contains(repo, "://") || strings.HasPrefix(repo, "git@")
}

// 🔄 Merge overwrites fields with the non-empty values of o. Command line
// flags are merged over the file this way.
func (s *Settings) Merge(o Settings) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.Package, o.Package)
	set(&s.PackageDir, o.PackageDir)
	set(&s.Branch, o.Branch)
	set(&s.PatchRepo, o.PatchRepo)
	set(&s.PatchRef, o.PatchRef)
	set(&s.LookasideDir, o.LookasideDir)
	set(&s.Dist, o.Dist)
	set(&s.MajorRelease, o.MajorRelease)
	for k, v := range o.Defines {
		if s.Defines == nil {
			s.Defines = map[string]string{}
		}
		s.Defines[k] = v
	}
	if o.Cleanup != nil {
		s.Cleanup = o.Cleanup
	}
}

// 🔍 Validate checks the settings needed for an import and fills defaults
func (s *Settings) Validate() error {
	if s.PatchRepo == "" {
		return fault.New(fault.MissingValue, "patch_repo is required", fault.WithTarget("patch_repo"))
	}
	if s.PackageDir == "" {
		return fault.New(fault.MissingValue, "package_dir is required", fault.WithTarget("package_dir"))
	}
	s.PackageDir = filepath.Clean(s.PackageDir)

	if s.Package == "" {
		s.Package = filepath.Base(s.PackageDir)
	}
	if strings.ContainsRune(s.Package, filepath.Separator) {
		return fault.New(fault.ProvidedValue, "package name must not contain a path separator", fault.WithTarget(s.Package))
	}
	if s.PatchRef == "" {
		s.PatchRef = importer.DefaultMainBranch
	}
	if s.Dist != "" && !strings.HasPrefix(s.Dist, ".") {
		s.Dist = "." + s.Dist
	}
	return nil
}

// KeepClone reports whether the patch repository clone should survive the
// run. Cleanup defaults to true.
func (s *Settings) KeepClone() bool {
	return s.Cleanup != nil && !*s.Cleanup
}

// ParseOptions are the macro settings handed to spec parsers.
func (s *Settings) ParseOptions() rpmspec.ParseOptions {
	return rpmspec.ParseOptions{
		Dist:         s.Dist,
		MajorRelease: s.MajorRelease,
		Defines:      s.Defines,
	}
}

// Lookaside returns the configured store, or nil when no lookaside_dir is set.
func (s *Settings) Lookaside() lookaside.Store {
	if s.LookasideDir == "" {
		return nil
	}
	return lookaside.NewLocalStore(s.LookasideDir)
}

// EditorOptions wires the settings into patch config loading.
func (s *Settings) EditorOptions(ctx context.Context) []editor.Option {
	opts := []editor.Option{
		editor.WithParser(rpmspec.DefaultParser(ctx, s.ParseOptions())),
	}
	if s.Package != "" {
		opts = append(opts, editor.WithPackageName(s.Package))
	}
	if store := s.Lookaside(); store != nil {
		opts = append(opts, editor.WithLookaside(store))
	}
	return opts
}

// ImporterOptions converts validated settings into importer options.
func (s *Settings) ImporterOptions(ctx context.Context) importer.Options {
	return importer.Options{
		PatchRepo:     s.PatchRepo,
		MainBranch:    s.PatchRef,
		Package:       s.Package,
		Branch:        s.Branch,
		PackageDir:    s.PackageDir,
		KeepClone:     s.KeepClone(),
		EditorOptions: s.EditorOptions(ctx),
	}
}

// 📝 String returns a string representation of the settings
func (s *Settings) String() string {
	ref := s.PatchRef
	if ref == "" {
		ref = importer.DefaultMainBranch
	}
	branch := s.Branch
	if branch == "" {
		branch = "-"
	}
	return fmt.Sprintf("%s@%s -> %s (%s, branch %s)", s.PatchRepo, ref, s.PackageDir, s.Package, branch)
}
