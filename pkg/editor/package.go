package editor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/lookaside"
	"github.com/walteh/srpmproc/pkg/rpmspec"
	"github.com/walteh/srpmproc/pkg/text"
)

const (
	filesDir   = "files"
	scriptsDir = "scripts"
	sourcesDir = "SOURCES"
)

// 📦 Package is the unpacked package tree an ActionQueue runs against, plus
// the collaborators the actions need.
type Package struct {
	// Dir is the package root holding the spec and SOURCES/
	Dir string
	// Name is the package name, the base name of Dir unless set
	Name string
	// ConfigDir is the directory of the patch config; files/ and scripts/
	// live next to it
	ConfigDir string

	Parser    rpmspec.Parser
	Lookaside lookaside.Store
	Now       func() time.Time
}

func (p *Package) name() string {
	if p.Name != "" {
		return p.Name
	}
	return filepath.Base(p.Dir)
}

// SpecPath resolves the single spec file of the package.
func (p *Package) SpecPath(ctx context.Context) (string, error) {
	return fsutil.FindFile(ctx, p.Dir, "*.spec")
}

// Resolve maps an action target to a file: any target containing "specfile"
// means the spec, anything else is a file name pattern.
func (p *Package) Resolve(ctx context.Context, target string) (string, error) {
	if strings.Contains(target, text.SpecTarget) {
		return p.SpecPath(ctx)
	}
	return fsutil.FindFile(ctx, p.Dir, target)
}

// payload returns the path of name inside the config's dir subdirectory. A
// name that climbs out of that directory or does not exist is refused.
func (p *Package) payload(dir, name string) (string, error) {
	base := filepath.Join(p.ConfigDir, dir)
	path := filepath.Join(base, name)
	if !fsutil.Within(base, path) || path == filepath.Clean(base) {
		return "", fault.New(fault.ProvidedValue, "path is outside of "+dir+"/", fault.WithTarget(name))
	}
	if !fsutil.Exists(path) {
		return "", fault.New(fault.NotFound, "payload was not found", fault.WithTarget(path))
	}
	return path, nil
}

// sourcePath is where name lands inside the package.
func (p *Package) sourcePath(name string) string {
	return filepath.Join(p.Dir, sourcesDir, name)
}

func (p *Package) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Package) parser(ctx context.Context) rpmspec.Parser {
	if p.Parser != nil {
		return p.Parser
	}
	return rpmspec.DefaultParser(ctx, rpmspec.ParseOptions{})
}

// hasManifest reports whether the package keeps a *.patches file.
func (p *Package) hasManifest() (string, bool, error) {
	matches, err := fsutil.FindFiles(p.Dir, "*.patches")
	if err != nil {
		return "", false, err
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	return filepath.Join(p.Dir, matches[0]), true, nil
}
