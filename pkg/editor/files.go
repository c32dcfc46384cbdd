package editor

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/lookaside"
	"github.com/walteh/srpmproc/pkg/rpmspec"
	"gitlab.com/tozd/go/errors"
)

// LatestNumber is the add_file number meaning "next free number".
const LatestNumber = "latest"

var addFileSchema = schema{
	required: []string{"type", "name", "number"},
	allowed: map[string]paramType{
		"type":        typeString,
		"name":        typeString,
		"number":      typeString,
		"add_to_spec": typeBool,
		"upload":      typeBool,
	},
}

// ➕ AddFile copies a payload into SOURCES/ and registers it in the spec
type AddFile struct {
	Directive rpmspec.Directive
	Name      string
	Number    int // rpmspec.Latest or an explicit number
	AddToSpec bool
	Upload    bool
}

func newAddFile(p params) (Action, error) {
	a := &AddFile{
		Name:      p.str("name"),
		AddToSpec: p.boolOr("add_to_spec", true),
		Upload:    p.boolOr("upload", false),
	}

	switch p.str("type") {
	case "patch":
		a.Directive = rpmspec.Patch
	case "source":
		a.Directive = rpmspec.Source
	default:
		return nil, fault.New(fault.ConfigType, "invalid config: type must be one of patch, source", fault.WithTarget(p.str("type")))
	}

	number := p.str("number")
	if number == LatestNumber {
		a.Number = rpmspec.Latest
	} else {
		n, err := strconv.Atoi(number)
		if err != nil || n < 0 {
			return nil, fault.New(fault.ConfigValue,
				fmt.Sprintf("invalid data for number: expected %q or a non-negative integer", LatestNumber),
				fault.WithTarget(number))
		}
		a.Number = n
	}

	if a.Name != filepath.Base(a.Name) {
		return nil, fault.New(fault.ConfigValue, "invalid data for name: must be a plain file name", fault.WithTarget(a.Name))
	}
	return a, nil
}

func (a *AddFile) Kind() Kind { return KindAddFile }

func (a *AddFile) Target() string {
	n := LatestNumber
	if a.Number != rpmspec.Latest {
		n = strconv.Itoa(a.Number)
	}
	return fmt.Sprintf("%s%s: %s", a.Directive, n, a.Name)
}

func (a *AddFile) lookaside() bool {
	return a.Upload && a.Directive == rpmspec.Source
}

// Execute works out every edit before touching the tree: the spec change is
// computed first so a numbering conflict leaves nothing half done.
func (a *AddFile) Execute(ctx context.Context, pkg *Package) error {
	logger := zerolog.Ctx(ctx)

	src, err := pkg.payload(filesDir, a.Name)
	if err != nil {
		return err
	}

	target := pkg.sourcePath(a.Name)
	if !a.lookaside() && fsutil.Exists(target) {
		return fault.New(fault.ValueExists, "target exists", fault.WithTarget(filepath.Join(sourcesDir, a.Name)))
	}
	if a.lookaside() && pkg.Lookaside == nil {
		return fault.New(fault.Configuration, "upload requested but no lookaside is configured", fault.WithTarget(a.Name))
	}

	var specPath string
	var specLines []string
	var manifest string
	if a.AddToSpec {
		specPath, err = pkg.SpecPath(ctx)
		if err != nil {
			return err
		}
		lines, err := fsutil.ReadLines(specPath)
		if err != nil {
			return err
		}

		var hasManifest bool
		manifest, hasManifest, err = pkg.hasManifest()
		if err != nil {
			return err
		}

		res, err := rpmspec.AddDirective(ctx, lines, rpmspec.AddOptions{
			Directive:   a.Directive,
			Name:        a.Name,
			Package:     pkg.name(),
			HasManifest: hasManifest,
			Number:      a.Number,
		})
		if err != nil {
			return err
		}
		specLines = res.Lines
		if res.Style != rpmspec.StyleManifest || a.Directive != rpmspec.Patch {
			manifest = ""
		}
		logger.Info().Str("directive", res.DirectiveLine).Str("apply", res.ApplyLine).Msg("adding file to spec")
	}

	if a.lookaside() {
		if err := a.upload(ctx, pkg, src); err != nil {
			return err
		}
	} else {
		logger.Info().Str("from", src).Str("to", target).Msg("copying file")
		if err := fsutil.CopyFile(src, target); err != nil {
			return fault.New(fault.General, "copying payload", fault.WithTarget(a.Name), fault.WithCause(err))
		}
	}

	if specPath != "" {
		if err := fsutil.WriteLines(specPath, specLines); err != nil {
			return errors.Errorf("writing spec: %w", err)
		}
	}
	if manifest != "" {
		if err := appendManifest(manifest, a.Name); err != nil {
			return err
		}
		logger.Info().Str("manifest", filepath.Base(manifest)).Msg("recorded patch in manifest")
	}
	return nil
}

func (a *AddFile) upload(ctx context.Context, pkg *Package, src string) error {
	res, err := lookaside.Upload(ctx, pkg.Lookaside, src)
	if err != nil {
		return err
	}
	md, err := lookaside.LoadOrCreate(lookaside.MetadataPath(pkg.Dir))
	if err != nil {
		return err
	}
	md.Add(lookaside.Entry{
		Hash:     res.Hash,
		HashType: fsutil.SHA256,
		Path:     path.Join(sourcesDir, a.Name),
	})
	return md.Save()
}

func appendManifest(manifest, name string) error {
	lines, err := fsutil.ReadLines(manifest)
	if err != nil && !fault.Is(err, fault.NotFound) {
		return err
	}
	return fsutil.WriteLines(manifest, append(lines, name))
}

var deleteFileSchema = schema{
	required: []string{"filename"},
	allowed: map[string]paramType{
		"filename": typeString,
	},
}

// ➖ DeleteFile removes a file from the tree or, when it only lives in the
// lookaside, its metadata entry
type DeleteFile struct {
	Filename string
}

func newDeleteFile(p params) (Action, error) {
	return &DeleteFile{Filename: p.str("filename")}, nil
}

func (a *DeleteFile) Kind() Kind { return KindDeleteFile }

func (a *DeleteFile) Target() string { return a.Filename }

func (a *DeleteFile) Execute(ctx context.Context, pkg *Package) error {
	logger := zerolog.Ctx(ctx)

	p := filepath.Join(pkg.Dir, a.Filename)
	if !fsutil.Within(pkg.Dir, p) {
		return fault.New(fault.ProvidedValue, "path is outside of the package", fault.WithTarget(a.Filename))
	}

	// a package tree without its metadata file is not one we delete from
	md, err := lookaside.Load(lookaside.MetadataPath(pkg.Dir))
	if err != nil {
		return err
	}

	if fsutil.Exists(p) {
		if err := os.Remove(p); err != nil {
			return fault.New(fault.General, "deleting file", fault.WithTarget(a.Filename), fault.WithCause(err))
		}
		logger.Info().Str("file", a.Filename).Msg("deleted")
		return nil
	}

	entry, err := md.Remove(a.Filename)
	if err != nil {
		return err
	}
	if err := md.Save(); err != nil {
		return errors.Errorf("writing metadata: %w", err)
	}
	logger.Info().Str("file", entry.Path).Str("hash", entry.Hash).Msg("deleted from metadata")
	return nil
}

var replaceFileSchema = schema{
	required: []string{"filename"},
	allowed: map[string]paramType{
		"filename": typeString,
		"upload":   typeBool,
	},
}

// 🔁 ReplaceFile overwrites an existing file in SOURCES/ with a payload
type ReplaceFile struct {
	Filename string
	Upload   bool
}

func newReplaceFile(p params) (Action, error) {
	a := &ReplaceFile{Filename: p.str("filename"), Upload: p.boolOr("upload", false)}
	if a.Filename != filepath.Base(a.Filename) {
		return nil, fault.New(fault.ConfigValue, "invalid data for filename: must be a plain file name", fault.WithTarget(a.Filename))
	}
	return a, nil
}

func (a *ReplaceFile) Kind() Kind { return KindReplaceFile }

func (a *ReplaceFile) Target() string { return path.Join(sourcesDir, a.Filename) }

// Execute requires the file to already be part of the package: in SOURCES/
// for a plain copy, in the metadata for an upload.
func (a *ReplaceFile) Execute(ctx context.Context, pkg *Package) error {
	logger := zerolog.Ctx(ctx)

	src, err := pkg.payload(filesDir, a.Filename)
	if err != nil {
		return err
	}

	if a.Upload {
		if pkg.Lookaside == nil {
			return fault.New(fault.Configuration, "upload requested but no lookaside is configured", fault.WithTarget(a.Filename))
		}
		md, err := lookaside.Load(lookaside.MetadataPath(pkg.Dir))
		if err != nil {
			return err
		}
		old, ok := md.Find(a.Filename)
		if !ok {
			return fault.New(fault.NotApplied, "target does not exist in metadata", fault.WithTarget(a.Filename))
		}
		res, err := lookaside.Upload(ctx, pkg.Lookaside, src)
		if err != nil {
			return err
		}
		md.Add(lookaside.Entry{Hash: res.Hash, HashType: fsutil.SHA256, Path: old.Path, BSD: old.BSD})
		if err := md.Save(); err != nil {
			return errors.Errorf("writing metadata: %w", err)
		}
		logger.Info().Str("file", old.Path).Str("old", old.Hash).Str("new", res.Hash).Msg("replaced lookaside entry")
		return nil
	}

	target := pkg.sourcePath(a.Filename)
	if !fsutil.Exists(target) {
		return fault.New(fault.NotApplied, "target does not exist", fault.WithTarget(a.Target()))
	}
	logger.Info().Str("from", src).Str("to", target).Msg("replacing file")
	if err := fsutil.CopyFile(src, target); err != nil {
		return fault.New(fault.General, "copying payload", fault.WithTarget(a.Filename), fault.WithCause(err))
	}
	return nil
}
