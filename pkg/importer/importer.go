// Package importer decides which patch configs apply to a package and runs
// them. Configs live in a separate patch repository under PATCH/:
//
//   - main.yml on the main branch applies to every destination branch
//   - <branch>.yml on the main branch applies to that destination branch
//   - <package>.yml on the destination branch applies only when there is no
//     <branch>.yml
package importer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/editor"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/gitutil"
	"github.com/walteh/srpmproc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// DefaultMainBranch is the patch repository branch holding main.yml.
const DefaultMainBranch = "main"

// MainConfig is the config applied to every branch.
const MainConfig = "main.yml"

// 🔧 Options configures an Importer
type Options struct {
	// PatchRepo is a clone URL or a local path of the patch repository
	PatchRepo string
	// MainBranch overrides DefaultMainBranch
	MainBranch string
	// Package is the rpm name, used for <package>.yml
	Package string
	// Branch is the destination branch, used for <branch>.yml
	Branch string
	// PackageDir is the unpacked package the configs are applied to
	PackageDir string
	// CloneDir is where the patch repository is cloned; a temporary
	// directory is used when empty
	CloneDir string
	// KeepClone skips removing the clone when done
	KeepClone bool
	// EditorOptions are passed to every loaded config
	EditorOptions []editor.Option
}

// 🎯 ConfigRef is one patch config picked by the resolution policy
type ConfigRef struct {
	// Branch is the patch repository branch the config was found on
	Branch string
	// Path is the config file inside the clone
	Path string
}

// Name is the config's file name.
func (r ConfigRef) Name() string {
	return filepath.Base(r.Path)
}

// 📦 Importer applies the patch configs of one package
type Importer struct {
	opts Options
}

// 🏭 New creates an Importer
func New(opts Options) (*Importer, error) {
	if opts.PatchRepo == "" {
		return nil, fault.New(fault.MissingValue, "patch repository is required", fault.WithTarget("patch_repo"))
	}
	if opts.Package == "" {
		return nil, fault.New(fault.MissingValue, "package name is required", fault.WithTarget("package"))
	}
	if opts.MainBranch == "" {
		opts.MainBranch = DefaultMainBranch
	}
	return &Importer{opts: opts}, nil
}

// Visit is called for each resolved config while its branch is checked out.
type Visit func(ctx context.Context, ref ConfigRef) error

// Walk clones the patch repository and calls visit for every config the
// policy selects, in order: main.yml, <branch>.yml, then <package>.yml when
// no <branch>.yml was found. It reports whether any config was visited.
func (im *Importer) Walk(ctx context.Context, visit Visit) (visited bool, err error) {
	logger := zerolog.Ctx(ctx)

	dir := im.opts.CloneDir
	if dir == "" {
		dir, err = os.MkdirTemp("", im.opts.Package+"-patch-*")
		if err != nil {
			return false, errors.Errorf("creating clone directory: %w", err)
		}
	}
	if !im.opts.KeepClone {
		defer Cleanup(ctx, dir)
	}

	repo, err := gitutil.Clone(ctx, im.opts.PatchRepo, dir, "")
	if err != nil {
		return false, err
	}

	hasMain := repo.HasBranch(im.opts.MainBranch)
	hasDest := im.opts.Branch != "" && repo.HasBranch(im.opts.Branch)
	branchConfigFound := false

	run := func(branch, name string) error {
		p := filepath.Join(repo.Path, fsutil.PatchDir, name)
		if !isFile(p) {
			logger.Info().Str("branch", branch).Str("config", name).Msg("no patch config found")
			return nil
		}
		visited = true
		return visit(ctx, ConfigRef{Branch: branch, Path: p})
	}

	if hasMain {
		if err := repo.Checkout(ctx, im.opts.MainBranch); err != nil {
			return visited, err
		}
		logger.Info().Msg("searching for a main.yml patch file")
		if err := run(im.opts.MainBranch, MainConfig); err != nil {
			return visited, err
		}
		if im.opts.Branch != "" {
			name := im.opts.Branch + ".yml"
			branchConfigFound = isFile(filepath.Join(repo.Path, fsutil.PatchDir, name))
			if err := run(im.opts.MainBranch, name); err != nil {
				return visited, err
			}
		}
	} else {
		logger.Info().Str("branch", im.opts.MainBranch).Msg("patch repository has no main branch")
	}

	if hasDest && !branchConfigFound {
		logger.Info().Str("branch", im.opts.Branch).Msg("searching for a package patch file")
		if err := repo.Checkout(ctx, im.opts.Branch); err != nil {
			return visited, err
		}
		if err := run(im.opts.Branch, im.opts.Package+".yml"); err != nil {
			return visited, err
		}
	}

	return visited, nil
}

// Patch runs every resolved config against the package directory. It reports
// whether anything was applied.
func (im *Importer) Patch(ctx context.Context) (bool, error) {
	if im.opts.PackageDir == "" {
		return false, fault.New(fault.MissingValue, "package directory is required", fault.WithTarget("package_dir"))
	}
	console := log.FromContext(ctx)

	return im.Walk(ctx, func(ctx context.Context, ref ConfigRef) error {
		console.StartConfig(ctx, log.ConfigOperation{Package: im.opts.Package, Branch: ref.Branch, Config: ref.Name()})
		defer console.EndConfig(ctx)

		cfg, err := editor.Load(ctx, ref.Path, im.editorOptions()...)
		if err != nil {
			return err
		}
		return cfg.Run(ctx, im.opts.PackageDir)
	})
}

// 📋 PlannedConfig is a resolved config and the actions it would run, in
// execution order
type PlannedConfig struct {
	ConfigRef
	Actions []editor.Action
}

// Plan loads every resolved config without running it.
func (im *Importer) Plan(ctx context.Context) ([]PlannedConfig, error) {
	var out []PlannedConfig
	_, err := im.Walk(ctx, func(ctx context.Context, ref ConfigRef) error {
		cfg, err := editor.Load(ctx, ref.Path, im.editorOptions()...)
		if err != nil {
			return err
		}
		out = append(out, PlannedConfig{ConfigRef: ref, Actions: cfg.Queue().Ordered()})
		return nil
	})
	return out, err
}

func (im *Importer) editorOptions() []editor.Option {
	return append([]editor.Option{editor.WithPackageName(im.opts.Package)}, im.opts.EditorOptions...)
}

// Cleanup removes working directories. Failures and missing directories
// only produce warnings.
func Cleanup(ctx context.Context, paths ...string) {
	logger := zerolog.Ctx(ctx)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			logger.Warn().Str("path", p).Msg("directory was not found, nothing to clean up")
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("cleanup failed")
			continue
		}
		logger.Debug().Str("path", p).Msg("removed")
	}
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
