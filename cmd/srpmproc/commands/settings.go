package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/srpmproc/cmd/srpmproc/opts"
	"github.com/walteh/srpmproc/pkg/config"
)

// settingsFlags binds the import settings to command line flags. Flags that
// are set win over the settings file.
type settingsFlags struct {
	over      config.Settings
	keepClone bool
	defines   map[string]string
}

func (f *settingsFlags) bind(cmd *cobra.Command, withRepo bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.over.Package, "package", "", "package name, defaults to the package directory name")
	fl.StringVar(&f.over.Dist, "dist", "", "dist tag used when expanding the spec, e.g. el9")
	fl.StringVar(&f.over.MajorRelease, "major-release", "", "major release used for %rhel and friends")
	fl.StringVar(&f.over.LookasideDir, "lookaside-dir", "", "directory of the content-addressed lookaside store")
	fl.StringToStringVar(&f.defines, "define", nil, "extra rpm macro, name=value")
	if withRepo {
		fl.StringVar(&f.over.PackageDir, "package-dir", "", "unpacked package directory")
		fl.StringVar(&f.over.Branch, "branch", "", "destination branch")
		fl.StringVar(&f.over.PatchRepo, "patch-repo", "", "patch repository path or clone URL")
		fl.StringVar(&f.over.PatchRef, "patch-ref", "", "patch repository branch holding main.yml")
		fl.BoolVar(&f.keepClone, "keep-clone", false, "keep the patch repository clone")
	}
}

// settings merges the flags over the root settings. The root settings are
// left untouched.
func (f *settingsFlags) settings(cmd *cobra.Command, ro *opts.RootOpts) *config.Settings {
	s := config.Settings{}
	if ro.Settings != nil {
		s = *ro.Settings
	}
	over := f.over
	over.Defines = f.defines
	if cmd.Flags().Changed("keep-clone") {
		cleanup := !f.keepClone
		over.Cleanup = &cleanup
	}
	s.Merge(over)
	return &s
}
