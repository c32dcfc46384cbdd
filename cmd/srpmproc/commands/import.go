package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/srpmproc/cmd/srpmproc/opts"
	"github.com/walteh/srpmproc/pkg/importer"
	"github.com/walteh/srpmproc/pkg/log"
)

// NewImportCmd creates the import command
func NewImportCmd(ro *opts.RootOpts) *cobra.Command {
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Apply the patch repository's configs to a package",
		Long: `Import clones the patch repository and applies the configs that match
the package. It will:
1. Run PATCH/main.yml from the main branch
2. Run PATCH/<branch>.yml from the main branch
3. Run PATCH/<package>.yml from the destination branch, only when
   there is no <branch>.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			s := flags.settings(cmd, ro)
			if err := s.Validate(); err != nil {
				return err
			}
			console.Header("importing " + s.String())

			im, err := importer.New(s.ImporterOptions(ctx))
			if err != nil {
				return err
			}
			patched, err := im.Patch(ctx)
			if err != nil {
				return err
			}
			if !patched {
				console.Warningf("no patch config applies to %s", s.Package)
				return nil
			}
			console.Successf("patched %s", s.Package)
			return nil
		},
	}

	flags.bind(cmd, true)

	return cmd
}
