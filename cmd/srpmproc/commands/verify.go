package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/srpmproc/cmd/srpmproc/opts"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/log"
	"github.com/walteh/srpmproc/pkg/lookaside"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd(ro *opts.RootOpts) *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "verify [package-dir...]",
		Short: "Check files in a package against its lookaside manifest",
		Long: `Verify checksums every file listed in .<package>.metadata that is
present in the package directory. Entries without a file are expected to
live in the lookaside and are only counted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			if len(args) == 0 {
				args = []string{"."}
			}

			var failed []string
			for _, dir := range args {
				abs, err := filepath.Abs(dir)
				if err != nil {
					return err
				}
				md, err := lookaside.Load(lookaside.MetadataPath(abs))
				if err != nil {
					return err
				}
				report, err := lookaside.Verify(ctx, abs, md, jobs)
				if err != nil {
					return err
				}

				for _, m := range report.Mismatches {
					console.Errorf("%s: %s has %s, manifest says %s", filepath.Base(abs), m.Path, m.Got, m.Want)
				}
				if !report.OK() {
					failed = append(failed, abs)
					continue
				}
				console.Successf("%s: %d files verified, %d only in the lookaside", filepath.Base(abs), report.Checked, len(report.Missing))
			}

			if len(failed) > 0 {
				return fault.New(fault.General, "checksum mismatch", fault.WithTarget(failed[0]))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "files hashed at once")

	return cmd
}
