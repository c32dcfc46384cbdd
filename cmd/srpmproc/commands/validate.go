package commands

import (
	"runtime"

	"github.com/spf13/cobra"
	"github.com/walteh/srpmproc/cmd/srpmproc/opts"
	"github.com/walteh/srpmproc/pkg/editor"
	"github.com/walteh/srpmproc/pkg/log"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// NewValidateCmd creates the validate command
func NewValidateCmd(ro *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yml>...",
		Short: "Check patch configs without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			results := make([]error, len(args))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(runtime.GOMAXPROCS(0))
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					_, results[i] = editor.Load(gctx, path)
					return nil
				})
			}
			_ = g.Wait()

			var first error
			failed := 0
			for i, err := range results {
				if err != nil {
					failed++
					console.Errorf("%s: %v", args[i], err)
					if first == nil {
						first = err
					}
					continue
				}
				console.Successf("%s is valid", args[i])
			}
			if first != nil {
				return errors.Errorf("%d of %d configs are invalid: %w", failed, len(args), first)
			}
			return nil
		},
	}

	return cmd
}
