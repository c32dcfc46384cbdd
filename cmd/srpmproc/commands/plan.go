package commands

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/srpmproc/cmd/srpmproc/opts"
	"github.com/walteh/srpmproc/pkg/editor"
	"github.com/walteh/srpmproc/pkg/importer"
	"gitlab.com/tozd/go/errors"
)

// NewPlanCmd creates the plan command
func NewPlanCmd(ro *opts.RootOpts) *cobra.Command {
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "plan [config.yml...]",
		Short: "Show the actions that would run, in execution order",
		Long: `Plan lists queued actions without changing anything. With config
arguments those configs are listed; without, the configs the patch
repository would apply to the package are resolved and listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var plans []importer.PlannedConfig
			if len(args) > 0 {
				for _, path := range args {
					cfg, err := editor.Load(ctx, path)
					if err != nil {
						return err
					}
					plans = append(plans, importer.PlannedConfig{
						ConfigRef: importer.ConfigRef{Path: path},
						Actions:   cfg.Queue().Ordered(),
					})
				}
			} else {
				s := flags.settings(cmd, ro)
				if err := s.Validate(); err != nil {
					return err
				}
				im, err := importer.New(s.ImporterOptions(ctx))
				if err != nil {
					return err
				}
				plans, err = im.Plan(ctx)
				if err != nil {
					return err
				}
			}

			out, err := RenderPlan(plans)
			if err != nil {
				return err
			}
			fmt.Fprint(ro.Out, out)
			return nil
		},
	}

	flags.bind(cmd, true)

	return cmd
}

// RenderPlan renders planned configs as a table, one row per action.
func RenderPlan(plans []importer.PlannedConfig) (string, error) {
	if len(plans) == 0 {
		return "no patch configs apply\n", nil
	}

	data := pterm.TableData{{"#", "Config", "Branch", "Action", "Target"}}
	n := 0
	for _, p := range plans {
		branch := p.Branch
		if branch == "" {
			branch = "-"
		}
		for _, a := range p.Actions {
			n++
			data = append(data, []string{strconv.Itoa(n), filepath.Base(p.Path), branch, string(a.Kind()), a.Target()})
		}
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", errors.Errorf("rendering plan: %w", err)
	}
	return table + "\n", nil
}
