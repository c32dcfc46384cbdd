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

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"github.com/walteh/srpmproc/cmd/srpmproc/opts"
	"github.com/walteh/srpmproc/pkg/editor"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// diffContext is how many unchanged lines are shown around a change.
const diffContext = 3

// NewPatchCmd creates the patch command
func NewPatchCmd(ro *opts.RootOpts) *cobra.Command {
	var (
		flags    settingsFlags
		showDiff bool
	)

	cmd := &cobra.Command{
		Use:   "patch <config.yml> <package-dir>",
		Short: "Run one patch config against a package directory",
		Long: `Patch runs a single patch config against an unpacked package.
It will:
1. Validate the whole config before touching anything
2. Run the actions in order, changelog entries last
3. Stop at the first action that fails`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			pkgDir, err := filepath.Abs(args[1])
			if err != nil {
				return errors.Errorf("resolving package directory: %w", err)
			}
			s := flags.settings(cmd, ro)
			if s.Package == "" {
				s.Package = filepath.Base(pkgDir)
			}

			cfg, err := editor.Load(ctx, args[0], s.EditorOptions(ctx)...)
			if err != nil {
				return err
			}

			var specPath, before string
			if showDiff {
				specPath, err = fsutil.FindFile(ctx, pkgDir, "*.spec")
				if err != nil {
					return err
				}
				before, err = readString(specPath)
				if err != nil {
					return err
				}
			}

			console.StartConfig(ctx, log.ConfigOperation{Package: s.Package, Config: filepath.Base(args[0])})
			err = cfg.Run(ctx, pkgDir)
			console.EndConfig(ctx)
			if err != nil {
				return err
			}

			if showDiff {
				after, err := readString(specPath)
				if err != nil {
					return err
				}
				rel, err := filepath.Rel(pkgDir, specPath)
				if err != nil {
					rel = filepath.Base(specPath)
				}
				fmt.Fprint(ro.Out, RenderDiff(rel, before, after))
			}
			return nil
		},
	}

	flags.bind(cmd, false)
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print the spec file diff after patching")

	return cmd
}

func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// RenderDiff renders a line diff of before and after with a few lines of
// context around each change. It returns an empty string when nothing changed.
func RenderDiff(name, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var all []diffLine
	for _, d := range diffs {
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			all = append(all, diffLine{op: d.Type, text: strings.TrimSuffix(text, "\n")})
		}
	}

	// mark every line within diffContext of a change
	show := make([]bool, len(all))
	for i, l := range all {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-diffContext); j <= min(len(all)-1, i+diffContext); j++ {
			show[j] = true
		}
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", name, name)
	skipped := false
	for i, l := range all {
		if !show[i] {
			skipped = true
			continue
		}
		if skipped {
			sb.WriteString("...\n")
			skipped = false
		}
		switch l.op {
		case diffmatchpatch.DiffInsert:
			sb.WriteString(green("+" + l.text))
		case diffmatchpatch.DiffDelete:
			sb.WriteString(red("-" + l.text))
		default:
			sb.WriteString(" " + l.text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
