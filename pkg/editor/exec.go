package editor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/gitutil"
)

// Shell runs apply_script payloads.
var Shell = "/bin/bash"

var applyScriptSchema = schema{
	required: []string{"script"},
	allowed: map[string]paramType{
		"script": typeString,
	},
}

// 📜 ApplyScript runs a shell script from the config's scripts/ directory
type ApplyScript struct {
	Script string
}

func newApplyScript(p params) (Action, error) {
	return &ApplyScript{Script: p.str("script")}, nil
}

func (a *ApplyScript) Kind() Kind { return KindApplyScript }

func (a *ApplyScript) Target() string { return a.Script }

// Execute runs the script with the package as working directory and
// PACKAGE_PATH / PATCH_DIR exported. A non-zero exit carries the script's
// stderr.
func (a *ApplyScript) Execute(ctx context.Context, pkg *Package) error {
	script, err := pkg.payload(scriptsDir, a.Script)
	if err != nil {
		return err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, Shell, script)
	cmd.Dir = pkg.Dir
	cmd.Env = append(os.Environ(),
		"PACKAGE_PATH="+pkg.Dir,
		"PATCH_DIR="+pkg.ConfigDir,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zerolog.Ctx(ctx).Info().Str("script", script).Msg("running script")
	if err := cmd.Run(); err != nil {
		return fault.New(fault.Script, "script failed",
			fault.WithTarget(a.Script),
			fault.WithStderr(strings.TrimSpace(stderr.String())),
			fault.WithCause(err))
	}
	zerolog.Ctx(ctx).Debug().Str("stdout", stdout.String()).Msg("script finished")
	return nil
}

var applyPatchSchema = schema{
	required: []string{"filename"},
	allowed: map[string]paramType{
		"filename": typeString,
	},
}

// 🩹 ApplyPatch applies a diff from files/ to the package's git tree
type ApplyPatch struct {
	Filename string
}

func newApplyPatch(p params) (Action, error) {
	return &ApplyPatch{Filename: p.str("filename")}, nil
}

func (a *ApplyPatch) Kind() Kind { return KindApplyPatch }

func (a *ApplyPatch) Target() string { return a.Filename }

func (a *ApplyPatch) Execute(ctx context.Context, pkg *Package) error {
	patch, err := pkg.payload(filesDir, a.Filename)
	if err != nil {
		return err
	}
	if _, err := gitutil.Open(ctx, pkg.Dir); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("patch", patch).Msg("applying patch file")
	return gitutil.Apply(ctx, pkg.Dir, patch)
}
