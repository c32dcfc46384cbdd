package editor

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/rpmspec"
)

var appendReleaseSchema = schema{
	required: []string{"suffix", "enabled"},
	allowed: map[string]paramType{
		"suffix":  typeString,
		"enabled": typeBool,
	},
}

// 🏷️ AppendRelease adds a suffix to the spec's release
type AppendRelease struct {
	Suffix  string
	Enabled bool
}

func newAppendRelease(p params) (Action, error) {
	return &AppendRelease{Suffix: p.str("suffix"), Enabled: p.boolOr("enabled", false)}, nil
}

func (a *AppendRelease) Kind() Kind { return KindAppendRelease }

func (a *AppendRelease) Target() string { return "Release: +" + a.Suffix }

// Execute appends Suffix to the first Release: line. With %autorelease the
// suffix goes on the macro's terminator line instead; a spec that uses
// %autorelease without that line is left alone with a warning.
func (a *AppendRelease) Execute(ctx context.Context, pkg *Package) error {
	logger := zerolog.Ctx(ctx)
	if !a.Enabled {
		logger.Info().Msg("release modification disabled")
		return ErrSkipped
	}

	path, err := pkg.SpecPath(ctx)
	if err != nil {
		return err
	}
	lines, err := fsutil.ReadLines(path)
	if err != nil {
		return err
	}

	match := rpmspec.IsReleaseLine
	if rpmspec.UsesAutorelease(lines) {
		logger.Info().Msg("%autorelease found, appending to the autorelease terminator")
		match = func(line string) bool { return strings.TrimSpace(line) == rpmspec.AutoreleaseTerminator }
	}

	out := make([]string, len(lines))
	copy(out, lines)
	for i, line := range out {
		if !match(line) {
			continue
		}
		out[i] = line + a.Suffix
		logger.Info().Str("release", out[i]).Msg("modified release line")
		return fsutil.WriteLines(path, out)
	}

	if rpmspec.UsesAutorelease(lines) {
		logger.Warn().Msg("%autorelease is used but the terminator line was not found, release left as is")
		return ErrSkipped
	}
	return fault.New(fault.NotApplied, "there was no release line found", fault.WithTarget("Release:"))
}
