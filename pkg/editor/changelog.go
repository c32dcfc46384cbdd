package editor

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/rpmspec"
)

var specChangelogSchema = schema{
	required: []string{"name", "email", "line"},
	allowed: map[string]paramType{
		"name":  typeString,
		"email": typeString,
		"line":  typeList,
	},
}

// 📝 SpecChangelog adds an entry to the top of %changelog
type SpecChangelog struct {
	Name  string
	Email string
	Lines []string
}

func newSpecChangelog(p params) (Action, error) {
	lines, err := p.list("line")
	if err != nil {
		return nil, err
	}
	return &SpecChangelog{Name: p.str("name"), Email: p.str("email"), Lines: lines}, nil
}

func (a *SpecChangelog) Kind() Kind { return KindSpecChangelog }

func (a *SpecChangelog) Target() string { return a.Name + " <" + a.Email + ">" }

func (a *SpecChangelog) Execute(ctx context.Context, pkg *Package) error {
	logger := zerolog.Ctx(ctx)

	path, err := pkg.SpecPath(ctx)
	if err != nil {
		return err
	}
	lines, err := fsutil.ReadLines(path)
	if err != nil {
		return err
	}

	if rpmspec.UsesAutochangelog(lines) {
		logger.Warn().Msg("spec file has %autochangelog, skipping")
		return ErrSkipped
	}

	parsed, err := pkg.parser(ctx).Parse(ctx, path)
	if err != nil {
		return err
	}
	evr, err := rpmspec.ParseEVR(parsed)
	if err != nil {
		return err
	}

	entry := rpmspec.ChangelogEntry{
		Date:  pkg.now(),
		Name:  a.Name,
		Email: a.Email,
		EVR:   evr,
		Lines: a.Lines,
	}
	logger.Info().Str("name", a.Name).Str("email", a.Email).Strs("line", a.Lines).Msg("adding changelog entry")

	out, err := rpmspec.InsertChangelog(lines, entry)
	if err != nil {
		return err
	}
	return fsutil.WriteLines(path, out)
}
