package editor

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/text"
)

var searchAndReplaceSchema = schema{
	required: []string{"target", "find", "replace"},
	allowed: map[string]paramType{
		"target":  typeString,
		"find":    typeString,
		"replace": typeString,
		"count":   typeInt,
		"regex":   typeBool,
	},
}

// 🔄 SearchAndReplace rewrites matching lines of one file
type SearchAndReplace struct {
	TargetFile string
	Rule       text.ReplacementRule
}

func newSearchAndReplace(p params) (Action, error) {
	a := &SearchAndReplace{
		TargetFile: p.str("target"),
		Rule: text.ReplacementRule{
			Target:  p.str("target"),
			Find:    text.SplitLines(p.str("find")),
			Replace: text.SplitLines(p.str("replace")),
			Count:   p.intOr("count", text.Unbounded),
			Regex:   p.boolOr("regex", false),
		},
	}
	if err := text.NewLineProcessor().ValidateRule(a.Rule); err != nil {
		return nil, fault.New(fault.ConfigValue, "invalid rule", fault.WithTarget(p.str("find")), fault.WithCause(err))
	}
	return a, nil
}

func (a *SearchAndReplace) Kind() Kind { return KindSearchAndReplace }

func (a *SearchAndReplace) Target() string {
	return a.TargetFile + ": " + strings.Join(a.Rule.Find, "\\n")
}

func (a *SearchAndReplace) Execute(ctx context.Context, pkg *Package) error {
	path, err := pkg.Resolve(ctx, a.TargetFile)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Strs("find", a.Rule.Find).
		Strs("replace", a.Rule.Replace).
		Str("target", a.TargetFile).
		Msg("replacing text")

	result, err := text.NewLineProcessor().ProcessFile(ctx, path, a.Rule)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Int("replacements", result.ReplacementCount).Msg("search and replace done")
	return nil
}

var deleteLineSchema = schema{
	required: []string{"target", "lines"},
	allowed: map[string]paramType{
		"target": typeString,
		"lines":  typeList,
	},
}

// 🗑️ DeleteLine removes lines (or blocks of lines) from one file
type DeleteLine struct {
	TargetFile string
	Lines      []string
}

func newDeleteLine(p params) (Action, error) {
	lines, err := p.list("lines")
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l == "" {
			return nil, fault.New(fault.ConfigValue, "invalid data for lines: value cannot be empty", fault.WithTarget("lines"))
		}
	}
	return &DeleteLine{TargetFile: p.str("target"), Lines: lines}, nil
}

func (a *DeleteLine) Kind() Kind { return KindDeleteLine }

func (a *DeleteLine) Target() string {
	return a.TargetFile + ": " + strings.Join(a.Lines, ", ")
}

// Execute deletes every entry of Lines. All entries are worked out in memory
// first; if any of them matches nothing, the file is left untouched.
func (a *DeleteLine) Execute(ctx context.Context, pkg *Package) error {
	path, err := pkg.Resolve(ctx, a.TargetFile)
	if err != nil {
		return err
	}

	content, err := fsutil.ReadLines(path)
	if err != nil {
		return err
	}

	proc := text.NewLineProcessor()
	for _, line := range a.Lines {
		zerolog.Ctx(ctx).Info().Str("line", line).Msg("deleting line")
		rule := text.ReplacementRule{
			Target: a.TargetFile,
			Find:   text.SplitLines(line),
			Count:  text.Unbounded,
		}
		result, err := proc.Process(ctx, content, rule)
		if err != nil {
			return err
		}
		if !result.WasModified {
			return text.NotAppliedError(rule, path)
		}
		content = result.ModifiedLines
	}

	return fsutil.WriteLines(path, content)
}
