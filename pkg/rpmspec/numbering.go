package rpmspec

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
)

// Directive is a numbered spec tag that names a package input.
type Directive string

const (
	Source Directive = "Source"
	Patch  Directive = "Patch"
)

// Latest asks AddDirective for the next free number.
const Latest = -1

// PatchStyle is the way a spec applies its patches in %prep.
type PatchStyle int

const (
	StyleUnknown   PatchStyle = iota
	StyleObsolete             // %patchN -p1
	StylePSpace               // %patch -P N -p1
	StylePNoSpace             // %patch -PN -p1
	StyleKernel               // ApplyPatch name.patch
	StyleManifest             // listed in a sidecar .patches file
	StyleAutosetup            // %autosetup / %autopatch apply everything
)

func (s PatchStyle) String() string {
	switch s {
	case StyleObsolete:
		return "obsolete"
	case StylePSpace:
		return "p_space"
	case StylePNoSpace:
		return "p_nospace"
	case StyleKernel:
		return "kernel"
	case StyleManifest:
		return "manifest"
	case StyleAutosetup:
		return "autosetup"
	}
	return "unknown"
}

// StyleOfLine returns the patch style of a %prep line, or StyleUnknown.
func StyleOfLine(line string) PatchStyle {
	switch {
	case patchObsoleteRe.MatchString(line):
		return StyleObsolete
	case patchSpaceRe.MatchString(line):
		return StylePSpace
	case patchNoSpaceRe.MatchString(line):
		return StylePNoSpace
	case patchKernelRe.MatchString(line):
		return StyleKernel
	}
	return StyleUnknown
}

// ApplyLine renders the %prep line applying patch number for the style.
func ApplyLine(style PatchStyle, name, number string) (string, error) {
	switch style {
	case StyleObsolete:
		return fmt.Sprintf("%%patch%s -p1", number), nil
	case StylePSpace:
		return fmt.Sprintf("%%patch -P %s -p1", number), nil
	case StylePNoSpace:
		return fmt.Sprintf("%%patch -P%s -p1", number), nil
	case StyleKernel:
		return fmt.Sprintf("ApplyPatch %s.patch", strings.TrimSuffix(name, filepath.Ext(name))), nil
	}
	return "", fault.New(fault.RpmParse, "unknown patch type", fault.WithTarget(style.String()))
}

// AddOptions describes the input to add to a spec.
type AddOptions struct {
	Directive   Directive
	Name        string // file name as it appears in SOURCES
	Package     string // package name, "kernel" selects ApplyPatch
	HasManifest bool   // the package keeps a *.patches file
	Number      int    // Latest or an explicit number
}

// AddResult is the edited spec plus what was written.
type AddResult struct {
	Lines         []string
	Number        string // empty for unnumbered specs
	Style         PatchStyle
	DirectiveLine string
	ApplyLine     string // empty when no %prep line was needed
}

type lastDirective struct {
	found     bool
	number    int
	index     int // insertion index in the reversed spec
	noNumbers bool
}

// findLastDirective scans the reversed spec for the bottom-most directive of
// type d. A directive inside %if/%endif is not used as the anchor; the line
// after the closing %endif is used instead.
func findLastDirective(rev []string, d Directive) lastDirective {
	re := regexp.MustCompile(`^` + string(d) + `([0-9]*):`)
	res := lastDirective{index: -1}
	conditional := false
	endifIdx := -1

	for i, line := range rev {
		if endifRe.MatchString(line) {
			conditional = true
			endifIdx = i
		} else if conditional && ifRe.MatchString(line) {
			conditional = false
		}

		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		res.found = true
		if !conditional {
			res.index = i
		}
		if m[1] != "" {
			res.number, _ = strconv.Atoi(m[1])
		} else {
			res.noNumbers = true
		}
		break
	}

	if res.found && res.index < 0 {
		res.index = endifIdx
	}
	return res
}

// DirectiveIDs returns the numbers already used by Source and Patch tags.
func DirectiveIDs(lines []string) (sources, patches map[int]bool) {
	sources, patches = map[int]bool{}, map[int]bool{}
	sourceRe := regexp.MustCompile(`^Source([0-9]+):`)
	patchRe := regexp.MustCompile(`^Patch([0-9]+):`)
	for _, line := range lines {
		if m := sourceRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			sources[n] = true
		}
		if m := patchRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			patches[n] = true
		}
	}
	return sources, patches
}

func detectStyle(ctx context.Context, rev []string, opts AddOptions) PatchStyle {
	logger := zerolog.Ctx(ctx)
	switch {
	case opts.Package == "kernel":
		logger.Debug().Msg("kernel package, patches use ApplyPatch")
		return StyleKernel
	case opts.HasManifest:
		logger.Debug().Msg("package keeps a .patches manifest")
		return StyleManifest
	case UsesAutosetup(rev):
		logger.Debug().Msg("package uses autosetup")
		return StyleAutosetup
	}
	for _, line := range rev {
		if style := StyleOfLine(line); style != StyleUnknown {
			return style
		}
	}
	return StyleUnknown
}

func newNumber(rev []string, last lastDirective, opts AddOptions) (string, error) {
	if last.noNumbers {
		return "", nil
	}
	if opts.Number == Latest {
		return strconv.Itoa(last.number + 1), nil
	}

	sources, patches := DirectiveIDs(rev)
	used := sources
	if opts.Directive == Patch {
		used = patches
	}
	if used[opts.Number] {
		return "", fault.New(fault.RpmParse,
			fmt.Sprintf("%s%d already exists", opts.Directive, opts.Number),
			fault.WithTarget(opts.Name))
	}
	return strconv.Itoa(opts.Number), nil
}

// applyIndex finds where the %prep apply line goes in the reversed spec: at
// the bottom-most existing apply line, or after the %endif closing it.
func applyIndex(rev []string) (int, bool) {
	conditional := false
	start := -1
	last := -1
	for i, line := range rev {
		if last < 0 && endifRe.MatchString(line) {
			conditional = true
			start = i
		} else if conditional && ifRe.MatchString(line) {
			conditional = false
			if last < 0 {
				start = -1
			}
		}
		if last < 0 && StyleOfLine(line) != StyleUnknown {
			last = i
		}
	}
	if start >= 0 {
		return start, true
	}
	return last, last >= 0
}

func setupIndex(rev []string) (int, bool) {
	for i, line := range rev {
		if setupRe.MatchString(line) {
			return i, true
		}
	}
	return -1, false
}

// AddDirective inserts a new Source/Patch tag for opts.Name and, for
// patches applied one by one, the matching %prep line. The spec is worked on
// as a reversed copy so "insert at i" lands after the anchor line once the
// result is reversed back. lines is never modified.
func AddDirective(ctx context.Context, lines []string, opts AddOptions) (*AddResult, error) {
	logger := zerolog.Ctx(ctx)
	rev := Reverse(lines)

	last := findLastDirective(rev, opts.Directive)
	if !last.found {
		if opts.Directive != Patch {
			return nil, fault.New(fault.RpmParse,
				fmt.Sprintf("unable to parse, there was no %s directive found", opts.Directive),
				fault.WithTarget(opts.Name))
		}
		logger.Warn().Msg("no Patch directives found, anchoring the first one after the last Source")
		src := findLastDirective(rev, Source)
		if !src.found {
			return nil, fault.New(fault.RpmParse,
				"unable to parse, there was no Source or Patch directive found",
				fault.WithTarget(opts.Name))
		}
		last = lastDirective{found: true, number: -1, index: src.index}
	}

	style := detectStyle(ctx, rev, opts)
	number, err := newNumber(rev, last, opts)
	if err != nil {
		return nil, err
	}

	result := &AddResult{
		Number:        number,
		Style:         style,
		DirectiveLine: fmt.Sprintf("%s%s: %s", opts.Directive, number, opts.Name),
	}
	rev = insertAt(rev, last.index, result.DirectiveLine)

	if opts.Directive == Patch && style != StyleManifest {
		if style == StyleAutosetup {
			logger.Info().Msg("autosetup package found, skipping patch lines")
		} else {
			idx, ok := applyIndex(rev)
			if !ok {
				idx, ok = setupIndex(rev)
				if !ok {
					return nil, fault.New(fault.RpmParse,
						"unable to find a line where we can apply the patch",
						fault.WithTarget(opts.Name))
				}
				style = StylePSpace
				result.Style = style
			}
			line, err := ApplyLine(style, opts.Name, number)
			if err != nil {
				return nil, err
			}
			result.ApplyLine = line
			rev = insertAt(rev, idx, line)
		}
	}

	logger.Debug().
		Str("directive", result.DirectiveLine).
		Str("apply", result.ApplyLine).
		Str("style", result.Style.String()).
		Msg("added directive")

	result.Lines = Reverse(rev)
	return result, nil
}
