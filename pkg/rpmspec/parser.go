package rpmspec

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
)

// 🔌 Parser expands the macros of a spec file and returns its lines.
type Parser interface {
	Parse(ctx context.Context, specPath string) ([]string, error)
}

// ParseOptions are the macros in effect while expanding a spec.
type ParseOptions struct {
	// Dist is the dist tag, e.g. ".el9". Empty means %{nil}.
	Dist string
	// MajorRelease sets %rhel, %centos and %rocky and clears %fedora.
	MajorRelease string
	// Defines are extra macros, name to value.
	Defines map[string]string
}

// baseDefines are stubbed so specs using build-only helpers still expand.
var baseDefines = map[string]string{
	"__python3":               "/usr/bin/python3",
	"forgemeta":               "%{nil}",
	"gometa":                  "%{nil}",
	"ldconfig_scriptlets(n:)": "%{nil}",
	"pesign":                  "%{nil}",
	"efi_has_alt_arch":        "0",
}

func (o ParseOptions) defines(topdir string) map[string]string {
	out := map[string]string{}
	for k, v := range baseDefines {
		out[k] = v
	}
	out["dist"] = "%{nil}"
	if o.Dist != "" {
		out["dist"] = o.Dist
	}
	out["_topdir"] = topdir
	if o.MajorRelease != "" {
		out["rhel"] = o.MajorRelease
		out["centos"] = o.MajorRelease
		out["rocky"] = o.MajorRelease
		out["fedora"] = "%{nil}"
	}
	for k, v := range o.Defines {
		out[k] = v
	}
	return out
}

// RPMSpec expands specs with the rpmspec binary.
type RPMSpec struct {
	Options ParseOptions
	Binary  string
}

// NewRPMSpec returns a parser running rpmspec from PATH.
func NewRPMSpec(opts ParseOptions) *RPMSpec {
	return &RPMSpec{Options: opts, Binary: "rpmspec"}
}

func (p *RPMSpec) args(specPath string) []string {
	defs := p.Options.defines(filepath.Dir(specPath))
	names := make([]string, 0, len(defs))
	for k := range defs {
		names = append(names, k)
	}
	sort.Strings(names)

	args := []string{"-P", specPath}
	for _, k := range names {
		args = append(args, "--define", k+" "+defs[k])
	}
	return args
}

// Parse runs rpmspec -P on the spec.
func (p *RPMSpec) Parse(ctx context.Context, specPath string) ([]string, error) {
	args := p.args(specPath)
	zerolog.Ctx(ctx).Debug().Str("binary", p.Binary).Strs("args", args).Msg("expanding spec")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fault.New(fault.RpmParse, "failed to parse spec file",
			fault.WithTarget(specPath),
			fault.WithStderr(stderr.String()),
			fault.WithCause(err))
	}

	out := strings.TrimSuffix(stdout.String(), "\n")
	return strings.Split(out, "\n"), nil
}

// Literal expands %global/%define values and %{name}, %{?name},
// %{?name:x}, %{!?name:x} references without external tools. Parametric
// macros and shell expansions are left as written.
type Literal struct {
	Options ParseOptions
}

// NewLiteral returns a Literal parser.
func NewLiteral(opts ParseOptions) *Literal {
	return &Literal{Options: opts}
}

var defineRe = regexp.MustCompile(`^\s*%(global|define)\s+([A-Za-z_][A-Za-z0-9_]*)\s+(.*?)\s*$`)

// Parse reads the spec and expands it line by line.
func (p *Literal) Parse(ctx context.Context, specPath string) ([]string, error) {
	lines, err := fsutil.ReadLines(specPath)
	if err != nil {
		return nil, err
	}
	return p.Expand(filepath.Dir(specPath), lines), nil
}

// Expand expands lines in order, so a macro is known from its definition on.
func (p *Literal) Expand(topdir string, lines []string) []string {
	macros := p.Options.defines(topdir)
	out := make([]string, len(lines))
	for i, line := range lines {
		if m := defineRe.FindStringSubmatch(line); m != nil {
			macros[m[2]] = expandMacros(m[3], macros, 0)
		}
		out[i] = expandMacros(line, macros, 0)
	}
	return out
}

const maxExpandDepth = 16

var bareMacroRe = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)`)

func expandMacros(s string, macros map[string]string, depth int) string {
	if depth > maxExpandDepth || !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '%':
			b.WriteString("%%")
			i++
		case '{':
			end := matchBrace(s, i+1)
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteString(expandBraced(s[i:end+1], s[i+2:end], macros, depth))
			i = end
		default:
			m := bareMacroRe.FindStringSubmatch(s[i:])
			if m == nil {
				b.WriteByte(s[i])
				continue
			}
			if v, ok := macros[m[1]]; ok {
				b.WriteString(expandMacros(v, macros, depth+1))
			} else {
				b.WriteString(m[0])
			}
			i += len(m[0]) - 1
		}
	}
	return strings.ReplaceAll(b.String(), "%%", "%")
}

func matchBrace(s string, open int) int {
	depth := 0
	for j := open; j < len(s); j++ {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func expandBraced(raw, body string, macros map[string]string, depth int) string {
	negate := false
	conditional := false
	if strings.HasPrefix(body, "!?") {
		negate, conditional = true, true
		body = body[2:]
	} else if strings.HasPrefix(body, "?") {
		conditional = true
		body = body[1:]
	}

	name, alt, hasAlt := strings.Cut(body, ":")
	if name == "nil" {
		return ""
	}
	v, defined := macros[name]

	if conditional {
		if hasAlt {
			if defined != negate {
				return expandMacros(alt, macros, depth+1)
			}
			return ""
		}
		if defined && !negate {
			return expandMacros(v, macros, depth+1)
		}
		return ""
	}
	if defined && !hasAlt {
		return expandMacros(v, macros, depth+1)
	}
	return raw
}

// DefaultParser prefers rpmspec and falls back to Literal when it is not
// installed.
func DefaultParser(ctx context.Context, opts ParseOptions) Parser {
	if _, err := exec.LookPath("rpmspec"); err == nil {
		return NewRPMSpec(opts)
	}
	zerolog.Ctx(ctx).Warn().Msg("rpmspec was not found on this system, expanding spec macros literally")
	return NewLiteral(opts)
}
