package text

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"gitlab.com/tozd/go/errors"
)

// SpecTarget is the target tag that turns on spec-file skip rules.
const SpecTarget = "specfile"

// Unbounded lets a rule fire on every match.
const Unbounded = -1

// ReplacementRule describes one find/replace or find/delete edit
type ReplacementRule struct {
	// Target is the semantic tag of the file being edited; SpecTarget enables
	// the changelog-marker and comment skip rules
	Target string

	// Find is a single line or a contiguous block of lines
	Find []string

	// Replace is the replacement; empty means delete
	Replace []string

	// Count is the maximum number of times the rule may fire, Unbounded for no limit
	Count int

	// Regex treats a single-line Find as a regular expression
	Regex bool
}

// ReplacementResult contains the results of applying a rule
type ReplacementResult struct {
	// WasModified indicates if any line changed
	WasModified bool

	// ReplacementCount is the number of replacements made (deletions of whole lines are not counted)
	ReplacementCount int

	// DeletedCount is the number of lines removed
	DeletedCount int

	// OriginalLines is the content before the rule
	OriginalLines []string

	// ModifiedLines is the content after the rule
	ModifiedLines []string
}

// LineProcessor applies line-oriented rules to in-memory files
type LineProcessor struct{}

// NewLineProcessor creates a new LineProcessor
func NewLineProcessor() *LineProcessor {
	return &LineProcessor{}
}

// SplitLines splits a config value on embedded newlines. A trailing newline
// does not produce an empty last line.
func SplitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// ValidateRule checks a rule before it is applied
func (p *LineProcessor) ValidateRule(rule ReplacementRule) error {
	if len(rule.Find) == 0 {
		return errors.Errorf("find is required")
	}
	if rule.Count < Unbounded {
		return errors.Errorf("count must be %d or greater, got %d", Unbounded, rule.Count)
	}
	// a block find is always compared literally, whatever Regex says
	if rule.Regex && len(rule.Find) == 1 {
		if _, err := regexp.Compile(rule.Find[0]); err != nil {
			return errors.Errorf("compiling %q: %w", rule.Find[0], err)
		}
	}
	return nil
}

// Process applies the rule to lines and returns a new slice; lines is not
// modified. Replacement output is never scanned again.
func (p *LineProcessor) Process(ctx context.Context, lines []string, rule ReplacementRule) (*ReplacementResult, error) {
	if err := p.ValidateRule(rule); err != nil {
		return nil, fault.New(fault.ProvidedValue, "invalid rule", fault.WithCause(err))
	}

	logger := zerolog.Ctx(ctx)

	var re *regexp.Regexp
	var template string
	if rule.Regex && len(rule.Find) == 1 {
		re = regexp.MustCompile(rule.Find[0])
		template = ExpandTemplate(strings.Join(rule.Replace, "\n"))
	}

	result := &ReplacementResult{
		OriginalLines: lines,
	}
	out := make([]string, 0, len(lines))
	fired := 0
	exhausted := func() bool { return rule.Count != Unbounded && fired >= rule.Count }

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if skipLine(rule.Target, line, rule.Find[0]) {
			out = append(out, line)
			continue
		}

		switch {
		case len(rule.Find) > 1:
			if !blockMatches(lines[i:], rule.Find) || exhausted() {
				out = append(out, line)
				continue
			}
			n := len(rule.Find)
			if len(rule.Replace) == 0 {
				logger.Debug().Int("from", i+1).Int("to", i+n).Msg("deleted block of lines")
				result.DeletedCount += n
			} else {
				indent := leadingWhitespace(line)
				for _, r := range rule.Replace {
					out = append(out, indent+r)
				}
				logger.Debug().Int("from", i+1).Int("to", i+n).Strs("with", rule.Replace).Msg("replaced block of lines")
				result.ReplacementCount++
			}
			fired++
			result.WasModified = true
			i += n - 1

		case rule.Regex:
			loc := re.FindStringSubmatchIndex(line)
			if loc == nil || exhausted() {
				out = append(out, line)
				continue
			}
			var replaced string
			if rule.Count == Unbounded {
				replaced = re.ReplaceAllString(line, template)
			} else {
				replaced = line[:loc[0]] + string(re.ExpandString(nil, template, line, loc)) + line[loc[1]:]
			}
			logger.Debug().Int("line", i+1).Str("pattern", rule.Find[0]).Msg("replaced regex match")
			out = append(out, strings.Split(replaced, "\n")...)
			fired++
			result.ReplacementCount++
			result.WasModified = true

		default:
			find := rule.Find[0]
			if !strings.Contains(line, find) || exhausted() {
				out = append(out, line)
				continue
			}
			if len(rule.Replace) == 0 {
				if strings.TrimSpace(line) != find {
					// the line holds more than find, so only find goes
					out = append(out, strings.Replace(line, find, "", 1))
					logger.Debug().Int("line", i+1).Str("find", find).Msg("removed text from line")
					fired++
					result.ReplacementCount++
					result.WasModified = true
					continue
				}
				logger.Debug().Int("line", i+1).Str("find", find).Msg("deleted line")
				result.DeletedCount++
				result.WasModified = true
				continue
			}
			indent := leadingWhitespace(line)
			replacement := strings.Join(rule.Replace, "\n"+indent)
			replaced := strings.Replace(line, find, replacement, 1)
			logger.Debug().Int("line", i+1).Strs("with", rule.Replace).Msg("replaced line")
			out = append(out, strings.Split(replaced, "\n")...)
			fired++
			result.ReplacementCount++
			result.WasModified = true
		}
	}

	result.ModifiedLines = out
	return result, nil
}

// ProcessFile reads path, applies the rule, and writes the file back. A rule
// that changes nothing is a NotApplied failure and the file is left as is.
func (p *LineProcessor) ProcessFile(ctx context.Context, path string, rule ReplacementRule) (*ReplacementResult, error) {
	lines, err := fsutil.ReadLines(path)
	if err != nil {
		return nil, err
	}

	result, err := p.Process(ctx, lines, rule)
	if err != nil {
		return nil, err
	}

	if !result.WasModified {
		return result, NotAppliedError(rule, path)
	}

	if err := fsutil.WriteLines(path, result.ModifiedLines); err != nil {
		return nil, errors.Errorf("writing %s: %w", path, err)
	}
	return result, nil
}

// NotAppliedError builds the failure for a rule that matched nothing in path.
func NotAppliedError(rule ReplacementRule, path string) error {
	return fault.New(fault.NotApplied,
		"no changes were made in "+baseName(path),
		fault.WithTarget(strings.Join(rule.Find, "\\n")))
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// skipLine keeps the changelog marker and, unless the rule itself targets a
// comment, comment lines out of reach of spec-file rules.
func skipLine(target, line, firstFind string) bool {
	if target != SpecTarget {
		return false
	}
	if strings.Trim(line, "\n \t") == "%changelog" {
		return true
	}
	return strings.HasPrefix(line, "#") && !strings.HasPrefix(firstFind, "#")
}

func blockMatches(lines, find []string) bool {
	if len(lines) < len(find) {
		return false
	}
	for j, f := range find {
		if strings.TrimLeft(lines[j], " \t") != strings.TrimLeft(f, " \t") {
			return false
		}
	}
	return true
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// ExpandTemplate converts a replacement written with backslash group
// references (\1, \g<1>, \g<name>) into a regexp.Expand template. Literal
// dollar signs are escaped.
func ExpandTemplate(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c == '$' {
			b.WriteString("$$")
			continue
		}
		if c != '\\' || i+1 >= len(repl) {
			b.WriteByte(c)
			continue
		}

		next := repl[i+1]
		switch {
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(repl) && j < i+3 && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(repl[i+1 : j])
			b.WriteString("${" + strconv.Itoa(n) + "}")
			i = j - 1
		case next == 'g' && i+2 < len(repl) && repl[i+2] == '<':
			end := strings.IndexByte(repl[i+3:], '>')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			b.WriteString("${" + repl[i+3:i+3+end] + "}")
			i = i + 3 + end
		case next == 'n':
			b.WriteByte('\n')
			i++
		case next == 't':
			b.WriteByte('\t')
			i++
		case next == '\\':
			b.WriteByte('\\')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
