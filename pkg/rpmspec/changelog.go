package rpmspec

import (
	"strings"
	"time"

	"github.com/mitchellh/go-wordwrap"
	"github.com/walteh/srpmproc/pkg/fault"
)

// ChangelogDateLayout is the date format of a %changelog header.
const ChangelogDateLayout = "Mon Jan 02 2006"

// ChangelogWidth is the column limit for changelog bullets.
const ChangelogWidth = 80

// EVR is the epoch, version and release of a package.
type EVR struct {
	Epoch   string
	Version string
	Release string
}

func (e EVR) String() string {
	vr := e.Version + "-" + e.Release
	if e.Epoch != "" {
		return e.Epoch + ":" + vr
	}
	return vr
}

// ParseEVR reads the first Epoch:, Version: and Release: tags of an expanded
// spec. The value is the last whitespace-separated token of the line.
func ParseEVR(lines []string) (EVR, error) {
	var evr EVR
	var haveEpoch, haveVersion, haveRelease bool
	last := func(line string) string {
		f := strings.Fields(line)
		return f[len(f)-1]
	}
	for _, line := range lines {
		switch {
		case !haveEpoch && strings.HasPrefix(line, "Epoch:"):
			evr.Epoch, haveEpoch = last(line), true
		case !haveVersion && strings.HasPrefix(line, "Version:"):
			evr.Version, haveVersion = last(line), true
		case !haveRelease && strings.HasPrefix(line, "Release:"):
			evr.Release, haveRelease = last(line), true
		}
	}
	if !haveVersion || !haveRelease {
		return evr, fault.New(fault.RpmInfo, "unable to find Version and Release in the parsed spec")
	}
	return evr, nil
}

// ChangelogEntry is one %changelog stanza.
type ChangelogEntry struct {
	Date  time.Time
	Name  string
	Email string
	EVR   EVR
	Lines []string
}

// Header renders "* <date> <name> <email> - [epoch:]version-release".
func (c ChangelogEntry) Header() string {
	email := c.Email
	if !strings.HasPrefix(email, "<") {
		email = "<" + email + ">"
	}
	return "* " + c.Date.Format(ChangelogDateLayout) + " " + c.Name + " " + email + " - " + c.EVR.String()
}

// Render returns the header, the wrapped bullets and a closing blank line.
func (c ChangelogEntry) Render() []string {
	out := []string{c.Header()}
	for _, entry := range c.Lines {
		wrapped := wordwrap.WrapString(strings.Join(strings.Fields(entry), " "), ChangelogWidth-2)
		if wrapped == "" {
			continue
		}
		for i, w := range hardSplit(strings.Split(wrapped, "\n"), ChangelogWidth-2) {
			if i == 0 {
				out = append(out, "- "+w)
			} else {
				out = append(out, "  "+w)
			}
		}
	}
	return append(out, "")
}

// hardSplit breaks every line longer than width into width-sized pieces.
// wordwrap leaves a single word longer than the limit whole.
func hardSplit(lines []string, width int) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		r := []rune(line)
		for len(r) > width {
			out = append(out, string(r[:width]))
			r = r[width:]
		}
		out = append(out, string(r))
	}
	return out
}

// InsertChangelog places entry right below the %changelog marker. lines is
// not modified.
func InsertChangelog(lines []string, entry ChangelogEntry) ([]string, error) {
	for i, line := range lines {
		if !IsChangelogMarker(line) {
			continue
		}
		rendered := entry.Render()
		out := make([]string, 0, len(lines)+len(rendered))
		out = append(out, lines[:i+1]...)
		out = append(out, rendered...)
		out = append(out, lines[i+1:]...)
		return out, nil
	}
	return nil, fault.New(fault.NotApplied, "there is no %changelog section", fault.WithTarget("%changelog"))
}
