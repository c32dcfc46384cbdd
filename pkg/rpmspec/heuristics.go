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

// Package rpmspec holds the line-oriented heuristics used to read and edit RPM
// spec files. A spec is always handled as a list of lines; nothing here builds
// a grammar of the file.
package rpmspec

import (
	"regexp"
	"strings"
)

var (
	autosetupRe     = regexp.MustCompile(`^\s?%(autosetup|forgeautosetup|autopatch)`)
	autochangelogRe = regexp.MustCompile(`^\s?%autochangelog`)
	autoreleaseRe   = regexp.MustCompile(`^Release:.*%autorelease`)
	endifRe         = regexp.MustCompile(`^%endif\b`)
	// ifRe is any line starting with %i, so %install and %include also close
	// a conditional on the upward scan
	ifRe            = regexp.MustCompile(`^%if*`)
	setupRe         = regexp.MustCompile(`^%setup\b`)

	patchObsoleteRe = regexp.MustCompile(`^%patch[0-9]{1,5}`)
	patchSpaceRe    = regexp.MustCompile(`^%patch\s+-P\s+[0-9]{1,5}`)
	patchNoSpaceRe  = regexp.MustCompile(`^%patch\s+-P[0-9]{1,5}`)
	patchKernelRe   = regexp.MustCompile(`^(ApplyOptionalPatch|ApplyPatch)`)
)

// AutoreleaseTerminator is the closing line of the %autorelease macro body
// that rpmautospec writes into a processed spec. The release suffix goes at
// its end.
const AutoreleaseTerminator = `}%{?-e:.%{-e*}}%{?-s:.%{-s*}}%{!?-n:%{?dist}}`

func anyMatch(re *regexp.Regexp, lines []string) bool {
	for _, line := range lines {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// UsesAutosetup reports whether patches are applied by %autosetup,
// %forgeautosetup or %autopatch.
func UsesAutosetup(lines []string) bool {
	return anyMatch(autosetupRe, lines)
}

// UsesAutochangelog reports whether the changelog is generated by rpmautospec.
func UsesAutochangelog(lines []string) bool {
	return anyMatch(autochangelogRe, lines)
}

// UsesAutorelease reports whether the Release: tag uses %autorelease.
func UsesAutorelease(lines []string) bool {
	return anyMatch(autoreleaseRe, lines)
}

// IsChangelogMarker reports whether line opens the %changelog section.
func IsChangelogMarker(line string) bool {
	return strings.Trim(line, "\n \t") == "%changelog"
}

// IsReleaseLine reports whether line is the Release: tag.
func IsReleaseLine(line string) bool {
	return strings.HasPrefix(line, "Release:")
}

// IsComment reports whether line is a spec comment.
func IsComment(line string) bool {
	return strings.HasPrefix(line, "#")
}

// Reverse returns a reversed copy of lines.
func Reverse(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[len(lines)-1-i] = line
	}
	return out
}

func insertAt(lines []string, idx int, line string) []string {
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:idx]...)
	out = append(out, line)
	out = append(out, lines[idx:]...)
	return out
}
