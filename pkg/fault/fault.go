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

// Package fault defines the single error type surfaced by the editor and the
// importer. Every failure carries a Kind whose numeric code is stable and is
// used as the process exit status by the CLI.
package fault

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// UnexpectedExitCode is returned by CodeOf for errors that carry no Kind.
const UnexpectedExitCode = 2

// 🏷️ Kind classifies a failure
type Kind int

const (
	General Kind = iota
	ProvidedValue
	ValueExists
	MissingValue
	Configuration
	NotFound
	Download
	GitGeneral
	GitCommit
	GitPush
	GitInit
	GitCheckout
	GitApply
	RpmOpen
	RpmInfo
	RpmParse
	Upload
	NotApplied
	ConfigValue
	ConfigType
	TooManyFiles
	Script
)

var kindInfo = map[Kind]struct {
	code int
	name string
}{
	General:       {9000, "general"},
	ProvidedValue: {9001, "provided value"},
	ValueExists:   {9002, "value exists"},
	MissingValue:  {9003, "missing value"},
	Configuration: {9004, "configuration"},
	NotFound:      {9005, "not found"},
	Download:      {9006, "download"},
	GitGeneral:    {9300, "git"},
	GitCommit:     {9301, "git commit"},
	GitPush:       {9302, "git push"},
	GitInit:       {9303, "git init"},
	GitCheckout:   {9304, "git checkout"},
	GitApply:      {9305, "git apply"},
	RpmOpen:       {9400, "rpm open"},
	RpmInfo:       {9402, "rpm info"},
	RpmParse:      {9404, "rpm parse"},
	Upload:        {9500, "upload"},
	NotApplied:    {9600, "not applied"},
	ConfigValue:   {9601, "patch config value"},
	ConfigType:    {9602, "patch config type"},
	TooManyFiles:  {9603, "too many files"},
	Script:        {9604, "script"},
}

// Code returns the stable fault code for the kind.
func (k Kind) Code() int {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return kindInfo[General].code
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// 🚨 Error is the discriminated failure type
type Error struct {
	Kind   Kind
	Action string // action kind, e.g. search_and_replace
	Target string // find text, file name or config key involved
	Reason string
	Stderr string // captured stderr of an external tool
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Action != "" {
		b.WriteString(e.Action)
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	if e.Target != "" {
		fmt.Fprintf(&b, " [%s]", e.Target)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", s)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code is shorthand for e.Kind.Code().
func (e *Error) Code() int {
	return e.Kind.Code()
}

// Option customizes an Error built by New.
type Option func(*Error)

// WithAction records the action kind that failed.
func WithAction(action string) Option {
	return func(e *Error) { e.Action = action }
}

// WithTarget records the find text or file the failure is about.
func WithTarget(target string) Option {
	return func(e *Error) { e.Target = target }
}

// WithStderr attaches the stderr of a failed subprocess.
func WithStderr(stderr string) Option {
	return func(e *Error) { e.Stderr = stderr }
}

// WithCause wraps an underlying error.
func WithCause(err error) Option {
	return func(e *Error) { e.Err = err }
}

// New builds a stack-carrying *Error of the given kind.
func New(kind Kind, reason string, opts ...Option) error {
	e := &Error{Kind: kind, Reason: reason}
	for _, opt := range opts {
		opt(e)
	}
	return errors.WithStack(e)
}

// Newf is New with a formatted reason.
func Newf(kind Kind, format string, args ...any) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// As returns the first *Error in the chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in the chain, or General.
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return General
}

// Is reports whether err carries a fault of the given kind.
func Is(err error, kind Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == kind
}

// CodeOf maps an error to a process exit code. nil maps to 0.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	if fe, ok := As(err); ok {
		return fe.Code()
	}
	return UnexpectedExitCode
}

// WithActionName stamps the action name onto the first *Error in the chain if
// it has none yet. Errors without a fault are wrapped as General.
func WithActionName(err error, action string) error {
	if err == nil {
		return nil
	}
	if fe, ok := As(err); ok {
		if fe.Action == "" {
			fe.Action = action
		}
		return err
	}
	return New(General, "action failed", WithAction(action), WithCause(err))
}
