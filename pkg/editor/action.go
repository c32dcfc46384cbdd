package editor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/walteh/srpmproc/pkg/fault"
)

// Kind is the config name of an action.
type Kind string

const (
	KindSearchAndReplace Kind = "search_and_replace"
	KindDeleteLine       Kind = "delete_line"
	KindAppendRelease    Kind = "append_release"
	KindSpecChangelog    Kind = "spec_changelog"
	KindAddFile          Kind = "add_file"
	KindDeleteFile       Kind = "delete_file"
	KindReplaceFile      Kind = "replace_file"
	KindApplyScript      Kind = "apply_script"
	KindApplyPatch       Kind = "apply_patch"
)

// 🎯 Action is one validated mutation of a package
type Action interface {
	// Kind returns the config name of the action
	Kind() Kind
	// Target names what the action touches, for logs and plans
	Target() string
	// Execute applies the action to pkg
	Execute(ctx context.Context, pkg *Package) error
}

type builder func(p params) (Action, error)

// actionTable maps every config name to its schema and constructor.
var actionTable = map[Kind]struct {
	schema schema
	build  builder
}{
	KindSearchAndReplace: {searchAndReplaceSchema, newSearchAndReplace},
	KindDeleteLine:       {deleteLineSchema, newDeleteLine},
	KindAppendRelease:    {appendReleaseSchema, newAppendRelease},
	KindSpecChangelog:    {specChangelogSchema, newSpecChangelog},
	KindAddFile:          {addFileSchema, newAddFile},
	KindDeleteFile:       {deleteFileSchema, newDeleteFile},
	KindReplaceFile:      {replaceFileSchema, newReplaceFile},
	KindApplyScript:      {applyScriptSchema, newApplyScript},
	KindApplyPatch:       {applyPatchSchema, newApplyPatch},
}

// Kinds lists every known action name, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(actionTable))
	for k := range actionTable {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsKind reports whether name is a registered action.
func IsKind(name string) bool {
	_, ok := actionTable[Kind(name)]
	return ok
}

// NewAction validates raw against the schema of kind and builds the action.
func NewAction(kind Kind, raw map[string]any) (Action, error) {
	entry, ok := actionTable[kind]
	if !ok {
		return nil, fault.New(fault.ConfigValue, "unknown action", fault.WithTarget(string(kind)))
	}
	p := params(raw)
	if err := entry.schema.validate(p); err != nil {
		return nil, fault.WithActionName(err, string(kind))
	}
	a, err := entry.build(p)
	if err != nil {
		return nil, fault.WithActionName(err, string(kind))
	}
	return a, nil
}

// paramType is the YAML type a parameter must decode to.
type paramType int

const (
	typeString paramType = iota
	typeBool
	typeInt
	typeList
)

func (t paramType) String() string {
	switch t {
	case typeString:
		return "str"
	case typeBool:
		return "bool"
	case typeInt:
		return "int"
	case typeList:
		return "list"
	}
	return "unknown"
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "str"
	case bool:
		return "bool"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	}
	return fmt.Sprintf("%T", v)
}

func (t paramType) matches(v any) bool {
	switch t {
	case typeString:
		_, ok := v.(string)
		return ok
	case typeBool:
		_, ok := v.(bool)
		return ok
	case typeInt:
		switch v.(type) {
		case int, int64, uint64:
			return true
		}
		return false
	case typeList:
		_, ok := v.([]any)
		return ok
	}
	return false
}

// schema is the key contract of one action kind.
type schema struct {
	required []string
	allowed  map[string]paramType
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// validate enforces: every required key present, no key outside the allowed
// set, every value of its declared type and not empty.
func (s schema) validate(p params) error {
	var missing []string
	for _, k := range s.required {
		if _, ok := p[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fault.New(fault.ConfigValue, "missing keys", fault.WithTarget(strings.Join(missing, ", ")))
	}

	var unexpected []string
	for k := range p {
		if _, ok := s.allowed[k]; !ok {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fault.New(fault.ConfigValue,
			"unexpected keys, expected one of: "+strings.Join(s.allowedNames(), ", "),
			fault.WithTarget(strings.Join(unexpected, ", ")))
	}

	for _, k := range s.allowedNames() {
		v, ok := p[k]
		if !ok {
			continue
		}
		want := s.allowed[k]
		if v != nil && !want.matches(v) {
			return fault.New(fault.ConfigType,
				fmt.Sprintf("invalid type for %s: expected %s, got %s", k, want, typeName(v)),
				fault.WithTarget(k))
		}
		if isEmpty(v) {
			return fault.New(fault.ConfigValue,
				fmt.Sprintf("invalid data for %s: value cannot be empty", k),
				fault.WithTarget(k))
		}
	}
	return nil
}

func (s schema) allowedNames() []string {
	out := make([]string, 0, len(s.allowed))
	for k := range s.allowed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// params is a validated parameter mapping. The accessors assume validate has
// already checked the types.
type params map[string]any

func (p params) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p params) strOr(key, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

func (p params) boolOr(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}

func (p params) intOr(key string, def int) int {
	switch x := p[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	case uint64:
		return int(x)
	}
	return def
}

// list returns a list parameter whose items must all be strings.
func (p params) list(key string) ([]string, error) {
	raw, _ := p[key].([]any)
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fault.New(fault.ConfigType,
				fmt.Sprintf("invalid type for %s[%d]: expected str, got %s", key, i, typeName(item)),
				fault.WithTarget(key))
		}
		out = append(out, s)
	}
	return out, nil
}
