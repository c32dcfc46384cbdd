package editor

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/log"
	"github.com/walteh/srpmproc/pkg/testutils"
)

type recordingAction struct {
	kind Kind
	name string
	err  error
	log  *[]string
}

func (a *recordingAction) Kind() Kind     { return a.kind }
func (a *recordingAction) Target() string { return a.name }
func (a *recordingAction) Execute(ctx context.Context, pkg *Package) error {
	*a.log = append(*a.log, a.name)
	return a.err
}

func TestActionQueue_Order(t *testing.T) {
	var ran []string
	q := NewActionQueue()
	q.Add(&recordingAction{kind: KindSpecChangelog, name: "changelog-A", log: &ran})
	q.Add(&recordingAction{kind: KindSearchAndReplace, name: "replace-1", log: &ran})
	q.Add(&recordingAction{kind: KindSpecChangelog, name: "changelog-B", log: &ran})
	q.Add(&recordingAction{kind: KindAddFile, name: "add-2", log: &ran})
	q.Add(&recordingAction{kind: KindSpecChangelog, name: "changelog-C", log: &ran})

	require.NoError(t, q.ExecuteAll(testutils.Context(t), &Package{}))
	assert.Equal(t, []string{"replace-1", "add-2", "changelog-C", "changelog-B", "changelog-A"}, ran)

	names := func(as []Action) []string {
		var out []string
		for _, a := range as {
			out = append(out, a.Target())
		}
		return out
	}
	assert.Equal(t, []string{"changelog-A", "replace-1", "changelog-B", "add-2", "changelog-C"}, names(q.Actions()),
		"declaration order is kept for inspection")
	assert.Equal(t, ran, names(q.Ordered()))
}

func TestActionQueue_StopsOnError(t *testing.T) {
	var ran []string
	q := NewActionQueue()
	q.Add(&recordingAction{kind: KindDeleteFile, name: "one", log: &ran})
	q.Add(&recordingAction{kind: KindDeleteFile, name: "two", log: &ran, err: fault.New(fault.NotFound, "gone")})
	q.Add(&recordingAction{kind: KindDeleteFile, name: "three", log: &ran})
	q.Add(&recordingAction{kind: KindSpecChangelog, name: "log", log: &ran})

	err := q.ExecuteAll(testutils.Context(t), &Package{})
	require.Error(t, err)
	assert.Equal(t, []string{"one", "two"}, ran)

	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, string(KindDeleteFile), f.Action)
}

func TestActionQueue_PlainErrorsBecomeFaults(t *testing.T) {
	var ran []string
	q := NewActionQueue()
	q.Add(&recordingAction{kind: KindApplyScript, name: "s", log: &ran, err: assert.AnError})

	err := q.ExecuteAll(testutils.Context(t), &Package{})
	require.Error(t, err)
	assert.Equal(t, fault.General.Code(), fault.CodeOf(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestActionQueue_LogsOutcomes(t *testing.T) {
	var ran []string
	var console bytes.Buffer
	logger := log.New(&console, zerolog.New(zerolog.NewTestWriter(t)))
	ctx := log.NewContext(testutils.Context(t), logger)

	q := NewActionQueue()
	q.Add(&recordingAction{kind: KindAppendRelease, name: "skip", log: &ran, err: ErrSkipped})
	q.Add(&recordingAction{kind: KindDeleteFile, name: "ok", log: &ran})

	require.NoError(t, q.ExecuteAll(ctx, &Package{}))

	ops := logger.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, log.ActionSkipped, ops[0].Status)
	assert.Equal(t, log.ActionApplied, ops[1].Status)
	assert.Equal(t, 2, ops[1].Index)
	assert.Contains(t, console.String(), "append_release")
}
