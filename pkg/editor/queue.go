package editor

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// ErrSkipped is returned by actions that decided not to change anything
// without that being a failure (disabled release bump, %autochangelog).
var ErrSkipped = errors.Base("action skipped")

// 🏃 ActionQueue holds actions in declaration order and runs them once
type ActionQueue struct {
	actions []Action
}

// 🏗️ NewActionQueue creates an empty queue
func NewActionQueue() *ActionQueue {
	return &ActionQueue{}
}

// Add appends an action.
func (q *ActionQueue) Add(a Action) {
	q.actions = append(q.actions, a)
}

// Len returns the number of queued actions.
func (q *ActionQueue) Len() int {
	return len(q.actions)
}

// Actions returns the actions in declaration order.
func (q *ActionQueue) Actions() []Action {
	out := make([]Action, len(q.actions))
	copy(out, q.actions)
	return out
}

// Ordered returns the actions in execution order: everything that is not a
// spec_changelog in declaration order, then the spec_changelog actions last
// declared first.
func (q *ActionQueue) Ordered() []Action {
	var changelogs, rest []Action
	for _, a := range q.actions {
		if a.Kind() == KindSpecChangelog {
			changelogs = append(changelogs, a)
		} else {
			rest = append(rest, a)
		}
	}
	for i := len(changelogs) - 1; i >= 0; i-- {
		rest = append(rest, changelogs[i])
	}
	return rest
}

// ExecuteAll runs the queue against pkg and stops at the first failure. There
// is no rollback; earlier actions stay applied.
func (q *ActionQueue) ExecuteAll(ctx context.Context, pkg *Package) error {
	logger := zerolog.Ctx(ctx)
	console := log.FromContext(ctx)

	for i, a := range q.Ordered() {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("patching cancelled: %w", err)
		}

		op := log.ActionOperation{Index: i + 1, Kind: string(a.Kind()), Target: a.Target()}
		logger.Debug().Int("index", op.Index).Str("kind", op.Kind).Str("target", op.Target).Msg("executing action")

		err := a.Execute(ctx, pkg)
		switch {
		case err == nil:
			op.Status = log.ActionApplied
			console.LogAction(ctx, op)
		case errors.Is(err, ErrSkipped):
			op.Status = log.ActionSkipped
			console.LogAction(ctx, op)
		default:
			err = fault.WithActionName(err, string(a.Kind()))
			op.Status = log.ActionFailed
			op.Detail = err.Error()
			console.LogAction(ctx, op)
			return err
		}
	}
	return nil
}
