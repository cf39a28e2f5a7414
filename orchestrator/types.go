package orchestrator

import (
	"context"

	"github.com/yairfalse/purku/types"
)

// Decision is the confirmation gate's answer.
type Decision int

const (
	Abort Decision = iota
	Proceed
)

// Plan summarizes what a run is about to delete. It is handed to the
// confirmation gate before any deletion tier begins.
type Plan struct {
	Domain    string        `json:"domain"`
	Scopes    []types.Scope `json:"scopes"`
	ToDelete  int           `json:"to_delete"`
	Protected int           `json:"protected"`
}

// Gate is the operator confirmation boundary: a pure decision
// function. Presentation (prompts, flags) lives with the caller.
// Declining aborts only the pending deletion work, never anything
// already completed or discovered.
type Gate interface {
	Confirm(ctx context.Context, plan Plan) (Decision, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, plan Plan) (Decision, error)

// Confirm implements Gate.
func (f GateFunc) Confirm(ctx context.Context, plan Plan) (Decision, error) {
	return f(ctx, plan)
}

// AutoApprove is a gate that always proceeds, for non-interactive runs.
func AutoApprove() Gate {
	return GateFunc(func(context.Context, Plan) (Decision, error) {
		return Proceed, nil
	})
}
