package protect

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/yairfalse/purku/types"
)

// Policy evaluates operator-supplied Rego rules against resources.
// A resource is preserved when data.purku.protect.deny is non-empty.
type Policy struct {
	query rego.PreparedEvalQuery
}

// PolicyInput is the input document handed to the Rego evaluation.
type PolicyInput struct {
	Resource  types.Resource `json:"resource"`
	Timestamp time.Time      `json:"timestamp"`
}

// LoadPolicy compiles a Rego policy file into a prepared query.
func LoadPolicy(ctx context.Context, path string) (*Policy, error) {
	code, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return CompilePolicy(ctx, path, string(code))
}

// CompilePolicy compiles Rego source into a prepared query.
func CompilePolicy(ctx context.Context, name, code string) (*Policy, error) {
	query := rego.New(
		rego.Query("data.purku.protect.deny"),
		rego.Module(name, code),
	)

	prepared, err := query.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile policy %s: %w", name, err)
	}

	return &Policy{query: prepared}, nil
}

// Denies reports whether the policy objects to deleting the resource.
func (p *Policy) Denies(ctx context.Context, res types.Resource) (bool, error) {
	input := PolicyInput{Resource: res, Timestamp: time.Now()}

	results, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}

	for _, r := range results {
		for _, expr := range r.Expressions {
			switch v := expr.Value.(type) {
			case bool:
				if v {
					return true, nil
				}
			case []interface{}:
				if len(v) > 0 {
					return true, nil
				}
			}
		}
	}
	return false, nil
}
