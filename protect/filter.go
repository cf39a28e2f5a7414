// Package protect partitions discovered resources into deletable and
// preserved sets before the scheduler ever sees them.
package protect

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/yairfalse/purku/domain"
	"github.com/yairfalse/purku/types"
)

// Rules holds the preservation rules for one run: an exact-name
// allowlist, compiled name patterns, the domain's always-preserve
// type categories, and an optional policy evaluated per resource.
type Rules struct {
	names    map[string]bool
	patterns []glob.Glob
	domain   *domain.Domain
	policy   *Policy
}

// NewRules compiles preservation rules. Pattern syntax is glob
// ("default*", "*-prod"). A nil policy disables policy checks.
func NewRules(d *domain.Domain, names []string, patterns []string, policy *Policy) (*Rules, error) {
	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad protection pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}

	return &Rules{
		names:    nameSet,
		patterns: compiled,
		domain:   d,
		policy:   policy,
	}, nil
}

// DefaultNames is the built-in exact-name allowlist: entities AWS
// creates implicitly and refuses to delete, or that every other
// resource in the account silently depends on. RDS default groups
// carry family-specific names (default.mysql8.0) and are excluded
// at list time instead.
func DefaultNames() []string {
	return []string{
		"default", // default security group, default VPC and subnet Name tag
	}
}

// Partition splits resources into (toDelete, protected). Protected
// resources never reach the deletion executor but are still recorded
// as outcomes for audit completeness.
func (r *Rules) Partition(ctx context.Context, resources []types.Resource) (toDelete, protected []types.Resource, err error) {
	for _, res := range resources {
		preserved, perr := r.isProtected(ctx, res)
		if perr != nil {
			return nil, nil, perr
		}
		if preserved {
			res.Protected = true
			protected = append(protected, res)
			continue
		}
		toDelete = append(toDelete, res)
	}
	return toDelete, protected, nil
}

func (r *Rules) isProtected(ctx context.Context, res types.Resource) (bool, error) {
	if r.domain != nil && r.domain.AlwaysPreserved(res.Type) {
		return true, nil
	}
	if r.names[res.Name] {
		return true, nil
	}
	for _, g := range r.patterns {
		if res.Name != "" && g.Match(res.Name) {
			return true, nil
		}
	}
	if r.policy != nil {
		denied, err := r.policy.Denies(ctx, res)
		if err != nil {
			return false, fmt.Errorf("protection policy failed for %s: %w", res.ID, err)
		}
		if denied {
			return true, nil
		}
	}
	return false, nil
}
