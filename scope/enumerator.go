// Package scope expands the (account × region) work set for a run.
package scope

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yairfalse/purku/config"
	"github.com/yairfalse/purku/types"
)

// GlobalRegion is the pseudo-region used for global services (IAM),
// collapsing the region axis to one scope per account.
const GlobalRegion = "aws-global"

// CredentialResolver resolves credentials for one account. An account
// whose credentials fail to resolve contributes zero scopes.
type CredentialResolver interface {
	Resolve(ctx context.Context, accountID string) (types.Credentials, error)
}

// Enumerator builds the ordered, de-duplicated scope set.
type Enumerator struct {
	resolver CredentialResolver
	logger   zerolog.Logger
}

// NewEnumerator creates an enumerator backed by the given resolver.
func NewEnumerator(resolver CredentialResolver, logger zerolog.Logger) *Enumerator {
	return &Enumerator{resolver: resolver, logger: logger}
}

// Enumerate returns the cartesian product of resolvable accounts and
// selected regions, in configuration order, without duplicates.
// An empty selection yields zero scopes and is not an error.
func (e *Enumerator) Enumerate(ctx context.Context, accounts []string, regions []string, global bool) ([]types.Scope, error) {
	if global {
		regions = []string{GlobalRegion}
	}

	seen := make(map[types.Scope]bool)
	var scopes []types.Scope

	for _, accountID := range accounts {
		if _, err := e.resolver.Resolve(ctx, accountID); err != nil {
			e.logger.Warn().
				Str("account", accountID).
				Err(err).
				Msg("credentials unresolvable, account contributes zero scopes")
			continue
		}

		for _, region := range regions {
			s := types.Scope{AccountID: accountID, Region: region}
			if seen[s] {
				continue
			}
			seen[s] = true
			scopes = append(scopes, s)
		}
	}

	return scopes, nil
}

// ParseSelection expands a region selection against the available
// region list. Supported forms: "all", a 1-based numeric range "2-4",
// a comma list "us-east-1,eu-west-1", or an explicit list.
func ParseSelection(sel config.Selection, available []string) ([]string, error) {
	if sel.IsEmpty() {
		return nil, nil
	}

	if len(sel.List) > 0 {
		return validateRegions(sel.List, available)
	}

	raw := strings.TrimSpace(sel.Raw)
	if strings.EqualFold(raw, "all") {
		return append([]string(nil), available...), nil
	}

	if from, to, ok := parseRange(raw); ok {
		if from < 1 || to > len(available) || from > to {
			return nil, fmt.Errorf("region range %q out of bounds (1-%d)", raw, len(available))
		}
		return append([]string(nil), available[from-1:to]...), nil
	}

	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return validateRegions(names, available)
}

func parseRange(raw string) (from, to int, ok bool) {
	dash := strings.Index(raw, "-")
	if dash <= 0 || dash == len(raw)-1 {
		return 0, 0, false
	}
	from, err := strconv.Atoi(strings.TrimSpace(raw[:dash]))
	if err != nil {
		return 0, 0, false
	}
	to, err = strconv.Atoi(strings.TrimSpace(raw[dash+1:]))
	if err != nil {
		return 0, 0, false
	}
	return from, to, true
}

func validateRegions(names, available []string) ([]string, error) {
	known := make(map[string]bool, len(available))
	for _, r := range available {
		known[r] = true
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !known[name] {
			return nil, fmt.Errorf("unknown region %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
