package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/yairfalse/purku/domain"
	"github.com/yairfalse/purku/types"
)

// Discover lists live instances of every type in the domain's tier
// table and stamps each with its static tier. Descriptors come back
// ordered by tier then type then ID, so downstream output is stable.
func Discover(ctx context.Context, d *domain.Domain, clients []ResourceClient) ([]types.Resource, error) {
	var resources []types.Resource

	for _, client := range clients {
		tier := d.TierFor(client.Type())
		if tier < 0 && !d.AlwaysPreserved(client.Type()) {
			return nil, fmt.Errorf("client type %q has no tier in domain %q", client.Type(), d.Name)
		}

		listed, err := client.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", client.Type(), err)
		}

		for _, r := range listed {
			r.Type = client.Type()
			r.Tier = tier
			resources = append(resources, r)
		}
	}

	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Tier != resources[j].Tier {
			return resources[i].Tier < resources[j].Tier
		}
		if resources[i].Type != resources[j].Type {
			return resources[i].Type < resources[j].Type
		}
		return resources[i].ID < resources[j].ID
	})

	return resources, nil
}
