// Package providers defines the capability interfaces the teardown
// core uses to talk to cloud APIs, and the registry that selects the
// per-domain client set. The core is agnostic to transport.
package providers

import (
	"context"
	"fmt"

	"github.com/yairfalse/purku/types"
)

// ResourceClient handles one resource type inside one scope. A client
// is constructed per scope, so the scope does not appear in calls.
type ResourceClient interface {
	// Type returns the resource type this client handles, e.g. "ec2_instance".
	Type() string
	// List enumerates live resource instances of this type.
	List(ctx context.Context) ([]types.Resource, error)
	// Delete issues the delete call for one resource.
	Delete(ctx context.Context, id string) error
	// Exists checks for terminal absence after a delete.
	Exists(ctx context.Context, id string) (bool, error)
}

// TransitionProber is an optional capability: clients that can tell
// whether a resource is mid-transition (creating, modifying) let the
// scheduler wait for it to settle before issuing the delete.
type TransitionProber interface {
	InTransition(ctx context.Context, id string) (bool, error)
}

// Factory builds the client set for one domain in one scope.
// A scope that cannot be reached returns *types.ScopeUnreachableError.
type Factory interface {
	Clients(ctx context.Context, scope types.Scope, creds types.Credentials) ([]ResourceClient, error)
}

var factories = make(map[string]Factory)

// RegisterFactory registers a client factory for a domain.
func RegisterFactory(domain string, f Factory) {
	factories[domain] = f
}

// FactoryFor returns the registered factory for a domain.
func FactoryFor(domain string) (Factory, error) {
	f, ok := factories[domain]
	if !ok {
		return nil, fmt.Errorf("no client factory registered for domain %q", domain)
	}
	return f, nil
}
