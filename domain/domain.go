// Package domain defines the static tier tables that order teardown
// within each resource domain. Tiers are assigned by type only; true
// inter-instance dependencies surface as dependency-violation errors
// at delete time and are handled by the scheduler's retry budget.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// TierSpec is one ordering bucket of resource types. Every type in
// tier N must reach a terminal state before tier N+1 is attempted in
// the same scope. WaitBudget bounds both the pre-delete settle wait
// and the post-delete absence confirmation for resources in the tier.
type TierSpec struct {
	Level      int
	Types      []string
	WaitBudget time.Duration
}

// Domain describes one teardown target: its tier table and the type
// categories this system never deletes regardless of other settings.
type Domain struct {
	Name          string
	Global        bool
	Tiers         []TierSpec
	PreserveTypes []string

	tierByType map[string]int
}

var registry = map[string]*Domain{}

func register(d *Domain) {
	d.tierByType = make(map[string]int)
	for _, t := range d.Tiers {
		for _, typ := range t.Types {
			d.tierByType[typ] = t.Level
		}
	}
	registry[d.Name] = d
}

// Lookup returns the domain by name.
func Lookup(name string) (*Domain, error) {
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown domain %q (have %v)", name, Names())
	}
	return d, nil
}

// Names lists registered domain names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TierFor returns the tier level for a resource type, or -1 when the
// type is not part of this domain.
func (d *Domain) TierFor(resourceType string) int {
	if level, ok := d.tierByType[resourceType]; ok {
		return level
	}
	return -1
}

// WaitBudgetFor returns the wait budget for a tier level.
func (d *Domain) WaitBudgetFor(level int) time.Duration {
	for _, t := range d.Tiers {
		if t.Level == level {
			return t.WaitBudget
		}
	}
	return time.Minute
}

// AlwaysPreserved reports whether the type is categorically protected
// in this domain.
func (d *Domain) AlwaysPreserved(resourceType string) bool {
	for _, t := range d.PreserveTypes {
		if t == resourceType {
			return true
		}
	}
	return false
}

func init() {
	// Children strictly before parents. Wait budgets reflect real
	// provider-side teardown latency: instances settle in minutes,
	// network boundaries and clusters take far longer to release.
	register(&Domain{
		Name: "vpc",
		Tiers: []TierSpec{
			{Level: 0, Types: []string{"ec2_instance"}, WaitBudget: 5 * time.Minute},
			{Level: 1, Types: []string{"ebs_volume", "ebs_snapshot"}, WaitBudget: 3 * time.Minute},
			{Level: 2, Types: []string{"load_balancer", "nat_gateway", "network_interface"}, WaitBudget: 8 * time.Minute},
			{Level: 3, Types: []string{"security_group", "route_table", "subnet", "internet_gateway"}, WaitBudget: 4 * time.Minute},
			{Level: 4, Types: []string{"vpc"}, WaitBudget: 10 * time.Minute},
		},
	})

	register(&Domain{
		Name: "rds",
		Tiers: []TierSpec{
			{Level: 0, Types: []string{"db_instance"}, WaitBudget: 15 * time.Minute},
			{Level: 1, Types: []string{"db_snapshot"}, WaitBudget: 5 * time.Minute},
			{Level: 2, Types: []string{"db_cluster"}, WaitBudget: 15 * time.Minute},
			{Level: 3, Types: []string{"db_parameter_group"}, WaitBudget: 2 * time.Minute},
		},
		PreserveTypes: []string{"db_subnet_group"},
	})

	register(&Domain{
		Name: "eks",
		Tiers: []TierSpec{
			{Level: 0, Types: []string{"eks_nodegroup"}, WaitBudget: 15 * time.Minute},
			{Level: 1, Types: []string{"eks_cluster"}, WaitBudget: 20 * time.Minute},
		},
	})

	register(&Domain{
		Name: "asg",
		Tiers: []TierSpec{
			{Level: 0, Types: []string{"autoscaling_group"}, WaitBudget: 10 * time.Minute},
			{Level: 1, Types: []string{"launch_template"}, WaitBudget: 2 * time.Minute},
		},
	})

	register(&Domain{
		Name:   "iam",
		Global: true,
		Tiers: []TierSpec{
			{Level: 0, Types: []string{"iam_instance_profile"}, WaitBudget: 2 * time.Minute},
			{Level: 1, Types: []string{"iam_role"}, WaitBudget: 2 * time.Minute},
			{Level: 2, Types: []string{"iam_policy"}, WaitBudget: 2 * time.Minute},
		},
	})
}
