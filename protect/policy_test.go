package protect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/purku/types"
)

const denyTaggedPolicy = `
package purku.protect

deny contains msg if {
	input.resource.tags["purku:keep"] == "true"
	msg := "resource is tagged keep"
}

deny contains msg if {
	input.resource.name == "jumpbox"
	msg := "jumpbox stays"
}
`

func TestPolicy_Denies(t *testing.T) {
	ctx := context.Background()
	policy, err := CompilePolicy(ctx, "keep.rego", denyTaggedPolicy)
	require.NoError(t, err)

	denied, err := policy.Denies(ctx, types.Resource{
		Type: "ec2_instance",
		ID:   "i-1",
		Name: "worker",
		Tags: map[string]string{"purku:keep": "true"},
	})
	require.NoError(t, err)
	assert.True(t, denied)

	denied, err = policy.Denies(ctx, types.Resource{
		Type: "ec2_instance",
		ID:   "i-2",
		Name: "jumpbox",
	})
	require.NoError(t, err)
	assert.True(t, denied)

	denied, err = policy.Denies(ctx, types.Resource{
		Type: "ec2_instance",
		ID:   "i-3",
		Name: "worker",
	})
	require.NoError(t, err)
	assert.False(t, denied)
}

func TestCompilePolicy_BadSource(t *testing.T) {
	_, err := CompilePolicy(context.Background(), "bad.rego", "package purku.protect\ndeny {")
	assert.Error(t, err)
}

func TestRulesWithPolicy(t *testing.T) {
	ctx := context.Background()
	policy, err := CompilePolicy(ctx, "keep.rego", denyTaggedPolicy)
	require.NoError(t, err)

	rules, err := NewRules(nil, nil, nil, policy)
	require.NoError(t, err)

	toDelete, protected, err := rules.Partition(ctx, []types.Resource{
		{Type: "ec2_instance", ID: "i-1", Name: "worker", Tags: map[string]string{"purku:keep": "true"}},
		{Type: "ec2_instance", ID: "i-2", Name: "worker"},
	})
	require.NoError(t, err)
	require.Len(t, protected, 1)
	assert.Equal(t, "i-1", protected[0].ID)
	require.Len(t, toDelete, 1)
	assert.Equal(t, "i-2", toDelete[0].ID)
}
