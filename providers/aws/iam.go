package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/yairfalse/purku/types"
)

// instanceProfileClient handles instance profiles. Attached roles are
// removed first so the profile delete does not hit a conflict.
type instanceProfileClient struct {
	api IAMAPI
}

func (c *instanceProfileClient) Type() string { return "iam_instance_profile" }

func (c *instanceProfileClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &iam.ListInstanceProfilesInput{}
	for {
		output, err := c.api.ListInstanceProfiles(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, profile := range output.InstanceProfiles {
			name := aws.ToString(profile.InstanceProfileName)
			resources = append(resources, types.Resource{
				ID:   name,
				Name: name,
			})
		}

		if !output.IsTruncated {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *instanceProfileClient) Delete(ctx context.Context, id string) error {
	profile, err := c.api.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{
		InstanceProfileName: aws.String(id),
	})
	if err != nil {
		return classifyError(err, id)
	}

	for _, role := range profile.InstanceProfile.Roles {
		_, err := c.api.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{
			InstanceProfileName: aws.String(id),
			RoleName:            role.RoleName,
		})
		if err != nil && !isNotFound(err) {
			return classifyError(err, id)
		}
	}

	_, err = c.api.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{
		InstanceProfileName: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *instanceProfileClient) Exists(ctx context.Context, id string) (bool, error) {
	_, err := c.api.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{
		InstanceProfileName: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return true, nil
}

// roleClient handles IAM roles. Service-linked roles are skipped; AWS
// owns their lifecycle. Managed attachments and inline policies are
// removed before the role delete.
type roleClient struct {
	api IAMAPI
}

func (c *roleClient) Type() string { return "iam_role" }

func (c *roleClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &iam.ListRolesInput{}
	for {
		output, err := c.api.ListRoles(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, role := range output.Roles {
			if strings.HasPrefix(aws.ToString(role.Path), "/aws-service-role/") {
				continue
			}
			name := aws.ToString(role.RoleName)
			resources = append(resources, types.Resource{
				ID:   name,
				Name: name,
				Tags: convertIAMTags(role.Tags),
			})
		}

		if !output.IsTruncated {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *roleClient) Delete(ctx context.Context, id string) error {
	if err := c.detachManagedPolicies(ctx, id); err != nil {
		return err
	}
	if err := c.deleteInlinePolicies(ctx, id); err != nil {
		return err
	}

	_, err := c.api.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *roleClient) detachManagedPolicies(ctx context.Context, role string) error {
	input := &iam.ListAttachedRolePoliciesInput{RoleName: aws.String(role)}
	for {
		output, err := c.api.ListAttachedRolePolicies(ctx, input)
		if err != nil {
			return classifyError(err, role)
		}

		for _, attached := range output.AttachedPolicies {
			_, err := c.api.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
				RoleName:  aws.String(role),
				PolicyArn: attached.PolicyArn,
			})
			if err != nil && !isNotFound(err) {
				return classifyError(err, role)
			}
		}

		if !output.IsTruncated {
			return nil
		}
		input.Marker = output.Marker
	}
}

func (c *roleClient) deleteInlinePolicies(ctx context.Context, role string) error {
	input := &iam.ListRolePoliciesInput{RoleName: aws.String(role)}
	for {
		output, err := c.api.ListRolePolicies(ctx, input)
		if err != nil {
			return classifyError(err, role)
		}

		for _, name := range output.PolicyNames {
			_, err := c.api.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
				RoleName:   aws.String(role),
				PolicyName: aws.String(name),
			})
			if err != nil && !isNotFound(err) {
				return classifyError(err, role)
			}
		}

		if !output.IsTruncated {
			return nil
		}
		input.Marker = output.Marker
	}
}

func (c *roleClient) Exists(ctx context.Context, id string) (bool, error) {
	_, err := c.api.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return true, nil
}

// policyClient handles customer-managed policies. The resource ID is
// the policy ARN. Non-default versions must go before the policy.
type policyClient struct {
	api IAMAPI
}

func (c *policyClient) Type() string { return "iam_policy" }

func (c *policyClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &iam.ListPoliciesInput{
		Scope: iamtypes.PolicyScopeTypeLocal,
	}
	for {
		output, err := c.api.ListPolicies(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, policy := range output.Policies {
			resources = append(resources, types.Resource{
				ID:   aws.ToString(policy.Arn),
				Name: aws.ToString(policy.PolicyName),
			})
		}

		if !output.IsTruncated {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *policyClient) Delete(ctx context.Context, id string) error {
	if err := c.deleteOldVersions(ctx, id); err != nil {
		return err
	}

	_, err := c.api.DeletePolicy(ctx, &iam.DeletePolicyInput{
		PolicyArn: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *policyClient) deleteOldVersions(ctx context.Context, arn string) error {
	input := &iam.ListPolicyVersionsInput{PolicyArn: aws.String(arn)}
	for {
		output, err := c.api.ListPolicyVersions(ctx, input)
		if err != nil {
			return classifyError(err, arn)
		}

		for _, version := range output.Versions {
			if version.IsDefaultVersion {
				continue
			}
			_, err := c.api.DeletePolicyVersion(ctx, &iam.DeletePolicyVersionInput{
				PolicyArn: aws.String(arn),
				VersionId: version.VersionId,
			})
			if err != nil && !isNotFound(err) {
				return classifyError(err, arn)
			}
		}

		if !output.IsTruncated {
			return nil
		}
		input.Marker = output.Marker
	}
}

func (c *policyClient) Exists(ctx context.Context, id string) (bool, error) {
	_, err := c.api.GetPolicy(ctx, &iam.GetPolicyInput{
		PolicyArn: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return true, nil
}

func convertIAMTags(tags []iamtypes.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		out[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return out
}
