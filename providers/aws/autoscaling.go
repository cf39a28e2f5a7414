package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/yairfalse/purku/types"
)

// autoScalingGroupClient handles auto scaling groups. Deletes use
// ForceDelete so in-service instances do not block the group.
type autoScalingGroupClient struct {
	api AutoScalingAPI
}

func (c *autoScalingGroupClient) Type() string { return "autoscaling_group" }

func (c *autoScalingGroupClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &autoscaling.DescribeAutoScalingGroupsInput{}
	for {
		output, err := c.api.DescribeAutoScalingGroups(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, group := range output.AutoScalingGroups {
			if group.Status != nil {
				// Non-nil status means the group is already deleting.
				continue
			}
			name := aws.ToString(group.AutoScalingGroupName)
			resources = append(resources, types.Resource{
				ID:   name,
				Name: name,
			})
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return resources, nil
}

func (c *autoScalingGroupClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteAutoScalingGroup(ctx, &autoscaling.DeleteAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(id),
		ForceDelete:          aws.Bool(true),
	})
	return classifyError(err, id)
}

func (c *autoScalingGroupClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.AutoScalingGroups) > 0, nil
}

// launchTemplateClient handles EC2 launch templates, the second ASG
// tier once no group references them.
type launchTemplateClient struct {
	api EC2API
}

func (c *launchTemplateClient) Type() string { return "launch_template" }

func (c *launchTemplateClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeLaunchTemplatesInput{}
	for {
		output, err := c.api.DescribeLaunchTemplates(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, lt := range output.LaunchTemplates {
			tags := convertEC2Tags(lt.Tags)
			resources = append(resources, types.Resource{
				ID:   aws.ToString(lt.LaunchTemplateId),
				Name: aws.ToString(lt.LaunchTemplateName),
				Tags: tags,
			})
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return resources, nil
}

func (c *launchTemplateClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteLaunchTemplate(ctx, &ec2.DeleteLaunchTemplateInput{
		LaunchTemplateId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *launchTemplateClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeLaunchTemplates(ctx, &ec2.DescribeLaunchTemplatesInput{
		LaunchTemplateIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.LaunchTemplates) > 0, nil
}
