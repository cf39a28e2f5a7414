package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/purku/types"
)

// instanceClient handles EC2 instances.
type instanceClient struct {
	api EC2API
}

func (c *instanceClient) Type() string { return "ec2_instance" }

func (c *instanceClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeInstancesInput{}
	for {
		output, err := c.api.DescribeInstances(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, reservation := range output.Reservations {
			for _, inst := range reservation.Instances {
				switch inst.State.Name {
				case ec2types.InstanceStateNameTerminated, ec2types.InstanceStateNameShuttingDown:
					continue
				}
				tags := convertEC2Tags(inst.Tags)
				id := aws.ToString(inst.InstanceId)
				resources = append(resources, types.Resource{
					ID:   id,
					Name: nameFromTags(tags, id),
					Tags: tags,
				})
			}
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return resources, nil
}

func (c *instanceClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	})
	return classifyError(err, id)
}

func (c *instanceClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			switch inst.State.Name {
			case ec2types.InstanceStateNameTerminated, ec2types.InstanceStateNameShuttingDown:
			default:
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *instanceClient) InTransition(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			switch inst.State.Name {
			case ec2types.InstanceStateNamePending, ec2types.InstanceStateNameStopping:
				return true, nil
			}
		}
	}
	return false, nil
}

// volumeClient handles EBS volumes.
type volumeClient struct {
	api EC2API
}

func (c *volumeClient) Type() string { return "ebs_volume" }

func (c *volumeClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeVolumesInput{}
	for {
		output, err := c.api.DescribeVolumes(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, vol := range output.Volumes {
			if vol.State == ec2types.VolumeStateDeleting || vol.State == ec2types.VolumeStateDeleted {
				continue
			}
			tags := convertEC2Tags(vol.Tags)
			id := aws.ToString(vol.VolumeId)
			resources = append(resources, types.Resource{
				ID:   id,
				Name: nameFromTags(tags, id),
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

func (c *volumeClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
		VolumeId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *volumeClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, vol := range output.Volumes {
		if vol.State != ec2types.VolumeStateDeleted {
			return true, nil
		}
	}
	return false, nil
}

// snapshotClient handles EBS snapshots owned by the account.
type snapshotClient struct {
	api EC2API
}

func (c *snapshotClient) Type() string { return "ebs_snapshot" }

func (c *snapshotClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	}
	for {
		output, err := c.api.DescribeSnapshots(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, snap := range output.Snapshots {
			tags := convertEC2Tags(snap.Tags)
			id := aws.ToString(snap.SnapshotId)
			resources = append(resources, types.Resource{
				ID:   id,
				Name: nameFromTags(tags, id),
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

func (c *snapshotClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
		SnapshotId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *snapshotClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
		SnapshotIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.Snapshots) > 0, nil
}
