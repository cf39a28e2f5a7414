package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/yairfalse/purku/types"
)

// nodegroupClient handles EKS managed node groups. The resource ID is
// "cluster/nodegroup" because nodegroup names are only unique within
// their cluster.
type nodegroupClient struct {
	api EKSAPI
}

func (c *nodegroupClient) Type() string { return "eks_nodegroup" }

func (c *nodegroupClient) List(ctx context.Context) ([]types.Resource, error) {
	clusters, err := c.listClusters(ctx)
	if err != nil {
		return nil, err
	}

	var resources []types.Resource
	for _, cluster := range clusters {
		input := &eks.ListNodegroupsInput{ClusterName: aws.String(cluster)}
		for {
			output, err := c.api.ListNodegroups(ctx, input)
			if err != nil {
				return nil, classifyError(err, cluster)
			}

			for _, ng := range output.Nodegroups {
				resources = append(resources, types.Resource{
					ID:   cluster + "/" + ng,
					Name: ng,
				})
			}

			if output.NextToken == nil {
				break
			}
			input.NextToken = output.NextToken
		}
	}

	return resources, nil
}

func (c *nodegroupClient) listClusters(ctx context.Context) ([]string, error) {
	var clusters []string

	input := &eks.ListClustersInput{}
	for {
		output, err := c.api.ListClusters(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}
		clusters = append(clusters, output.Clusters...)

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return clusters, nil
}

func splitNodegroupID(id string) (cluster, nodegroup string, err error) {
	cluster, nodegroup, ok := strings.Cut(id, "/")
	if !ok || cluster == "" || nodegroup == "" {
		return "", "", types.Permanent(fmt.Errorf("malformed nodegroup id %q, want cluster/nodegroup", id))
	}
	return cluster, nodegroup, nil
}

func (c *nodegroupClient) Delete(ctx context.Context, id string) error {
	cluster, nodegroup, err := splitNodegroupID(id)
	if err != nil {
		return err
	}
	_, err = c.api.DeleteNodegroup(ctx, &eks.DeleteNodegroupInput{
		ClusterName:   aws.String(cluster),
		NodegroupName: aws.String(nodegroup),
	})
	return classifyError(err, id)
}

func (c *nodegroupClient) Exists(ctx context.Context, id string) (bool, error) {
	cluster, nodegroup, err := splitNodegroupID(id)
	if err != nil {
		return false, err
	}
	_, err = c.api.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
		ClusterName:   aws.String(cluster),
		NodegroupName: aws.String(nodegroup),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return true, nil
}

func (c *nodegroupClient) InTransition(ctx context.Context, id string) (bool, error) {
	cluster, nodegroup, err := splitNodegroupID(id)
	if err != nil {
		return false, err
	}
	output, err := c.api.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
		ClusterName:   aws.String(cluster),
		NodegroupName: aws.String(nodegroup),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	if output.Nodegroup == nil {
		return false, nil
	}
	switch output.Nodegroup.Status {
	case ekstypes.NodegroupStatusCreating, ekstypes.NodegroupStatusUpdating:
		return true, nil
	}
	return false, nil
}

// eksClusterClient handles EKS control planes.
type eksClusterClient struct {
	api EKSAPI
}

func (c *eksClusterClient) Type() string { return "eks_cluster" }

func (c *eksClusterClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &eks.ListClustersInput{}
	for {
		output, err := c.api.ListClusters(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, name := range output.Clusters {
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

func (c *eksClusterClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteCluster(ctx, &eks.DeleteClusterInput{
		Name: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *eksClusterClient) Exists(ctx context.Context, id string) (bool, error) {
	_, err := c.api.DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return true, nil
}

func (c *eksClusterClient) InTransition(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	if output.Cluster == nil {
		return false, nil
	}
	switch output.Cluster.Status {
	case ekstypes.ClusterStatusCreating, ekstypes.ClusterStatusUpdating:
		return true, nil
	}
	return false, nil
}
