package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/yairfalse/purku/types"
)

// loadBalancerClient handles ALBs and NLBs. The resource ID is the
// load balancer ARN, the only handle the delete call accepts.
type loadBalancerClient struct {
	api ELBAPI
}

func (c *loadBalancerClient) Type() string { return "load_balancer" }

func (c *loadBalancerClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &elasticloadbalancingv2.DescribeLoadBalancersInput{}
	for {
		output, err := c.api.DescribeLoadBalancers(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, lb := range output.LoadBalancers {
			resources = append(resources, types.Resource{
				ID:   aws.ToString(lb.LoadBalancerArn),
				Name: aws.ToString(lb.LoadBalancerName),
			})
		}

		if output.NextMarker == nil {
			break
		}
		input.Marker = output.NextMarker
	}

	return resources, nil
}

func (c *loadBalancerClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteLoadBalancer(ctx, &elasticloadbalancingv2.DeleteLoadBalancerInput{
		LoadBalancerArn: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *loadBalancerClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{
		LoadBalancerArns: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.LoadBalancers) > 0, nil
}

func (c *loadBalancerClient) InTransition(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{
		LoadBalancerArns: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, lb := range output.LoadBalancers {
		if lb.State != nil && lb.State.Code == elbtypes.LoadBalancerStateEnumProvisioning {
			return true, nil
		}
	}
	return false, nil
}
