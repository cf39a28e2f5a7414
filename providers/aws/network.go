package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/purku/types"
)

// natGatewayClient handles NAT gateways.
type natGatewayClient struct {
	api EC2API
}

func (c *natGatewayClient) Type() string { return "nat_gateway" }

func (c *natGatewayClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeNatGatewaysInput{}
	for {
		output, err := c.api.DescribeNatGateways(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, gw := range output.NatGateways {
			if gw.State == ec2types.NatGatewayStateDeleted || gw.State == ec2types.NatGatewayStateDeleting {
				continue
			}
			tags := convertEC2Tags(gw.Tags)
			id := aws.ToString(gw.NatGatewayId)
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

func (c *natGatewayClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{
		NatGatewayId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *natGatewayClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		NatGatewayIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, gw := range output.NatGateways {
		if gw.State != ec2types.NatGatewayStateDeleted {
			return true, nil
		}
	}
	return false, nil
}

func (c *natGatewayClient) InTransition(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		NatGatewayIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, gw := range output.NatGateways {
		if gw.State == ec2types.NatGatewayStatePending {
			return true, nil
		}
	}
	return false, nil
}

// networkInterfaceClient handles detached network interfaces. Attached
// interfaces disappear with whatever they are attached to.
type networkInterfaceClient struct {
	api EC2API
}

func (c *networkInterfaceClient) Type() string { return "network_interface" }

func (c *networkInterfaceClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeNetworkInterfacesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("status"), Values: []string{"available"}},
		},
	}
	for {
		output, err := c.api.DescribeNetworkInterfaces(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, eni := range output.NetworkInterfaces {
			tags := make(map[string]string, len(eni.TagSet))
			for _, t := range eni.TagSet {
				tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
			}
			id := aws.ToString(eni.NetworkInterfaceId)
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

func (c *networkInterfaceClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteNetworkInterface(ctx, &ec2.DeleteNetworkInterfaceInput{
		NetworkInterfaceId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *networkInterfaceClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		NetworkInterfaceIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.NetworkInterfaces) > 0, nil
}

// securityGroupClient handles security groups.
type securityGroupClient struct {
	api EC2API
}

func (c *securityGroupClient) Type() string { return "security_group" }

func (c *securityGroupClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeSecurityGroupsInput{}
	for {
		output, err := c.api.DescribeSecurityGroups(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, sg := range output.SecurityGroups {
			resources = append(resources, types.Resource{
				ID:   aws.ToString(sg.GroupId),
				Name: aws.ToString(sg.GroupName),
				Tags: convertEC2Tags(sg.Tags),
			})
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return resources, nil
}

func (c *securityGroupClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *securityGroupClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.SecurityGroups) > 0, nil
}

// routeTableClient handles route tables. Main route tables are skipped
// entirely: they fall with their VPC and cannot be deleted directly.
type routeTableClient struct {
	api EC2API
}

func (c *routeTableClient) Type() string { return "route_table" }

func (c *routeTableClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeRouteTablesInput{}
	for {
		output, err := c.api.DescribeRouteTables(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, rt := range output.RouteTables {
			if isMainRouteTable(rt) {
				continue
			}
			tags := convertEC2Tags(rt.Tags)
			id := aws.ToString(rt.RouteTableId)
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

func isMainRouteTable(rt ec2types.RouteTable) bool {
	for _, assoc := range rt.Associations {
		if aws.ToBool(assoc.Main) {
			return true
		}
	}
	return false
}

func (c *routeTableClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{
		RouteTableId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *routeTableClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		RouteTableIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.RouteTables) > 0, nil
}

// subnetClient handles subnets.
type subnetClient struct {
	api EC2API
}

func (c *subnetClient) Type() string { return "subnet" }

func (c *subnetClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeSubnetsInput{}
	for {
		output, err := c.api.DescribeSubnets(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, subnet := range output.Subnets {
			tags := convertEC2Tags(subnet.Tags)
			id := aws.ToString(subnet.SubnetId)
			name := nameFromTags(tags, id)
			if aws.ToBool(subnet.DefaultForAz) {
				name = "default"
			}
			resources = append(resources, types.Resource{
				ID:   id,
				Name: name,
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

func (c *subnetClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{
		SubnetId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *subnetClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		SubnetIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.Subnets) > 0, nil
}

// internetGatewayClient handles internet gateways, detaching them from
// their VPC before the delete call.
type internetGatewayClient struct {
	api EC2API
}

func (c *internetGatewayClient) Type() string { return "internet_gateway" }

func (c *internetGatewayClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeInternetGatewaysInput{}
	for {
		output, err := c.api.DescribeInternetGateways(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, igw := range output.InternetGateways {
			tags := convertEC2Tags(igw.Tags)
			id := aws.ToString(igw.InternetGatewayId)
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

func (c *internetGatewayClient) Delete(ctx context.Context, id string) error {
	output, err := c.api.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		InternetGatewayIds: []string{id},
	})
	if err != nil {
		return classifyError(err, id)
	}

	for _, igw := range output.InternetGateways {
		for _, attachment := range igw.Attachments {
			_, err := c.api.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
				InternetGatewayId: aws.String(id),
				VpcId:             attachment.VpcId,
			})
			if err != nil && !isNotFound(err) {
				return classifyError(err, id)
			}
		}
	}

	_, err = c.api.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *internetGatewayClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		InternetGatewayIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.InternetGateways) > 0, nil
}

// vpcClient handles VPCs, the root of the networking tier order.
type vpcClient struct {
	api EC2API
}

func (c *vpcClient) Type() string { return "vpc" }

func (c *vpcClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &ec2.DescribeVpcsInput{}
	for {
		output, err := c.api.DescribeVpcs(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, vpc := range output.Vpcs {
			tags := convertEC2Tags(vpc.Tags)
			id := aws.ToString(vpc.VpcId)
			name := nameFromTags(tags, id)
			if aws.ToBool(vpc.IsDefault) {
				name = "default"
			}
			resources = append(resources, types.Resource{
				ID:   id,
				Name: name,
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

func (c *vpcClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteVpc(ctx, &ec2.DeleteVpcInput{
		VpcId: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *vpcClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		VpcIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.Vpcs) > 0, nil
}
