// Package aws implements the per-type resource clients for the five
// teardown domains on aws-sdk-go-v2.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/yairfalse/purku/providers"
	"github.com/yairfalse/purku/scope"
	"github.com/yairfalse/purku/types"
)

// Factory builds the client set for one domain in one scope.
type Factory struct {
	domain string
}

// NewFactory creates a factory for a domain and registers nothing;
// call RegisterAll once at startup to register every domain.
func NewFactory(domain string) *Factory {
	return &Factory{domain: domain}
}

// RegisterAll registers a factory for every supported domain.
func RegisterAll() {
	for _, d := range []string{"vpc", "rds", "eks", "asg", "iam"} {
		providers.RegisterFactory(d, NewFactory(d))
	}
}

// Clients implements providers.Factory. A scope that cannot be
// reached (bad credentials, unreachable region) returns
// *types.ScopeUnreachableError.
func (f *Factory) Clients(ctx context.Context, s types.Scope, creds types.Credentials) ([]providers.ResourceClient, error) {
	cfg, err := loadConfig(ctx, s, creds)
	if err != nil {
		return nil, &types.ScopeUnreachableError{Scope: s, Err: err}
	}

	switch f.domain {
	case "vpc":
		return f.vpcClients(ctx, s, cfg)
	case "rds":
		return f.rdsClients(ctx, s, cfg)
	case "eks":
		return f.eksClients(ctx, s, cfg)
	case "asg":
		return f.asgClients(ctx, s, cfg)
	case "iam":
		return f.iamClients(ctx, s, cfg)
	default:
		return nil, fmt.Errorf("unsupported domain %q", f.domain)
	}
}

func loadConfig(ctx context.Context, s types.Scope, creds types.Credentials) (aws.Config, error) {
	region := s.Region
	if region == scope.GlobalRegion {
		// Global services still need an API region.
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if creds.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

func (f *Factory) vpcClients(ctx context.Context, s types.Scope, cfg aws.Config) ([]providers.ResourceClient, error) {
	ec2Client := ec2.NewFromConfig(cfg)
	if err := probeEC2(ctx, s, ec2Client); err != nil {
		return nil, err
	}
	elbClient := elasticloadbalancingv2.NewFromConfig(cfg)

	return []providers.ResourceClient{
		&instanceClient{api: ec2Client},
		&volumeClient{api: ec2Client},
		&snapshotClient{api: ec2Client},
		&loadBalancerClient{api: elbClient},
		&natGatewayClient{api: ec2Client},
		&networkInterfaceClient{api: ec2Client},
		&securityGroupClient{api: ec2Client},
		&routeTableClient{api: ec2Client},
		&subnetClient{api: ec2Client},
		&internetGatewayClient{api: ec2Client},
		&vpcClient{api: ec2Client},
	}, nil
}

func (f *Factory) rdsClients(ctx context.Context, s types.Scope, cfg aws.Config) ([]providers.ResourceClient, error) {
	client := rds.NewFromConfig(cfg)
	if err := probeRDS(ctx, s, client); err != nil {
		return nil, err
	}

	return []providers.ResourceClient{
		&dbInstanceClient{api: client},
		&dbSnapshotClient{api: client},
		&dbClusterClient{api: client},
		&dbParameterGroupClient{api: client},
		&dbSubnetGroupClient{api: client},
	}, nil
}

func (f *Factory) eksClients(ctx context.Context, s types.Scope, cfg aws.Config) ([]providers.ResourceClient, error) {
	client := eks.NewFromConfig(cfg)
	if err := probeEKS(ctx, s, client); err != nil {
		return nil, err
	}

	return []providers.ResourceClient{
		&nodegroupClient{api: client},
		&eksClusterClient{api: client},
	}, nil
}

func (f *Factory) asgClients(ctx context.Context, s types.Scope, cfg aws.Config) ([]providers.ResourceClient, error) {
	ec2Client := ec2.NewFromConfig(cfg)
	if err := probeEC2(ctx, s, ec2Client); err != nil {
		return nil, err
	}

	return []providers.ResourceClient{
		&autoScalingGroupClient{api: autoscaling.NewFromConfig(cfg)},
		&launchTemplateClient{api: ec2Client},
	}, nil
}

func (f *Factory) iamClients(ctx context.Context, s types.Scope, cfg aws.Config) ([]providers.ResourceClient, error) {
	client := iam.NewFromConfig(cfg)
	if err := probeIAM(ctx, s, client); err != nil {
		return nil, err
	}

	return []providers.ResourceClient{
		&instanceProfileClient{api: client},
		&roleClient{api: client},
		&policyClient{api: client},
	}, nil
}

// Reachability probes: one cheap read per domain so bad credentials
// and unreachable regions surface as a scope-level condition instead
// of mid-teardown failures.

func probeEC2(ctx context.Context, s types.Scope, api EC2API) error {
	if _, err := api.DescribeAccountAttributes(ctx, &ec2.DescribeAccountAttributesInput{}); err != nil {
		return &types.ScopeUnreachableError{Scope: s, Err: err}
	}
	return nil
}

func probeRDS(ctx context.Context, s types.Scope, api RDSAPI) error {
	if _, err := api.DescribeAccountAttributes(ctx, &rds.DescribeAccountAttributesInput{}); err != nil {
		return &types.ScopeUnreachableError{Scope: s, Err: err}
	}
	return nil
}

func probeEKS(ctx context.Context, s types.Scope, api EKSAPI) error {
	if _, err := api.ListClusters(ctx, &eks.ListClustersInput{MaxResults: aws.Int32(1)}); err != nil {
		return &types.ScopeUnreachableError{Scope: s, Err: err}
	}
	return nil
}

func probeIAM(ctx context.Context, s types.Scope, api IAMAPI) error {
	if _, err := api.ListAccountAliases(ctx, &iam.ListAccountAliasesInput{}); err != nil {
		return &types.ScopeUnreachableError{Scope: s, Err: err}
	}
	return nil
}
