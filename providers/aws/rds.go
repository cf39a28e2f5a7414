package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/yairfalse/purku/types"
)

// States during which RDS rejects delete calls.
func rdsInTransition(status string) bool {
	switch status {
	case "creating", "modifying", "backing-up", "upgrading", "rebooting", "renaming":
		return true
	}
	return false
}

// dbInstanceClient handles RDS DB instances. Deletes skip the final
// snapshot and drop automated backups, matching teardown intent.
type dbInstanceClient struct {
	api RDSAPI
}

func (c *dbInstanceClient) Type() string { return "db_instance" }

func (c *dbInstanceClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &rds.DescribeDBInstancesInput{}
	for {
		output, err := c.api.DescribeDBInstances(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, db := range output.DBInstances {
			if aws.ToString(db.DBInstanceStatus) == "deleting" {
				continue
			}
			id := aws.ToString(db.DBInstanceIdentifier)
			resources = append(resources, types.Resource{
				ID:   id,
				Name: id,
			})
		}

		if output.Marker == nil {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *dbInstanceClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier:   aws.String(id),
		SkipFinalSnapshot:      aws.Bool(true),
		DeleteAutomatedBackups: aws.Bool(true),
	})
	return classifyError(err, id)
}

func (c *dbInstanceClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.DBInstances) > 0, nil
}

func (c *dbInstanceClient) InTransition(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, db := range output.DBInstances {
		if rdsInTransition(aws.ToString(db.DBInstanceStatus)) {
			return true, nil
		}
	}
	return false, nil
}

// dbSnapshotClient handles manual DB snapshots. Automated snapshots
// disappear with their instance and cannot be deleted directly.
type dbSnapshotClient struct {
	api RDSAPI
}

func (c *dbSnapshotClient) Type() string { return "db_snapshot" }

func (c *dbSnapshotClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &rds.DescribeDBSnapshotsInput{
		SnapshotType: aws.String("manual"),
	}
	for {
		output, err := c.api.DescribeDBSnapshots(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, snap := range output.DBSnapshots {
			id := aws.ToString(snap.DBSnapshotIdentifier)
			resources = append(resources, types.Resource{
				ID:   id,
				Name: id,
			})
		}

		if output.Marker == nil {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *dbSnapshotClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteDBSnapshot(ctx, &rds.DeleteDBSnapshotInput{
		DBSnapshotIdentifier: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *dbSnapshotClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeDBSnapshots(ctx, &rds.DescribeDBSnapshotsInput{
		DBSnapshotIdentifier: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.DBSnapshots) > 0, nil
}

// dbClusterClient handles Aurora clusters.
type dbClusterClient struct {
	api RDSAPI
}

func (c *dbClusterClient) Type() string { return "db_cluster" }

func (c *dbClusterClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &rds.DescribeDBClustersInput{}
	for {
		output, err := c.api.DescribeDBClusters(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, cluster := range output.DBClusters {
			if aws.ToString(cluster.Status) == "deleting" {
				continue
			}
			id := aws.ToString(cluster.DBClusterIdentifier)
			resources = append(resources, types.Resource{
				ID:   id,
				Name: id,
			})
		}

		if output.Marker == nil {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *dbClusterClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteDBCluster(ctx, &rds.DeleteDBClusterInput{
		DBClusterIdentifier: aws.String(id),
		SkipFinalSnapshot:   aws.Bool(true),
	})
	return classifyError(err, id)
}

func (c *dbClusterClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{
		DBClusterIdentifier: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.DBClusters) > 0, nil
}

func (c *dbClusterClient) InTransition(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{
		DBClusterIdentifier: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	for _, cluster := range output.DBClusters {
		if rdsInTransition(aws.ToString(cluster.Status)) {
			return true, nil
		}
	}
	return false, nil
}

// dbParameterGroupClient handles custom parameter groups. The
// default.* groups are AWS-managed and filtered out at list time.
type dbParameterGroupClient struct {
	api RDSAPI
}

func (c *dbParameterGroupClient) Type() string { return "db_parameter_group" }

func (c *dbParameterGroupClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &rds.DescribeDBParameterGroupsInput{}
	for {
		output, err := c.api.DescribeDBParameterGroups(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, pg := range output.DBParameterGroups {
			id := aws.ToString(pg.DBParameterGroupName)
			if strings.HasPrefix(id, "default.") {
				continue
			}
			resources = append(resources, types.Resource{
				ID:   id,
				Name: id,
			})
		}

		if output.Marker == nil {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *dbParameterGroupClient) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteDBParameterGroup(ctx, &rds.DeleteDBParameterGroupInput{
		DBParameterGroupName: aws.String(id),
	})
	return classifyError(err, id)
}

func (c *dbParameterGroupClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeDBParameterGroups(ctx, &rds.DescribeDBParameterGroupsInput{
		DBParameterGroupName: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.DBParameterGroups) > 0, nil
}

// dbSubnetGroupClient enumerates subnet groups so they appear in
// reports as preserved. They are never deleted.
type dbSubnetGroupClient struct {
	api RDSAPI
}

func (c *dbSubnetGroupClient) Type() string { return "db_subnet_group" }

func (c *dbSubnetGroupClient) List(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource

	input := &rds.DescribeDBSubnetGroupsInput{}
	for {
		output, err := c.api.DescribeDBSubnetGroups(ctx, input)
		if err != nil {
			return nil, classifyError(err, "")
		}

		for _, sg := range output.DBSubnetGroups {
			id := aws.ToString(sg.DBSubnetGroupName)
			resources = append(resources, types.Resource{
				ID:   id,
				Name: id,
			})
		}

		if output.Marker == nil {
			break
		}
		input.Marker = output.Marker
	}

	return resources, nil
}

func (c *dbSubnetGroupClient) Delete(ctx context.Context, id string) error {
	return types.Permanent(errNotDeletable(c.Type(), id))
}

func (c *dbSubnetGroupClient) Exists(ctx context.Context, id string) (bool, error) {
	output, err := c.api.DescribeDBSubnetGroups(ctx, &rds.DescribeDBSubnetGroupsInput{
		DBSubnetGroupName: aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyError(err, id)
	}
	return len(output.DBSubnetGroups) > 0, nil
}
