package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func convertEC2Tags(tags []ec2types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		out[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return out
}

// nameFromTags pulls the Name tag, falling back to the resource ID so
// protection rules always have something to match against.
func nameFromTags(tags map[string]string, fallback string) string {
	if name, ok := tags["Name"]; ok && name != "" {
		return name
	}
	return fallback
}
