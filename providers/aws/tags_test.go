package aws

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
)

func TestConvertEC2Tags(t *testing.T) {
	tags := convertEC2Tags([]ec2types.Tag{
		{Key: aws.String("Name"), Value: aws.String("web-1")},
		{Key: aws.String("env"), Value: aws.String("prod")},
	})
	assert.Equal(t, map[string]string{"Name": "web-1", "env": "prod"}, tags)
}

func TestConvertEC2Tags_Empty(t *testing.T) {
	assert.Nil(t, convertEC2Tags(nil))
	assert.Nil(t, convertEC2Tags([]ec2types.Tag{}))
}

func TestNameFromTags(t *testing.T) {
	assert.Equal(t, "web-1", nameFromTags(map[string]string{"Name": "web-1"}, "i-123"))
	assert.Equal(t, "i-123", nameFromTags(map[string]string{"env": "prod"}, "i-123"))
	assert.Equal(t, "i-123", nameFromTags(map[string]string{"Name": ""}, "i-123"))
	assert.Equal(t, "i-123", nameFromTags(nil, "i-123"))
}
