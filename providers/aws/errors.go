package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/yairfalse/purku/types"
)

// Error codes a sibling deletion or simple patience can resolve.
var retryableCodes = map[string]bool{
	"DependencyViolation":        true,
	"Throttling":                 true,
	"ThrottlingException":        true,
	"RequestLimitExceeded":       true,
	"TooManyRequestsException":   true,
	"ResourceInUse":              true,
	"ResourceInUseException":     true,
	"InvalidDBInstanceState":     true,
	"InvalidDBClusterStateFault": true,
	"ScalingActivityInProgress":  true,
	"DeleteConflict":             true,
	"IncorrectState":             true,
}

// Error codes no amount of retrying fixes.
var permanentCodes = map[string]bool{
	"AccessDenied":            true,
	"AccessDeniedException":   true,
	"UnauthorizedOperation":   true,
	"UnauthorizedAccess":      true,
	"AuthFailure":             true,
	"ValidationError":         true,
	"ValidationException":     true,
	"MalformedPolicyDocument": true,
	"InvalidAction":           true,
	"OptInRequired":           true,
}

// classifyError maps an AWS API error into the teardown taxonomy.
// Unknown codes classify as transient: giving up wrongly leaks
// resources, retrying wrongly only spends the retry budget.
func classifyError(err error, resourceID string) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// Network-level failure, worth retrying.
		return types.Transient(err)
	}

	code := apiErr.ErrorCode()
	switch {
	case isNotFoundCode(code):
		return &types.NotFoundError{ResourceID: resourceID}
	case permanentCodes[code]:
		return types.Permanent(err)
	case retryableCodes[code]:
		return types.Transient(err)
	default:
		return types.Transient(err)
	}
}

// isNotFound reports whether err means the resource is already gone.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return isNotFoundCode(apiErr.ErrorCode())
}

func errNotDeletable(resourceType, id string) error {
	return fmt.Errorf("%s %q is never deleted by teardown", resourceType, id)
}

func isNotFoundCode(code string) bool {
	return strings.Contains(code, "NotFound") ||
		code == "NoSuchEntity" ||
		code == "ResourceNotFoundException"
}
