package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// ErrorCode extracts the service error code from an AWS SDK error, for log
// correlation. Returns "" for non-AWS errors.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
