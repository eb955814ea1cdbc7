package oci

import (
	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
)

// IsRetryable determines if an error warrants a local retry within one
// attempt. Service errors are never retried here: capacity conditions and
// fatal conditions are both the outcome classifier's job, and retrying a 429
// locally would fight the capacity polling loop above. Everything else
// (DNS failure, connection reset, timeouts) is presumed transient.
func IsRetryable(err error) bool {
	if _, ok := common.IsServiceError(err); ok {
		return false
	}
	return true
}

// isActiveLifecycle reports whether an instance counts as "existing" for the
// idempotency check: running, or on its way to running.
func isActiveLifecycle(state core.InstanceLifecycleStateEnum) bool {
	switch state {
	case core.InstanceLifecycleStateRunning,
		core.InstanceLifecycleStateProvisioning,
		core.InstanceLifecycleStateStarting:
		return true
	default:
		return false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
