package provision

import (
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// Kind classifies the outcome of one provisioning attempt.
type Kind int

const (
	// KindUnknown indicates a missing or invalid classification.
	KindUnknown Kind = iota

	// KindSuccess means the instance was launched and reached a running state.
	KindSuccess

	// KindAlreadyExists means a matching instance was found before launch.
	// Treated as success for exit-code purposes: nothing left to do.
	KindAlreadyExists

	// KindCapacityExhausted means Oracle reported an out-of-capacity or
	// rate-limit condition. Expected on the free tier; retried on schedule.
	KindCapacityExhausted

	// KindFatal covers everything else: auth failures, bad parameters,
	// quota errors unrelated to capacity. Requires manual intervention.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAlreadyExists:
		return "already-exists"
	case KindCapacityExhausted:
		return "capacity-exhausted"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the immutable outcome of a single provisioning attempt.
// Exactly one is produced per attempt; the retry controller and the
// notification dispatcher consume it, then it is discarded.
type Result struct {
	Kind       Kind
	InstanceID string
	Reason     string
}

// Succeeded builds a Success result carrying the launched instance OCID.
func Succeeded(instanceID string) Result {
	return Result{Kind: KindSuccess, InstanceID: instanceID}
}

// Existing builds an AlreadyExists result for a pre-existing matching instance.
func Existing(instanceID string) Result {
	return Result{Kind: KindAlreadyExists, InstanceID: instanceID}
}

// OutOfCapacity builds a CapacityExhausted result carrying the raw provider
// message for diagnostics.
func OutOfCapacity(reason string) Result {
	return Result{Kind: KindCapacityExhausted, Reason: reason}
}

// Fatal builds a FatalError result.
func Fatal(reason string) Result {
	return Result{Kind: KindFatal, Reason: reason}
}

// Terminal reports whether the retry loop must stop on this result.
func (r Result) Terminal() bool {
	return r.Kind == KindSuccess || r.Kind == KindAlreadyExists || r.Kind == KindFatal
}

// ExitCode maps the result onto the process exit code contract:
// 0 = created or already exists, 1 = out of capacity (retry later),
// 2 = fatal (manual intervention required).
func (r Result) ExitCode() int {
	switch r.Kind {
	case KindSuccess, KindAlreadyExists:
		return 0
	case KindCapacityExhausted:
		return 1
	default:
		return 2
	}
}

func (r Result) String() string {
	switch r.Kind {
	case KindSuccess, KindAlreadyExists:
		return fmt.Sprintf("%s (instance %s)", r.Kind, r.InstanceID)
	default:
		return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
	}
}

// Error codes and messages Oracle uses for out-of-capacity conditions on the
// free tier. The message variants matter: capacity exhaustion is sometimes
// reported as a 500 InternalError whose message is "Out of host capacity.".
var capacityErrorCodes = map[string]bool{
	"TooManyRequests":       true,
	"Out of host capacity.": true,
	"InternalError":         true,
}

var capacityErrorMessages = map[string]bool{
	"Out of host capacity.": true,
	"Bad Gateway":           true,
}

// ClassifyError maps an error returned by the OCI SDK onto a Result.
// Service errors matching a known capacity condition become
// CapacityExhausted; all other errors (including transport errors that
// survived local retries) are fatal.
func ClassifyError(err error) Result {
	svcErr, ok := common.IsServiceError(err)
	if !ok {
		return Fatal(err.Error())
	}

	if isCapacityError(svcErr) {
		return OutOfCapacity(fmt.Sprintf("%s: %s", svcErr.GetCode(), svcErr.GetMessage()))
	}

	return Fatal(fmt.Sprintf("%s (status %d): %s",
		svcErr.GetCode(), svcErr.GetHTTPStatusCode(), svcErr.GetMessage()))
}

func isCapacityError(err common.ServiceError) bool {
	return capacityErrorCodes[err.GetCode()] ||
		capacityErrorMessages[err.GetMessage()] ||
		err.GetHTTPStatusCode() == 502
}

// IsLimitExceeded reports whether the error is Oracle's LimitExceeded code.
// Launches occasionally fail with LimitExceeded even though the instance was
// created, so the executor re-checks existence before giving up.
func IsLimitExceeded(err error) bool {
	svcErr, ok := common.IsServiceError(err)
	return ok && svcErr.GetCode() == "LimitExceeded"
}
