package oci

import (
	"errors"
	"testing"

	"github.com/oracle/oci-go-sdk/v65/core"
)

type fakeServiceError struct {
	status  int
	code    string
	message string
}

func (e fakeServiceError) GetHTTPStatusCode() int  { return e.status }
func (e fakeServiceError) GetMessage() string      { return e.message }
func (e fakeServiceError) GetCode() string         { return e.code }
func (e fakeServiceError) GetOpcRequestID() string { return "req-test" }
func (e fakeServiceError) Error() string           { return e.message }

func TestIsRetryable(t *testing.T) {
	// Service errors must pass through to classification, even the ones that
	// look transient (429/500): the capacity loop handles those.
	if IsRetryable(fakeServiceError{status: 429, code: "TooManyRequests", message: "slow down"}) {
		t.Error("service errors must not be retried locally")
	}
	if IsRetryable(fakeServiceError{status: 500, code: "InternalError", message: "Out of host capacity."}) {
		t.Error("capacity-shaped service errors must not be retried locally")
	}
	if !IsRetryable(errors.New("dial tcp: connection refused")) {
		t.Error("transport errors must be retried locally")
	}
}

func TestIsActiveLifecycle(t *testing.T) {
	active := []core.InstanceLifecycleStateEnum{
		core.InstanceLifecycleStateRunning,
		core.InstanceLifecycleStateProvisioning,
		core.InstanceLifecycleStateStarting,
	}
	for _, state := range active {
		if !isActiveLifecycle(state) {
			t.Errorf("isActiveLifecycle(%s) = false, want true", state)
		}
	}

	inactive := []core.InstanceLifecycleStateEnum{
		core.InstanceLifecycleStateTerminated,
		core.InstanceLifecycleStateTerminating,
		core.InstanceLifecycleStateStopped,
	}
	for _, state := range inactive {
		if isActiveLifecycle(state) {
			t.Errorf("isActiveLifecycle(%s) = true, want false", state)
		}
	}
}
