package cli

import (
	"fmt"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/provision"
)

// ExitError carries a process exit code alongside the message so main can
// map provisioning outcomes onto the documented 0/1/2 contract.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// resultError converts a workflow result into an error suitable for cobra.
// Successful outcomes (exit code 0) return nil.
func resultError(res provision.Result, err error) error {
	code := res.ExitCode()
	if err == nil && code == 0 {
		return nil
	}
	if err != nil && code == 0 {
		code = provision.Fatal(err.Error()).ExitCode()
	}
	msg := res.Reason
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = fmt.Sprintf("provisioning ended with outcome %s", res.Kind)
	}
	return &ExitError{Code: code, Message: msg}
}
