package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/cloud"
)

// Instance lifecycle states as reported by the provider.
const (
	StateRunning      = "RUNNING"
	StateProvisioning = "PROVISIONING"
	StateStarting     = "STARTING"
)

// InstanceInfo is the executor's view of a compute instance. It carries only
// the fields the provisioning logic needs.
type InstanceInfo struct {
	ID          string
	DisplayName string
	State       string
}

// ComputeAPI is the narrow surface the attempt executor needs from the
// provider. The production implementation wraps the OCI SDK; tests use fakes.
type ComputeAPI interface {
	// FindMatchingInstances returns the active instances of the given shape
	// in the compartment, in listing order.
	FindMatchingInstances(ctx context.Context, shape string) ([]InstanceInfo, error)

	// LaunchInstance submits one launch call targeting the availability
	// domain. It does not wait for the instance to become running.
	LaunchInstance(ctx context.Context, req *Request, availabilityDomain string) (InstanceInfo, error)

	// GetInstanceState fetches the current lifecycle state of an instance.
	GetInstanceState(ctx context.Context, instanceID string) (string, error)
}

// Executor performs one provisioning attempt: existence check, launch, then a
// bounded poll until the instance reaches a running state. All errors inside
// an attempt are contained here and converted to a Result.
type Executor struct {
	API ComputeAPI

	// PollAttempts bounds the state polls after a launch; PollInterval is the
	// fixed wait between polls.
	PollAttempts int
	PollInterval time.Duration

	// StalledAsCapacity controls the ambiguous case of a launch that never
	// reaches RUNNING within the polling window: true treats it as a capacity
	// condition (retry on schedule), false as fatal.
	StalledAsCapacity bool

	// ExistingLimit is how many active instances of the shape may already
	// exist before an attempt counts as AlreadyExists. Zero means one, the
	// normal case; a second E2.1.Micro instance sets it to two.
	ExistingLimit int

	// Sleep is injectable for tests; defaults to cloud.SleepWithContext.
	Sleep cloud.Sleeper

	Logger *slog.Logger
}

// Execute runs a single attempt. attempt selects the availability domain to
// target. The existence check always runs before a launch, so the executor
// never double-launches: a second execution against an existing instance
// returns AlreadyExists without touching the launch API.
func (e *Executor) Execute(ctx context.Context, req *Request, attempt int) Result {
	log := e.logger().With("attempt", attempt+1)

	existing, err := e.findExisting(ctx, req.Shape)
	if err != nil {
		log.Error("Existence check failed", "error", err)
		return ClassifyError(err)
	}
	if existing != nil {
		log.Info("Instance already exists, skipping launch",
			"instance_id", existing.ID,
			"display_name", existing.DisplayName)
		return Existing(existing.ID)
	}

	ad := req.AvailabilityDomain(attempt)
	log.Info("Launching instance",
		"availability_domain", ad,
		"shape", req.Shape,
		"display_name", req.DisplayName)

	inst, err := e.API.LaunchInstance(ctx, req, ad)
	if err != nil {
		// LimitExceeded can be reported even though the instance was created.
		// Re-check before classifying so we do not retry a finished job.
		if IsLimitExceeded(err) {
			log.Warn("LimitExceeded reported, re-checking for created instance", "error", err)
			if again, checkErr := e.findExisting(ctx, req.Shape); checkErr == nil && again != nil {
				log.Info("Instance was created despite LimitExceeded", "instance_id", again.ID)
				return Succeeded(again.ID)
			}
		}
		res := ClassifyError(err)
		log.Info("Launch attempt did not succeed", "outcome", res.Kind.String(), "reason", res.Reason)
		return res
	}

	log.Info("Launch accepted, polling instance state", "instance_id", inst.ID)
	return e.waitForRunning(ctx, inst.ID, log)
}

// findExisting applies the existing-instance limit to the shape listing and
// returns the newest match once the limit is reached, nil while the attempt
// may still proceed.
func (e *Executor) findExisting(ctx context.Context, shape string) (*InstanceInfo, error) {
	matches, err := e.API.FindMatchingInstances(ctx, shape)
	if err != nil {
		return nil, err
	}

	limit := e.ExistingLimit
	if limit < 1 {
		limit = 1
	}
	if len(matches) < limit {
		return nil, nil
	}
	return &matches[len(matches)-1], nil
}

// waitForRunning polls the instance state a bounded number of times. A launch
// that never reaches RUNNING inside the window is classified per
// StalledAsCapacity.
func (e *Executor) waitForRunning(ctx context.Context, instanceID string, log *slog.Logger) Result {
	sleep := e.Sleep
	if sleep == nil {
		sleep = cloud.SleepWithContext
	}

	lastState := ""
	for i := 0; i < e.PollAttempts; i++ {
		state, err := e.API.GetInstanceState(ctx, instanceID)
		if err != nil {
			log.Error("State poll failed", "instance_id", instanceID, "error", err)
			return ClassifyError(err)
		}
		lastState = state

		if state == StateRunning {
			log.Info("Instance is running", "instance_id", instanceID)
			return Succeeded(instanceID)
		}

		log.Debug("Instance not running yet",
			"instance_id", instanceID,
			"state", state,
			"poll", fmt.Sprintf("%d/%d", i+1, e.PollAttempts))

		if i < e.PollAttempts-1 {
			if err := sleep(ctx, e.PollInterval); err != nil {
				return Fatal(fmt.Sprintf("cancelled while polling instance %s: %v", instanceID, err))
			}
		}
	}

	reason := fmt.Sprintf("instance %s stuck in state %s after %d polls", instanceID, lastState, e.PollAttempts)
	if e.StalledAsCapacity {
		return OutOfCapacity(reason)
	}
	return Fatal(reason)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
