package provision

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/cloud"
)

// Mode selects how the retry controller drives attempts.
type Mode int

const (
	// ModeOnce runs a single attempt and reports the outcome through the exit
	// code. Meant to be invoked repeatedly by an external scheduler (cron).
	ModeOnce Mode = iota

	// ModePolling loops with a fixed inter-attempt wait until a terminal
	// outcome is reached.
	ModePolling
)

func (m Mode) String() string {
	if m == ModePolling {
		return "polling"
	}
	return "once"
}

// State of the retry controller. Terminal states never re-enter.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateWaiting
	StateTerminated
)

// RunState is the transient bookkeeping for one controller run. It is not
// persisted; the marker file is the only durable state.
type RunState struct {
	RunID    string
	Attempts int
	Started  time.Time
	Last     Result
}

// Elapsed returns how long the run has been going.
func (s RunState) Elapsed() time.Duration {
	return time.Since(s.Started)
}

// AttemptRunner is the controller's view of the attempt executor.
type AttemptRunner interface {
	Execute(ctx context.Context, req *Request, attempt int) Result
}

// Notifier receives outcome notifications. Implementations must be
// best-effort: a notification failure never affects the run.
type Notifier interface {
	Notify(result Result, state RunState)
}

// Controller orchestrates attempts until a terminal outcome. Both operating
// modes are thin drivers over the same loop; ModeOnce simply returns after
// the first attempt instead of entering the Waiting state.
type Controller struct {
	Runner   AttemptRunner
	Notifier Notifier // optional
	Marker   *Marker  // optional

	// WaitTime is the fixed delay between attempts in polling mode.
	WaitTime time.Duration

	// CapacityNotifyEvery throttles capacity notifications: notify on every
	// Nth capacity-exhausted attempt. 0 disables capacity notifications
	// entirely, leaving only terminal outcomes.
	CapacityNotifyEvery int

	// Sleep is injectable for tests; defaults to cloud.SleepWithContext.
	Sleep cloud.Sleeper

	Logger *slog.Logger

	state State
	run   RunState
}

// StateNow exposes the current controller state.
func (c *Controller) StateNow() State {
	return c.state
}

// Run drives attempts until a terminal result. The returned error is non-nil
// only when the context was cancelled mid-run (signal or timeout); the last
// result is still returned so the caller can exit cleanly.
func (c *Controller) Run(ctx context.Context, req *Request, mode Mode) (Result, error) {
	log := c.logger()

	if c.state == StateTerminated {
		return c.run.Last, nil
	}

	c.run = RunState{RunID: uuid.New().String(), Started: time.Now()}
	log = log.With("run_id", c.run.RunID, "mode", mode.String())

	// Durable idempotency gate: a previous run already succeeded.
	if c.Marker != nil && c.Marker.Exists() {
		rec, err := c.Marker.Read()
		instanceID := ""
		if err == nil {
			instanceID = rec.InstanceID
		}
		log.Info("Success marker present, skipping all attempts",
			"marker", c.Marker.Path, "instance_id", instanceID)
		c.state = StateTerminated
		c.run.Last = Existing(instanceID)
		return c.run.Last, nil
	}

	sleep := c.Sleep
	if sleep == nil {
		sleep = cloud.SleepWithContext
	}

	for {
		c.state = StateAttempting
		res := c.Runner.Execute(ctx, req, c.run.Attempts)
		c.run.Attempts++
		c.run.Last = res

		switch res.Kind {
		case KindSuccess, KindAlreadyExists:
			c.state = StateTerminated
			if res.Kind == KindSuccess {
				c.writeMarker(req, res, log)
			}
			log.Info("Provisioning finished",
				"outcome", res.Kind.String(),
				"instance_id", res.InstanceID,
				"attempts", c.run.Attempts)
			c.notify(res)
			return res, nil

		case KindFatal:
			c.state = StateTerminated
			log.Error("Provisioning failed, manual intervention required",
				"reason", res.Reason,
				"attempts", c.run.Attempts)
			c.notify(res)
			return res, nil

		case KindCapacityExhausted:
			log.Info("Capacity exhausted",
				"reason", res.Reason,
				"attempts", c.run.Attempts)

			if c.CapacityNotifyEvery > 0 && c.run.Attempts%c.CapacityNotifyEvery == 0 {
				c.notify(res)
			}

			if mode == ModeOnce {
				// No Waiting state in single-attempt mode: the external
				// scheduler owns the cadence, so the controller goes back
				// to Idle and a later Run may retry.
				c.state = StateIdle
				return res, nil
			}

			c.state = StateWaiting
			log.Debug("Waiting before next attempt", "wait", c.WaitTime.String())
			if err := sleep(ctx, c.WaitTime); err != nil {
				log.Warn("Run interrupted while waiting", "error", err)
				c.state = StateIdle
				return res, err
			}

		default:
			c.state = StateTerminated
			res = Fatal("attempt produced an unclassified result")
			c.run.Last = res
			c.notify(res)
			return res, nil
		}
	}
}

func (c *Controller) writeMarker(req *Request, res Result, log *slog.Logger) {
	if c.Marker == nil {
		return
	}
	rec := MarkerRecord{
		InstanceID:  res.InstanceID,
		DisplayName: req.DisplayName,
		CreatedAt:   time.Now().UTC(),
		RunID:       c.run.RunID,
	}
	if err := c.Marker.Write(rec); err != nil {
		// The instance exists; a marker failure must not turn success fatal.
		log.Error("Failed to write success marker", "marker", c.Marker.Path, "error", err)
	}
}

func (c *Controller) notify(res Result) {
	if c.Notifier == nil {
		return
	}
	c.Notifier.Notify(res, c.run)
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
