package notifications

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/provision"
)

// Dispatcher fans a provisioning outcome out to every configured channel.
// Delivery is best-effort: a failing channel is logged and skipped, and the
// remaining channels are still attempted. The dispatcher never returns an
// error to the retry controller.
type Dispatcher struct {
	Channels []Channel
	Logger   *slog.Logger
}

// Notify implements provision.Notifier.
func (d *Dispatcher) Notify(result provision.Result, state provision.RunState) {
	if len(d.Channels) == 0 {
		return
	}

	subject, body := Compose(result, state, time.Now())

	for _, ch := range d.Channels {
		if err := ch.Send(subject, body); err != nil {
			d.logger().Error("Notification delivery failed",
				"channel", ch.Name(),
				"error", err)
			continue
		}
		d.logger().Debug("Notification delivered", "channel", ch.Name())
	}
}

// Compose builds the human-readable subject and body for an outcome.
func Compose(result provision.Result, state provision.RunState, now time.Time) (subject, body string) {
	switch result.Kind {
	case provision.KindSuccess:
		subject = "OCI instance created"
	case provision.KindAlreadyExists:
		subject = "OCI instance already exists"
	case provision.KindCapacityExhausted:
		subject = "OCI instance creation waiting on capacity"
	default:
		subject = "OCI instance creation failed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Outcome: %s\n", result.Kind)
	fmt.Fprintf(&b, "Time: %s\n", now.UTC().Format(time.RFC3339))
	if result.InstanceID != "" {
		fmt.Fprintf(&b, "Instance: %s\n", result.InstanceID)
	}
	if result.Reason != "" {
		fmt.Fprintf(&b, "Detail: %s\n", result.Reason)
	}
	if state.Attempts > 0 {
		fmt.Fprintf(&b, "Attempts: %d\n", state.Attempts)
	}
	if !state.Started.IsZero() {
		fmt.Fprintf(&b, "Elapsed: %s\n", state.Elapsed().Round(time.Second))
	}
	if result.Kind == provision.KindFatal {
		b.WriteString("Action: manual intervention required\n")
	} else if result.Kind == provision.KindCapacityExhausted {
		b.WriteString("Action: will retry automatically\n")
	}

	return subject, b.String()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
