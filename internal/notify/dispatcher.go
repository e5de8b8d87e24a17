package notify

import (
	"context"
	"log/slog"
)

// Dispatcher decouples notification delivery from the committing request. It
// consumes messages from a bounded inbox on its own goroutine; delivery
// failures surface on the error channel and in logs, never in the caller's
// response beyond the queued flag.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	inbox    chan Message
	errs     chan error
}

func NewDispatcher(notifier Notifier, logger *slog.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		inbox:    make(chan Message, buffer),
		errs:     make(chan error, buffer),
	}
}

// Dispatch enqueues a message without blocking. It returns false when the
// queue is full; callers report that as degraded success ("submitted, but
// confirmation email may be delayed").
func (d *Dispatcher) Dispatch(msg Message) bool {
	select {
	case d.inbox <- msg:
		return true
	default:
		d.logger.Warn("notification queue full, message dropped",
			"kind", string(msg.Kind),
			"subject_id", msg.SubjectID,
		)
		return false
	}
}

// Errors exposes delivery failures for observability.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Run consumes the inbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.inbox:
			if err := d.notifier.Notify(ctx, msg); err != nil {
				d.logger.Error("notification delivery failed",
					"kind", string(msg.Kind),
					"subject_id", msg.SubjectID,
					"error", err.Error(),
				)
				select {
				case d.errs <- err:
				default:
				}
			}
		}
	}
}
