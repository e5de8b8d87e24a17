package notify

import (
	"context"
	"log/slog"
)

// LogNotifier is the fallback when no broker is configured; messages land in
// the log instead of a topic.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification",
		"kind", string(msg.Kind),
		"subject_id", msg.SubjectID,
		"recipient", msg.RecipientEmail,
	)
	return nil
}
