package services

import (
	"context"

	portssvc "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/middleware"
)

// LogNotifier emits notification events to the structured log. It stands in
// for a real delivery channel (email, push); the loan workflow only depends
// on the Notifier port.
type LogNotifier struct{}

// NewLogNotifier creates a notifier that writes events to the request logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

var _ portssvc.Notifier = (*LogNotifier)(nil)

// Notify logs the event. It never fails the caller.
func (n *LogNotifier) Notify(ctx context.Context, event portssvc.NotificationEvent) {
	middleware.GetLoggerFromCtx(ctx).Info("notification",
		"type", event.Type,
		"loan_id", event.LoanID,
		"recipient_id", event.RecipientID,
		"actor_name", event.ActorName,
		"message", event.Message,
	)
}
