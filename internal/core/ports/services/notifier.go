package services

import "context"

// NotificationEvent describes a user-facing event produced by the loan
// workflow (pending change created/resolved, loan accepted, ...).
type NotificationEvent struct {
	Type        string
	LoanID      string
	RecipientID string
	ActorName   string
	Message     string
}

// Notifier delivers notification events. Delivery is an external concern;
// implementations must be fire-and-forget and never fail the primary
// mutation.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent)
}
