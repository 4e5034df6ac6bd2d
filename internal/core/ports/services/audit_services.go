package services

import (
	"context"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
)

// AuditSvcFacade maintains the per-loan hash-chained action log.
type AuditSvcFacade interface {
	// Record appends one entry to the loan's chain. Recording is best-effort:
	// failures are logged and never propagated, so an audit outage cannot fail
	// the mutation it documents.
	Record(ctx context.Context, loanID, action, actorID, actorName string, details map[string]string)

	// Trail returns the chain oldest-first plus the index of the first broken
	// link (-1 when the chain verifies).
	Trail(ctx context.Context, loanID string) ([]domain.AuditEntry, int, error)
}
