package repositories

import (
	"context"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
)

// AuditRepository persists the append-only, hash-chained action log per loan.
type AuditRepository interface {
	// SaveAuditEntry appends one sealed entry to the loan's chain.
	SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error

	// FindLatestAuditEntry returns the newest entry for the loan, or
	// apperrors.ErrNotFound for an empty chain.
	FindLatestAuditEntry(ctx context.Context, loanID string) (*domain.AuditEntry, error)

	// ListAuditEntries returns the full chain, oldest first.
	ListAuditEntries(ctx context.Context, loanID string) ([]domain.AuditEntry, error)
}
