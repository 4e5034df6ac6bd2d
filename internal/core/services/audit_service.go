package services

import (
	"context"
	"errors"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	portsrepo "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/repositories"
	portssvc "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/middleware"
	"github.com/google/uuid"
)

// AuditService appends to and verifies the per-loan hash chain.
type AuditService struct {
	repo portsrepo.AuditRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo portsrepo.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

var _ portssvc.AuditSvcFacade = (*AuditService)(nil)

// Record appends one chain link. Each entry links to the latest persisted
// entry via its hash. Failures are logged, never returned: the audit log must
// not be able to fail the mutation it documents.
func (s *AuditService) Record(ctx context.Context, loanID, action, actorID, actorName string, details map[string]string) {
	logger := middleware.GetLoggerFromCtx(ctx)

	previous, err := s.repo.FindLatestAuditEntry(ctx, loanID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		logger.Error("failed to load latest audit entry, skipping audit record",
			"loan_id", loanID, "action", action, "error", err)
		return
	}

	entry := domain.AuditEntry{
		EntryID:   uuid.NewString(),
		LoanID:    loanID,
		Action:    action,
		ActorID:   actorID,
		ActorName: actorName,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	entry.Seal(previous)

	if err := s.repo.SaveAuditEntry(ctx, entry); err != nil {
		logger.Error("failed to save audit entry",
			"loan_id", loanID, "action", action, "error", err)
	}
}

// Trail returns the chain oldest-first and verifies it.
func (s *AuditService) Trail(ctx context.Context, loanID string) ([]domain.AuditEntry, int, error) {
	entries, err := s.repo.ListAuditEntries(ctx, loanID)
	if err != nil {
		return nil, 0, err
	}
	brokenAt := domain.VerifyAuditChain(entries)
	if brokenAt >= 0 {
		middleware.GetLoggerFromCtx(ctx).Warn("audit chain verification failed",
			"loan_id", loanID, "broken_at", brokenAt)
	}
	return entries, brokenAt, nil
}
