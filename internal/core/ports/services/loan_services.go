package services

import (
	"context"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/dto"
)

// MutationResult carries the outcome of a loan mutation request: either the
// mutation applied directly (Loan plus the touched sub-record) or it was
// queued as a PendingChange awaiting counterparty approval.
type MutationResult struct {
	Decision      domain.MutationDecision
	Loan          *domain.Loan
	Payment       *domain.Payment
	Addition      *domain.Addition
	PendingChange *domain.PendingChange
}

// Queued reports whether the mutation was deferred to the approval workflow.
func (r *MutationResult) Queued() bool {
	return r.Decision == domain.DecisionQueued
}

// LoanSvcFacade defines the loan orchestration operations: load, decrypt,
// authorize, apply through the ledger model (directly or via the approval
// workflow), re-encrypt, and persist with the version check.
type LoanSvcFacade interface {
	CreateLoan(ctx context.Context, req dto.CreateLoanRequest, creatorUserID string) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID, requestingUserID string) (*domain.Loan, error)
	ListLoans(ctx context.Context, requestingUserID string) ([]domain.Loan, error)

	// AcceptLoan / DeclineLoan resolve the initial counterparty decision on a
	// proposed loan.
	AcceptLoan(ctx context.Context, loanID, actorID string) (*domain.Loan, error)
	DeclineLoan(ctx context.Context, loanID, actorID string) (*domain.Loan, error)

	AddPayment(ctx context.Context, loanID, actorID string, req dto.CreatePaymentRequest) (*MutationResult, error)
	UpdatePayment(ctx context.Context, loanID, paymentID, actorID string, req dto.UpdatePaymentRequest) (*MutationResult, error)
	DeletePayment(ctx context.Context, loanID, paymentID, actorID string) (*MutationResult, error)

	AddAddition(ctx context.Context, loanID, actorID string, req dto.CreateAdditionRequest) (*MutationResult, error)
	UpdateAddition(ctx context.Context, loanID, additionID, actorID string, req dto.UpdateAdditionRequest) (*MutationResult, error)
	DeleteAddition(ctx context.Context, loanID, additionID, actorID string) (*MutationResult, error)

	AddComment(ctx context.Context, loanID, actorID, message string) (*domain.Comment, *domain.Loan, error)
	UpdateComment(ctx context.Context, loanID, commentID, actorID, message string) (*domain.Comment, *domain.Loan, error)
	DeleteComment(ctx context.Context, loanID, commentID, actorID string) (*domain.Loan, error)

	ListPendingChanges(ctx context.Context, loanID, requestingUserID string) ([]domain.PendingChange, error)
	ApprovePendingChange(ctx context.Context, loanID, changeID, actorID string) (*domain.PendingChange, *domain.Loan, error)
	RejectPendingChange(ctx context.Context, loanID, changeID, actorID, reason string) (*domain.PendingChange, error)

	AddCollaborator(ctx context.Context, loanID, actorID string, req dto.AddCollaboratorRequest) (*domain.Loan, error)
	RespondToInvitation(ctx context.Context, loanID, actorID string, accept bool) (*domain.Loan, error)

	// GetAuditTrail returns the hash-chained action log (oldest first) and the
	// index of the first broken link (-1 when intact).
	GetAuditTrail(ctx context.Context, loanID, requestingUserID string) ([]domain.AuditEntry, int, error)
}
