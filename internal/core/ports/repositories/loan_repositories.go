package repositories

import (
	"context"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
)

// LoanReader defines read operations for loan data. Implementations always
// decrypt on the way out: callers never see the sealed bundle.
type LoanReader interface {
	// FindLoanByID loads and decrypts a loan aggregate with its collaborators.
	FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// ListLoansByUser loads and decrypts every loan the user owns, is
	// counterparty on, or collaborates on.
	ListLoansByUser(ctx context.Context, userID string) ([]domain.Loan, error)
}

// LoanWriter defines write operations for loan data. Implementations always
// seal the sensitive bundle on the way in.
type LoanWriter interface {
	// SaveLoan inserts a new loan aggregate at version 1.
	SaveLoan(ctx context.Context, loan domain.Loan) error

	// UpdateLoan writes the loan back conditioned on version == expectedVersion,
	// bumping it to expectedVersion+1. Zero matched rows on an existing loan is
	// a lost race and returns apperrors.ErrVersionConflict.
	UpdateLoan(ctx context.Context, loan domain.Loan, expectedVersion int64) error

	// UpsertCollaborator inserts or updates one collaborator membership row.
	UpsertCollaborator(ctx context.Context, loanID string, collaborator domain.Collaborator) error
}

// PendingChangeRepository persists queued mutations. Payloads are sealed at
// rest with the same codec as the loan bundle.
type PendingChangeRepository interface {
	SavePendingChange(ctx context.Context, change domain.PendingChange) error

	FindPendingChangeByID(ctx context.Context, loanID, changeID string) (*domain.PendingChange, error)

	ListPendingChangesByLoan(ctx context.Context, loanID string) ([]domain.PendingChange, error)

	// ApprovePendingChange atomically marks the change approved (conditioned
	// on it still being pending) and writes the mutated loan with the version
	// check, in one database transaction. Either both land or neither.
	ApprovePendingChange(ctx context.Context, change domain.PendingChange, loan domain.Loan, expectedVersion int64) error

	// RejectPendingChange marks the change rejected, conditioned on it still
	// being pending; a non-pending change returns apperrors.ErrConflict.
	RejectPendingChange(ctx context.Context, change domain.PendingChange) error
}

// LoanRepositoryFacade combines all loan-related repository interfaces.
type LoanRepositoryFacade interface {
	LoanReader
	LoanWriter
	PendingChangeRepository
}
