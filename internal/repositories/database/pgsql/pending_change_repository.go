package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/crypto"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

// Pending-change persistence lives on the same PgxLoanRepository because a
// pending change has no lifecycle outside its parent loan.

func (r *PgxLoanRepository) toModelPendingChange(d domain.PendingChange) (models.PendingChange, error) {
	sealed, err := r.codec.SealBytes(d.Payload)
	if err != nil {
		return models.PendingChange{}, fmt.Errorf("failed to seal pending change payload: %w", err)
	}
	return models.PendingChange{
		ChangeID:        d.ChangeID,
		LoanID:          d.LoanID,
		Type:            string(d.Type),
		SealedPayload:   sealed,
		RequestedBy:     d.RequestedBy,
		RequesterName:   d.RequesterName,
		Status:          string(d.Status),
		ReviewedBy:      d.ReviewedBy,
		ReviewerName:    d.ReviewerName,
		RejectionReason: d.RejectionReason,
		CreatedAt:       d.CreatedAt,
		ResolvedAt:      d.ResolvedAt,
	}, nil
}

func (r *PgxLoanRepository) toDomainPendingChange(m models.PendingChange) (*domain.PendingChange, error) {
	payload, err := r.codec.OpenBytes(m.SealedPayload)
	if err != nil {
		if errors.Is(err, crypto.ErrNotSealed) {
			// legacy unsealed payload
			payload = []byte(m.SealedPayload)
		} else {
			return nil, fmt.Errorf("failed to open payload for pending change %s: %w", m.ChangeID, err)
		}
	}
	return &domain.PendingChange{
		ChangeID:        m.ChangeID,
		LoanID:          m.LoanID,
		Type:            domain.PendingChangeType(m.Type),
		Payload:         payload,
		RequestedBy:     m.RequestedBy,
		RequesterName:   m.RequesterName,
		Status:          domain.PendingChangeStatus(m.Status),
		ReviewedBy:      m.ReviewedBy,
		ReviewerName:    m.ReviewerName,
		RejectionReason: m.RejectionReason,
		CreatedAt:       m.CreatedAt,
		ResolvedAt:      m.ResolvedAt,
	}, nil
}

const pendingChangeColumns = `change_id, loan_id, change_type, sealed_payload, requested_by, requester_name,
		status, reviewed_by, reviewer_name, rejection_reason, created_at, resolved_at`

func scanPendingChange(row pgx.Row) (models.PendingChange, error) {
	var m models.PendingChange
	err := row.Scan(
		&m.ChangeID, &m.LoanID, &m.Type, &m.SealedPayload, &m.RequestedBy, &m.RequesterName,
		&m.Status, &m.ReviewedBy, &m.ReviewerName, &m.RejectionReason, &m.CreatedAt, &m.ResolvedAt,
	)
	return m, err
}

// SavePendingChange inserts a new queued mutation with its payload sealed.
func (r *PgxLoanRepository) SavePendingChange(ctx context.Context, change domain.PendingChange) error {
	m, err := r.toModelPendingChange(change)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO pending_changes (` + pendingChangeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = r.pool.Exec(ctx, query,
		m.ChangeID, m.LoanID, m.Type, m.SealedPayload, m.RequestedBy, m.RequesterName,
		m.Status, m.ReviewedBy, m.ReviewerName, m.RejectionReason, m.CreatedAt, m.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pending change %s: %w", m.ChangeID, err)
	}
	return nil
}

// FindPendingChangeByID loads one pending change scoped to its loan.
func (r *PgxLoanRepository) FindPendingChangeByID(ctx context.Context, loanID, changeID string) (*domain.PendingChange, error) {
	query := `SELECT ` + pendingChangeColumns + ` FROM pending_changes WHERE loan_id = $1 AND change_id = $2;`
	m, err := scanPendingChange(r.pool.QueryRow(ctx, query, loanID, changeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: pending change %s", apperrors.ErrNotFound, changeID)
		}
		return nil, fmt.Errorf("failed to find pending change %s: %w", changeID, err)
	}
	return r.toDomainPendingChange(m)
}

// ListPendingChangesByLoan returns all queued mutations for a loan, newest first.
func (r *PgxLoanRepository) ListPendingChangesByLoan(ctx context.Context, loanID string) ([]domain.PendingChange, error) {
	query := `SELECT ` + pendingChangeColumns + ` FROM pending_changes WHERE loan_id = $1 ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var changes []domain.PendingChange
	for rows.Next() {
		m, err := scanPendingChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending change row: %w", err)
		}
		change, err := r.toDomainPendingChange(m)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *change)
	}
	return changes, rows.Err()
}

// ApprovePendingChange marks the change approved and writes the mutated loan
// in one transaction. The status flip is conditioned on the change still
// being pending and the loan write is conditioned on the observed version:
// either both land or neither does.
func (r *PgxLoanRepository) ApprovePendingChange(ctx context.Context, change domain.PendingChange, loan domain.Loan, expectedVersion int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := resolvePendingChange(ctx, tx, change); err != nil {
		return err
	}
	if err := r.updateLoan(ctx, tx, loan, expectedVersion); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit pending change approval: %w", err)
	}
	return nil
}

// RejectPendingChange marks the change rejected; the loan is untouched.
func (r *PgxLoanRepository) RejectPendingChange(ctx context.Context, change domain.PendingChange) error {
	return resolvePendingChange(ctx, r.pool, change)
}

func resolvePendingChange(ctx context.Context, db queryRunner, change domain.PendingChange) error {
	query := `
		UPDATE pending_changes
		SET status = $1, reviewed_by = $2, reviewer_name = $3, rejection_reason = $4, resolved_at = $5
		WHERE change_id = $6 AND status = 'pending';
	`
	tag, err := db.Exec(ctx, query,
		string(change.Status), change.ReviewedBy, change.ReviewerName, change.RejectionReason, change.ResolvedAt,
		change.ChangeID,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve pending change %s: %w", change.ChangeID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pending_changes WHERE change_id = $1);`, change.ChangeID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check pending change existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: pending change %s", apperrors.ErrNotFound, change.ChangeID)
		}
		return fmt.Errorf("%w: pending change %s is already resolved", apperrors.ErrConflict, change.ChangeID)
	}
	return nil
}
