package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	portsrepo "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/repositories"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/crypto"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryRunner is satisfied by both *pgxpool.Pool and pgx.Tx so the same
// statements can run inside or outside a transaction.
type queryRunner interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxLoanRepository persists loan aggregates. It owns the seal/open boundary:
// sensitive fields are always sealed on the way in and decrypted on the way
// out, so no caller ever touches the stored bundle.
type PgxLoanRepository struct {
	pool  *pgxpool.Pool
	codec *crypto.Codec
}

// NewPgxLoanRepository creates a new repository for loan data.
func NewPgxLoanRepository(pool *pgxpool.Pool, codec *crypto.Codec) portsrepo.LoanRepositoryFacade {
	return &PgxLoanRepository{pool: pool, codec: codec}
}

var _ portsrepo.LoanRepositoryFacade = (*PgxLoanRepository)(nil)

func (r *PgxLoanRepository) toModelLoan(d domain.Loan) (models.Loan, error) {
	sealed, err := r.codec.Seal(d.Bundle())
	if err != nil {
		return models.Loan{}, fmt.Errorf("failed to seal loan %s: %w", d.LoanID, err)
	}
	return models.Loan{
		LoanID:                d.LoanID,
		OwnerUserID:           d.OwnerUserID,
		CounterpartyUserID:    d.CounterpartyUserID,
		CurrencyCode:          d.CurrencyCode,
		Status:                models.LoanStatus(d.Status),
		Direction:             models.LoanDirection(d.Direction),
		DueDate:               d.DueDate,
		RequiresCollaboration: d.RequiresCollaboration,
		EncryptedData:         sealed,
		Version:               d.Version,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}, nil
}

func (r *PgxLoanRepository) toDomainLoan(m models.Loan) (*domain.Loan, error) {
	d := domain.Loan{
		LoanID:                m.LoanID,
		OwnerUserID:           m.OwnerUserID,
		CounterpartyUserID:    m.CounterpartyUserID,
		CurrencyCode:          m.CurrencyCode,
		Status:                domain.LoanStatus(m.Status),
		Direction:             domain.LoanDirection(m.Direction),
		DueDate:               m.DueDate,
		RequiresCollaboration: m.RequiresCollaboration,
		Version:               m.Version,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}

	bundle, err := r.codec.Open(m.EncryptedData)
	switch {
	case err == nil && bundle != nil:
		d.ApplyBundle(*bundle)
	case err == nil && bundle == nil:
		// unseeded record; leave sensitive fields zeroed
	case errors.Is(err, crypto.ErrNotSealed):
		// Legacy record from before encryption-at-rest: the column holds the
		// plain JSON bundle. Parsed as-is; it gets sealed on the next write.
		var legacy domain.SensitiveBundle
		if jsonErr := json.Unmarshal([]byte(m.EncryptedData), &legacy); jsonErr != nil {
			return nil, fmt.Errorf("%w: loan %s has an unreadable legacy bundle", apperrors.ErrDecryption, m.LoanID)
		}
		d.ApplyBundle(legacy)
	default:
		return nil, fmt.Errorf("failed to open bundle for loan %s: %w", m.LoanID, err)
	}
	return &d, nil
}

const loanColumns = `loan_id, owner_user_id, counterparty_user_id, currency_code, status, direction,
		due_date, requires_collaboration, encrypted_data, version,
		created_at, created_by, last_updated_at, last_updated_by`

func scanLoan(row pgx.Row) (models.Loan, error) {
	var m models.Loan
	err := row.Scan(
		&m.LoanID, &m.OwnerUserID, &m.CounterpartyUserID, &m.CurrencyCode, &m.Status, &m.Direction,
		&m.DueDate, &m.RequiresCollaboration, &m.EncryptedData, &m.Version,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

// SaveLoan inserts a new loan aggregate (version 1) with its collaborators.
func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	modelLoan, err := r.toModelLoan(loan)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err = tx.Exec(ctx, query,
		modelLoan.LoanID, modelLoan.OwnerUserID, modelLoan.CounterpartyUserID, modelLoan.CurrencyCode,
		modelLoan.Status, modelLoan.Direction, modelLoan.DueDate, modelLoan.RequiresCollaboration,
		modelLoan.EncryptedData, modelLoan.Version,
		modelLoan.CreatedAt, modelLoan.CreatedBy, modelLoan.LastUpdatedAt, modelLoan.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique violation
			return fmt.Errorf("%w: loan with ID %s already exists", apperrors.ErrDuplicate, modelLoan.LoanID)
		}
		return fmt.Errorf("failed to save loan %s: %w", modelLoan.LoanID, err)
	}

	for _, c := range loan.Collaborators {
		if err := upsertCollaborator(ctx, tx, loan.LoanID, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit loan save: %w", err)
	}
	return nil
}

// FindLoanByID loads and decrypts a single loan with its collaborators.
func (r *PgxLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1;`
	m, err := scanLoan(r.pool.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: loan %s", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}

	loan, err := r.toDomainLoan(m)
	if err != nil {
		return nil, err
	}

	collaborators, err := r.listCollaborators(ctx, loanID)
	if err != nil {
		return nil, err
	}
	loan.Collaborators = collaborators
	return loan, nil
}

// ListLoansByUser loads and decrypts every loan visible to the user.
func (r *PgxLoanRepository) ListLoansByUser(ctx context.Context, userID string) ([]domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE owner_user_id = $1
		   OR counterparty_user_id = $1
		   OR loan_id IN (SELECT loan_id FROM loan_collaborators WHERE user_id = $1)
		ORDER BY created_at DESC;
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		m, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loan, err := r.toDomainLoan(m)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loan rows: %w", err)
	}

	for i := range loans {
		collaborators, err := r.listCollaborators(ctx, loans[i].LoanID)
		if err != nil {
			return nil, err
		}
		loans[i].Collaborators = collaborators
	}
	return loans, nil
}

// UpdateLoan writes the mutated loan back conditioned on the version the
// caller observed. The sealed bundle and the bumped version land in the same
// statement: they can never drift apart. Zero matched rows on an existing
// loan means the caller lost the race.
func (r *PgxLoanRepository) UpdateLoan(ctx context.Context, loan domain.Loan, expectedVersion int64) error {
	return r.updateLoan(ctx, r.pool, loan, expectedVersion)
}

func (r *PgxLoanRepository) updateLoan(ctx context.Context, db queryRunner, loan domain.Loan, expectedVersion int64) error {
	modelLoan, err := r.toModelLoan(loan)
	if err != nil {
		return err
	}

	query := `
		UPDATE loans
		SET counterparty_user_id = $1,
		    status = $2,
		    due_date = $3,
		    requires_collaboration = $4,
		    encrypted_data = $5,
		    version = $6 + 1,
		    last_updated_at = $7,
		    last_updated_by = $8
		WHERE loan_id = $9 AND version = $6;
	`
	tag, err := db.Exec(ctx, query,
		modelLoan.CounterpartyUserID, modelLoan.Status, modelLoan.DueDate, modelLoan.RequiresCollaboration,
		modelLoan.EncryptedData, expectedVersion,
		modelLoan.LastUpdatedAt, modelLoan.LastUpdatedBy, modelLoan.LoanID,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan %s: %w", modelLoan.LoanID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from a vanished loan.
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM loans WHERE loan_id = $1);`, modelLoan.LoanID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check loan existence after conflict: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: loan %s", apperrors.ErrNotFound, modelLoan.LoanID)
		}
		return fmt.Errorf("%w: loan %s changed since version %d was read", apperrors.ErrVersionConflict, modelLoan.LoanID, expectedVersion)
	}
	return nil
}

// UpsertCollaborator inserts or updates one collaborator membership row.
func (r *PgxLoanRepository) UpsertCollaborator(ctx context.Context, loanID string, collaborator domain.Collaborator) error {
	return upsertCollaborator(ctx, r.pool, loanID, collaborator)
}

func upsertCollaborator(ctx context.Context, db queryRunner, loanID string, c domain.Collaborator) error {
	query := `
		INSERT INTO loan_collaborators (loan_id, user_id, role, status, invited_by, invited_at, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (loan_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, status = EXCLUDED.status, responded_at = EXCLUDED.responded_at;
	`
	_, err := db.Exec(ctx, query, loanID, c.UserID, string(c.Role), string(c.Status), c.InvitedBy, c.InvitedAt, c.RespondedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert collaborator %s on loan %s: %w", c.UserID, loanID, err)
	}
	return nil
}

func (r *PgxLoanRepository) listCollaborators(ctx context.Context, loanID string) ([]domain.Collaborator, error) {
	query := `
		SELECT user_id, role, status, invited_by, invited_at, responded_at
		FROM loan_collaborators
		WHERE loan_id = $1
		ORDER BY invited_at;
	`
	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var collaborators []domain.Collaborator
	for rows.Next() {
		var c domain.Collaborator
		var role, status string
		if err := rows.Scan(&c.UserID, &role, &status, &c.InvitedBy, &c.InvitedAt, &c.RespondedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator row: %w", err)
		}
		c.Role = domain.CollaboratorRole(role)
		c.Status = domain.InvitationStatus(status)
		collaborators = append(collaborators, c)
	}
	return collaborators, rows.Err()
}
