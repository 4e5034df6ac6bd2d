package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	portsrepo "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/repositories"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxAuditRepository persists the per-loan hash-chained audit log.
type PgxAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPgxAuditRepository creates a new repository for audit entries.
func NewPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditRepository {
	return &PgxAuditRepository{pool: pool}
}

var _ portsrepo.AuditRepository = (*PgxAuditRepository)(nil)

func toModelAuditEntry(d domain.AuditEntry) (models.AuditEntry, error) {
	details, err := json.Marshal(d.Details)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("failed to serialize audit details: %w", err)
	}
	return models.AuditEntry{
		EntryID:      d.EntryID,
		LoanID:       d.LoanID,
		Action:       d.Action,
		ActorID:      d.ActorID,
		ActorName:    d.ActorName,
		Details:      details,
		PreviousHash: d.PreviousHash,
		Hash:         d.Hash,
		CreatedAt:    d.CreatedAt,
	}, nil
}

func toDomainAuditEntry(m models.AuditEntry) (domain.AuditEntry, error) {
	var details map[string]string
	if len(m.Details) > 0 {
		if err := json.Unmarshal(m.Details, &details); err != nil {
			return domain.AuditEntry{}, fmt.Errorf("failed to parse audit details for entry %s: %w", m.EntryID, err)
		}
	}
	return domain.AuditEntry{
		EntryID:      m.EntryID,
		LoanID:       m.LoanID,
		Action:       m.Action,
		ActorID:      m.ActorID,
		ActorName:    m.ActorName,
		Details:      details,
		PreviousHash: m.PreviousHash,
		Hash:         m.Hash,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// SaveAuditEntry appends one sealed entry to the chain.
func (r *PgxAuditRepository) SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	m, err := toModelAuditEntry(entry)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_entries (entry_id, loan_id, action, actor_id, actor_name, details, previous_hash, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = r.pool.Exec(ctx, query,
		m.EntryID, m.LoanID, m.Action, m.ActorID, m.ActorName, m.Details, m.PreviousHash, m.Hash, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit entry %s: %w", m.EntryID, err)
	}
	return nil
}

// FindLatestAuditEntry returns the newest chain link for the loan.
func (r *PgxAuditRepository) FindLatestAuditEntry(ctx context.Context, loanID string) (*domain.AuditEntry, error) {
	query := `
		SELECT entry_id, loan_id, action, actor_id, actor_name, details, previous_hash, hash, created_at
		FROM audit_entries
		WHERE loan_id = $1
		ORDER BY created_at DESC, entry_id DESC
		LIMIT 1;
	`
	var m models.AuditEntry
	err := r.pool.QueryRow(ctx, query, loanID).Scan(
		&m.EntryID, &m.LoanID, &m.Action, &m.ActorID, &m.ActorName, &m.Details, &m.PreviousHash, &m.Hash, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no audit entries for loan %s", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to find latest audit entry for loan %s: %w", loanID, err)
	}
	entry, err := toDomainAuditEntry(m)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListAuditEntries returns the full chain, oldest first.
func (r *PgxAuditRepository) ListAuditEntries(ctx context.Context, loanID string) ([]domain.AuditEntry, error) {
	query := `
		SELECT entry_id, loan_id, action, actor_id, actor_name, details, previous_hash, hash, created_at
		FROM audit_entries
		WHERE loan_id = $1
		ORDER BY created_at ASC, entry_id ASC;
	`
	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var m models.AuditEntry
		if err := rows.Scan(&m.EntryID, &m.LoanID, &m.Action, &m.ActorID, &m.ActorName, &m.Details, &m.PreviousHash, &m.Hash, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry row: %w", err)
		}
		entry, err := toDomainAuditEntry(m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
