package models

import "time"

// LoanStatus mirrors domain.LoanStatus for persistence.
type LoanStatus string

// LoanDirection mirrors domain.LoanDirection for persistence.
type LoanDirection string

// Loan is the persisted shape of a loan row. Sensitive fields are never
// stored here in plaintext; they travel inside EncryptedData, which is
// written together with Version in the same statement so the optimistic-lock
// guard can never drift from the payload it protects.
type Loan struct {
	LoanID                string        `db:"loan_id"`
	OwnerUserID           string        `db:"owner_user_id"`
	CounterpartyUserID    string        `db:"counterparty_user_id"` // empty when unresolved
	CurrencyCode          string        `db:"currency_code"`
	Status                LoanStatus    `db:"status"`
	Direction             LoanDirection `db:"direction"`
	DueDate               *time.Time    `db:"due_date"`
	RequiresCollaboration bool          `db:"requires_collaboration"`
	EncryptedData         string        `db:"encrypted_data"`
	Version               int64         `db:"version"`
	AuditFields
}

// Collaborator is the persisted loan membership row.
type Collaborator struct {
	LoanID      string     `db:"loan_id"`
	UserID      string     `db:"user_id"`
	Role        string     `db:"role"`
	Status      string     `db:"status"`
	InvitedBy   string     `db:"invited_by"`
	InvitedAt   time.Time  `db:"invited_at"`
	RespondedAt *time.Time `db:"responded_at"`
}

// PendingChange is the persisted queued-mutation row. SealedPayload is the
// codec-sealed mutation payload.
type PendingChange struct {
	ChangeID        string     `db:"change_id"`
	LoanID          string     `db:"loan_id"`
	Type            string     `db:"change_type"`
	SealedPayload   string     `db:"sealed_payload"`
	RequestedBy     string     `db:"requested_by"`
	RequesterName   string     `db:"requester_name"`
	Status          string     `db:"status"`
	ReviewedBy      string     `db:"reviewed_by"`
	ReviewerName    string     `db:"reviewer_name"`
	RejectionReason string     `db:"rejection_reason"`
	CreatedAt       time.Time  `db:"created_at"`
	ResolvedAt      *time.Time `db:"resolved_at"`
}

// AuditEntry is the persisted hash-chain link.
type AuditEntry struct {
	EntryID      string    `db:"entry_id"`
	LoanID       string    `db:"loan_id"`
	Action       string    `db:"action"`
	ActorID      string    `db:"actor_id"`
	ActorName    string    `db:"actor_name"`
	Details      []byte    `db:"details"` // JSON object
	PreviousHash string    `db:"previous_hash"`
	Hash         string    `db:"hash"`
	CreatedAt    time.Time `db:"created_at"`
}
