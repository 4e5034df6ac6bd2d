package domain

import (
	"fmt"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/shopspring/decimal"
)

// PendingChangeType identifies the queued mutation kind.
type PendingChangeType string

const (
	ChangePayment          PendingChangeType = "payment"
	ChangeLoanAddition     PendingChangeType = "loan_addition"
	ChangePaymentEdit      PendingChangeType = "payment_edit"
	ChangeAdditionEdit     PendingChangeType = "addition_edit"
	ChangePaymentDeletion  PendingChangeType = "payment_deletion"
	ChangeAdditionDeletion PendingChangeType = "addition_deletion"
)

// PendingChangeStatus is the resolution state of a pending change.
type PendingChangeStatus string

const (
	ChangePending  PendingChangeStatus = "pending"
	ChangeApproved PendingChangeStatus = "approved"
	ChangeRejected PendingChangeStatus = "rejected"
)

// PendingChange is a queued mutation awaiting the counterparty's decision.
// The payload is the serialized mutation (one of the *Payload types below);
// it is sealed by the codec at rest.
type PendingChange struct {
	ChangeID        string              `json:"changeID"`
	LoanID          string              `json:"loanID"`
	Type            PendingChangeType   `json:"type"`
	Payload         []byte              `json:"payload"`
	RequestedBy     string              `json:"requestedBy"`
	RequesterName   string              `json:"requesterName"`
	Status          PendingChangeStatus `json:"status"`
	ReviewedBy      string              `json:"reviewedBy,omitempty"`
	ReviewerName    string              `json:"reviewerName,omitempty"`
	RejectionReason string              `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	ResolvedAt      *time.Time          `json:"resolvedAt,omitempty"`
}

// PaymentPayload is the queued form of an add-payment mutation.
type PaymentPayload struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Method string          `json:"method,omitempty"`
	Notes  string          `json:"notes,omitempty"`
}

// AdditionPayload is the queued form of an add-principal mutation.
type AdditionPayload struct {
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}

// PaymentEditPayload is the queued form of a payment edit.
type PaymentEditPayload struct {
	PaymentID string           `json:"paymentID"`
	NewAmount *decimal.Decimal `json:"newAmount,omitempty"`
	NewDate   *time.Time       `json:"newDate,omitempty"`
	NewMethod *string          `json:"newMethod,omitempty"`
	NewNotes  *string          `json:"newNotes,omitempty"`
}

// AdditionEditPayload is the queued form of an addition edit.
type AdditionEditPayload struct {
	AdditionID     string           `json:"additionID"`
	NewAmount      *decimal.Decimal `json:"newAmount,omitempty"`
	NewDescription *string          `json:"newDescription,omitempty"`
}

// DeletionPayload is the queued form of a sub-record deletion.
type DeletionPayload struct {
	TargetID string `json:"targetID"`
}

// MutationDecision is the approval workflow's verdict for a mutation request.
type MutationDecision int

const (
	// DecisionDirect applies the mutation immediately.
	DecisionDirect MutationDecision = iota
	// DecisionQueued defers the mutation into a PendingChange.
	DecisionQueued
)

// DecideMutation decides whether actorID's mutation applies immediately or
// must queue for counterparty approval. Owner mutations and mutations on
// non-collaborative loans always apply directly.
func DecideMutation(l *Loan, actorID string) MutationDecision {
	if l.RequiresCollaboration && !l.IsOwner(actorID) {
		return DecisionQueued
	}
	return DecisionDirect
}

// AuthorizeResolution checks whether actorID may approve or reject this
// pending change on the given loan. A requester can never resolve their own
// change; only the owner or the resolved counterparty may resolve; a change
// already resolved yields a state conflict.
func (p *PendingChange) AuthorizeResolution(l *Loan, actorID string) error {
	if p.Status != ChangePending {
		return fmt.Errorf("%w: pending change %s already %s", apperrors.ErrConflict, p.ChangeID, p.Status)
	}
	if p.RequestedBy == actorID {
		return fmt.Errorf("%w: cannot resolve your own pending change", apperrors.ErrForbidden)
	}
	if !l.IsOwner(actorID) && !l.IsCounterparty(actorID) {
		return fmt.Errorf("%w: only the loan owner or counterparty may resolve pending changes", apperrors.ErrForbidden)
	}
	return nil
}

// Accept transitions a proposed loan to active. Only the resolved
// counterparty may accept, and only while the loan is pending.
func (l *Loan) Accept(actorID string) error {
	if l.Status != LoanPending {
		return fmt.Errorf("%w: loan is %s, expected pending", apperrors.ErrConflict, l.Status)
	}
	if !l.IsCounterparty(actorID) {
		return fmt.Errorf("%w: only the invited counterparty may accept the loan", apperrors.ErrForbidden)
	}
	l.Status = LoanActive
	return nil
}

// Decline rejects a proposed loan. Same actor rule as Accept.
func (l *Loan) Decline(actorID string) error {
	if l.Status != LoanPending {
		return fmt.Errorf("%w: loan is %s, expected pending", apperrors.ErrConflict, l.Status)
	}
	if !l.IsCounterparty(actorID) {
		return fmt.Errorf("%w: only the invited counterparty may reject the loan", apperrors.ErrForbidden)
	}
	l.Status = LoanCancelled
	return nil
}
