package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus indicates the lifecycle state of a loan.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending" // proposed, awaiting counterparty acceptance
	LoanActive    LoanStatus = "active"
	LoanPaid      LoanStatus = "paid"
	LoanCancelled LoanStatus = "cancelled"
)

// LoanDirection is the loan's direction from the owner's perspective.
type LoanDirection string

const (
	DirectionLent     LoanDirection = "lent"
	DirectionBorrowed LoanDirection = "borrowed"
)

// CollaboratorRole defines what a collaborator may do on a loan.
type CollaboratorRole string

const (
	RoleOwner        CollaboratorRole = "owner"
	RoleCollaborator CollaboratorRole = "collaborator"
	RoleViewer       CollaboratorRole = "viewer"
)

// InvitationStatus is the state of a collaborator invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Payment is a repayment applied against a loan's outstanding balance.
type Payment struct {
	PaymentID string          `json:"paymentID"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    string          `json:"method,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	PayerID   string          `json:"payerID"`
	Version   int64           `json:"version"` // per-record version, bumped on edit
	CreatedAt time.Time       `json:"createdAt"`
}

// Addition is extra principal drawn after loan creation. It raises both the
// total principal and the outstanding balance; it never touches OriginalAmount.
type Addition struct {
	AdditionID  string          `json:"additionID"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	AdderID     string          `json:"adderID"`
	AdderName   string          `json:"adderName"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Comment is a free-text note on a loan. System comments document ledger
// changes (additions edited/removed) and cannot be edited.
type Comment struct {
	CommentID  string    `json:"commentID"`
	AuthorID   string    `json:"authorID"`
	AuthorName string    `json:"authorName"`
	Message    string    `json:"message"`
	IsSystem   bool      `json:"isSystem,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Collaborator is a user invited onto a loan with a role.
type Collaborator struct {
	UserID      string           `json:"userID"`
	Role        CollaboratorRole `json:"role"`
	Status      InvitationStatus `json:"status"`
	InvitedBy   string           `json:"invitedBy"`
	InvitedAt   time.Time        `json:"invitedAt"`
	RespondedAt *time.Time       `json:"respondedAt,omitempty"`
}

// Loan is the aggregate root. It is the sole unit of persistence: payments,
// additions, comments and pending changes have no lifecycle outside it.
//
// The fields below the "sensitive" marker only ever exist in memory; at rest
// they live inside the encrypted bundle.
type Loan struct {
	LoanID                string         `json:"loanID"` // Primary Key (e.g., UUID)
	OwnerUserID           string         `json:"ownerUserID"`
	CounterpartyUserID    string         `json:"counterpartyUserID,omitempty"` // empty when unresolved (external party)
	CurrencyCode          string         `json:"currencyCode"`
	Status                LoanStatus     `json:"status"`
	Direction             LoanDirection  `json:"direction"`
	DueDate               *time.Time     `json:"dueDate,omitempty"`
	RequiresCollaboration bool           `json:"requiresCollaboration"`
	Collaborators         []Collaborator `json:"collaborators,omitempty"`
	Version               int64          `json:"version"` // optimistic concurrency guard

	// Sensitive fields, stored encrypted at rest.
	Description        string          `json:"description,omitempty"`
	Category           string          `json:"category,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	CounterpartyName   string          `json:"counterpartyName,omitempty"`
	CounterpartyEmail  string          `json:"counterpartyEmail,omitempty"`
	OriginalAmount     decimal.Decimal `json:"originalAmount"`     // initial principal, fixed at creation
	BaseOriginalAmount decimal.Decimal `json:"baseOriginalAmount"` // legacy alias, equals OriginalAmount
	Amount             decimal.Decimal `json:"amount"`             // current total principal
	RemainingAmount    decimal.Decimal `json:"remainingAmount"`    // outstanding balance
	Payments           []Payment       `json:"payments"`
	Additions          []Addition      `json:"additions"`
	Comments           []Comment       `json:"comments"`

	AuditFields
}

// IsOwner reports whether userID owns the loan.
func (l *Loan) IsOwner(userID string) bool {
	return l.OwnerUserID == userID
}

// IsCounterparty reports whether userID is the resolved counterparty.
func (l *Loan) IsCounterparty(userID string) bool {
	return l.CounterpartyUserID != "" && l.CounterpartyUserID == userID
}

// CollaboratorRoleOf returns the accepted role of userID on this loan, if any.
// The owner implicitly has RoleOwner; the resolved counterparty implicitly has
// RoleCollaborator.
func (l *Loan) CollaboratorRoleOf(userID string) (CollaboratorRole, bool) {
	if l.IsOwner(userID) {
		return RoleOwner, true
	}
	if l.IsCounterparty(userID) {
		return RoleCollaborator, true
	}
	for _, c := range l.Collaborators {
		if c.UserID == userID && c.Status == InvitationAccepted {
			return c.Role, true
		}
	}
	return "", false
}

// CanRead reports whether userID may view the loan at all.
func (l *Loan) CanRead(userID string) bool {
	_, ok := l.CollaboratorRoleOf(userID)
	if ok {
		return true
	}
	// Pending invitees may see the loan they were invited to.
	for _, c := range l.Collaborators {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// CanMutate reports whether userID may request mutations. Viewers are
// read-only; pending or declined collaborators have no access.
func (l *Loan) CanMutate(userID string) bool {
	role, ok := l.CollaboratorRoleOf(userID)
	return ok && role != RoleViewer
}

// FindPayment returns a pointer into the payment list, or nil.
func (l *Loan) FindPayment(paymentID string) *Payment {
	for i := range l.Payments {
		if l.Payments[i].PaymentID == paymentID {
			return &l.Payments[i]
		}
	}
	return nil
}

// FindAddition returns a pointer into the addition list, or nil.
func (l *Loan) FindAddition(additionID string) *Addition {
	for i := range l.Additions {
		if l.Additions[i].AdditionID == additionID {
			return &l.Additions[i]
		}
	}
	return nil
}

// FindComment returns a pointer into the comment list, or nil.
func (l *Loan) FindComment(commentID string) *Comment {
	for i := range l.Comments {
		if l.Comments[i].CommentID == commentID {
			return &l.Comments[i]
		}
	}
	return nil
}

// TotalAdditions sums all addition amounts.
func (l *Loan) TotalAdditions() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.Additions {
		total = total.Add(a.Amount)
	}
	return total
}

// EffectivePrincipal is the canonical base principal used for progress
// display: OriginalAmount, fixed at creation. BaseOriginalAmount is kept only
// as a backward-compatible alias for reads of legacy records.
func (l *Loan) EffectivePrincipal() decimal.Decimal {
	if l.OriginalAmount.IsZero() && !l.BaseOriginalAmount.IsZero() {
		return l.BaseOriginalAmount
	}
	return l.OriginalAmount
}
