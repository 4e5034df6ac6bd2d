package dto

import (
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateLoanRequest defines the payload for creating a loan. The counterparty
// may be a registered user (counterpartyUserID) or an external party known
// only by name/email.
type CreateLoanRequest struct {
	CounterpartyUserID    string               `json:"counterpartyUserID"`
	CounterpartyName      string               `json:"counterpartyName"`
	CounterpartyEmail     string               `json:"counterpartyEmail" binding:"omitempty,email"`
	CurrencyCode          string               `json:"currencyCode" binding:"required,len=3"`
	Direction             domain.LoanDirection `json:"direction" binding:"required,oneof=lent borrowed"`
	Amount                decimal.Decimal      `json:"amount" binding:"required"`
	Description           string               `json:"description"`
	Category              string               `json:"category"`
	Tags                  []string             `json:"tags"`
	DueDate               *time.Time           `json:"dueDate"`
	RequiresCollaboration bool                 `json:"requiresCollaboration"`
}

// CreatePaymentRequest defines the payload for adding a payment.
// Amount positivity and balance checks happen in the ledger model.
type CreatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Date   *time.Time      `json:"date"`
	Method string          `json:"method"`
	Notes  string          `json:"notes"`
}

// UpdatePaymentRequest defines the payload for editing a payment. Pointers
// distinguish omitted fields from zero values.
type UpdatePaymentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Date   *time.Time       `json:"date"`
	Method *string          `json:"method"`
	Notes  *string          `json:"notes"`
}

// CreateAdditionRequest defines the payload for drawing extra principal.
type CreateAdditionRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        *time.Time      `json:"date"`
	Description string          `json:"description"`
}

// UpdateAdditionRequest defines the payload for editing an addition.
type UpdateAdditionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
}

// CommentRequest defines the payload for adding or editing a comment.
type CommentRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
}

// AddCollaboratorRequest invites a registered user onto a loan.
type AddCollaboratorRequest struct {
	UserID string                  `json:"userID" binding:"required"`
	Role   domain.CollaboratorRole `json:"role" binding:"required,oneof=collaborator viewer"`
}

// RespondInvitationRequest accepts or declines a collaborator invitation.
type RespondInvitationRequest struct {
	Accept bool `json:"accept"`
}

// LoanResponse is the loan as returned to callers: sensitive fields are
// decrypted, and the persisted encrypted bundle is never exposed.
type LoanResponse struct {
	LoanID                string                `json:"loanID"`
	OwnerUserID           string                `json:"ownerUserID"`
	CounterpartyUserID    string                `json:"counterpartyUserID,omitempty"`
	CounterpartyName      string                `json:"counterpartyName,omitempty"`
	CounterpartyEmail     string                `json:"counterpartyEmail,omitempty"`
	CurrencyCode          string                `json:"currencyCode"`
	Status                domain.LoanStatus     `json:"status"`
	Direction             domain.LoanDirection  `json:"direction"`
	DueDate               *time.Time            `json:"dueDate,omitempty"`
	RequiresCollaboration bool                  `json:"requiresCollaboration"`
	Collaborators         []domain.Collaborator `json:"collaborators,omitempty"`
	Version               int64                 `json:"version"`
	Description           string                `json:"description,omitempty"`
	Category              string                `json:"category,omitempty"`
	Tags                  []string              `json:"tags,omitempty"`
	OriginalAmount        decimal.Decimal       `json:"originalAmount"`
	Amount                decimal.Decimal       `json:"amount"`
	RemainingAmount       decimal.Decimal       `json:"remainingAmount"`
	Payments              []domain.Payment      `json:"payments"`
	Additions             []domain.Addition     `json:"additions"`
	Comments              []domain.Comment      `json:"comments"`
	CreatedAt             time.Time             `json:"createdAt"`
	LastUpdatedAt         time.Time             `json:"lastUpdatedAt"`
}

// ToLoanResponse converts a decrypted domain.Loan to its response shape.
func ToLoanResponse(l *domain.Loan) LoanResponse {
	return LoanResponse{
		LoanID:                l.LoanID,
		OwnerUserID:           l.OwnerUserID,
		CounterpartyUserID:    l.CounterpartyUserID,
		CounterpartyName:      l.CounterpartyName,
		CounterpartyEmail:     l.CounterpartyEmail,
		CurrencyCode:          l.CurrencyCode,
		Status:                l.Status,
		Direction:             l.Direction,
		DueDate:               l.DueDate,
		RequiresCollaboration: l.RequiresCollaboration,
		Collaborators:         l.Collaborators,
		Version:               l.Version,
		Description:           l.Description,
		Category:              l.Category,
		Tags:                  l.Tags,
		OriginalAmount:        l.OriginalAmount,
		Amount:                l.Amount,
		RemainingAmount:       l.RemainingAmount,
		Payments:              l.Payments,
		Additions:             l.Additions,
		Comments:              l.Comments,
		CreatedAt:             l.CreatedAt,
		LastUpdatedAt:         l.LastUpdatedAt,
	}
}

// ListLoansResponse wraps the loan list.
type ListLoansResponse struct {
	Loans []LoanResponse `json:"loans"`
}

// ToListLoansResponse converts a slice of decrypted loans.
func ToListLoansResponse(loans []domain.Loan) ListLoansResponse {
	responses := make([]LoanResponse, len(loans))
	for i := range loans {
		responses[i] = ToLoanResponse(&loans[i])
	}
	return ListLoansResponse{Loans: responses}
}

// PaymentMutationResponse is returned when a payment mutation applied directly.
type PaymentMutationResponse struct {
	Payment domain.Payment `json:"payment"`
	Loan    LoanResponse   `json:"loan"`
}

// AdditionMutationResponse is returned when an addition mutation applied directly.
type AdditionMutationResponse struct {
	Addition domain.Addition `json:"addition"`
	Loan     LoanResponse    `json:"loan"`
}

// CommentMutationResponse is returned after a comment mutation.
type CommentMutationResponse struct {
	Comment domain.Comment `json:"comment"`
	Loan    LoanResponse   `json:"loan"`
}
