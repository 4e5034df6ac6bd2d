package domain

import "github.com/shopspring/decimal"

// SensitiveBundle is the explicit, typed set of loan fields that are only
// ever materialized in memory and are stored sealed at rest. It is always
// constructed deliberately via Loan.Bundle before sealing, never inferred
// from whichever fields happen to be set.
type SensitiveBundle struct {
	Description        string          `json:"description,omitempty"`
	Category           string          `json:"category,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	CounterpartyName   string          `json:"counterpartyName,omitempty"`
	CounterpartyEmail  string          `json:"counterpartyEmail,omitempty"`
	OriginalAmount     decimal.Decimal `json:"originalAmount"`
	BaseOriginalAmount decimal.Decimal `json:"baseOriginalAmount"`
	Amount             decimal.Decimal `json:"amount"`
	RemainingAmount    decimal.Decimal `json:"remainingAmount"`
	Payments           []Payment       `json:"payments"`
	Additions          []Addition      `json:"additions"`
	Comments           []Comment       `json:"comments"`
}

// Bundle extracts the sensitive fields for sealing.
func (l *Loan) Bundle() SensitiveBundle {
	return SensitiveBundle{
		Description:        l.Description,
		Category:           l.Category,
		Tags:               l.Tags,
		CounterpartyName:   l.CounterpartyName,
		CounterpartyEmail:  l.CounterpartyEmail,
		OriginalAmount:     l.OriginalAmount,
		BaseOriginalAmount: l.BaseOriginalAmount,
		Amount:             l.Amount,
		RemainingAmount:    l.RemainingAmount,
		Payments:           l.Payments,
		Additions:          l.Additions,
		Comments:           l.Comments,
	}
}

// ApplyBundle hydrates a decrypted bundle back onto the loan. The legacy
// BaseOriginalAmount alias is backfilled from OriginalAmount (and the other
// way round for records written before OriginalAmount existed).
func (l *Loan) ApplyBundle(b SensitiveBundle) {
	l.Description = b.Description
	l.Category = b.Category
	l.Tags = b.Tags
	l.CounterpartyName = b.CounterpartyName
	l.CounterpartyEmail = b.CounterpartyEmail
	l.OriginalAmount = b.OriginalAmount
	l.BaseOriginalAmount = b.BaseOriginalAmount
	if l.BaseOriginalAmount.IsZero() {
		l.BaseOriginalAmount = l.OriginalAmount
	}
	if l.OriginalAmount.IsZero() && !l.BaseOriginalAmount.IsZero() {
		l.OriginalAmount = l.BaseOriginalAmount
	}
	l.Amount = b.Amount
	l.RemainingAmount = b.RemainingAmount
	l.Payments = b.Payments
	l.Additions = b.Additions
	l.Comments = b.Comments
}
