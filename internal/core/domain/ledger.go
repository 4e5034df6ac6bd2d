package domain

import (
	"fmt"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxCommentLength is the longest message accepted on a comment.
const MaxCommentLength = 1000

// The ledger operations below are pure: they mutate only the in-memory Loan
// snapshot and perform no I/O. Persistence and approval gating live in the
// loan service.

// settleStatus keeps the balance/status invariant after any mutation:
// RemainingAmount == 0 <=> Status == paid. Pending and cancelled loans are
// never flipped here.
func (l *Loan) settleStatus() {
	if l.Status != LoanActive && l.Status != LoanPaid {
		return
	}
	if l.RemainingAmount.IsZero() {
		l.Status = LoanPaid
	} else {
		l.Status = LoanActive
	}
}

// ApplyPayment records a repayment and decrements the outstanding balance.
// It rejects non-positive amounts and amounts exceeding the balance.
func (l *Loan) ApplyPayment(amount decimal.Decimal, date time.Time, method, notes, payerID string) (*Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
	}
	if amount.GreaterThan(l.RemainingAmount) {
		return nil, fmt.Errorf("%w: payment amount %s exceeds remaining amount %s",
			apperrors.ErrValidation, amount.String(), l.RemainingAmount.String())
	}

	payment := Payment{
		PaymentID: uuid.NewString(),
		Amount:    amount,
		Date:      date,
		Method:    method,
		Notes:     notes,
		PayerID:   payerID,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
	l.Payments = append(l.Payments, payment)
	l.RemainingAmount = l.RemainingAmount.Sub(amount)
	l.settleStatus()
	return &l.Payments[len(l.Payments)-1], nil
}

// EditPayment adjusts an existing payment. A nil field is left unchanged.
// An amount change adjusts the outstanding balance by the delta and is
// rejected if the balance would go negative.
func (l *Loan) EditPayment(paymentID string, newAmount *decimal.Decimal, newDate *time.Time, newMethod, newNotes *string) (*Payment, error) {
	payment := l.FindPayment(paymentID)
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", apperrors.ErrNotFound, paymentID)
	}

	if newAmount != nil {
		if newAmount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
		}
		// remaining += (old - new)
		adjusted := l.RemainingAmount.Add(payment.Amount).Sub(*newAmount)
		if adjusted.IsNegative() {
			return nil, fmt.Errorf("%w: edited payment amount %s would overdraw the remaining amount",
				apperrors.ErrValidation, newAmount.String())
		}
		l.RemainingAmount = adjusted
		payment.Amount = *newAmount
	}
	if newDate != nil {
		payment.Date = *newDate
	}
	if newMethod != nil {
		payment.Method = *newMethod
	}
	if newNotes != nil {
		payment.Notes = *newNotes
	}

	payment.Version++
	l.settleStatus()
	return payment, nil
}

// DeletePayment removes a payment and restores its amount to the balance.
func (l *Loan) DeletePayment(paymentID string) error {
	for i := range l.Payments {
		if l.Payments[i].PaymentID == paymentID {
			l.RemainingAmount = l.RemainingAmount.Add(l.Payments[i].Amount)
			l.Payments = append(l.Payments[:i], l.Payments[i+1:]...)
			l.settleStatus()
			return nil
		}
	}
	return fmt.Errorf("%w: payment %s", apperrors.ErrNotFound, paymentID)
}

// ApplyAddition draws extra principal: both the total principal and the
// outstanding balance rise by the addition amount. OriginalAmount is fixed at
// creation and never touched. A system comment documents the change.
func (l *Loan) ApplyAddition(amount decimal.Decimal, date time.Time, description, adderID, adderName string) (*Addition, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: addition amount must be positive", apperrors.ErrValidation)
	}

	addition := Addition{
		AdditionID:  uuid.NewString(),
		Amount:      amount,
		Date:        date,
		Description: description,
		AdderID:     adderID,
		AdderName:   adderName,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}
	l.Additions = append(l.Additions, addition)
	l.Amount = l.Amount.Add(amount)
	l.RemainingAmount = l.RemainingAmount.Add(amount)
	l.settleStatus()
	l.appendSystemComment(adderID, adderName,
		fmt.Sprintf("Added %s %s to the principal", amount.String(), l.CurrencyCode))
	return &l.Additions[len(l.Additions)-1], nil
}

// EditAddition adjusts an addition's amount and/or description. The principal
// and balance move by the delta; the balance is floored at zero.
func (l *Loan) EditAddition(additionID string, newAmount *decimal.Decimal, newDescription *string, editorID, editorName string) (*Addition, error) {
	addition := l.FindAddition(additionID)
	if addition == nil {
		return nil, fmt.Errorf("%w: addition %s", apperrors.ErrNotFound, additionID)
	}

	if newAmount != nil {
		if newAmount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: addition amount must be positive", apperrors.ErrValidation)
		}
		delta := newAmount.Sub(addition.Amount)
		l.Amount = l.Amount.Add(delta)
		l.RemainingAmount = l.RemainingAmount.Add(delta)
		if l.RemainingAmount.IsNegative() {
			l.RemainingAmount = decimal.Zero
		}
		addition.Amount = *newAmount
	}
	if newDescription != nil {
		addition.Description = *newDescription
	}

	addition.Version++
	l.settleStatus()
	l.appendSystemComment(editorID, editorName,
		fmt.Sprintf("Edited principal addition, amount is now %s %s", addition.Amount.String(), l.CurrencyCode))
	return addition, nil
}

// DeleteAddition removes an addition, lowering both the principal and the
// balance by its amount (balance floored at zero).
func (l *Loan) DeleteAddition(additionID string, removerID, removerName string) error {
	for i := range l.Additions {
		if l.Additions[i].AdditionID == additionID {
			amount := l.Additions[i].Amount
			l.Amount = l.Amount.Sub(amount)
			l.RemainingAmount = l.RemainingAmount.Sub(amount)
			if l.RemainingAmount.IsNegative() {
				l.RemainingAmount = decimal.Zero
			}
			l.Additions = append(l.Additions[:i], l.Additions[i+1:]...)
			l.settleStatus()
			l.appendSystemComment(removerID, removerName,
				fmt.Sprintf("Removed principal addition of %s %s", amount.String(), l.CurrencyCode))
			return nil
		}
	}
	return fmt.Errorf("%w: addition %s", apperrors.ErrNotFound, additionID)
}

// AddComment appends a user comment.
func (l *Loan) AddComment(authorID, authorName, message string) (*Comment, error) {
	if message == "" {
		return nil, fmt.Errorf("%w: comment message is required", apperrors.ErrValidation)
	}
	if len(message) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment message exceeds %d characters", apperrors.ErrValidation, MaxCommentLength)
	}
	now := time.Now().UTC()
	comment := Comment{
		CommentID:  uuid.NewString(),
		AuthorID:   authorID,
		AuthorName: authorName,
		Message:    message,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	l.Comments = append(l.Comments, comment)
	return &l.Comments[len(l.Comments)-1], nil
}

// EditComment replaces a comment's message. Only the author may edit, and
// system comments are immutable.
func (l *Loan) EditComment(commentID, actorID, message string) (*Comment, error) {
	comment := l.FindComment(commentID)
	if comment == nil {
		return nil, fmt.Errorf("%w: comment %s", apperrors.ErrNotFound, commentID)
	}
	if comment.IsSystem {
		return nil, fmt.Errorf("%w: system comments cannot be edited", apperrors.ErrForbidden)
	}
	if comment.AuthorID != actorID {
		return nil, fmt.Errorf("%w: only the author may edit a comment", apperrors.ErrForbidden)
	}
	if message == "" || len(message) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment message must be 1-%d characters", apperrors.ErrValidation, MaxCommentLength)
	}
	comment.Message = message
	comment.UpdatedAt = time.Now().UTC()
	return comment, nil
}

// DeleteComment removes a comment. The author or the loan owner may delete.
func (l *Loan) DeleteComment(commentID, actorID string) error {
	for i := range l.Comments {
		if l.Comments[i].CommentID == commentID {
			if l.Comments[i].AuthorID != actorID && !l.IsOwner(actorID) {
				return fmt.Errorf("%w: only the author or the loan owner may delete a comment", apperrors.ErrForbidden)
			}
			l.Comments = append(l.Comments[:i], l.Comments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: comment %s", apperrors.ErrNotFound, commentID)
}

func (l *Loan) appendSystemComment(authorID, authorName, message string) {
	now := time.Now().UTC()
	l.Comments = append(l.Comments, Comment{
		CommentID:  uuid.NewString(),
		AuthorID:   authorID,
		AuthorName: authorName,
		Message:    message,
		IsSystem:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// CheckInvariants verifies the running-total invariants; it is used by tests
// and by the service as a final guard before persisting.
func (l *Loan) CheckInvariants() error {
	expected := l.OriginalAmount.Add(l.TotalAdditions())
	if !l.Amount.Equal(expected) {
		return fmt.Errorf("%w: amount %s != originalAmount + additions %s",
			apperrors.ErrInternal, l.Amount.String(), expected.String())
	}
	if l.RemainingAmount.IsNegative() {
		return fmt.Errorf("%w: remaining amount %s is negative", apperrors.ErrInternal, l.RemainingAmount.String())
	}
	if l.Status == LoanPaid && !l.RemainingAmount.IsZero() {
		return fmt.Errorf("%w: loan marked paid with remaining amount %s", apperrors.ErrInternal, l.RemainingAmount.String())
	}
	if l.Status == LoanActive && l.RemainingAmount.IsZero() {
		return fmt.Errorf("%w: loan active with zero remaining amount", apperrors.ErrInternal)
	}
	return nil
}
