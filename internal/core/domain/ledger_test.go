package domain_test

import (
	"testing"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveLoan(principal int64) *domain.Loan {
	amount := decimal.NewFromInt(principal)
	return &domain.Loan{
		LoanID:             "loan-1",
		OwnerUserID:        "owner",
		CounterpartyUserID: "counterparty",
		CurrencyCode:       "USD",
		Status:             domain.LoanActive,
		Direction:          domain.DirectionLent,
		OriginalAmount:     amount,
		BaseOriginalAmount: amount,
		Amount:             amount,
		RemainingAmount:    amount,
		Version:            1,
	}
}

func TestApplyPayment_ReducesRemaining(t *testing.T) {
	loan := newActiveLoan(1000)

	payment, err := loan.ApplyPayment(decimal.NewFromInt(400), time.Now(), "cash", "", "counterparty")
	require.NoError(t, err)

	assert.NotEmpty(t, payment.PaymentID)
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, domain.LoanActive, loan.Status)
	assert.NoError(t, loan.CheckInvariants())
}

func TestApplyPayment_RejectsNonPositive(t *testing.T) {
	loan := newActiveLoan(1000)

	_, err := loan.ApplyPayment(decimal.Zero, time.Now(), "", "", "owner")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = loan.ApplyPayment(decimal.NewFromInt(-5), time.Now(), "", "", "owner")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestApplyPayment_RejectsOverpayment(t *testing.T) {
	loan := newActiveLoan(100)

	_, err := loan.ApplyPayment(decimal.NewFromInt(101), time.Now(), "", "", "owner")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(100)))
}

func TestApplyPayment_FullPaymentSettlesLoan(t *testing.T) {
	loan := newActiveLoan(1000)

	_, err := loan.ApplyPayment(decimal.NewFromInt(1000), time.Now(), "", "", "counterparty")
	require.NoError(t, err)

	assert.True(t, loan.RemainingAmount.IsZero())
	assert.Equal(t, domain.LoanPaid, loan.Status)
	assert.NoError(t, loan.CheckInvariants())
}

func TestApplyAddition_RaisesPrincipalAndBalance(t *testing.T) {
	loan := newActiveLoan(1000)

	addition, err := loan.ApplyAddition(decimal.NewFromInt(200), time.Now(), "extra draw", "owner", "Owner")
	require.NoError(t, err)

	assert.NotEmpty(t, addition.AdditionID)
	assert.True(t, loan.Amount.Equal(decimal.NewFromInt(1200)))
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(1200)))
	// OriginalAmount never moves.
	assert.True(t, loan.OriginalAmount.Equal(decimal.NewFromInt(1000)))
	assert.NoError(t, loan.CheckInvariants())

	// A system comment documents the change.
	require.Len(t, loan.Comments, 1)
	assert.True(t, loan.Comments[0].IsSystem)
}

func TestLedger_FullScenario(t *testing.T) {
	loan := newActiveLoan(1000)

	// Pay 400: remaining 600.
	payment, err := loan.ApplyPayment(decimal.NewFromInt(400), time.Now(), "bank", "", "counterparty")
	require.NoError(t, err)
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(600)))

	// Draw 200 extra: amount 1200, remaining 800.
	_, err = loan.ApplyAddition(decimal.NewFromInt(200), time.Now(), "", "owner", "Owner")
	require.NoError(t, err)
	assert.True(t, loan.Amount.Equal(decimal.NewFromInt(1200)))
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(800)))

	// Delete the payment: its amount returns to the balance.
	require.NoError(t, loan.DeletePayment(payment.PaymentID))
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(1200)))

	// Pay it all off.
	_, err = loan.ApplyPayment(decimal.NewFromInt(1200), time.Now(), "", "", "counterparty")
	require.NoError(t, err)
	assert.True(t, loan.RemainingAmount.IsZero())
	assert.Equal(t, domain.LoanPaid, loan.Status)
	assert.NoError(t, loan.CheckInvariants())
}

func TestEditPayment_AdjustsBalanceByDelta(t *testing.T) {
	loan := newActiveLoan(1000)
	payment, err := loan.ApplyPayment(decimal.NewFromInt(400), time.Now(), "", "", "counterparty")
	require.NoError(t, err)

	newAmount := decimal.NewFromInt(300)
	edited, err := loan.EditPayment(payment.PaymentID, &newAmount, nil, nil, nil)
	require.NoError(t, err)

	assert.True(t, edited.Amount.Equal(newAmount))
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, int64(2), edited.Version)
	assert.NoError(t, loan.CheckInvariants())
}

func TestEditPayment_RejectsOverdraw(t *testing.T) {
	loan := newActiveLoan(1000)
	payment, err := loan.ApplyPayment(decimal.NewFromInt(400), time.Now(), "", "", "counterparty")
	require.NoError(t, err)

	// Raising the payment to 1500 would push remaining below zero.
	newAmount := decimal.NewFromInt(1500)
	_, err = loan.EditPayment(payment.PaymentID, &newAmount, nil, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(600)))
}

func TestEditPayment_ReactivatesPaidLoan(t *testing.T) {
	loan := newActiveLoan(1000)
	payment, err := loan.ApplyPayment(decimal.NewFromInt(1000), time.Now(), "", "", "counterparty")
	require.NoError(t, err)
	require.Equal(t, domain.LoanPaid, loan.Status)

	newAmount := decimal.NewFromInt(900)
	_, err = loan.EditPayment(payment.PaymentID, &newAmount, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanActive, loan.Status)
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(100)))
}

func TestEditAddition_MovesPrincipalByDelta(t *testing.T) {
	loan := newActiveLoan(1000)
	addition, err := loan.ApplyAddition(decimal.NewFromInt(200), time.Now(), "", "owner", "Owner")
	require.NoError(t, err)

	newAmount := decimal.NewFromInt(50)
	edited, err := loan.EditAddition(addition.AdditionID, &newAmount, nil, "owner", "Owner")
	require.NoError(t, err)

	assert.True(t, edited.Amount.Equal(newAmount))
	assert.True(t, loan.Amount.Equal(decimal.NewFromInt(1050)))
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(1050)))
	assert.NoError(t, loan.CheckInvariants())
}

func TestDeleteAddition_FloorsBalanceAtZero(t *testing.T) {
	loan := newActiveLoan(1000)
	addition, err := loan.ApplyAddition(decimal.NewFromInt(200), time.Now(), "", "owner", "Owner")
	require.NoError(t, err)

	// Pay down to 100 remaining, then remove the 200 addition.
	_, err = loan.ApplyPayment(decimal.NewFromInt(1100), time.Now(), "", "", "counterparty")
	require.NoError(t, err)

	require.NoError(t, loan.DeleteAddition(addition.AdditionID, "owner", "Owner"))
	assert.True(t, loan.RemainingAmount.IsZero())
	assert.True(t, loan.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.LoanPaid, loan.Status)
}

func TestDeletePayment_UnknownID(t *testing.T) {
	loan := newActiveLoan(1000)
	assert.ErrorIs(t, loan.DeletePayment("missing"), apperrors.ErrNotFound)
}

func TestComments_AuthorRules(t *testing.T) {
	loan := newActiveLoan(1000)

	comment, err := loan.AddComment("counterparty", "Casey", "paid you back half")
	require.NoError(t, err)

	// Only the author may edit.
	_, err = loan.EditComment(comment.CommentID, "owner", "changed")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	edited, err := loan.EditComment(comment.CommentID, "counterparty", "paid you back all of it")
	require.NoError(t, err)
	assert.Equal(t, "paid you back all of it", edited.Message)

	// The owner may delete someone else's comment.
	require.NoError(t, loan.DeleteComment(comment.CommentID, "owner"))
	assert.Empty(t, loan.Comments)
}

func TestComments_SystemCommentsImmutable(t *testing.T) {
	loan := newActiveLoan(1000)
	_, err := loan.ApplyAddition(decimal.NewFromInt(100), time.Now(), "", "owner", "Owner")
	require.NoError(t, err)
	require.Len(t, loan.Comments, 1)

	_, err = loan.EditComment(loan.Comments[0].CommentID, "owner", "rewrite history")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestComments_LengthLimit(t *testing.T) {
	loan := newActiveLoan(1000)

	long := make([]byte, domain.MaxCommentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := loan.AddComment("owner", "Owner", string(long))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = loan.AddComment("owner", "Owner", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCheckInvariants_DetectsDrift(t *testing.T) {
	loan := newActiveLoan(1000)
	loan.Amount = decimal.NewFromInt(999) // drifted from original + additions
	assert.ErrorIs(t, loan.CheckInvariants(), apperrors.ErrInternal)

	loan = newActiveLoan(1000)
	loan.RemainingAmount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, loan.CheckInvariants(), apperrors.ErrInternal)

	loan = newActiveLoan(1000)
	loan.Status = domain.LoanPaid // remaining is still 1000
	assert.ErrorIs(t, loan.CheckInvariants(), apperrors.ErrInternal)
}

func TestEffectivePrincipal_LegacyAlias(t *testing.T) {
	loan := newActiveLoan(1000)
	assert.True(t, loan.EffectivePrincipal().Equal(decimal.NewFromInt(1000)))

	legacy := &domain.Loan{BaseOriginalAmount: decimal.NewFromInt(500)}
	assert.True(t, legacy.EffectivePrincipal().Equal(decimal.NewFromInt(500)))
}

func TestCollaboratorRoles(t *testing.T) {
	loan := newActiveLoan(1000)
	loan.Collaborators = []domain.Collaborator{
		{UserID: "viewer-user", Role: domain.RoleViewer, Status: domain.InvitationAccepted},
		{UserID: "pending-user", Role: domain.RoleCollaborator, Status: domain.InvitationPending},
	}

	assert.True(t, loan.CanRead("owner"))
	assert.True(t, loan.CanMutate("owner"))
	assert.True(t, loan.CanMutate("counterparty"))

	assert.True(t, loan.CanRead("viewer-user"))
	assert.False(t, loan.CanMutate("viewer-user"))

	// Pending invitees may look but not touch.
	assert.True(t, loan.CanRead("pending-user"))
	assert.False(t, loan.CanMutate("pending-user"))

	assert.False(t, loan.CanRead("stranger"))
}
