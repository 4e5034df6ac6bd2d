package domain_test

import (
	"testing"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideMutation(t *testing.T) {
	loan := newActiveLoan(1000)

	// Non-collaborative loans always apply directly.
	assert.Equal(t, domain.DecisionDirect, domain.DecideMutation(loan, "owner"))
	assert.Equal(t, domain.DecisionDirect, domain.DecideMutation(loan, "counterparty"))

	// On collaborative loans only the owner bypasses the queue.
	loan.RequiresCollaboration = true
	assert.Equal(t, domain.DecisionDirect, domain.DecideMutation(loan, "owner"))
	assert.Equal(t, domain.DecisionQueued, domain.DecideMutation(loan, "counterparty"))
	assert.Equal(t, domain.DecisionQueued, domain.DecideMutation(loan, "collaborator-user"))
}

func TestAuthorizeResolution(t *testing.T) {
	loan := newActiveLoan(1000)
	change := &domain.PendingChange{
		ChangeID:    "change-1",
		LoanID:      loan.LoanID,
		Type:        domain.ChangePayment,
		RequestedBy: "counterparty",
		Status:      domain.ChangePending,
	}

	// Requester may never resolve their own change.
	err := change.AuthorizeResolution(loan, "counterparty")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// A third party may not resolve either.
	err = change.AuthorizeResolution(loan, "stranger")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// The owner may.
	require.NoError(t, change.AuthorizeResolution(loan, "owner"))

	// Once resolved, any further resolution is a state conflict.
	change.Status = domain.ChangeApproved
	err = change.AuthorizeResolution(loan, "owner")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestLoanAccept(t *testing.T) {
	loan := newActiveLoan(1000)
	loan.Status = domain.LoanPending

	// Only the counterparty may accept.
	assert.ErrorIs(t, loan.Accept("owner"), apperrors.ErrForbidden)
	assert.ErrorIs(t, loan.Accept("stranger"), apperrors.ErrForbidden)

	require.NoError(t, loan.Accept("counterparty"))
	assert.Equal(t, domain.LoanActive, loan.Status)

	// Accepting twice is a state conflict.
	assert.ErrorIs(t, loan.Accept("counterparty"), apperrors.ErrConflict)
}

func TestLoanDecline(t *testing.T) {
	loan := newActiveLoan(1000)
	loan.Status = domain.LoanPending

	assert.ErrorIs(t, loan.Decline("owner"), apperrors.ErrForbidden)

	require.NoError(t, loan.Decline("counterparty"))
	assert.Equal(t, domain.LoanCancelled, loan.Status)

	assert.ErrorIs(t, loan.Decline("counterparty"), apperrors.ErrConflict)
}
