package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	portsrepo "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/repositories"
	portssvc "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/dto"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanService orchestrates the loan workflow: load and decrypt the aggregate,
// authorize the actor, route the mutation through the ledger model directly or
// through the approval queue, and persist with the version check.
type LoanService struct {
	loanRepo portsrepo.LoanRepositoryFacade
	userSvc  portssvc.UserSvcFacade
	auditor  portssvc.AuditSvcFacade
	notifier portssvc.Notifier
}

// NewLoanService creates a new LoanService.
func NewLoanService(
	loanRepo portsrepo.LoanRepositoryFacade,
	userSvc portssvc.UserSvcFacade,
	auditor portssvc.AuditSvcFacade,
	notifier portssvc.Notifier,
) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
		userSvc:  userSvc,
		auditor:  auditor,
		notifier: notifier,
	}
}

var _ portssvc.LoanSvcFacade = (*LoanService)(nil)

// CreateLoan creates a loan aggregate at version 1. A loan against a
// registered counterparty starts pending until they accept; a loan against an
// external party (name/email only) starts active immediately.
func (s *LoanService) CreateLoan(ctx context.Context, req dto.CreateLoanRequest, creatorUserID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: loan amount must be positive", apperrors.ErrValidation)
	}

	status := domain.LoanActive
	if req.CounterpartyUserID != "" {
		if req.CounterpartyUserID == creatorUserID {
			return nil, fmt.Errorf("%w: counterparty cannot be the loan creator", apperrors.ErrValidation)
		}
		if _, err := s.userSvc.GetUserByID(ctx, req.CounterpartyUserID); err != nil {
			return nil, fmt.Errorf("%w: counterparty user %s not found", apperrors.ErrValidation, req.CounterpartyUserID)
		}
		status = domain.LoanPending
	}

	now := time.Now().UTC()
	loan := domain.Loan{
		LoanID:                uuid.NewString(),
		OwnerUserID:           creatorUserID,
		CounterpartyUserID:    req.CounterpartyUserID,
		CurrencyCode:          req.CurrencyCode,
		Status:                status,
		Direction:             req.Direction,
		DueDate:               req.DueDate,
		RequiresCollaboration: req.RequiresCollaboration,
		Version:               1,
		Description:           req.Description,
		Category:              req.Category,
		Tags:                  req.Tags,
		CounterpartyName:      req.CounterpartyName,
		CounterpartyEmail:     req.CounterpartyEmail,
		OriginalAmount:        req.Amount,
		BaseOriginalAmount:    req.Amount,
		Amount:                req.Amount,
		RemainingAmount:       req.Amount,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.loanRepo.SaveLoan(ctx, loan); err != nil {
		return nil, err
	}
	logger.Info("loan created", "loan_id", loan.LoanID, "status", loan.Status)

	actorName := s.displayName(ctx, creatorUserID)
	s.auditor.Record(ctx, loan.LoanID, "loan_created", creatorUserID, actorName, map[string]string{
		"amount":   loan.OriginalAmount.String(),
		"currency": loan.CurrencyCode,
	})
	if loan.CounterpartyUserID != "" {
		s.notifier.Notify(ctx, portssvc.NotificationEvent{
			Type:        "loan_proposed",
			LoanID:      loan.LoanID,
			RecipientID: loan.CounterpartyUserID,
			ActorName:   actorName,
			Message:     "You have been invited to a shared loan",
		})
	}
	return &loan, nil
}

// GetLoan loads a loan the requesting user may read.
func (s *LoanService) GetLoan(ctx context.Context, loanID, requestingUserID string) (*domain.Loan, error) {
	return s.loadForRead(ctx, loanID, requestingUserID)
}

// ListLoans returns every loan the user participates in.
func (s *LoanService) ListLoans(ctx context.Context, requestingUserID string) ([]domain.Loan, error) {
	return s.loanRepo.ListLoansByUser(ctx, requestingUserID)
}

// AcceptLoan resolves a proposed loan to active.
func (s *LoanService) AcceptLoan(ctx context.Context, loanID, actorID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.Accept(actorID); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	actorName := s.displayName(ctx, actorID)
	s.auditor.Record(ctx, loan.LoanID, "loan_accepted", actorID, actorName, nil)
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        "loan_accepted",
		LoanID:      loan.LoanID,
		RecipientID: loan.OwnerUserID,
		ActorName:   actorName,
		Message:     "Your loan proposal was accepted",
	})
	return loan, nil
}

// DeclineLoan resolves a proposed loan to cancelled.
func (s *LoanService) DeclineLoan(ctx context.Context, loanID, actorID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.Decline(actorID); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	actorName := s.displayName(ctx, actorID)
	s.auditor.Record(ctx, loan.LoanID, "loan_declined", actorID, actorName, nil)
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        "loan_declined",
		LoanID:      loan.LoanID,
		RecipientID: loan.OwnerUserID,
		ActorName:   actorName,
		Message:     "Your loan proposal was declined",
	})
	return loan, nil
}

// AddPayment records a repayment, or queues it when the approval workflow
// applies to the actor.
func (s *LoanService) AddPayment(ctx context.Context, loanID, actorID string, req dto.CreatePaymentRequest) (*portssvc.MutationResult, error) {
	loan, err := s.loadForLedgerMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}
	// Amount rules hold before the queue decision too: a bad request fails
	// for the requester, not for whoever approves it later.
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
	}

	date := valueOrNow(req.Date)
	if domain.DecideMutation(loan, actorID) == domain.DecisionQueued {
		return s.queueChange(ctx, loan, domain.ChangePayment, domain.PaymentPayload{
			Amount: req.Amount,
			Date:   date,
			Method: req.Method,
			Notes:  req.Notes,
		}, actorID)
	}

	payment, err := loan.ApplyPayment(req.Amount, date, req.Method, req.Notes, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	actorName := s.displayName(ctx, actorID)
	s.auditor.Record(ctx, loan.LoanID, "payment_added", actorID, actorName, map[string]string{
		"payment_id": payment.PaymentID,
		"amount":     payment.Amount.String(),
		"remaining":  loan.RemainingAmount.String(),
	})
	s.notifyOtherParty(ctx, loan, actorID, actorName, "payment_added", "A payment was recorded on your loan")
	return &portssvc.MutationResult{Decision: domain.DecisionDirect, Loan: loan, Payment: payment}, nil
}

// UpdatePayment edits an existing payment, or queues the edit.
func (s *LoanService) UpdatePayment(ctx context.Context, loanID, paymentID, actorID string, req dto.UpdatePaymentRequest) (*portssvc.MutationResult, error) {
	loan, err := s.loadForLedgerMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}
	if loan.FindPayment(paymentID) == nil {
		return nil, fmt.Errorf("%w: payment %s", apperrors.ErrNotFound, paymentID)
	}
	if req.Amount != nil && req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
	}

	if domain.DecideMutation(loan, actorID) == domain.DecisionQueued {
		return s.queueChange(ctx, loan, domain.ChangePaymentEdit, domain.PaymentEditPayload{
			PaymentID: paymentID,
			NewAmount: req.Amount,
			NewDate:   req.Date,
			NewMethod: req.Method,
			NewNotes:  req.Notes,
		}, actorID)
	}

	payment, err := loan.EditPayment(paymentID, req.Amount, req.Date, req.Method, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	actorName := s.displayName(ctx, actorID)
	s.auditor.Record(ctx, loan.LoanID, "payment_edited", actorID, actorName, map[string]string{
		"payment_id": payment.PaymentID,
		"amount":     payment.Amount.String(),
		"remaining":  loan.RemainingAmount.String(),
	})
	s.notifyOtherParty(ctx, loan, actorID, actorName, "payment_edited", "A payment on your loan was edited")
	return &portssvc.MutationResult{Decision: domain.DecisionDirect, Loan: loan, Payment: payment}, nil
}

// DeletePayment removes a payment, or queues the deletion.
func (s *LoanService) DeletePayment(ctx context.Context, loanID, paymentID, actorID string) (*portssvc.MutationResult, error) {
	loan, err := s.loadForLedgerMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}
	if loan.FindPayment(paymentID) == nil {
		return nil, fmt.Errorf("%w: payment %s", apperrors.ErrNotFound, paymentID)
	}

	if domain.DecideMutation(loan, actorID) == domain.DecisionQueued {
		return s.queueChange(ctx, loan, domain.ChangePaymentDeletion, domain.DeletionPayload{TargetID: paymentID}, actorID)
	}

	if err := loan.DeletePayment(paymentID); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	actorName := s.displayName(ctx, actorID)
	s.auditor.Record(ctx, loan.LoanID, "payment_deleted", actorID, actorName, map[string]string{
		"payment_id": paymentID,
		"remaining":  loan.RemainingAmount.String(),
	})
	s.notifyOtherParty(ctx, loan, actorID, actorName, "payment_deleted", "A payment on your loan was removed")
	return &portssvc.MutationResult{Decision: domain.DecisionDirect, Loan: loan}, nil
}

// AddAddition draws extra principal, or queues the draw.
func (s *LoanService) AddAddition(ctx context.Context, loanID, actorID string, req dto.CreateAdditionRequest) (*portssvc.MutationResult, error) {
	loan, err := s.loadForLedgerMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: addition amount must be positive", apperrors.ErrValidation)
	}

	date := valueOrNow(req.Date)
	if domain.DecideMutation(loan, actorID) == domain.DecisionQueued {
		return s.queueChange(ctx, loan, domain.ChangeLoanAddition, domain.AdditionPayload{
			Amount:      req.Amount,
			Date:        date,
			Description: req.Description,
		}, actorID)
	}

	actorName := s.displayName(ctx, actorID)
	addition, err := loan.ApplyAddition(req.Amount, date, req.Description, actorID, actorName)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "addition_added", actorID, actorName, map[string]string{
		"addition_id": addition.AdditionID,
		"amount":      addition.Amount.String(),
		"principal":   loan.Amount.String(),
	})
	s.notifyOtherParty(ctx, loan, actorID, actorName, "addition_added", "Extra principal was added to your loan")
	return &portssvc.MutationResult{Decision: domain.DecisionDirect, Loan: loan, Addition: addition}, nil
}

// UpdateAddition edits an existing addition, or queues the edit.
func (s *LoanService) UpdateAddition(ctx context.Context, loanID, additionID, actorID string, req dto.UpdateAdditionRequest) (*portssvc.MutationResult, error) {
	loan, err := s.loadForLedgerMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}
	if loan.FindAddition(additionID) == nil {
		return nil, fmt.Errorf("%w: addition %s", apperrors.ErrNotFound, additionID)
	}
	if req.Amount != nil && req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: addition amount must be positive", apperrors.ErrValidation)
	}

	if domain.DecideMutation(loan, actorID) == domain.DecisionQueued {
		return s.queueChange(ctx, loan, domain.ChangeAdditionEdit, domain.AdditionEditPayload{
			AdditionID:     additionID,
			NewAmount:      req.Amount,
			NewDescription: req.Description,
		}, actorID)
	}

	actorName := s.displayName(ctx, actorID)
	addition, err := loan.EditAddition(additionID, req.Amount, req.Description, actorID, actorName)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "addition_edited", actorID, actorName, map[string]string{
		"addition_id": addition.AdditionID,
		"amount":      addition.Amount.String(),
		"principal":   loan.Amount.String(),
	})
	s.notifyOtherParty(ctx, loan, actorID, actorName, "addition_edited", "A principal addition on your loan was edited")
	return &portssvc.MutationResult{Decision: domain.DecisionDirect, Loan: loan, Addition: addition}, nil
}

// DeleteAddition removes an addition, or queues the deletion.
func (s *LoanService) DeleteAddition(ctx context.Context, loanID, additionID, actorID string) (*portssvc.MutationResult, error) {
	loan, err := s.loadForLedgerMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}
	if loan.FindAddition(additionID) == nil {
		return nil, fmt.Errorf("%w: addition %s", apperrors.ErrNotFound, additionID)
	}

	if domain.DecideMutation(loan, actorID) == domain.DecisionQueued {
		return s.queueChange(ctx, loan, domain.ChangeAdditionDeletion, domain.DeletionPayload{TargetID: additionID}, actorID)
	}

	actorName := s.displayName(ctx, actorID)
	if err := loan.DeleteAddition(additionID, actorID, actorName); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "addition_deleted", actorID, actorName, map[string]string{
		"addition_id": additionID,
		"principal":   loan.Amount.String(),
	})
	s.notifyOtherParty(ctx, loan, actorID, actorName, "addition_deleted", "A principal addition on your loan was removed")
	return &portssvc.MutationResult{Decision: domain.DecisionDirect, Loan: loan}, nil
}

// AddComment appends a user comment. Comments never go through the approval
// queue: they don't move money.
func (s *LoanService) AddComment(ctx context.Context, loanID, actorID, message string) (*domain.Comment, *domain.Loan, error) {
	loan, err := s.loadForMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, nil, err
	}

	actorName := s.displayName(ctx, actorID)
	comment, err := loan.AddComment(actorID, actorName, message)
	if err != nil {
		return nil, nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "comment_added", actorID, actorName, map[string]string{
		"comment_id": comment.CommentID,
	})
	return comment, loan, nil
}

// UpdateComment edits a comment (author-only, enforced by the model).
func (s *LoanService) UpdateComment(ctx context.Context, loanID, commentID, actorID, message string) (*domain.Comment, *domain.Loan, error) {
	loan, err := s.loadForMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, nil, err
	}

	comment, err := loan.EditComment(commentID, actorID, message)
	if err != nil {
		return nil, nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "comment_edited", actorID, s.displayName(ctx, actorID), map[string]string{
		"comment_id": commentID,
	})
	return comment, loan, nil
}

// DeleteComment removes a comment (author or owner, enforced by the model).
func (s *LoanService) DeleteComment(ctx context.Context, loanID, commentID, actorID string) (*domain.Loan, error) {
	loan, err := s.loadForMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}

	if err := loan.DeleteComment(commentID, actorID); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, loan, actorID); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "comment_deleted", actorID, s.displayName(ctx, actorID), map[string]string{
		"comment_id": commentID,
	})
	return loan, nil
}

// ListPendingChanges returns the loan's queued mutations, newest first.
func (s *LoanService) ListPendingChanges(ctx context.Context, loanID, requestingUserID string) ([]domain.PendingChange, error) {
	if _, err := s.loadForRead(ctx, loanID, requestingUserID); err != nil {
		return nil, err
	}
	return s.loanRepo.ListPendingChangesByLoan(ctx, loanID)
}

// ApprovePendingChange applies a queued mutation to the loan's current
// snapshot and marks the change approved, atomically. Approving twice, or
// approving your own request, fails before anything is written.
func (s *LoanService) ApprovePendingChange(ctx context.Context, loanID, changeID, actorID string) (*domain.PendingChange, *domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	change, err := s.loanRepo.FindPendingChangeByID(ctx, loanID, changeID)
	if err != nil {
		return nil, nil, err
	}
	if err := change.AuthorizeResolution(loan, actorID); err != nil {
		return nil, nil, err
	}

	// The payload is applied to the snapshot as it is NOW, not as it was when
	// the change was requested. The ledger model re-validates against current
	// balances, so a stale request that no longer fits fails here.
	if err := s.applyPendingChange(loan, change); err != nil {
		return nil, nil, err
	}
	if err := loan.CheckInvariants(); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	change.Status = domain.ChangeApproved
	change.ReviewedBy = actorID
	change.ReviewerName = s.displayName(ctx, actorID)
	change.ResolvedAt = &now

	expected := loan.Version
	loan.LastUpdatedAt = now
	loan.LastUpdatedBy = actorID
	if err := s.loanRepo.ApprovePendingChange(ctx, *change, *loan, expected); err != nil {
		return nil, nil, err
	}
	loan.Version = expected + 1

	s.auditor.Record(ctx, loan.LoanID, "change_approved", actorID, change.ReviewerName, map[string]string{
		"change_id":   change.ChangeID,
		"change_type": string(change.Type),
	})
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        "pending_change_approved",
		LoanID:      loan.LoanID,
		RecipientID: change.RequestedBy,
		ActorName:   change.ReviewerName,
		Message:     "Your requested change was approved",
	})
	return change, loan, nil
}

// RejectPendingChange resolves a queued mutation without touching the loan.
func (s *LoanService) RejectPendingChange(ctx context.Context, loanID, changeID, actorID, reason string) (*domain.PendingChange, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	change, err := s.loanRepo.FindPendingChangeByID(ctx, loanID, changeID)
	if err != nil {
		return nil, err
	}
	if err := change.AuthorizeResolution(loan, actorID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	change.Status = domain.ChangeRejected
	change.ReviewedBy = actorID
	change.ReviewerName = s.displayName(ctx, actorID)
	change.RejectionReason = reason
	change.ResolvedAt = &now

	if err := s.loanRepo.RejectPendingChange(ctx, *change); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "change_rejected", actorID, change.ReviewerName, map[string]string{
		"change_id":   change.ChangeID,
		"change_type": string(change.Type),
		"reason":      reason,
	})
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        "pending_change_rejected",
		LoanID:      loan.LoanID,
		RecipientID: change.RequestedBy,
		ActorName:   change.ReviewerName,
		Message:     "Your requested change was rejected",
	})
	return change, nil
}

// AddCollaborator invites a registered user onto the loan. Owner only.
func (s *LoanService) AddCollaborator(ctx context.Context, loanID, actorID string, req dto.AddCollaboratorRequest) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsOwner(actorID) {
		return nil, fmt.Errorf("%w: only the loan owner may invite collaborators", apperrors.ErrForbidden)
	}
	if req.UserID == loan.OwnerUserID || req.UserID == loan.CounterpartyUserID {
		return nil, fmt.Errorf("%w: user %s is already a loan party", apperrors.ErrValidation, req.UserID)
	}
	if _, err := s.userSvc.GetUserByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("%w: user %s not found", apperrors.ErrValidation, req.UserID)
	}

	collaborator := domain.Collaborator{
		UserID:    req.UserID,
		Role:      req.Role,
		Status:    domain.InvitationPending,
		InvitedBy: actorID,
		InvitedAt: time.Now().UTC(),
	}
	if err := s.loanRepo.UpsertCollaborator(ctx, loanID, collaborator); err != nil {
		return nil, err
	}
	replaceCollaborator(loan, collaborator)

	actorName := s.displayName(ctx, actorID)
	s.auditor.Record(ctx, loan.LoanID, "collaborator_invited", actorID, actorName, map[string]string{
		"user_id": req.UserID,
		"role":    string(req.Role),
	})
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        "collaborator_invited",
		LoanID:      loan.LoanID,
		RecipientID: req.UserID,
		ActorName:   actorName,
		Message:     "You were invited to collaborate on a loan",
	})
	return loan, nil
}

// RespondToInvitation accepts or declines the actor's own pending invitation.
func (s *LoanService) RespondToInvitation(ctx context.Context, loanID, actorID string, accept bool) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	var invitation *domain.Collaborator
	for i := range loan.Collaborators {
		if loan.Collaborators[i].UserID == actorID {
			invitation = &loan.Collaborators[i]
			break
		}
	}
	if invitation == nil {
		return nil, fmt.Errorf("%w: no invitation for user %s on loan %s", apperrors.ErrNotFound, actorID, loanID)
	}
	if invitation.Status != domain.InvitationPending {
		return nil, fmt.Errorf("%w: invitation already %s", apperrors.ErrConflict, invitation.Status)
	}

	now := time.Now().UTC()
	if accept {
		invitation.Status = domain.InvitationAccepted
	} else {
		invitation.Status = domain.InvitationDeclined
	}
	invitation.RespondedAt = &now

	if err := s.loanRepo.UpsertCollaborator(ctx, loanID, *invitation); err != nil {
		return nil, err
	}

	actorName := s.displayName(ctx, actorID)
	action := "invitation_accepted"
	if !accept {
		action = "invitation_declined"
	}
	s.auditor.Record(ctx, loan.LoanID, action, actorID, actorName, nil)
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        action,
		LoanID:      loan.LoanID,
		RecipientID: loan.OwnerUserID,
		ActorName:   actorName,
		Message:     "A collaborator responded to your invitation",
	})
	return loan, nil
}

// GetAuditTrail returns the loan's action log and chain verification result.
func (s *LoanService) GetAuditTrail(ctx context.Context, loanID, requestingUserID string) ([]domain.AuditEntry, int, error) {
	if _, err := s.loadForRead(ctx, loanID, requestingUserID); err != nil {
		return nil, 0, err
	}
	return s.auditor.Trail(ctx, loanID)
}

// --- internals ---

func (s *LoanService) loadForRead(ctx context.Context, loanID, userID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.CanRead(userID) {
		return nil, fmt.Errorf("%w: no access to loan %s", apperrors.ErrForbidden, loanID)
	}
	return loan, nil
}

func (s *LoanService) loadForMutation(ctx context.Context, loanID, actorID string) (*domain.Loan, error) {
	loan, err := s.loadForRead(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}
	if !loan.CanMutate(actorID) {
		return nil, fmt.Errorf("%w: read-only access to loan %s", apperrors.ErrForbidden, loanID)
	}
	return loan, nil
}

// loadForLedgerMutation additionally rejects balance mutations on loans that
// are not live: a proposed loan has no ledger yet, a cancelled one never will.
func (s *LoanService) loadForLedgerMutation(ctx context.Context, loanID, actorID string) (*domain.Loan, error) {
	loan, err := s.loadForMutation(ctx, loanID, actorID)
	if err != nil {
		return nil, err
	}
	if loan.Status == domain.LoanPending || loan.Status == domain.LoanCancelled {
		return nil, fmt.Errorf("%w: loan is %s and cannot take ledger changes", apperrors.ErrConflict, loan.Status)
	}
	return loan, nil
}

// persist writes the mutated snapshot back conditioned on the version it was
// loaded at, then reflects the bump in memory for the returned value.
func (s *LoanService) persist(ctx context.Context, loan *domain.Loan, actorID string) error {
	if err := loan.CheckInvariants(); err != nil {
		return err
	}
	expected := loan.Version
	loan.LastUpdatedAt = time.Now().UTC()
	loan.LastUpdatedBy = actorID
	if err := s.loanRepo.UpdateLoan(ctx, *loan, expected); err != nil {
		return err
	}
	loan.Version = expected + 1
	return nil
}

func (s *LoanService) queueChange(ctx context.Context, loan *domain.Loan, changeType domain.PendingChangeType, payload any, actorID string) (*portssvc.MutationResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize change payload", apperrors.ErrInternal)
	}

	change := domain.PendingChange{
		ChangeID:      uuid.NewString(),
		LoanID:        loan.LoanID,
		Type:          changeType,
		Payload:       raw,
		RequestedBy:   actorID,
		RequesterName: s.displayName(ctx, actorID),
		Status:        domain.ChangePending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.loanRepo.SavePendingChange(ctx, change); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, loan.LoanID, "change_requested", actorID, change.RequesterName, map[string]string{
		"change_id":   change.ChangeID,
		"change_type": string(changeType),
	})
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        "pending_change_created",
		LoanID:      loan.LoanID,
		RecipientID: loan.OwnerUserID,
		ActorName:   change.RequesterName,
		Message:     "A change on your loan is awaiting approval",
	})
	return &portssvc.MutationResult{Decision: domain.DecisionQueued, PendingChange: &change}, nil
}

// applyPendingChange replays the queued payload through the ledger model. The
// ledger ops attribute the mutation to the requester, not the approver.
func (s *LoanService) applyPendingChange(loan *domain.Loan, change *domain.PendingChange) error {
	switch change.Type {
	case domain.ChangePayment:
		var p domain.PaymentPayload
		if err := json.Unmarshal(change.Payload, &p); err != nil {
			return fmt.Errorf("%w: malformed payment payload on change %s", apperrors.ErrInternal, change.ChangeID)
		}
		_, err := loan.ApplyPayment(p.Amount, p.Date, p.Method, p.Notes, change.RequestedBy)
		return err

	case domain.ChangeLoanAddition:
		var p domain.AdditionPayload
		if err := json.Unmarshal(change.Payload, &p); err != nil {
			return fmt.Errorf("%w: malformed addition payload on change %s", apperrors.ErrInternal, change.ChangeID)
		}
		_, err := loan.ApplyAddition(p.Amount, p.Date, p.Description, change.RequestedBy, change.RequesterName)
		return err

	case domain.ChangePaymentEdit:
		var p domain.PaymentEditPayload
		if err := json.Unmarshal(change.Payload, &p); err != nil {
			return fmt.Errorf("%w: malformed payment edit payload on change %s", apperrors.ErrInternal, change.ChangeID)
		}
		_, err := loan.EditPayment(p.PaymentID, p.NewAmount, p.NewDate, p.NewMethod, p.NewNotes)
		return err

	case domain.ChangeAdditionEdit:
		var p domain.AdditionEditPayload
		if err := json.Unmarshal(change.Payload, &p); err != nil {
			return fmt.Errorf("%w: malformed addition edit payload on change %s", apperrors.ErrInternal, change.ChangeID)
		}
		_, err := loan.EditAddition(p.AdditionID, p.NewAmount, p.NewDescription, change.RequestedBy, change.RequesterName)
		return err

	case domain.ChangePaymentDeletion:
		var p domain.DeletionPayload
		if err := json.Unmarshal(change.Payload, &p); err != nil {
			return fmt.Errorf("%w: malformed deletion payload on change %s", apperrors.ErrInternal, change.ChangeID)
		}
		return loan.DeletePayment(p.TargetID)

	case domain.ChangeAdditionDeletion:
		var p domain.DeletionPayload
		if err := json.Unmarshal(change.Payload, &p); err != nil {
			return fmt.Errorf("%w: malformed deletion payload on change %s", apperrors.ErrInternal, change.ChangeID)
		}
		return loan.DeleteAddition(p.TargetID, change.RequestedBy, change.RequesterName)

	default:
		return fmt.Errorf("%w: unknown pending change type %q", apperrors.ErrInternal, change.Type)
	}
}

// displayName resolves a user's name for audit and notification text,
// degrading to the raw ID if the lookup fails.
func (s *LoanService) displayName(ctx context.Context, userID string) string {
	user, err := s.userSvc.GetUserByID(ctx, userID)
	if err != nil {
		return userID
	}
	return user.Name
}

// notifyOtherParty tells the side of the loan that didn't act. Loans against
// an external party have nobody to tell.
func (s *LoanService) notifyOtherParty(ctx context.Context, loan *domain.Loan, actorID, actorName, eventType, message string) {
	recipient := loan.OwnerUserID
	if loan.IsOwner(actorID) {
		recipient = loan.CounterpartyUserID
	}
	if recipient == "" || recipient == actorID {
		return
	}
	s.notifier.Notify(ctx, portssvc.NotificationEvent{
		Type:        eventType,
		LoanID:      loan.LoanID,
		RecipientID: recipient,
		ActorName:   actorName,
		Message:     message,
	})
}

func replaceCollaborator(loan *domain.Loan, c domain.Collaborator) {
	for i := range loan.Collaborators {
		if loan.Collaborators[i].UserID == c.UserID {
			loan.Collaborators[i] = c
			return
		}
	}
	loan.Collaborators = append(loan.Collaborators, c)
}

func valueOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now().UTC()
}
