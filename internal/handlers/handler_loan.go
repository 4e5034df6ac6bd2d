package handlers

import (
	"net/http"

	portssvc "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/dto"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

// loanHandler handles HTTP requests related to loans and their sub-records.
type loanHandler struct {
	loanService portssvc.LoanSvcFacade
}

func newLoanHandler(loanService portssvc.LoanSvcFacade) *loanHandler {
	return &loanHandler{loanService: loanService}
}

// registerLoanRoutes sets up the routes for loans, payments, additions,
// comments, collaborators and the audit trail.
func registerLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := newLoanHandler(loanService)

	loans := rg.Group("/loans")
	{
		loans.POST("", h.createLoan)
		loans.GET("", h.listLoans)
		loans.GET("/:loanID", h.getLoan)
		loans.POST("/:loanID/accept", h.acceptLoan)
		loans.POST("/:loanID/decline", h.declineLoan)

		loans.POST("/:loanID/payments", h.addPayment)
		loans.PUT("/:loanID/payments/:paymentID", h.updatePayment)
		loans.DELETE("/:loanID/payments/:paymentID", h.deletePayment)

		loans.POST("/:loanID/additions", h.addAddition)
		loans.PUT("/:loanID/additions/:additionID", h.updateAddition)
		loans.DELETE("/:loanID/additions/:additionID", h.deleteAddition)

		loans.POST("/:loanID/comments", h.addComment)
		loans.PUT("/:loanID/comments/:commentID", h.updateComment)
		loans.DELETE("/:loanID/comments/:commentID", h.deleteComment)

		loans.POST("/:loanID/collaborators", h.addCollaborator)
		loans.POST("/:loanID/invitation", h.respondToInvitation)

		loans.GET("/:loanID/audit", h.getAuditTrail)
	}
}

// respondMutation writes the dual-outcome response for ledger mutations:
// 202 with the queued change when the approval workflow intercepted it,
// directStatus with the applied result otherwise.
func respondMutation(c *gin.Context, result *portssvc.MutationResult, directStatus int) {
	if result.Queued() {
		c.JSON(http.StatusAccepted, dto.QueuedMutationResponse{
			PendingChange: dto.ToPendingChangeResponse(result.PendingChange),
			Message:       "Change submitted for approval",
		})
		return
	}
	switch {
	case result.Payment != nil:
		c.JSON(directStatus, dto.PaymentMutationResponse{
			Payment: *result.Payment,
			Loan:    dto.ToLoanResponse(result.Loan),
		})
	case result.Addition != nil:
		c.JSON(directStatus, dto.AdditionMutationResponse{
			Addition: *result.Addition,
			Loan:     dto.ToLoanResponse(result.Loan),
		})
	default:
		c.JSON(directStatus, dto.ToLoanResponse(result.Loan))
	}
}

// createLoan godoc
// @Summary Create a loan
// @Description Creates a loan; a loan against a registered counterparty starts pending until accepted.
// @Tags loans
// @Accept json
// @Produce json
// @Param loan body dto.CreateLoanRequest true "Loan details"
// @Success 201 {object} dto.LoanResponse
// @Failure 400 {object} ErrorResponse
// @Router /loans [post]
func (h *loanHandler) createLoan(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	loan, err := h.loanService.CreateLoan(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err, "Failed to create loan")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Loan created", "loan_id", loan.LoanID)
	c.JSON(http.StatusCreated, dto.ToLoanResponse(loan))
}

// listLoans godoc
// @Summary List the caller's loans
// @Tags loans
// @Produce json
// @Success 200 {object} dto.ListLoansResponse
// @Router /loans [get]
func (h *loanHandler) listLoans(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	loans, err := h.loanService.ListLoans(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list loans")
		return
	}
	c.JSON(http.StatusOK, dto.ToListLoansResponse(loans))
}

// getLoan godoc
// @Summary Get a loan
// @Tags loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanID} [get]
func (h *loanHandler) getLoan(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.GetLoan(c.Request.Context(), c.Param("loanID"), userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve loan")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// acceptLoan godoc
// @Summary Accept a proposed loan
// @Tags loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /loans/{loanID}/accept [post]
func (h *loanHandler) acceptLoan(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.AcceptLoan(c.Request.Context(), c.Param("loanID"), userID)
	if err != nil {
		respondError(c, err, "Failed to accept loan")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// declineLoan godoc
// @Summary Decline a proposed loan
// @Tags loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /loans/{loanID}/decline [post]
func (h *loanHandler) declineLoan(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.DeclineLoan(c.Request.Context(), c.Param("loanID"), userID)
	if err != nil {
		respondError(c, err, "Failed to decline loan")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// addPayment godoc
// @Summary Record a repayment
// @Description Applies directly, or queues for approval on collaborative loans when the actor isn't the owner.
// @Tags payments
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param payment body dto.CreatePaymentRequest true "Payment details"
// @Success 201 {object} dto.PaymentMutationResponse
// @Success 202 {object} dto.QueuedMutationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /loans/{loanID}/payments [post]
func (h *loanHandler) addPayment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.loanService.AddPayment(c.Request.Context(), c.Param("loanID"), userID, req)
	if err != nil {
		respondError(c, err, "Failed to add payment")
		return
	}
	respondMutation(c, result, http.StatusCreated)
}

// updatePayment godoc
// @Summary Edit a payment
// @Tags payments
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param paymentID path string true "Payment ID"
// @Param payment body dto.UpdatePaymentRequest true "Fields to update"
// @Success 200 {object} dto.PaymentMutationResponse
// @Success 202 {object} dto.QueuedMutationResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanID}/payments/{paymentID} [put]
func (h *loanHandler) updatePayment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.loanService.UpdatePayment(c.Request.Context(), c.Param("loanID"), c.Param("paymentID"), userID, req)
	if err != nil {
		respondError(c, err, "Failed to update payment")
		return
	}
	respondMutation(c, result, http.StatusOK)
}

// deletePayment godoc
// @Summary Remove a payment
// @Tags payments
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param paymentID path string true "Payment ID"
// @Success 200 {object} dto.LoanResponse
// @Success 202 {object} dto.QueuedMutationResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanID}/payments/{paymentID} [delete]
func (h *loanHandler) deletePayment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.loanService.DeletePayment(c.Request.Context(), c.Param("loanID"), c.Param("paymentID"), userID)
	if err != nil {
		respondError(c, err, "Failed to delete payment")
		return
	}
	respondMutation(c, result, http.StatusOK)
}

// addAddition godoc
// @Summary Draw extra principal
// @Tags additions
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param addition body dto.CreateAdditionRequest true "Addition details"
// @Success 201 {object} dto.AdditionMutationResponse
// @Success 202 {object} dto.QueuedMutationResponse
// @Failure 400 {object} ErrorResponse
// @Router /loans/{loanID}/additions [post]
func (h *loanHandler) addAddition(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAdditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.loanService.AddAddition(c.Request.Context(), c.Param("loanID"), userID, req)
	if err != nil {
		respondError(c, err, "Failed to add principal")
		return
	}
	respondMutation(c, result, http.StatusCreated)
}

// updateAddition godoc
// @Summary Edit a principal addition
// @Tags additions
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param additionID path string true "Addition ID"
// @Param addition body dto.UpdateAdditionRequest true "Fields to update"
// @Success 200 {object} dto.AdditionMutationResponse
// @Success 202 {object} dto.QueuedMutationResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanID}/additions/{additionID} [put]
func (h *loanHandler) updateAddition(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateAdditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.loanService.UpdateAddition(c.Request.Context(), c.Param("loanID"), c.Param("additionID"), userID, req)
	if err != nil {
		respondError(c, err, "Failed to update addition")
		return
	}
	respondMutation(c, result, http.StatusOK)
}

// deleteAddition godoc
// @Summary Remove a principal addition
// @Tags additions
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param additionID path string true "Addition ID"
// @Success 200 {object} dto.LoanResponse
// @Success 202 {object} dto.QueuedMutationResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanID}/additions/{additionID} [delete]
func (h *loanHandler) deleteAddition(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.loanService.DeleteAddition(c.Request.Context(), c.Param("loanID"), c.Param("additionID"), userID)
	if err != nil {
		respondError(c, err, "Failed to delete addition")
		return
	}
	respondMutation(c, result, http.StatusOK)
}

// addComment godoc
// @Summary Add a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param comment body dto.CommentRequest true "Comment"
// @Success 201 {object} dto.CommentMutationResponse
// @Failure 400 {object} ErrorResponse
// @Router /loans/{loanID}/comments [post]
func (h *loanHandler) addComment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	comment, loan, err := h.loanService.AddComment(c.Request.Context(), c.Param("loanID"), userID, req.Message)
	if err != nil {
		respondError(c, err, "Failed to add comment")
		return
	}
	c.JSON(http.StatusCreated, dto.CommentMutationResponse{Comment: *comment, Loan: dto.ToLoanResponse(loan)})
}

// updateComment godoc
// @Summary Edit a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param commentID path string true "Comment ID"
// @Param comment body dto.CommentRequest true "New message"
// @Success 200 {object} dto.CommentMutationResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanID}/comments/{commentID} [put]
func (h *loanHandler) updateComment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	comment, loan, err := h.loanService.UpdateComment(c.Request.Context(), c.Param("loanID"), c.Param("commentID"), userID, req.Message)
	if err != nil {
		respondError(c, err, "Failed to update comment")
		return
	}
	c.JSON(http.StatusOK, dto.CommentMutationResponse{Comment: *comment, Loan: dto.ToLoanResponse(loan)})
}

// deleteComment godoc
// @Summary Delete a comment
// @Tags comments
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param commentID path string true "Comment ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanID}/comments/{commentID} [delete]
func (h *loanHandler) deleteComment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.DeleteComment(c.Request.Context(), c.Param("loanID"), c.Param("commentID"), userID)
	if err != nil {
		respondError(c, err, "Failed to delete comment")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// addCollaborator godoc
// @Summary Invite a collaborator
// @Tags collaborators
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param collaborator body dto.AddCollaboratorRequest true "Invitation"
// @Success 200 {object} dto.LoanResponse
// @Failure 403 {object} ErrorResponse
// @Router /loans/{loanID}/collaborators [post]
func (h *loanHandler) addCollaborator(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.AddCollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	loan, err := h.loanService.AddCollaborator(c.Request.Context(), c.Param("loanID"), userID, req)
	if err != nil {
		respondError(c, err, "Failed to add collaborator")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// respondToInvitation godoc
// @Summary Respond to a collaborator invitation
// @Tags collaborators
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param response body dto.RespondInvitationRequest true "Accept or decline"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /loans/{loanID}/invitation [post]
func (h *loanHandler) respondToInvitation(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	loan, err := h.loanService.RespondToInvitation(c.Request.Context(), c.Param("loanID"), userID, req.Accept)
	if err != nil {
		respondError(c, err, "Failed to respond to invitation")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// getAuditTrail godoc
// @Summary Get the loan's audit trail
// @Description Returns the hash-chained action log plus chain verification result.
// @Tags loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.AuditTrailResponse
// @Failure 403 {object} ErrorResponse
// @Router /loans/{loanID}/audit [get]
func (h *loanHandler) getAuditTrail(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	entries, brokenAt, err := h.loanService.GetAuditTrail(c.Request.Context(), c.Param("loanID"), userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve audit trail")
		return
	}
	c.JSON(http.StatusOK, dto.AuditTrailResponse{
		Entries:  entries,
		Valid:    brokenAt < 0,
		BrokenAt: brokenAt,
	})
}
