package handlers

import (
	"net/http"

	portssvc "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/dto"
	"github.com/gin-gonic/gin"
)

// pendingChangeHandler handles HTTP requests for the approval workflow.
type pendingChangeHandler struct {
	loanService portssvc.LoanSvcFacade
}

func newPendingChangeHandler(loanService portssvc.LoanSvcFacade) *pendingChangeHandler {
	return &pendingChangeHandler{loanService: loanService}
}

// registerPendingChangeRoutes sets up the routes for queued mutations.
func registerPendingChangeRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := newPendingChangeHandler(loanService)

	changes := rg.Group("/loans/:loanID/changes")
	{
		changes.GET("", h.listPendingChanges)
		changes.POST("/:changeID/approve", h.approvePendingChange)
		changes.POST("/:changeID/reject", h.rejectPendingChange)
	}
}

// listPendingChanges godoc
// @Summary List queued mutations for a loan
// @Tags changes
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.ListPendingChangesResponse
// @Failure 403 {object} ErrorResponse
// @Router /loans/{loanID}/changes [get]
func (h *pendingChangeHandler) listPendingChanges(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	changes, err := h.loanService.ListPendingChanges(c.Request.Context(), c.Param("loanID"), userID)
	if err != nil {
		respondError(c, err, "Failed to list pending changes")
		return
	}
	c.JSON(http.StatusOK, dto.ToListPendingChangesResponse(changes))
}

// approvePendingChange godoc
// @Summary Approve a queued mutation
// @Description Applies the queued mutation to the loan's current state and resolves the change, atomically.
// @Tags changes
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param changeID path string true "Change ID"
// @Success 200 {object} dto.PendingChangeResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /loans/{loanID}/changes/{changeID}/approve [post]
func (h *pendingChangeHandler) approvePendingChange(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	change, loan, err := h.loanService.ApprovePendingChange(c.Request.Context(), c.Param("loanID"), c.Param("changeID"), userID)
	if err != nil {
		respondError(c, err, "Failed to approve pending change")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pendingChange": dto.ToPendingChangeResponse(change),
		"loan":          dto.ToLoanResponse(loan),
	})
}

// rejectPendingChange godoc
// @Summary Reject a queued mutation
// @Tags changes
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param changeID path string true "Change ID"
// @Param rejection body dto.RejectChangeRequest false "Optional reason"
// @Success 200 {object} dto.PendingChangeResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /loans/{loanID}/changes/{changeID}/reject [post]
func (h *pendingChangeHandler) rejectPendingChange(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.RejectChangeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}
	}

	change, err := h.loanService.RejectPendingChange(c.Request.Context(), c.Param("loanID"), c.Param("changeID"), userID, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to reject pending change")
		return
	}
	c.JSON(http.StatusOK, dto.ToPendingChangeResponse(change))
}
