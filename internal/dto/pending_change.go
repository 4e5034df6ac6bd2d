package dto

import (
	"encoding/json"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
)

// PendingChangeResponse is the queued mutation as returned to callers, with
// the payload already decrypted.
type PendingChangeResponse struct {
	ChangeID        string                     `json:"changeID"`
	LoanID          string                     `json:"loanID"`
	Type            domain.PendingChangeType   `json:"type"`
	Payload         json.RawMessage            `json:"payload"`
	RequestedBy     string                     `json:"requestedBy"`
	RequesterName   string                     `json:"requesterName"`
	Status          domain.PendingChangeStatus `json:"status"`
	ReviewedBy      string                     `json:"reviewedBy,omitempty"`
	ReviewerName    string                     `json:"reviewerName,omitempty"`
	RejectionReason string                     `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time                  `json:"createdAt"`
	ResolvedAt      *time.Time                 `json:"resolvedAt,omitempty"`
}

// ToPendingChangeResponse converts a domain.PendingChange.
func ToPendingChangeResponse(p *domain.PendingChange) PendingChangeResponse {
	return PendingChangeResponse{
		ChangeID:        p.ChangeID,
		LoanID:          p.LoanID,
		Type:            p.Type,
		Payload:         json.RawMessage(p.Payload),
		RequestedBy:     p.RequestedBy,
		RequesterName:   p.RequesterName,
		Status:          p.Status,
		ReviewedBy:      p.ReviewedBy,
		ReviewerName:    p.ReviewerName,
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt,
		ResolvedAt:      p.ResolvedAt,
	}
}

// ListPendingChangesResponse wraps the pending change list.
type ListPendingChangesResponse struct {
	PendingChanges []PendingChangeResponse `json:"pendingChanges"`
}

// ToListPendingChangesResponse converts a slice of pending changes.
func ToListPendingChangesResponse(changes []domain.PendingChange) ListPendingChangesResponse {
	responses := make([]PendingChangeResponse, len(changes))
	for i := range changes {
		responses[i] = ToPendingChangeResponse(&changes[i])
	}
	return ListPendingChangesResponse{PendingChanges: responses}
}

// QueuedMutationResponse is returned when a mutation was deferred to the
// approval workflow instead of applying directly.
type QueuedMutationResponse struct {
	PendingChange PendingChangeResponse `json:"pendingChange"`
	Message       string                `json:"message"`
}

// RejectChangeRequest carries the optional reviewer reason.
type RejectChangeRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// AuditTrailResponse returns the hash-chained log plus verification result.
type AuditTrailResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
	Valid   bool                `json:"valid"`
	// BrokenAt is the index of the first broken link, -1 when the chain holds.
	BrokenAt int `json:"brokenAt"`
}
