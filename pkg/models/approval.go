package models

import "time"

// ApprovalMode controls how ApprovalAction votes resolve an ExecutionApproval.
type ApprovalMode string

const (
	ApprovalModeAny      ApprovalMode = "any"      // one approve resolves it
	ApprovalModeAll      ApprovalMode = "all"      // every approver must approve
	ApprovalModeMajority ApprovalMode = "majority" // strict majority of approvers must approve
)

// PauseReasonApproval is the Pause.Reason value a node handler sets to
// route a suspended execution through the approval gate rather than the
// form gate or a plain external wait.
const PauseReasonApproval = "approval"

// ApprovalStatus represents the lifecycle state of an ExecutionApproval.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// ExecutionApproval represents a human-in-the-loop gate a paused execution
// is waiting on. It is created when a node handler returns a
// Pause{reason=approval} result and resolved either by RecordAction quorum
// or by the Sweeper on expiry.
type ExecutionApproval struct {
	ID            string         `json:"id"`
	ExecutionID   string         `json:"execution_id"`
	NodeID        string         `json:"node_id"`
	Status        ApprovalStatus `json:"status"`
	Mode          ApprovalMode   `json:"mode"`
	Approvers     []string       `json:"approvers"` // eligible approver user IDs
	ApprovedCount int            `json:"approved_count"`
	RejectedCount int            `json:"rejected_count"`
	Message       string         `json:"message,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
}

// ApprovalAction is a single approver's vote on an ExecutionApproval. The
// (ApprovalID, UserID) pair is unique; a repeat vote is rejected with
// ErrAlreadyActed.
type ApprovalAction struct {
	ID         string    `json:"id"`
	ApprovalID string    `json:"approval_id"`
	UserID     string    `json:"user_id"`
	Decision   string    `json:"decision"` // "approve" or "reject"
	Comment    string    `json:"comment,omitempty"`
	ActedAt    time.Time `json:"acted_at"`
}

// IsResolved reports whether the approval has already reached a terminal
// decision and can no longer accept actions.
func (a *ExecutionApproval) IsResolved() bool {
	return a.Status != ApprovalStatusPending
}

// IsExpired reports whether the approval's deadline, if any, has passed.
func (a *ExecutionApproval) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// Resolve evaluates the quorum rule for Mode against the current vote
// counts and returns the resulting status, or ApprovalStatusPending if the
// quorum has not yet been reached.
func (a *ExecutionApproval) Resolve() ApprovalStatus {
	total := len(a.Approvers)
	if total == 0 {
		return ApprovalStatusPending
	}

	switch a.Mode {
	case ApprovalModeAny:
		if a.ApprovedCount > 0 {
			return ApprovalStatusApproved
		}
		if a.RejectedCount > 0 {
			return ApprovalStatusRejected
		}
	case ApprovalModeAll:
		if a.ApprovedCount == total {
			return ApprovalStatusApproved
		}
		if a.RejectedCount > 0 {
			return ApprovalStatusRejected
		}
	case ApprovalModeMajority:
		needed := total/2 + 1
		if a.ApprovedCount >= needed {
			return ApprovalStatusApproved
		}
		if a.RejectedCount >= needed {
			return ApprovalStatusRejected
		}
	}

	return ApprovalStatusPending
}
