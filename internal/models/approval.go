package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalType enumerates supported approval request categories.
type ApprovalType string

const (
	ApprovalTypePartPurchase    ApprovalType = "part_purchase"
	ApprovalTypeServiceApproval ApprovalType = "service_approval"
	ApprovalTypeCustomerCredit  ApprovalType = "customer_credit"
	ApprovalTypeOvertimeRequest ApprovalType = "overtime_request"
	ApprovalTypeExpenseClaim    ApprovalType = "expense_claim"
	ApprovalTypeDiscountRequest ApprovalType = "discount_request"
	ApprovalTypeRefundRequest   ApprovalType = "refund_request"
	ApprovalTypeOther           ApprovalType = "other"
)

// ApprovalTypes lists every category in declaration order, used to zero-fill
// stats buckets.
var ApprovalTypes = []ApprovalType{
	ApprovalTypePartPurchase,
	ApprovalTypeServiceApproval,
	ApprovalTypeCustomerCredit,
	ApprovalTypeOvertimeRequest,
	ApprovalTypeExpenseClaim,
	ApprovalTypeDiscountRequest,
	ApprovalTypeRefundRequest,
	ApprovalTypeOther,
}

// ApprovalPriority orders requests for display; it carries no lifecycle weight.
type ApprovalPriority string

const (
	PriorityLow    ApprovalPriority = "low"
	PriorityMedium ApprovalPriority = "medium"
	PriorityHigh   ApprovalPriority = "high"
	PriorityUrgent ApprovalPriority = "urgent"
)

// ApprovalPriorities lists priorities from lowest to highest.
var ApprovalPriorities = []ApprovalPriority{
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityUrgent,
}

// ApprovalStatus captures the lifecycle state of a request.
//
// pending and info_requested are open; approved and rejected are terminal.
// cancelled is representable but not reachable through the store API.
type ApprovalStatus string

const (
	StatusPending       ApprovalStatus = "pending"
	StatusInfoRequested ApprovalStatus = "info_requested"
	StatusApproved      ApprovalStatus = "approved"
	StatusRejected      ApprovalStatus = "rejected"
	StatusCancelled     ApprovalStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ApprovalAction enumerates reviewer decisions.
type ApprovalAction string

const (
	ActionApprove     ApprovalAction = "approve"
	ActionReject      ApprovalAction = "reject"
	ActionRequestInfo ApprovalAction = "request_info"
	// ActionDelete is accepted by bulk operations only.
	ActionDelete ApprovalAction = "delete"
)

// Identity is a point-in-time snapshot of an actor. It is copied onto records
// at write time so later profile edits never rewrite history.
type Identity struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// EntityRef is a weak reference to an external record (job, customer, invoice,
// part). Lookup only, no lifecycle coupling.
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ApprovalComment is one entry of the append-only discussion log.
type ApprovalComment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    Identity  `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Internal  bool      `json:"internal"`
}

// ApprovalRequest is the central approval workflow entity.
type ApprovalRequest struct {
	ID            string            `json:"id"`
	Type          ApprovalType      `json:"type"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	RequestedBy   Identity          `json:"requested_by"`
	RequestedAt   time.Time         `json:"requested_at"`
	Priority      ApprovalPriority  `json:"priority"`
	Status        ApprovalStatus    `json:"status"`
	EstimatedCost *decimal.Decimal  `json:"estimated_cost,omitempty"`
	Currency      string            `json:"currency"`
	RelatedEntity *EntityRef        `json:"related_entity,omitempty"`
	ApprovedBy    *Identity         `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time        `json:"approved_at,omitempty"`
	RejectedBy    *Identity         `json:"rejected_by,omitempty"`
	RejectedAt    *time.Time        `json:"rejected_at,omitempty"`
	Comments      []ApprovalComment `json:"comments"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Overdue reports whether the request is pending past its due date. Derived,
// never stored.
func (a *ApprovalRequest) Overdue(now time.Time) bool {
	return a.Status == StatusPending && a.DueDate != nil && a.DueDate.Before(now)
}

// Resolved returns the resolution timestamp for approved or rejected requests.
func (a *ApprovalRequest) Resolved() (time.Time, bool) {
	switch a.Status {
	case StatusApproved:
		if a.ApprovedAt != nil {
			return *a.ApprovedAt, true
		}
	case StatusRejected:
		if a.RejectedAt != nil {
			return *a.RejectedAt, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy safe to hand to callers.
func (a *ApprovalRequest) Clone() *ApprovalRequest {
	if a == nil {
		return nil
	}
	cp := *a
	if a.EstimatedCost != nil {
		cost := *a.EstimatedCost
		cp.EstimatedCost = &cost
	}
	if a.RelatedEntity != nil {
		ref := *a.RelatedEntity
		cp.RelatedEntity = &ref
	}
	if a.ApprovedBy != nil {
		id := *a.ApprovedBy
		cp.ApprovedBy = &id
	}
	if a.ApprovedAt != nil {
		at := *a.ApprovedAt
		cp.ApprovedAt = &at
	}
	if a.RejectedBy != nil {
		id := *a.RejectedBy
		cp.RejectedBy = &id
	}
	if a.RejectedAt != nil {
		at := *a.RejectedAt
		cp.RejectedAt = &at
	}
	if a.DueDate != nil {
		due := *a.DueDate
		cp.DueDate = &due
	}
	cp.Comments = append([]ApprovalComment(nil), a.Comments...)
	return &cp
}

// DateRange bounds RequestedAt, inclusive on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ApprovalFilter is a conjunction of optional predicates; absent clauses match
// everything.
type ApprovalFilter struct {
	Status      []ApprovalStatus
	Type        []ApprovalType
	Priority    []ApprovalPriority
	RequestedBy []string
	DateRange   *DateRange
	SearchQuery string
}

// ApprovalStats is the denormalised aggregate recomputed on demand by a full
// scan of the live collection.
type ApprovalStats struct {
	Total           int                      `json:"total"`
	Pending         int                      `json:"pending"`
	Approved        int                      `json:"approved"`
	Rejected        int                      `json:"rejected"`
	InfoRequested   int                      `json:"info_requested"`
	Cancelled       int                      `json:"cancelled"`
	Overdue         int                      `json:"overdue"`
	ByPriority      map[ApprovalPriority]int `json:"by_priority"`
	ByType          map[ApprovalType]int     `json:"by_type"`
	AvgResponseDays float64                  `json:"avg_response_days"`
}
