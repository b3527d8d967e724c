package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Return is a customer request to reverse a delivered order line.
type Return struct {
	ID           int64            `json:"id"`
	OrderID      int64            `json:"orderId"`
	CustomerID   int64            `json:"customerId"`
	Items        []ReturnLine     `json:"items"`
	Reason       string           `json:"reason"`
	Status       string           `json:"status"`
	RefundAmount *decimal.Decimal `json:"refundAmount,omitempty"`
	RejectReason string           `json:"rejectReason,omitempty"`
	PartnerID    int64            `json:"partnerId"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// ReturnLine is one returned item.
type ReturnLine struct {
	ItemID    int64  `json:"itemId"`
	Quantity  int    `json:"quantity"`
	Condition string `json:"condition"`
}

// Return statuses.
const (
	ReturnPending  = "pending"
	ReturnApproved = "approved"
	ReturnRejected = "rejected"
)

// Return actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// NextReturnStatus returns the status a return reaches through action.
// Both actions apply only to a pending return.
func NextReturnStatus(status, action string) (next string, ok bool) {
	if status != ReturnPending {
		return "", false
	}
	switch action {
	case ActionApprove:
		return ReturnApproved, true
	case ActionReject:
		return ReturnRejected, true
	}
	return "", false
}
