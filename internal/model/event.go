package model

import (
	"encoding/json"
	"time"
)

// Domain event names emitted by the tender chaincode.
const (
	EventRFQCreated         = "EnhancedRFQCreated"
	EventTenderPublished    = "TenderPublished"
	EventBidSubmitted       = "EnhancedBidSubmitted"
	EventTenderClosed       = "TenderClosed"
	EventBidEvaluated       = "BidEvaluated"
	EventTenderAwarded      = "TenderAwarded"
	EventMilestoneSubmitted = "MilestoneSubmitted"
	EventMilestoneApproved  = "MilestoneApproved"
	EventMilestoneRejected  = "MilestoneRejected"
	EventPaymentReleased    = "PaymentReleased"
)

// AuditEvent is an append-only record of a ledger-emitted domain event.
// Immutable once observed.
type AuditEvent struct {
	TxID        string          `json:"txId"`
	BlockNumber uint64          `json:"blockNumber"`
	Timestamp   time.Time       `json:"timestamp"`
	EventName   string          `json:"eventName"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}
