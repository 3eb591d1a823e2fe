package model

type MilestoneStatus string

const (
	MilestoneSubmitted MilestoneStatus = "SUBMITTED"
	MilestoneApproved  MilestoneStatus = "APPROVED"
	MilestoneRejected  MilestoneStatus = "REJECTED"
)

// MilestoneRef is the public reference of a milestone submission.
type MilestoneRef struct {
	TenderID        string          `json:"tenderId"`
	MilestoneID     string          `json:"milestoneId"`
	Title           string          `json:"title,omitempty"`
	EvidenceHash    string          `json:"evidenceHash,omitempty"`
	Status          MilestoneStatus `json:"status"`
	PaymentReleased bool            `json:"paymentReleased"`
}

// MilestonePrivate is the confidential milestone record read back from the
// private collection by the org's own authorized queries. It is used for
// aggregation only and never returned to callers in list projections.
type MilestonePrivate struct {
	TenderID    string  `json:"tenderId"`
	MilestoneID string  `json:"milestoneId"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Details     string  `json:"details,omitempty"`
	PaidAmount  float64 `json:"paidAmount"`
}
