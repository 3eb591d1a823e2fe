package model

// BidRef is the public, committed projection of a bid. The priced proposal
// itself travels as a transient payload and never appears here.
type BidRef struct {
	TenderID     string `json:"tenderId"`
	BidID        string `json:"bidId"`
	ContractorID string `json:"contractorId,omitempty"`
	BidHash      string `json:"bidHash,omitempty"`
}
