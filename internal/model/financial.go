package model

// FinancialSummary is a derived read-model. It is recomputed on every
// request; Balance and RetentionAmount always follow from the other fields.
type FinancialSummary struct {
	TenderID          string  `json:"tenderId"`
	Budget            float64 `json:"budget"`
	ApprovedPayments  float64 `json:"approvedPayments"`
	RetentionPercent  float64 `json:"retentionPercent"`
	RetentionAmount   float64 `json:"retentionAmount"`
	RetentionReleased bool    `json:"retentionReleased"`
	TotalPaid         float64 `json:"totalPaid"`
	Balance           float64 `json:"balance"`
}

// ComposeFinancialSummary derives the summary from the tender's contract
// terms and the approved/paid milestone figures, keeping the reporting
// invariants balance = budget - totalPaid and
// retentionAmount = budget * retentionPercent / 100.
func ComposeFinancialSummary(tenderID string, budget, retentionPercent, approvedPayments, totalPaid float64, retentionReleased bool) FinancialSummary {
	return FinancialSummary{
		TenderID:          tenderID,
		Budget:            budget,
		ApprovedPayments:  approvedPayments,
		RetentionPercent:  retentionPercent,
		RetentionAmount:   budget * retentionPercent / 100,
		RetentionReleased: retentionReleased,
		TotalPaid:         totalPaid,
		Balance:           budget - totalPaid,
	}
}
