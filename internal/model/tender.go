package model

type TenderStage string

const (
	StageDraft       TenderStage = "DRAFT"
	StagePublished   TenderStage = "PUBLISHED"
	StageBiddingOpen TenderStage = "BIDDING_OPEN"
	StageClosed      TenderStage = "CLOSED"
	StageEvaluation  TenderStage = "EVALUATION"
	StageAwarded     TenderStage = "AWARDED"
	StageExecution   TenderStage = "EXECUTION"
	StageCompleted   TenderStage = "COMPLETED"
)

// TenderSummary is the thin projection of the ledger-owned tender aggregate
// the gateway works with. The full document (scope, criteria, contract
// terms) is opaque JSON owned by the chaincode and passed through as-is.
type TenderSummary struct {
	ID           string `json:"id"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status"`
	AwardedBidID string `json:"awardedBidId,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// TenderDocument is the subset of the chaincode's tender record the query
// layer needs for financial aggregation. Everything else stays opaque.
type TenderDocument struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	AwardedBidID string `json:"awardedBidId,omitempty"`
	ProjectScope struct {
		Description string `json:"description"`
		Budget      struct {
			Currency     string  `json:"currency"`
			EstimatedMax float64 `json:"estimatedMax"`
		} `json:"budget"`
	} `json:"projectScope"`
	ContractTerms struct {
		PaymentTerms struct {
			RetentionPercentage float64 `json:"retentionPercentage"`
		} `json:"paymentTerms"`
	} `json:"contractTerms"`
	RetentionReleased   bool   `json:"retentionReleased"`
	RetentionReleasedAt string `json:"retentionReleasedAt,omitempty"`
	CreatedAt           string `json:"createdAt"`
	UpdatedAt           string `json:"updatedAt"`
}
