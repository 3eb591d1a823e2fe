package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/procuretrust/tender-gateway/internal/auth"
	"github.com/procuretrust/tender-gateway/internal/model"
)

// SeedService provisions demo tenders with one bid each so a fresh network
// has something to show. Admin only.
type SeedService struct {
	tenders *TenderService
	log     zerolog.Logger
}

func NewSeedService(tenders *TenderService, log zerolog.Logger) *SeedService {
	return &SeedService{tenders: tenders, log: log}
}

type SeedResult struct {
	TenderID string `json:"tenderId"`
	BidID    string `json:"bidId"`
}

func (s *SeedService) Seed(ctx context.Context, principal model.Principal, orgID string) ([]SeedResult, error) {
	if err := auth.Authorize(principal, auth.OpSeed); err != nil {
		return nil, ErrPermissionDenied
	}

	now := time.Now()
	results := make([]SeedResult, 0, 3)
	for i := 1; i <= 3; i++ {
		tenderID := fmt.Sprintf("RFQ-DEMO-%s-%d", now.Format("20060102"), i)

		rfq, err := json.Marshal(demoRFQ(tenderID, i, now))
		if err != nil {
			return nil, err
		}
		if _, err := s.tenders.CreateTender(ctx, principal, orgID, rfq); err != nil {
			return nil, err
		}
		if err := s.tenders.PublishTender(ctx, principal, orgID, tenderID); err != nil {
			return nil, err
		}

		bid, err := json.Marshal(demoBid(i))
		if err != nil {
			return nil, err
		}
		bidID, err := s.tenders.SubmitBid(ctx, principal, orgID, tenderID, bid)
		if err != nil {
			return nil, err
		}

		results = append(results, SeedResult{TenderID: tenderID, BidID: bidID})
	}

	s.log.Info().Int("tenders", len(results)).Str("org", orgID).Msg("demo data seeded")
	return results, nil
}

func demoRFQ(id string, n int, now time.Time) map[string]any {
	issue := now.Add(-time.Hour).Format(time.RFC3339)
	deadline := now.Add(7 * 24 * time.Hour).Format(time.RFC3339)
	return map[string]any{
		"id":          id,
		"title":       fmt.Sprintf("Demo Package %d", n),
		"description": fmt.Sprintf("Demonstration RFQ %s", id),
		"category":    "Civil Construction",
		"location":    "Hyderabad",
		"projectScope": map[string]any{
			"description":  "Road works",
			"deliverables": []string{"As per specs"},
			"budget": map[string]any{
				"currency":     "INR",
				"estimatedMax": 150000.0,
				"paymentTerms": "MILESTONE_BASED",
			},
		},
		"deadlines": map[string]any{
			"rfqIssueDate":          issue,
			"bidSubmissionDeadline": deadline,
		},
	}
}

func demoBid(n int) map[string]any {
	return map[string]any{
		"contractorId": "DEMO-CONTRACTOR",
		"totalAmount":  100000.0 + float64(n)*10000,
		"currency":     "INR",
	}
}
