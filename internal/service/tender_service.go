package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/procuretrust/tender-gateway/internal/auth"
	"github.com/procuretrust/tender-gateway/internal/config"
	"github.com/procuretrust/tender-gateway/internal/ledger"
	"github.com/procuretrust/tender-gateway/internal/model"
)

// TenderService maps lifecycle operations onto ledger transactions. Every
// write is exactly one invocation: the ledger decides transition legality,
// and nothing is retried here because submissions are not idempotent (a
// resubmitted bid with a regenerated ID would be a new bid). Callers own
// retry policy and must mint a fresh bid/milestone ID first.
type TenderService struct {
	ledgerClient
	log zerolog.Logger
}

func NewTenderService(sessions ledger.SessionFactory, cfg *config.Config, log zerolog.Logger) *TenderService {
	return &TenderService{
		ledgerClient: ledgerClient{sessions: sessions, timeout: cfg.Fabric.RequestTimeout},
		log:          log,
	}
}

func (s *TenderService) CreateTender(ctx context.Context, principal model.Principal, orgID string, rfq json.RawMessage) (string, error) {
	if err := auth.Authorize(principal, auth.OpCreateTender); err != nil {
		return "", ErrPermissionDenied
	}
	var header struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rfq, &header); err != nil || header.ID == "" {
		return "", fmt.Errorf("%w: rfq.id is required", ErrInvalidInput)
	}

	err := s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txCreateTender, string(rfq))
		return err
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("tender", header.ID).Str("org", orgID).Msg("tender created")
	return header.ID, nil
}

func (s *TenderService) PublishTender(ctx context.Context, principal model.Principal, orgID, tenderID string) error {
	if err := auth.Authorize(principal, auth.OpPublishTender); err != nil {
		return ErrPermissionDenied
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txPublishTender, tenderID)
		return err
	})
}

// SubmitBid delivers the priced proposal as a transient payload: the
// chaincode stores only a public reference and a hash in world state. The
// returned bid ID is the caller's idempotency key for any resubmission.
func (s *TenderService) SubmitBid(ctx context.Context, principal model.Principal, orgID, tenderID string, bid json.RawMessage) (string, error) {
	if err := auth.Authorize(principal, auth.OpSubmitBid); err != nil {
		return "", ErrPermissionDenied
	}
	if len(bid) == 0 {
		return "", fmt.Errorf("%w: bid is required", ErrInvalidInput)
	}

	payload, bidID, err := confidentialPayload(bid, "bidId", "BID-", tenderID)
	if err != nil {
		return "", err
	}

	err = s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		transient := map[string][]byte{transientBidKey: payload}
		_, err := contract.SubmitWithTransient(ctx, txSubmitBid, transient, tenderID, bidID)
		return err
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("tender", tenderID).Str("bid", bidID).Msg("bid submitted")
	return bidID, nil
}

func (s *TenderService) CloseTender(ctx context.Context, principal model.Principal, orgID, tenderID string) error {
	if err := auth.Authorize(principal, auth.OpCloseTender); err != nil {
		return ErrPermissionDenied
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txCloseTender, tenderID)
		return err
	})
}

func (s *TenderService) EvaluateBids(ctx context.Context, principal model.Principal, orgID, tenderID string) error {
	if err := auth.Authorize(principal, auth.OpEvaluateBids); err != nil {
		return ErrPermissionDenied
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txEvaluateBids, tenderID)
		return err
	})
}

func (s *TenderService) AwardBestBid(ctx context.Context, principal model.Principal, orgID, tenderID string) error {
	if err := auth.Authorize(principal, auth.OpAwardTender); err != nil {
		return ErrPermissionDenied
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txAwardBestBid, tenderID)
		return err
	})
}

func (s *TenderService) SubmitMilestone(ctx context.Context, principal model.Principal, orgID, tenderID string, milestone json.RawMessage) (string, error) {
	if err := auth.Authorize(principal, auth.OpSubmitMilestone); err != nil {
		return "", ErrPermissionDenied
	}
	if len(milestone) == 0 {
		return "", fmt.Errorf("%w: milestone is required", ErrInvalidInput)
	}

	payload, milestoneID, err := confidentialPayload(milestone, "milestoneId", "MS-", tenderID)
	if err != nil {
		return "", err
	}

	err = s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		transient := map[string][]byte{transientMilestoneKey: payload}
		_, err := contract.SubmitWithTransient(ctx, txSubmitMilestone, transient, tenderID, milestoneID)
		return err
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("tender", tenderID).Str("milestone", milestoneID).Msg("milestone submitted")
	return milestoneID, nil
}

func (s *TenderService) ApproveMilestone(ctx context.Context, principal model.Principal, orgID, tenderID, milestoneID string) error {
	if err := auth.Authorize(principal, auth.OpApproveMilestone); err != nil {
		return ErrPermissionDenied
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txApproveMilestone, tenderID, milestoneID)
		return err
	})
}

func (s *TenderService) RejectMilestone(ctx context.Context, principal model.Principal, orgID, tenderID, milestoneID, reason string) error {
	if err := auth.Authorize(principal, auth.OpRejectMilestone); err != nil {
		return ErrPermissionDenied
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txRejectMilestone, tenderID, milestoneID, reason)
		return err
	})
}

func (s *TenderService) RecordPartialPayment(ctx context.Context, principal model.Principal, orgID, tenderID, milestoneID string, amount float64) error {
	if err := auth.Authorize(principal, auth.OpRecordPayment); err != nil {
		return ErrPermissionDenied
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txRecordPartialPayment, tenderID, milestoneID,
			strconv.FormatFloat(amount, 'f', -1, 64))
		return err
	})
}

func (s *TenderService) ReleaseRetention(ctx context.Context, principal model.Principal, orgID, tenderID string) error {
	if err := auth.Authorize(principal, auth.OpReleaseRetention); err != nil {
		return ErrPermissionDenied
	}
	return s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		_, err := contract.Submit(ctx, txReleaseRetention, tenderID)
		return err
	})
}

// confidentialPayload injects the tender ID and the (possibly generated)
// record ID into the confidential document before it is wrapped as a
// transient payload. The document itself is otherwise passed through
// opaque.
func confidentialPayload(doc json.RawMessage, idField, idPrefix, tenderID string) ([]byte, string, error) {
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, "", fmt.Errorf("%w: payload must be a JSON object", ErrInvalidInput)
	}

	id, _ := fields[idField].(string)
	if id == "" {
		id = idPrefix + uuid.NewString()
	}
	fields[idField] = id
	fields["tenderId"] = tenderID

	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return payload, id, nil
}
