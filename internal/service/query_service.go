package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/procuretrust/tender-gateway/internal/auth"
	"github.com/procuretrust/tender-gateway/internal/config"
	"github.com/procuretrust/tender-gateway/internal/ledger"
	"github.com/procuretrust/tender-gateway/internal/model"
)

// QueryService evaluates read-only ledger queries and derives the
// financial read-model. Nothing here commits a transaction, and list
// projections expose only public references.
type QueryService struct {
	ledgerClient
	log zerolog.Logger
}

func NewQueryService(sessions ledger.SessionFactory, cfg *config.Config, log zerolog.Logger) *QueryService {
	return &QueryService{
		ledgerClient: ledgerClient{sessions: sessions, timeout: cfg.Fabric.RequestTimeout},
		log:          log,
	}
}

func (s *QueryService) GetTender(ctx context.Context, principal model.Principal, orgID, tenderID string) (json.RawMessage, error) {
	if err := auth.Authorize(principal, auth.OpRead); err != nil {
		return nil, ErrPermissionDenied
	}
	return s.evaluateRaw(ctx, orgID, txGetTender, tenderID)
}

func (s *QueryService) TendersByStatus(ctx context.Context, principal model.Principal, orgID, status string) (json.RawMessage, error) {
	if err := auth.Authorize(principal, auth.OpRead); err != nil {
		return nil, ErrPermissionDenied
	}
	if status == "" {
		status = string(model.StagePublished)
	}
	raw, err := s.evaluateRaw(ctx, orgID, txTendersByStatus, status)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return json.RawMessage("[]"), nil
	}
	return raw, nil
}

func (s *QueryService) TenderHistory(ctx context.Context, principal model.Principal, orgID, tenderID string) (json.RawMessage, error) {
	if err := auth.Authorize(principal, auth.OpRead); err != nil {
		return nil, ErrPermissionDenied
	}
	raw, err := s.evaluateRaw(ctx, orgID, txTenderHistory, tenderID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return json.RawMessage("[]"), nil
	}
	return raw, nil
}

func (s *QueryService) ListBidsPublic(ctx context.Context, principal model.Principal, orgID, tenderID string) ([]model.BidRef, error) {
	if err := auth.Authorize(principal, auth.OpRead); err != nil {
		return nil, ErrPermissionDenied
	}
	var refs []model.BidRef
	err := s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		raw, err := contract.Evaluate(ctx, txListBidsPublic, tenderID)
		if err != nil {
			return err
		}
		return unmarshalList(raw, &refs)
	})
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []model.BidRef{}
	}
	return refs, nil
}

func (s *QueryService) ListMilestonesPublic(ctx context.Context, principal model.Principal, orgID, tenderID string) ([]model.MilestoneRef, error) {
	if err := auth.Authorize(principal, auth.OpRead); err != nil {
		return nil, ErrPermissionDenied
	}
	var refs []model.MilestoneRef
	err := s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		raw, err := contract.Evaluate(ctx, txListMilestonesPublic, tenderID)
		if err != nil {
			return err
		}
		return unmarshalList(raw, &refs)
	})
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []model.MilestoneRef{}
	}
	return refs, nil
}

func (s *QueryService) TenderStatistics(ctx context.Context, principal model.Principal, orgID, tenderID string) (json.RawMessage, error) {
	if err := auth.Authorize(principal, auth.OpRead); err != nil {
		return nil, ErrPermissionDenied
	}
	return s.evaluateRaw(ctx, orgID, txTenderStatistics, tenderID)
}

// FinancialSummary composes the financial read-model within one session:
// budget, retention terms and the release flag come from the tender
// record; approved and paid figures are summed over the org's own
// authorized private milestone reads. Only aggregates leave this method.
func (s *QueryService) FinancialSummary(ctx context.Context, principal model.Principal, orgID, tenderID string) (model.FinancialSummary, error) {
	if err := auth.Authorize(principal, auth.OpRead); err != nil {
		return model.FinancialSummary{}, ErrPermissionDenied
	}

	var summary model.FinancialSummary
	err := s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		raw, err := contract.Evaluate(ctx, txGetTender, tenderID)
		if err != nil {
			return err
		}
		var tender model.TenderDocument
		if err := json.Unmarshal(raw, &tender); err != nil {
			return fmt.Errorf("%w: decode tender: %s", ErrLedger, err)
		}

		rawRefs, err := contract.Evaluate(ctx, txListMilestonesPublic, tenderID)
		if err != nil {
			return err
		}
		var refs []model.MilestoneRef
		if err := unmarshalList(rawRefs, &refs); err != nil {
			return err
		}

		var approved, paid float64
		for _, ref := range refs {
			rawPriv, err := contract.Evaluate(ctx, txReadMilestonePrivate, tenderID, ref.MilestoneID)
			if err != nil {
				// The private record may not be visible to this org;
				// the summary stays an aggregate of what it can read.
				s.log.Debug().Err(err).Str("tender", tenderID).Str("milestone", ref.MilestoneID).
					Msg("milestone private record unavailable")
				continue
			}
			var priv model.MilestonePrivate
			if err := json.Unmarshal(rawPriv, &priv); err != nil {
				continue
			}
			if ref.Status == model.MilestoneApproved {
				approved += priv.Amount
			}
			paid += priv.PaidAmount
		}

		summary = model.ComposeFinancialSummary(
			tenderID,
			tender.ProjectScope.Budget.EstimatedMax,
			tender.ContractTerms.PaymentTerms.RetentionPercentage,
			approved,
			paid,
			tender.RetentionReleased,
		)
		return nil
	})
	if err != nil {
		return model.FinancialSummary{}, err
	}
	return summary, nil
}

func (s *QueryService) evaluateRaw(ctx context.Context, orgID, name string, args ...string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.withContract(ctx, orgID, func(ctx context.Context, contract ledger.Contract) error {
		result, err := contract.Evaluate(ctx, name, args...)
		if err != nil {
			return err
		}
		raw = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func unmarshalList(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode list: %s", ErrLedger, err)
	}
	return nil
}
