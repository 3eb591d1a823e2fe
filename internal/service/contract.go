package service

import (
	"context"
	"fmt"
	"time"

	"github.com/procuretrust/tender-gateway/internal/ledger"
)

// Transaction name prefix for methods on the enhanced chaincode contract.
// Bare names go to the chaincode's default contract.
const enhancedContract = "EnhancedSmartContract:"

const (
	txCreateTender         = enhancedContract + "CreateEnhancedTender"
	txPublishTender        = enhancedContract + "PublishTender"
	txSubmitBid            = enhancedContract + "SubmitEnhancedBid"
	txCloseTender          = enhancedContract + "CloseTenderEnhanced"
	txEvaluateBids         = enhancedContract + "EvaluateBids"
	txAwardBestBid         = enhancedContract + "AwardBestBid"
	txGetTender            = enhancedContract + "GetEnhancedTender"
	txTendersByStatus      = enhancedContract + "GetTendersByStatus"
	txListBidsPublic       = enhancedContract + "ListBidsPublic"
	txTenderStatistics     = enhancedContract + "GetTenderStatistics"
	txSubmitMilestone      = "SubmitMilestone"
	txApproveMilestone     = "ApproveMilestone"
	txRejectMilestone      = "RejectMilestone"
	txRecordPartialPayment = "RecordPartialPayment"
	txReleaseRetention     = "ReleaseRetention"
	txListMilestonesPublic = "ListMilestonesPublic"
	txReadMilestonePrivate = "ReadMilestonePrivate"
	txTenderHistory        = "GetTenderHistory"
)

// Transient map keys the chaincode expects for confidential payloads.
const (
	transientBidKey       = "enhancedBid"
	transientMilestoneKey = "milestone"
)

// ledgerClient owns the scoped session lifecycle shared by the coordinator
// and the query layer: one session per call, released on every exit path,
// with the request timeout applied before the session is opened.
type ledgerClient struct {
	sessions ledger.SessionFactory
	timeout  time.Duration
}

func (c ledgerClient) withContract(ctx context.Context, orgID string, fn func(ctx context.Context, contract ledger.Contract) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sess, err := c.sessions.Acquire(ctx, orgID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConnection, err)
	}
	defer sess.Close()

	return fn(ctx, sess.Contract())
}
