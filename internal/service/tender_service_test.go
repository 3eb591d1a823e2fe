package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procuretrust/tender-gateway/internal/model"
)

var (
	owner  = model.Principal{Username: "owner1", Role: model.RoleOwner}
	bidder = model.Principal{Username: "bidder1", Role: model.RoleBidder}
	admin  = model.Principal{Username: "admin1", Role: model.RoleAdmin}
)

func newTenderService(fake *fakeLedger) *TenderService {
	return NewTenderService(fake, testConfig(), testLogger())
}

func TestCreateTender_SubmitsRFQ(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	rfq := json.RawMessage(`{"id": "RFQ-1", "description": "road works"}`)
	id, err := svc.CreateTender(context.Background(), owner, "org1", rfq)
	require.NoError(t, err)
	assert.Equal(t, "RFQ-1", id)

	require.Len(t, fake.invocations, 1)
	inv := fake.invocations[0]
	assert.Equal(t, "submit", inv.Kind)
	assert.Equal(t, txCreateTender, inv.Name)
	assert.Equal(t, []string{string(rfq)}, inv.Args)
	assert.Zero(t, fake.leakedSessions())
}

func TestCreateTender_MissingIDNeverOpensSession(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	_, err := svc.CreateTender(context.Background(), owner, "org1", json.RawMessage(`{"title": "no id"}`))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, fake.acquired())
}

func TestBidderDeniedLifecycleOperations(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)
	ctx := context.Background()

	cases := map[string]func() error{
		"publish":  func() error { return svc.PublishTender(ctx, bidder, "org1", "T1") },
		"close":    func() error { return svc.CloseTender(ctx, bidder, "org1", "T1") },
		"evaluate": func() error { return svc.EvaluateBids(ctx, bidder, "org1", "T1") },
		"award":    func() error { return svc.AwardBestBid(ctx, bidder, "org1", "T1") },
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), ErrPermissionDenied)
		})
	}
	// The gate runs before any session is acquired.
	assert.Zero(t, fake.acquired())
}

func TestSubmitBid_TransientPayloadAndGeneratedID(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	bidID, err := svc.SubmitBid(context.Background(), bidder, "org1", "T1",
		json.RawMessage(`{"totalAmount": 90000, "contractorId": "C1"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bidID, "BID-"))

	require.Len(t, fake.invocations, 1)
	inv := fake.invocations[0]
	assert.Equal(t, txSubmitBid, inv.Name)
	assert.Equal(t, []string{"T1", bidID}, inv.Args)

	require.Contains(t, inv.Transient, "enhancedBid")
	var payload map[string]any
	require.NoError(t, json.Unmarshal(inv.Transient["enhancedBid"], &payload))
	assert.Equal(t, "T1", payload["tenderId"])
	assert.Equal(t, bidID, payload["bidId"])
	assert.Equal(t, float64(90000), payload["totalAmount"])
	assert.Zero(t, fake.leakedSessions())
}

func TestSubmitBid_KeepsCallerSuppliedID(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	bidID, err := svc.SubmitBid(context.Background(), owner, "org1", "T1",
		json.RawMessage(`{"bidId": "B1", "totalAmount": 90000}`))
	require.NoError(t, err)
	assert.Equal(t, "B1", bidID)
}

func TestSubmitBid_DuplicateRejectionSurfacedWithoutRetry(t *testing.T) {
	fake := &fakeLedger{
		submitFn: func(name string, transient map[string][]byte, args []string) ([]byte, error) {
			return nil, fmt.Errorf("%w: bid B1 already exists for tender T1", ErrLedger)
		},
	}
	svc := newTenderService(fake)

	_, err := svc.SubmitBid(context.Background(), bidder, "org1", "T1",
		json.RawMessage(`{"bidId": "B1"}`))
	require.ErrorIs(t, err, ErrLedger)
	assert.Contains(t, err.Error(), "already exists")
	// Exactly one submission: the coordinator never retries.
	assert.Len(t, fake.invocations, 1)
	assert.Zero(t, fake.leakedSessions())
}

func TestSubmitBid_EmptyPayloadRejected(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	_, err := svc.SubmitBid(context.Background(), bidder, "org1", "T1", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, fake.acquired())
}

func TestSubmitMilestone_TransientPayload(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	milestoneID, err := svc.SubmitMilestone(context.Background(), owner, "org1", "T1",
		json.RawMessage(`{"title": "Foundation", "amount": 100000}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(milestoneID, "MS-"))

	require.Len(t, fake.invocations, 1)
	inv := fake.invocations[0]
	assert.Equal(t, txSubmitMilestone, inv.Name)
	require.Contains(t, inv.Transient, "milestone")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(inv.Transient["milestone"], &payload))
	assert.Equal(t, "T1", payload["tenderId"])
	assert.Equal(t, milestoneID, payload["milestoneId"])
}

func TestRecordPartialPayment_ArgumentEncoding(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	err := svc.RecordPartialPayment(context.Background(), owner, "org1", "T1", "M1", 50000)
	require.NoError(t, err)

	require.Len(t, fake.invocations, 1)
	assert.Equal(t, txRecordPartialPayment, fake.invocations[0].Name)
	assert.Equal(t, []string{"T1", "M1", "50000"}, fake.invocations[0].Args)
}

func TestRecordPartialPayment_RejectsNonPositiveAmount(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	err := svc.RecordPartialPayment(context.Background(), owner, "org1", "T1", "M1", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, fake.acquired())
}

func TestRejectMilestone_PassesReason(t *testing.T) {
	fake := &fakeLedger{}
	svc := newTenderService(fake)

	err := svc.RejectMilestone(context.Background(), owner, "org1", "T1", "M1", "incomplete evidence")
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "M1", "incomplete evidence"}, fake.invocations[0].Args)
}

func TestReleaseRetention_RepeatFailureIsBusinessError(t *testing.T) {
	calls := 0
	fake := &fakeLedger{
		submitFn: func(name string, transient map[string][]byte, args []string) ([]byte, error) {
			calls++
			if calls > 1 {
				return nil, fmt.Errorf("%w: retention already released for T1", ErrLedger)
			}
			return nil, nil
		},
	}
	svc := newTenderService(fake)
	ctx := context.Background()

	require.NoError(t, svc.ReleaseRetention(ctx, owner, "org1", "T1"))

	err := svc.ReleaseRetention(ctx, owner, "org1", "T1")
	require.ErrorIs(t, err, ErrLedger)
	assert.Contains(t, err.Error(), "already released")
	assert.Zero(t, fake.leakedSessions())
}

func TestSessionReleasedOnSubmitFailure(t *testing.T) {
	fake := &fakeLedger{
		submitFn: func(name string, transient map[string][]byte, args []string) ([]byte, error) {
			return nil, fmt.Errorf("%w: endorsement failed", ErrLedger)
		},
	}
	svc := newTenderService(fake)

	err := svc.PublishTender(context.Background(), owner, "org1", "T1")
	require.ErrorIs(t, err, ErrLedger)
	assert.Equal(t, 1, fake.acquired())
	assert.Zero(t, fake.leakedSessions())
}

func TestTimeoutSurfacedDistinctly(t *testing.T) {
	fake := &fakeLedger{
		submitFn: func(name string, transient map[string][]byte, args []string) ([]byte, error) {
			return nil, fmt.Errorf("%w: commit status wait", ErrTimeout)
		},
	}
	svc := newTenderService(fake)

	err := svc.CloseTender(context.Background(), owner, "org1", "T1")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrLedger)
	assert.Zero(t, fake.leakedSessions())
}

func TestAcquireFailureIsConnectionError(t *testing.T) {
	fake := &fakeLedger{acquireErr: fmt.Errorf("connection profile not found: /x/ccp.json")}
	svc := newTenderService(fake)

	err := svc.PublishTender(context.Background(), admin, "org1", "T1")
	require.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "connection profile not found")
}
