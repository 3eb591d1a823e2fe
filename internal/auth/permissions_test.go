package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/procuretrust/tender-gateway/internal/model"
)

func TestBidderLimitedToReadAndBid(t *testing.T) {
	allowed := []Operation{OpRead, OpSubmitBid}
	denied := []Operation{
		OpCreateTender, OpPublishTender, OpCloseTender, OpEvaluateBids,
		OpAwardTender, OpSubmitMilestone, OpApproveMilestone,
		OpRejectMilestone, OpRecordPayment, OpReleaseRetention, OpSeed,
	}

	for _, op := range allowed {
		assert.True(t, Allowed(model.RoleBidder, op), string(op))
	}
	for _, op := range denied {
		assert.False(t, Allowed(model.RoleBidder, op), string(op))
		assert.ErrorIs(t, Authorize(model.Principal{Role: model.RoleBidder}, op), ErrForbidden)
	}
}

func TestOwnerFullLifecycleExceptSeed(t *testing.T) {
	lifecycle := []Operation{
		OpCreateTender, OpPublishTender, OpSubmitBid, OpCloseTender,
		OpEvaluateBids, OpAwardTender, OpSubmitMilestone,
		OpApproveMilestone, OpRejectMilestone, OpRecordPayment,
		OpReleaseRetention, OpRead,
	}
	for _, op := range lifecycle {
		assert.True(t, Allowed(model.RoleOwner, op), string(op))
	}
	assert.False(t, Allowed(model.RoleOwner, OpSeed))
}

func TestAdminIncludesSeeding(t *testing.T) {
	assert.True(t, Allowed(model.RoleAdmin, OpSeed))
	assert.True(t, Allowed(model.RoleAdmin, OpCreateTender))
	assert.True(t, Allowed(model.RoleAdmin, OpRead))
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	assert.False(t, Allowed(model.Role("visitor"), OpRead))
}
