package auth

import (
	"errors"

	"github.com/procuretrust/tender-gateway/internal/model"
)

var ErrForbidden = errors.New("operation not permitted for role")

// Operation is a gateway-level action subject to role gating.
type Operation string

const (
	OpCreateTender     Operation = "create"
	OpPublishTender    Operation = "publish"
	OpSubmitBid        Operation = "bid"
	OpCloseTender      Operation = "close"
	OpEvaluateBids     Operation = "evaluate"
	OpAwardTender      Operation = "award"
	OpSubmitMilestone  Operation = "milestone-submit"
	OpApproveMilestone Operation = "milestone-approve"
	OpRejectMilestone  Operation = "milestone-reject"
	OpRecordPayment    Operation = "payment"
	OpReleaseRetention Operation = "retention-release"
	OpRead             Operation = "read"
	OpSeed             Operation = "seed"
)

// permissions is the full role x operation matrix. Consulted only through
// Allowed so the gate stays auditable in one place.
var permissions = map[model.Role]map[Operation]bool{
	model.RoleBidder: {
		OpRead:      true,
		OpSubmitBid: true,
	},
	model.RoleOwner: {
		OpCreateTender:     true,
		OpPublishTender:    true,
		OpSubmitBid:        true,
		OpCloseTender:      true,
		OpEvaluateBids:     true,
		OpAwardTender:      true,
		OpSubmitMilestone:  true,
		OpApproveMilestone: true,
		OpRejectMilestone:  true,
		OpRecordPayment:    true,
		OpReleaseRetention: true,
		OpRead:             true,
	},
	model.RoleAdmin: {
		OpCreateTender:     true,
		OpPublishTender:    true,
		OpSubmitBid:        true,
		OpCloseTender:      true,
		OpEvaluateBids:     true,
		OpAwardTender:      true,
		OpSubmitMilestone:  true,
		OpApproveMilestone: true,
		OpRejectMilestone:  true,
		OpRecordPayment:    true,
		OpReleaseRetention: true,
		OpRead:             true,
		OpSeed:             true,
	},
}

func Allowed(role model.Role, op Operation) bool {
	return permissions[role][op]
}

// Authorize gates an operation before any ledger session is acquired.
func Authorize(principal model.Principal, op Operation) error {
	if !Allowed(principal.Role, op) {
		return ErrForbidden
	}
	return nil
}
