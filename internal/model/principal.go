package model

type Role string

const (
	RoleOwner  Role = "owner"
	RoleBidder Role = "bidder"
	RoleAdmin  Role = "admin"
)

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	Username string
	Role     Role
}

func (p Principal) IsOwner() bool  { return p.Role == RoleOwner }
func (p Principal) IsBidder() bool { return p.Role == RoleBidder }
func (p Principal) IsAdmin() bool  { return p.Role == RoleAdmin }

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleOwner, RoleBidder, RoleAdmin:
		return Role(raw), true
	default:
		return "", false
	}
}
