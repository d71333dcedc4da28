package domain

// Role is a member's role on a project. Roles form a total order:
// viewer < member < admin < owner.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRank = map[Role]int{
	RoleViewer: 0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min in the role order.
// Unknown roles rank below everything.
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	return rr >= roleRank[min]
}

// Action names a capability checked before a board mutation.
type Action string

const (
	ActionView              Action = "view"
	ActionEdit              Action = "edit"
	ActionManageMembers     Action = "manage-members"
	ActionApprove           Action = "approve"
	ActionTransferOwnership Action = "transfer-ownership"
	ActionDeleteProject     Action = "delete-project"
)

// Allows is the permission gate: a pure function from (role, action) to a
// capability boolean. Every mutation entry point is gated through it.
func Allows(role Role, action Action) bool {
	switch action {
	case ActionView:
		return role.AtLeast(RoleViewer)
	case ActionEdit:
		return role.AtLeast(RoleMember)
	case ActionManageMembers, ActionApprove:
		return role.AtLeast(RoleAdmin)
	case ActionTransferOwnership, ActionDeleteProject:
		return role == RoleOwner
	}
	return false
}
