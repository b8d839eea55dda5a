package enums

import "slices"

// MemberRole is the store-level role carried in a principal's token.
type MemberRole string

const (
	MemberRoleOwner   MemberRole = "owner"
	MemberRoleManager MemberRole = "manager"
	MemberRoleStaff   MemberRole = "staff"
)

var memberRoles = []MemberRole{MemberRoleOwner, MemberRoleManager, MemberRoleStaff}

func (m MemberRole) String() string { return string(m) }

func (m MemberRole) IsValid() bool { return slices.Contains(memberRoles, m) }

// SeesWholeStore reports whether the role may read every sale in its tenant.
// Staff only see sales credited to themselves.
func (m MemberRole) SeesWholeStore() bool {
	return m == MemberRoleOwner || m == MemberRoleManager
}

func ParseMemberRole(value string) (MemberRole, error) {
	return parse("member role", value, memberRoles)
}
