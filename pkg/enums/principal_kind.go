package enums

import "slices"

// PrincipalKind distinguishes store owner/manager accounts from staff accounts.
type PrincipalKind string

const (
	PrincipalKindUser  PrincipalKind = "user"
	PrincipalKindStaff PrincipalKind = "staff"
)

var principalKinds = []PrincipalKind{PrincipalKindUser, PrincipalKindStaff}

func (p PrincipalKind) String() string { return string(p) }

func (p PrincipalKind) IsValid() bool { return slices.Contains(principalKinds, p) }

func ParsePrincipalKind(value string) (PrincipalKind, error) {
	return parse("principal kind", value, principalKinds)
}
