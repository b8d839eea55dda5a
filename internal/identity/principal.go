package identity

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
)

// Principal is the authenticated caller of a sales operation. It is passed
// explicitly into every engine and reader call.
type Principal struct {
	Kind    enums.PrincipalKind
	ID      uuid.UUID
	StoreID uuid.UUID
	Role    enums.MemberRole
	Name    string
}

// IsStaff reports whether the caller is a staff account.
func (p Principal) IsStaff() bool {
	return p.Kind == enums.PrincipalKindStaff
}

// SeesWholeStore reports whether the caller may read every sale in the tenant.
func (p Principal) SeesWholeStore() bool {
	return p.Kind == enums.PrincipalKindUser && p.Role.SeesWholeStore()
}

// Validate rejects principals that could not have come from the identity provider.
func (p Principal) Validate() error {
	if p.ID == uuid.Nil || p.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "principal is missing identity")
	}
	switch p.Kind {
	case enums.PrincipalKindStaff:
		if p.Role != enums.MemberRoleStaff {
			return pkgerrors.New(pkgerrors.CodeForbidden, "staff principal must carry the staff role")
		}
	case enums.PrincipalKindUser:
		if !p.Role.SeesWholeStore() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted to record or view sales")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown principal kind")
	}
	return nil
}
