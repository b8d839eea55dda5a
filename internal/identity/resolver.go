package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
)

// Credentials are the verified claims of a bearer token.
type Credentials struct {
	Kind      enums.PrincipalKind
	SubjectID uuid.UUID
	StoreID   uuid.UUID
}

type accountLoader interface {
	FindUser(ctx context.Context, storeID, id uuid.UUID) (*models.User, error)
	FindStaff(ctx context.Context, storeID, id uuid.UUID) (*models.Staff, error)
}

// Resolver turns verified token claims into a Principal backed by the identity store.
type Resolver struct {
	accounts accountLoader
}

func NewResolver(accounts accountLoader) (*Resolver, error) {
	if accounts == nil {
		return nil, errors.New("account loader required")
	}
	return &Resolver{accounts: accounts}, nil
}

// Resolve loads the account named by creds. The stored role and display name
// win over anything the token carried.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (Principal, error) {
	switch creds.Kind {
	case enums.PrincipalKindUser:
		user, err := r.accounts.FindUser(ctx, creds.StoreID, creds.SubjectID)
		if err != nil {
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if user == nil {
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found in store")
		}
		p := Principal{
			Kind:    enums.PrincipalKindUser,
			ID:      user.ID,
			StoreID: user.StoreID,
			Role:    user.Role,
			Name:    user.Name,
		}
		return p, p.Validate()
	case enums.PrincipalKindStaff:
		staff, err := r.accounts.FindStaff(ctx, creds.StoreID, creds.SubjectID)
		if err != nil {
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff")
		}
		if staff == nil {
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found in store")
		}
		if !staff.Active {
			return Principal{}, pkgerrors.New(pkgerrors.CodeForbidden, "staff account disabled")
		}
		p := Principal{
			Kind:    enums.PrincipalKindStaff,
			ID:      staff.ID,
			StoreID: staff.StoreID,
			Role:    enums.MemberRoleStaff,
			Name:    staff.Name,
		}
		return p, p.Validate()
	}
	return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown principal kind")
}
