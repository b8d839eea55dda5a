package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

// Grant is what the issuer vouches for in a token.
type Grant struct {
	SubjectID uuid.UUID
	Kind      enums.PrincipalKind
	StoreID   uuid.UUID
	Role      enums.MemberRole
	Name      string
	// JTI is generated when empty.
	JTI string
}

func (g Grant) check() error {
	var errs error
	if g.SubjectID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("subject id is required"))
	}
	if g.StoreID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("store id is required"))
	}
	if !g.Kind.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid principal kind %q", g.Kind))
	}
	if !g.Role.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid member role %q", g.Role))
	}
	return errs
}

// Claims is a verified access token. Owners and managers carry kind
// "user"; staff accounts carry kind "staff".
type Claims struct {
	SubjectID uuid.UUID           `json:"sub_id"`
	Kind      enums.PrincipalKind `json:"kind"`
	StoreID   uuid.UUID           `json:"store_id"`
	Role      enums.MemberRole    `json:"role"`
	Name      string              `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser once the registered claims pass.
func (c Claims) Validate() error {
	return Grant{SubjectID: c.SubjectID, Kind: c.Kind, StoreID: c.StoreID, Role: c.Role}.check()
}
