package sales

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

// CashierAttribution records who is credited with a sale. It is implemented
// only by StaffCashier and UserCashier.
type CashierAttribution interface {
	Type() enums.CashierType
	PrincipalID() uuid.UUID
	DisplayName() string
	cashier()
}

// StaffCashier credits a staff account.
type StaffCashier struct {
	ID   uuid.UUID
	Name string
}

// UserCashier credits a store owner or manager.
type UserCashier struct {
	ID   uuid.UUID
	Name string
}

func (StaffCashier) Type() enums.CashierType  { return enums.CashierTypeStaff }
func (s StaffCashier) PrincipalID() uuid.UUID { return s.ID }
func (s StaffCashier) DisplayName() string    { return s.Name }
func (StaffCashier) cashier()                 {}

func (UserCashier) Type() enums.CashierType  { return enums.CashierTypeUser }
func (u UserCashier) PrincipalID() uuid.UUID { return u.ID }
func (u UserCashier) DisplayName() string    { return u.Name }
func (UserCashier) cashier()                 {}

// AttributionFor credits the caller itself.
func AttributionFor(p identity.Principal) CashierAttribution {
	if p.IsStaff() {
		return StaffCashier{ID: p.ID, Name: p.Name}
	}
	return UserCashier{ID: p.ID, Name: p.Name}
}

// StaffID returns the staff id when the attribution is a staff cashier.
func StaffID(a CashierAttribution) *uuid.UUID {
	if s, ok := a.(StaffCashier); ok {
		id := s.ID
		return &id
	}
	return nil
}

// UserID returns the owner/manager id when the attribution is a user cashier.
func UserID(a CashierAttribution) *uuid.UUID {
	if u, ok := a.(UserCashier); ok {
		id := u.ID
		return &id
	}
	return nil
}

func applyAttribution(row *models.Sale, a CashierAttribution) {
	row.CashierType = a.Type()
	row.StaffID = StaffID(a)
	row.CashierUserID = UserID(a)
	row.CashierNameSnapshot = a.DisplayName()
}

func attributionFromRow(row models.Sale) (CashierAttribution, error) {
	switch row.CashierType {
	case enums.CashierTypeStaff:
		if row.StaffID == nil || row.CashierUserID != nil {
			return nil, fmt.Errorf("sale %s: staff attribution without exactly one staff id", row.ID)
		}
		return StaffCashier{ID: *row.StaffID, Name: row.CashierNameSnapshot}, nil
	case enums.CashierTypeUser:
		if row.CashierUserID == nil || row.StaffID != nil {
			return nil, fmt.Errorf("sale %s: user attribution without exactly one user id", row.ID)
		}
		return UserCashier{ID: *row.CashierUserID, Name: row.CashierNameSnapshot}, nil
	}
	return nil, fmt.Errorf("sale %s: unknown cashier type %q", row.ID, row.CashierType)
}
