package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/internal/repo"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
)

// Repository reads owner/manager and staff accounts.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository bound to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindUser returns the owner/manager account in the store, or nil when absent.
func (r *Repository) FindUser(ctx context.Context, storeID, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).Scopes(repo.InStore(storeID)).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindStaff returns the staff account in the store, or nil when absent.
func (r *Repository) FindStaff(ctx context.Context, storeID, id uuid.UUID) (*models.Staff, error) {
	var staff models.Staff
	err := r.DB(ctx).Scopes(repo.InStore(storeID)).Where("id = ?", id).Take(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

// DisplayNames returns current names for the given user and staff ids in one
// map. Deleted accounts are simply absent.
func (r *Repository) DisplayNames(ctx context.Context, storeID uuid.UUID, userIDs, staffIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(userIDs)+len(staffIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := r.DB(ctx).Select("id", "name").Scopes(repo.InStore(storeID)).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}
	if len(staffIDs) > 0 {
		var staff []models.Staff
		if err := r.DB(ctx).Select("id", "name").Scopes(repo.InStore(storeID)).Where("id IN ?", staffIDs).Find(&staff).Error; err != nil {
			return nil, err
		}
		for _, s := range staff {
			names[s.ID] = s.Name
		}
	}
	return names, nil
}
