package users

import (
	"context"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes user lookups. Users are provisioned outside this service.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads a user. A missing user yields (nil, nil).
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	found, err := repo.FirstOrNil(r.DB(ctx), &user, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	found, err := repo.FirstOrNil(r.DB(ctx), &user, "email = ?", email)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}
