package users

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
)

// Service exposes read-only user lookups.
type Service interface {
	GetUser(ctx context.Context, id int64) (*UserDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetUser(ctx context.Context, id int64) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return FromModel(user), nil
}
