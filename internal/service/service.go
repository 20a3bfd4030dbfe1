// Package service validates user payloads and hands them to storage.
package service

import (
	"context"

	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/akashipov/userdirectory/internal/validation"
	"go.uber.org/zap"
)

type UserService struct {
	store     storage.Store
	validator *validation.Validator
	log       *zap.SugaredLogger
}

func NewUserService(store storage.Store, log *zap.SugaredLogger) *UserService {
	return &UserService{
		store:     store,
		validator: validation.New(),
		log:       log,
	}
}

func (s *UserService) List(ctx context.Context, q storage.ListQuery) (storage.Page, error) {
	users, total, err := s.store.List(ctx, q)
	if err != nil {
		return storage.Page{}, err
	}
	return storage.NewPage(users, total, q), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*user.User, error) {
	return s.store.GetByID(ctx, id)
}

// Create returns *validation.Error listing every violation when in is invalid.
func (s *UserService) Create(ctx context.Context, in user.Input) (*user.User, error) {
	if err := s.validator.Validate(&in); err != nil {
		return nil, err
	}
	u := in.User()
	if err := s.store.Create(ctx, &u); err != nil {
		return nil, err
	}
	s.log.Infof("User '%s' was created", u.ID)
	return &u, nil
}

// Update replaces every mutable field of the user with id.
func (s *UserService) Update(ctx context.Context, id string, in user.Input) (*user.User, error) {
	if err := s.validator.Validate(&in); err != nil {
		return nil, err
	}
	u := in.User()
	updated, err := s.store.Update(ctx, id, &u)
	if err != nil {
		return nil, err
	}
	s.log.Infof("User '%s' was updated", id)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infof("User '%s' was deleted", id)
	return nil
}

func (s *UserService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
