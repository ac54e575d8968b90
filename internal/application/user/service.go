package user

import (
	"context"

	domuser "github.com/workboxhq/workbox/internal/domain/user"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type IDGenerator interface {
	NewID() string
}

type Service struct {
	repo        domuser.Repository
	idGenerator IDGenerator
}

func NewService(repo domuser.Repository, idGen IDGenerator) *Service {
	return &Service{repo: repo, idGenerator: idGen}
}

type CreateUserInput struct {
	Username string
	FullName string
}

func (s *Service) Create(ctx context.Context, input CreateUserInput) (*domuser.User, error) {
	entity, err := domuser.New(s.idGenerator.NewID(), input.Username, input.FullName)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, entity); err != nil {
		return nil, errs.NewPersistence("insert user", err)
	}
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domuser.User, error) {
	if id == "" {
		return nil, errs.NewValidation("user: id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, offset, limit int) ([]*domuser.User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}
