package repository

import (
	"context"

	"github.com/fastygo/accounts/domain"
)

//go:generate mockgen -source=user.go -destination=mocks/user_mock.go -package=mocks UserRepository

// UserRepository is the authoritative store for user records. Every finder
// excludes records whose status is removed.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByNationalID(ctx context.Context, nationalID string) (*domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch, actor string) (*domain.User, error)
	SoftDelete(ctx context.Context, id int64, actor string) (bool, error)
}
