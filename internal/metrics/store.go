package metrics

import (
	"context"
	"time"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/repository"
)

type instrumentedStore struct {
	next    repository.UserRepository
	metrics *Metrics
}

// InstrumentStore times every call on next. A nil m returns next unchanged.
func InstrumentStore(next repository.UserRepository, m *Metrics) repository.UserRepository {
	if m == nil {
		return next
	}
	return &instrumentedStore{next: next, metrics: m}
}

func (s *instrumentedStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	start := time.Now()
	out, err := s.next.Create(ctx, user)
	s.metrics.ObserveStore("create", start, err)
	return out, err
}

func (s *instrumentedStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	start := time.Now()
	out, err := s.next.FindByID(ctx, id)
	s.metrics.ObserveStore("find_by_id", start, err)
	return out, err
}

func (s *instrumentedStore) FindByNationalID(ctx context.Context, nationalID string) (*domain.User, error) {
	start := time.Now()
	out, err := s.next.FindByNationalID(ctx, nationalID)
	s.metrics.ObserveStore("find_by_national_id", start, err)
	return out, err
}

func (s *instrumentedStore) FindAll(ctx context.Context) ([]domain.User, error) {
	start := time.Now()
	out, err := s.next.FindAll(ctx)
	s.metrics.ObserveStore("find_all", start, err)
	return out, err
}

func (s *instrumentedStore) Update(ctx context.Context, id int64, patch domain.UserPatch, actor string) (*domain.User, error) {
	start := time.Now()
	out, err := s.next.Update(ctx, id, patch, actor)
	s.metrics.ObserveStore("update", start, err)
	return out, err
}

func (s *instrumentedStore) SoftDelete(ctx context.Context, id int64, actor string) (bool, error) {
	start := time.Now()
	out, err := s.next.SoftDelete(ctx, id, actor)
	s.metrics.ObserveStore("soft_delete", start, err)
	return out, err
}
