package users

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/pkg/password"
	"github.com/fastygo/accounts/repository/mocks"
)

type ServiceSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	store *mocks.MockUserRepository
	cache *mocks.MockCache
	svc   *Service
	ctx   context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockUserRepository(s.ctrl)
	s.cache = mocks.NewMockCache(s.ctrl)
	hasher, err := password.NewHasher(bcrypt.MinCost)
	s.Require().NoError(err)
	s.svc = New(s.store, s.cache, hasher, time.Minute, nil)
	s.ctx = context.Background()
}

// SetupSubTest gives every s.Run its own controller, so unmet or unexpected
// calls are reported against the subtest that caused them.
func (s *ServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func storedUser(id int64) *domain.User {
	return &domain.User{
		ID:           id,
		NationalID:   "111",
		Name:         "A",
		PasswordHash: "$2a$04$hash",
		Address:      validAddress(),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:    domain.SystemActor,
	}
}

func validAddress() domain.Address {
	return domain.Address{
		Street:       "Rua A",
		Number:       "10",
		Neighborhood: "Centro",
		City:         "Recife",
		State:        "PE",
		PostalCode:   "50000-000",
	}
}

func validInput() domain.NewUser {
	return domain.NewUser{
		NationalID: "111",
		Name:       "A",
		Password:   "s3cret",
		Address:    validAddress(),
	}
}

func (s *ServiceSuite) encoded(v interface{}) []byte {
	payload, err := json.Marshal(v)
	s.Require().NoError(err)
	return payload
}

func (s *ServiceSuite) TestGet() {
	s.Run("cache hit does not touch the store", func() {
		cached := storedUser(7).WithoutCredential()
		s.cache.EXPECT().Get(gomock.Any(), "record:7").Return(domain.CacheHit(s.encoded(cached)))

		user, err := s.svc.Get(s.ctx, 7)
		s.Require().NoError(err)
		s.Equal(cached, user)
	})

	s.Run("miss reads the store and populates the record key", func() {
		gomock.InOrder(
			s.cache.EXPECT().Get(gomock.Any(), "record:7").Return(domain.CacheMissed()),
			s.store.EXPECT().FindByID(gomock.Any(), int64(7)).Return(storedUser(7), nil),
			s.cache.EXPECT().Set(gomock.Any(), "record:7", gomock.Any(), time.Minute).
				DoAndReturn(func(_ context.Context, _ string, value []byte, _ time.Duration) domain.CacheStatus {
					s.NotContains(string(value), "password_hash")
					return domain.CacheOK
				}),
		)

		user, err := s.svc.Get(s.ctx, 7)
		s.Require().NoError(err)
		s.Equal("A", user.Name)
		s.Empty(user.PasswordHash)
	})

	s.Run("degraded cache falls through to the store", func() {
		s.cache.EXPECT().Get(gomock.Any(), "record:7").Return(domain.CacheFailed(errors.New("timeout")))
		s.store.EXPECT().FindByID(gomock.Any(), int64(7)).Return(storedUser(7), nil)
		s.cache.EXPECT().Set(gomock.Any(), "record:7", gomock.Any(), gomock.Any()).Return(domain.CacheDegraded)

		user, err := s.svc.Get(s.ctx, 7)
		s.Require().NoError(err)
		s.Equal(int64(7), user.ID)
	})

	s.Run("undecodable entry is treated as a miss", func() {
		s.cache.EXPECT().Get(gomock.Any(), "record:7").Return(domain.CacheHit([]byte("{not json")))
		s.store.EXPECT().FindByID(gomock.Any(), int64(7)).Return(storedUser(7), nil)
		s.cache.EXPECT().Set(gomock.Any(), "record:7", gomock.Any(), gomock.Any()).Return(domain.CacheOK)

		_, err := s.svc.Get(s.ctx, 7)
		s.NoError(err)
	})

	s.Run("store miss is not cached", func() {
		s.cache.EXPECT().Get(gomock.Any(), "record:8").Return(domain.CacheMissed())
		s.store.EXPECT().FindByID(gomock.Any(), int64(8)).Return(nil, domain.ErrUserNotFound)

		_, err := s.svc.Get(s.ctx, 8)
		s.ErrorIs(err, domain.ErrUserNotFound)
	})

	s.Run("non-positive id is not found without any call", func() {
		_, err := s.svc.Get(s.ctx, 0)
		s.ErrorIs(err, domain.ErrUserNotFound)
	})
}

func (s *ServiceSuite) TestList() {
	s.Run("hit returns the cached collection", func() {
		cached := []domain.User{*storedUser(1).WithoutCredential()}
		s.cache.EXPECT().Get(gomock.Any(), CollectionKey).Return(domain.CacheHit(s.encoded(cached)))

		users, err := s.svc.List(s.ctx)
		s.Require().NoError(err)
		s.Equal(cached, users)
	})

	s.Run("miss populates the collection key", func() {
		gomock.InOrder(
			s.cache.EXPECT().Get(gomock.Any(), CollectionKey).Return(domain.CacheMissed()),
			s.store.EXPECT().FindAll(gomock.Any()).Return([]domain.User{*storedUser(1), *storedUser(2)}, nil),
			s.cache.EXPECT().Set(gomock.Any(), CollectionKey, gomock.Any(), time.Minute).Return(domain.CacheOK),
		)

		users, err := s.svc.List(s.ctx)
		s.Require().NoError(err)
		s.Len(users, 2)
		for _, u := range users {
			s.Empty(u.PasswordHash)
		}
	})

	s.Run("store failure propagates and caches nothing", func() {
		s.cache.EXPECT().Get(gomock.Any(), CollectionKey).Return(domain.CacheMissed())
		s.store.EXPECT().FindAll(gomock.Any()).Return(nil, domain.Persistence("find all", errors.New("conn refused")))

		_, err := s.svc.List(s.ctx)
		s.True(domain.IsDomainError(err, domain.ErrCodePersistence))
	})
}

func (s *ServiceSuite) TestCreate() {
	s.Run("persists then invalidates only the collection", func() {
		gomock.InOrder(
			s.store.EXPECT().FindByNationalID(gomock.Any(), "111").Return(nil, domain.ErrUserNotFound),
			s.store.EXPECT().Create(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, u *domain.User) (*domain.User, error) {
					s.NotEqual("s3cret", u.PasswordHash)
					s.NotEmpty(u.PasswordHash)
					s.Equal(domain.SystemActor, u.CreatedBy)
					out := *u
					out.ID = 1
					return &out, nil
				}),
			s.cache.EXPECT().Invalidate(gomock.Any(), CollectionKey).Return(domain.CacheOK),
		)

		user, err := s.svc.Create(s.ctx, validInput(), "")
		s.Require().NoError(err)
		s.Equal(int64(1), user.ID)
		s.Empty(user.PasswordHash)
	})

	s.Run("duplicate national id is rejected before persisting", func() {
		s.store.EXPECT().FindByNationalID(gomock.Any(), "111").Return(storedUser(1), nil)

		_, err := s.svc.Create(s.ctx, validInput(), "")
		s.ErrorIs(err, domain.ErrDuplicateNationalID)
	})

	s.Run("store conflict leaves the cache alone", func() {
		s.store.EXPECT().FindByNationalID(gomock.Any(), "111").Return(nil, domain.ErrUserNotFound)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrDuplicateNationalID)

		_, err := s.svc.Create(s.ctx, validInput(), "")
		s.ErrorIs(err, domain.ErrDuplicateNationalID)
	})

	s.Run("store failure leaves the cache alone", func() {
		s.store.EXPECT().FindByNationalID(gomock.Any(), "111").Return(nil, domain.ErrUserNotFound)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.Persistence("create", errors.New("down")))

		_, err := s.svc.Create(s.ctx, validInput(), "")
		s.True(domain.IsDomainError(err, domain.ErrCodePersistence))
	})

	s.Run("missing required fields are invalid", func() {
		input := validInput()
		input.Name = "   "
		input.Address.City = ""

		_, err := s.svc.Create(s.ctx, input, "")
		s.Require().Error(err)
		s.True(domain.IsDomainError(err, domain.ErrCodeInvalid))
		s.Contains(err.Error(), "name")
		s.Contains(err.Error(), "address.city")
	})
}

func (s *ServiceSuite) TestUpdate() {
	name := "B"
	patch := domain.UserPatch{Name: &name}

	s.Run("store first, then set record and invalidate collection", func() {
		updated := storedUser(7)
		updated.Name = "B"
		gomock.InOrder(
			s.store.EXPECT().Update(gomock.Any(), int64(7), patch, "42").Return(updated, nil),
			s.cache.EXPECT().Set(gomock.Any(), "record:7", gomock.Any(), time.Minute).
				DoAndReturn(func(_ context.Context, _ string, value []byte, _ time.Duration) domain.CacheStatus {
					var cached domain.User
					s.Require().NoError(json.Unmarshal(value, &cached))
					s.Equal("B", cached.Name)
					s.Empty(cached.PasswordHash)
					return domain.CacheOK
				}),
			s.cache.EXPECT().Invalidate(gomock.Any(), CollectionKey).Return(domain.CacheOK),
		)

		user, err := s.svc.Update(s.ctx, 7, patch, "42")
		s.Require().NoError(err)
		s.Equal("B", user.Name)
	})

	s.Run("not found makes no cache mutation", func() {
		s.store.EXPECT().Update(gomock.Any(), int64(9), patch, "42").Return(nil, domain.ErrUserNotFound)

		_, err := s.svc.Update(s.ctx, 9, patch, "42")
		s.ErrorIs(err, domain.ErrUserNotFound)
	})

	s.Run("empty patch is invalid", func() {
		_, err := s.svc.Update(s.ctx, 7, domain.UserPatch{}, "42")
		s.ErrorIs(err, domain.ErrEmptyPatch)
	})

	s.Run("blank name is invalid", func() {
		blank := "  "
		_, err := s.svc.Update(s.ctx, 7, domain.UserPatch{Name: &blank}, "42")
		s.True(domain.IsDomainError(err, domain.ErrCodeInvalid))
	})

	s.Run("degraded cache does not fail the update", func() {
		updated := storedUser(7)
		updated.Name = "B"
		s.store.EXPECT().Update(gomock.Any(), int64(7), patch, "42").Return(updated, nil)
		s.cache.EXPECT().Set(gomock.Any(), "record:7", gomock.Any(), gomock.Any()).Return(domain.CacheDegraded)
		s.cache.EXPECT().Invalidate(gomock.Any(), CollectionKey).Return(domain.CacheDegraded)

		user, err := s.svc.Update(s.ctx, 7, patch, "42")
		s.Require().NoError(err)
		s.Equal("B", user.Name)
	})
}

func (s *ServiceSuite) TestDelete() {
	s.Run("removed record invalidates both keys after the store", func() {
		gomock.InOrder(
			s.store.EXPECT().SoftDelete(gomock.Any(), int64(7), "42").Return(true, nil),
			s.cache.EXPECT().Invalidate(gomock.Any(), "record:7").Return(domain.CacheOK),
			s.cache.EXPECT().Invalidate(gomock.Any(), CollectionKey).Return(domain.CacheOK),
		)

		removed, err := s.svc.Delete(s.ctx, 7, "42")
		s.NoError(err)
		s.True(removed)
	})

	s.Run("absent record reports false without cache mutation", func() {
		s.store.EXPECT().SoftDelete(gomock.Any(), int64(8), "42").Return(false, nil)

		removed, err := s.svc.Delete(s.ctx, 8, "42")
		s.NoError(err)
		s.False(removed)
	})

	s.Run("store failure propagates", func() {
		s.store.EXPECT().SoftDelete(gomock.Any(), int64(7), "42").Return(false, domain.Persistence("soft delete", errors.New("down")))

		removed, err := s.svc.Delete(s.ctx, 7, "42")
		s.False(removed)
		s.True(domain.IsDomainError(err, domain.ErrCodePersistence))
	})
}

func (s *ServiceSuite) TestPurgeCache() {
	s.cache.EXPECT().InvalidatePrefix(gomock.Any(), KeyNamespace).Return(domain.CacheOK)
	s.Equal(domain.CacheOK, s.svc.PurgeCache(s.ctx))
}

func (s *ServiceSuite) TestRecordKey() {
	s.Equal("record:42", RecordKey(42))
}
