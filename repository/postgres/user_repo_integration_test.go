//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fastygo/accounts/domain"
	pgInfra "github.com/fastygo/accounts/internal/infrastructure/postgres"
	"github.com/fastygo/accounts/pkg/testutil/containers"
	"github.com/fastygo/accounts/repository"
)

type UserRepoSuite struct {
	suite.Suite
	pg   *containers.PostgresContainer
	repo repository.UserRepository
	ctx  context.Context
}

func TestUserRepoSuite(t *testing.T) {
	suite.Run(t, new(UserRepoSuite))
}

func (s *UserRepoSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(pgInfra.RunMigrations(s.pg.URL, "../../assets/migrations", nil))
	s.repo = NewUserRepository(s.pg.Pool, 3*time.Second, nil)
	s.ctx = context.Background()
}

func (s *UserRepoSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func newUser(nationalID string) *domain.User {
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	return &domain.User{
		NationalID:   nationalID,
		Name:         "A",
		PasswordHash: "$2a$04$hash",
		DateOfBirth:  &dob,
		Address: domain.Address{
			Street:       "Rua A",
			Number:       "10",
			Complement:   "apto 2",
			Neighborhood: "Centro",
			City:         "Recife",
			State:        "PE",
			PostalCode:   "50000-000",
		},
		CreatedBy: domain.SystemActor,
	}
}

func (s *UserRepoSuite) TestCreateAndFind() {
	created, err := s.repo.Create(s.ctx, newUser("111"))
	s.Require().NoError(err)
	s.Equal(int64(1), created.ID)
	s.Equal(domain.UserStatusActive, created.Status)
	s.Equal("apto 2", created.Address.Complement)
	s.Nil(created.UpdatedAt)

	byID, err := s.repo.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.NationalID, byID.NationalID)
	s.Equal("$2a$04$hash", byID.PasswordHash)
	s.Require().NotNil(byID.DateOfBirth)
	s.Equal("1990-05-17", byID.DateOfBirth.Format("2006-01-02"))

	byNational, err := s.repo.FindByNationalID(s.ctx, "111")
	s.Require().NoError(err)
	s.Equal(created.ID, byNational.ID)
}

func (s *UserRepoSuite) TestDuplicateNationalID() {
	_, err := s.repo.Create(s.ctx, newUser("111"))
	s.Require().NoError(err)

	_, err = s.repo.Create(s.ctx, newUser("111"))
	s.ErrorIs(err, domain.ErrDuplicateNationalID)
}

func (s *UserRepoSuite) TestConcurrentCreateHasOneWinner() {
	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.repo.Create(s.ctx, newUser("222"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, domain.ErrDuplicateNationalID)
	}
	s.Equal(1, wins)
}

func (s *UserRepoSuite) TestUpdateMergesPatch() {
	created, err := s.repo.Create(s.ctx, newUser("111"))
	s.Require().NoError(err)

	name := "B"
	city := "Olinda"
	updated, err := s.repo.Update(s.ctx, created.ID, domain.UserPatch{
		Name:    &name,
		Address: &domain.AddressPatch{City: &city},
	}, "7")
	s.Require().NoError(err)
	s.Equal("B", updated.Name)
	s.Equal("Olinda", updated.Address.City)
	s.Equal("Rua A", updated.Address.Street)
	s.Require().NotNil(updated.UpdatedBy)
	s.Equal("7", *updated.UpdatedBy)
	s.NotNil(updated.UpdatedAt)

	_, err = s.repo.Update(s.ctx, 999, domain.UserPatch{Name: &name}, "7")
	s.ErrorIs(err, domain.ErrUserNotFound)
}

func (s *UserRepoSuite) TestSoftDelete() {
	created, err := s.repo.Create(s.ctx, newUser("111"))
	s.Require().NoError(err)

	removed, err := s.repo.SoftDelete(s.ctx, created.ID, "7")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.repo.SoftDelete(s.ctx, created.ID, "7")
	s.Require().NoError(err)
	s.False(removed)

	_, err = s.repo.FindByID(s.ctx, created.ID)
	s.ErrorIs(err, domain.ErrUserNotFound)
	_, err = s.repo.FindByNationalID(s.ctx, "111")
	s.ErrorIs(err, domain.ErrUserNotFound)

	all, err := s.repo.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)

	name := "B"
	_, err = s.repo.Update(s.ctx, created.ID, domain.UserPatch{Name: &name}, "7")
	s.ErrorIs(err, domain.ErrUserNotFound)

	again, err := s.repo.Create(s.ctx, newUser("111"))
	s.Require().NoError(err)
	s.NotEqual(created.ID, again.ID)
}

func (s *UserRepoSuite) TestFindAllOrdersByID() {
	for _, id := range []string{"111", "222", "333"} {
		_, err := s.repo.Create(s.ctx, newUser(id))
		s.Require().NoError(err)
	}

	all, err := s.repo.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	for i := 1; i < len(all); i++ {
		s.Less(all[i-1].ID, all[i].ID)
	}
}

func (s *UserRepoSuite) TestStoreUnavailableIsPersistenceError() {
	pg := containers.NewPostgresContainer(s.T())
	repo := NewUserRepository(pg.Pool, time.Second, nil)
	pg.Pool.Close()

	_, err := repo.FindByID(s.ctx, 1)
	s.True(domain.IsDomainError(err, domain.ErrCodePersistence))
}
