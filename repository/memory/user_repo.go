package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/repository"
)

// UserRepository keeps user records in process memory. It enforces the same
// live-national-id uniqueness and soft-delete rules as the Postgres store.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*domain.User
	now    func() time.Time
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[int64]*domain.User),
		now:   time.Now,
	}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.liveByNationalID(user.NationalID) != nil {
		return nil, domain.ErrDuplicateNationalID
	}

	r.nextID++
	stored := *user
	stored.ID = r.nextID
	stored.Status = domain.UserStatusActive
	stored.CreatedAt = r.now().UTC()
	if stored.CreatedBy == "" {
		stored.CreatedBy = domain.SystemActor
	}
	stored.UpdatedAt, stored.UpdatedBy = nil, nil
	stored.DeletedAt, stored.DeletedBy = nil, nil
	r.users[stored.ID] = &stored

	return clone(&stored), nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok || user.IsRemoved() {
		return nil, domain.ErrUserNotFound
	}
	return clone(user), nil
}

func (r *UserRepository) FindByNationalID(_ context.Context, nationalID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user := r.liveByNationalID(nationalID)
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return clone(user), nil
}

func (r *UserRepository) FindAll(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		if user.IsRemoved() {
			continue
		}
		users = append(users, *clone(user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *UserRepository) Update(_ context.Context, id int64, patch domain.UserPatch, actor string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.IsRemoved() {
		return nil, domain.ErrUserNotFound
	}

	patch.Apply(user)
	now := r.now().UTC()
	by := actorOrSystem(actor)
	user.UpdatedAt = &now
	user.UpdatedBy = &by

	return clone(user), nil
}

func (r *UserRepository) SoftDelete(_ context.Context, id int64, actor string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.IsRemoved() {
		return false, nil
	}

	now := r.now().UTC()
	by := actorOrSystem(actor)
	user.Status = domain.UserStatusRemoved
	user.DeletedAt = &now
	user.DeletedBy = &by
	return true, nil
}

func (r *UserRepository) liveByNationalID(nationalID string) *domain.User {
	for _, user := range r.users {
		if user.NationalID == nationalID && !user.IsRemoved() {
			return user
		}
	}
	return nil
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return domain.SystemActor
	}
	return actor
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.DateOfBirth != nil {
		dob := *u.DateOfBirth
		c.DateOfBirth = &dob
	}
	c.UpdatedAt = cloneTime(u.UpdatedAt)
	c.DeletedAt = cloneTime(u.DeletedAt)
	c.UpdatedBy = cloneString(u.UpdatedBy)
	c.DeletedBy = cloneString(u.DeletedBy)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
