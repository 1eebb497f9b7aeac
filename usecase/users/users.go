package users

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/pkg/validate"
	"github.com/fastygo/accounts/repository"
)

const (
	// CollectionKey holds the full list of live users as a single value.
	CollectionKey = "records:all"
	// KeyNamespace prefixes every key this service writes.
	KeyNamespace    = "record"
	recordKeyPrefix = KeyNamespace + ":"
)

// RecordKey is the cache key of a single user.
func RecordKey(id int64) string {
	return recordKeyPrefix + strconv.FormatInt(id, 10)
}

// writeStripes bounds the generation table. Keys sharing a stripe only cost
// each other a skipped refill.
const writeStripes = 64

// generations counts store writes per cache key. A read that saw the count
// change while it was at the store must not write its value back.
type generations struct {
	stripes [writeStripes]atomic.Uint64
}

func (g *generations) of(key string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &g.stripes[h.Sum32()%writeStripes]
}

func (g *generations) load(key string) uint64 {
	return g.of(key).Load()
}

func (g *generations) bump(keys ...string) {
	for _, key := range keys {
		g.of(key).Add(1)
	}
}

// refiller is implemented by caches that record degraded write-path sets but
// not read-path refills, which leave nothing stale behind when they fail.
type refiller interface {
	Refill(ctx context.Context, key string, value []byte, ttl time.Duration) domain.CacheStatus
}

// PasswordHasher turns a plaintext credential into a storable hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Service is the cache-aside orchestrator in front of the user store. Reads
// probe the cache and populate it from the store on a miss; writes mutate the
// store first and only then refresh or invalidate cache entries. The cache is
// never consulted for decisions that need the truth (duplicate checks).
type Service struct {
	users  repository.UserRepository
	cache  repository.Cache
	hasher PasswordHasher
	ttl    time.Duration
	logger *zap.Logger
	flight singleflight.Group
	writes generations
}

func New(users repository.UserRepository, cache repository.Cache, hasher PasswordHasher, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = repository.DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		cache:  cache,
		hasher: hasher,
		ttl:    ttl,
		logger: logger,
	}
}

// Create registers a user. The duplicate check reads the store, the store's
// uniqueness constraint settles races, and only the collection entry is
// invalidated: the new record is cached lazily by its first read.
func (s *Service) Create(ctx context.Context, input domain.NewUser, actor string) (*domain.User, error) {
	input.Normalize()
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByNationalID(ctx, input.NationalID)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrDuplicateNationalID
	case err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeInvalid) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "could not hash password", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		NationalID:   input.NationalID,
		Name:         input.Name,
		PasswordHash: hash,
		DateOfBirth:  input.DateOfBirth,
		Address:      input.Address,
		Status:       domain.UserStatusActive,
		CreatedBy:    actorOrSystem(actor),
	})
	if err != nil {
		return nil, err
	}

	s.writes.bump(CollectionKey)
	s.invalidate(ctx, CollectionKey)
	return created.WithoutCredential(), nil
}

// Get returns a live user, from the cache when possible. Store misses are not cached.
func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, domain.ErrUserNotFound
	}
	key := RecordKey(id)

	var cached domain.User
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		seen := s.writes.load(key)
		user, err := s.users.FindByID(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		safe := user.WithoutCredential()
		s.refill(ctx, key, safe, seen)
		return safe, nil
	})
	if err != nil {
		return nil, err
	}
	user := *v.(*domain.User)
	return &user, nil
}

// List returns every live user. The whole list is cached under one key.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	var cached []domain.User
	if s.lookup(ctx, CollectionKey, &cached) {
		return cached, nil
	}

	v, err, _ := s.flight.Do(CollectionKey, func() (interface{}, error) {
		seen := s.writes.load(CollectionKey)
		users, err := s.users.FindAll(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		safe := make([]domain.User, 0, len(users))
		for i := range users {
			safe = append(safe, *users[i].WithoutCredential())
		}
		s.refill(ctx, CollectionKey, safe, seen)
		return safe, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]domain.User)
	return append([]domain.User(nil), shared...), nil
}

// Update writes through to the store, then sets the record entry to the
// fresh value and invalidates the collection.
func (s *Service) Update(ctx context.Context, id int64, patch domain.UserPatch, actor string) (*domain.User, error) {
	if id <= 0 {
		return nil, domain.ErrUserNotFound
	}
	if patch.IsEmpty() {
		return nil, domain.ErrEmptyPatch
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}

	updated, err := s.users.Update(ctx, id, patch, actorOrSystem(actor))
	if err != nil {
		return nil, err
	}

	safe := updated.WithoutCredential()
	s.writes.bump(RecordKey(id), CollectionKey)
	s.populate(ctx, RecordKey(id), safe)
	s.invalidate(ctx, CollectionKey)
	return safe, nil
}

// Delete soft-deletes a user. It reports false when the user does not exist
// or was already removed, in which case the cache is left alone.
func (s *Service) Delete(ctx context.Context, id int64, actor string) (bool, error) {
	if id <= 0 {
		return false, nil
	}

	removed, err := s.users.SoftDelete(ctx, id, actorOrSystem(actor))
	if err != nil || !removed {
		return false, err
	}

	s.writes.bump(RecordKey(id), CollectionKey)
	s.invalidate(ctx, RecordKey(id))
	s.invalidate(ctx, CollectionKey)
	return true, nil
}

// PurgeCache drops every entry this service has written.
func (s *Service) PurgeCache(ctx context.Context) domain.CacheStatus {
	status := s.cache.InvalidatePrefix(context.WithoutCancel(ctx), KeyNamespace)
	if status == domain.CacheDegraded {
		s.logger.Warn("cache purge skipped, cache degraded")
	}
	return status
}

// lookup decodes a cached value into dst. Degraded and undecodable entries
// count as misses.
func (s *Service) lookup(ctx context.Context, key string, dst interface{}) bool {
	res := s.cache.Get(ctx, key)
	if res.Status == domain.CacheDegraded {
		s.logger.Debug("cache degraded, reading store", zap.String("key", key))
		return false
	}
	if !res.Hit() {
		return false
	}
	if err := json.Unmarshal(res.Value, dst); err != nil {
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// refill caches a value read from the store, unless a write to the same key
// happened since the read began. A write that lands between the check and the
// set is caught afterwards and the entry is dropped again.
func (s *Service) refill(ctx context.Context, key string, value interface{}, seen uint64) {
	if s.writes.load(key) != seen {
		s.logger.Debug("skipping refill, key written during read", zap.String("key", key))
		return
	}
	payload, ok := s.encode(key, value)
	if !ok {
		return
	}

	ctx = context.WithoutCancel(ctx)
	var status domain.CacheStatus
	if r, ok := s.cache.(refiller); ok {
		status = r.Refill(ctx, key, payload, s.ttl)
	} else {
		status = s.cache.Set(ctx, key, payload, s.ttl)
	}
	if status != domain.CacheOK {
		s.logger.Debug("cache refill not applied", zap.String("key", key), zap.Stringer("status", status))
		return
	}
	if s.writes.load(key) != seen {
		s.invalidate(ctx, key)
	}
}

// populate and invalidate run after the store has answered, detached from the
// caller's cancellation so a dropped request cannot skip them.
func (s *Service) populate(ctx context.Context, key string, value interface{}) {
	payload, ok := s.encode(key, value)
	if !ok {
		return
	}
	if status := s.cache.Set(context.WithoutCancel(ctx), key, payload, s.ttl); status != domain.CacheOK {
		s.logger.Debug("cache set not applied", zap.String("key", key), zap.Stringer("status", status))
	}
}

func (s *Service) encode(key string, value interface{}) ([]byte, bool) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("could not encode cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return payload, true
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if status := s.cache.Invalidate(context.WithoutCancel(ctx), key); status != domain.CacheOK {
		s.logger.Debug("cache invalidation not applied", zap.String("key", key), zap.Stringer("status", status))
	}
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return domain.SystemActor
	}
	return actor
}
