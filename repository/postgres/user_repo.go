package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/repository"
)

const userColumns = `
	id, national_id, name, password_hash, date_of_birth,
	address_street, address_number, address_complement, address_neighborhood,
	address_city, address_state, address_postal_code,
	status, created_at, created_by, updated_at, updated_by, deleted_at, deleted_by
`

type userRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *zap.Logger
}

// NewUserRepository instantiates a Postgres-backed user repository. Each
// statement runs under its own timeout, so callers queue on a saturated pool
// for at most that long.
func NewUserRepository(pool *pgxpool.Pool, timeout time.Duration, logger *zap.Logger) repository.UserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userRepository{pool: pool, timeout: timeout, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO users (
		national_id, name, password_hash, date_of_birth,
		address_street, address_number, address_complement, address_neighborhood,
		address_city, address_state, address_postal_code,
		status, created_at, created_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), $13)
	RETURNING ` + userColumns

	createdBy := user.CreatedBy
	if createdBy == "" {
		createdBy = domain.SystemActor
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, query,
		user.NationalID,
		user.Name,
		user.PasswordHash,
		nullTime(user.DateOfBirth),
		user.Address.Street,
		user.Address.Number,
		nullString(user.Address.Complement),
		user.Address.Neighborhood,
		user.Address.City,
		user.Address.State,
		user.Address.PostalCode,
		string(domain.UserStatusActive),
		createdBy,
	)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateNationalID
		}
		return nil, r.fail("create", err)
	}
	return created, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND status <> 'removed'`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, r.fail("find by id", err)
	}
	return user, nil
}

func (r *userRepository) FindByNationalID(ctx context.Context, nationalID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE national_id = $1 AND status <> 'removed'`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, query, nationalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, r.fail("find by national id", err)
	}
	return user, nil
}

func (r *userRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE status <> 'removed' ORDER BY id`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, r.fail("find all", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, r.fail("find all", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("find all", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, id int64, patch domain.UserPatch, actor string) (*domain.User, error) {
	query := `
	UPDATE users
	SET name = COALESCE($2, name),
		date_of_birth = COALESCE($3, date_of_birth),
		address_street = COALESCE($4, address_street),
		address_number = COALESCE($5, address_number),
		address_complement = COALESCE($6, address_complement),
		address_neighborhood = COALESCE($7, address_neighborhood),
		address_city = COALESCE($8, address_city),
		address_state = COALESCE($9, address_state),
		address_postal_code = COALESCE($10, address_postal_code),
		updated_at = NOW(),
		updated_by = $11
	WHERE id = $1 AND status <> 'removed'
	RETURNING ` + userColumns

	addr := patch.Address
	if addr == nil {
		addr = &domain.AddressPatch{}
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, query,
		id,
		patch.Name,
		nullTime(patch.DateOfBirth),
		addr.Street,
		addr.Number,
		addr.Complement,
		addr.Neighborhood,
		addr.City,
		addr.State,
		addr.PostalCode,
		actorOrSystem(actor),
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, r.fail("update", err)
	}
	return user, nil
}

func (r *userRepository) SoftDelete(ctx context.Context, id int64, actor string) (bool, error) {
	const query = `
	UPDATE users
	SET status = 'removed',
		deleted_at = NOW(),
		deleted_by = $2
	WHERE id = $1 AND status <> 'removed'
	`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, id, actorOrSystem(actor))
	if err != nil {
		return false, r.fail("soft delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *userRepository) fail(op string, err error) error {
	r.logger.Error("user store operation failed", zap.String("op", op), zap.Error(err))
	return domain.Persistence(op, err)
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return domain.SystemActor
	}
	return actor
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user       domain.User
		complement *string
		status     string
	)

	if err := row.Scan(
		&user.ID,
		&user.NationalID,
		&user.Name,
		&user.PasswordHash,
		&user.DateOfBirth,
		&user.Address.Street,
		&user.Address.Number,
		&complement,
		&user.Address.Neighborhood,
		&user.Address.City,
		&user.Address.State,
		&user.Address.PostalCode,
		&status,
		&user.CreatedAt,
		&user.CreatedBy,
		&user.UpdatedAt,
		&user.UpdatedBy,
		&user.DeletedAt,
		&user.DeletedBy,
	); err != nil {
		return nil, err
	}

	user.Address.Complement = stringValue(complement)
	user.Status = domain.UserStatus(status)
	return &user, nil
}
