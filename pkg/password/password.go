package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/accounts/domain"
)

// Hasher hashes and verifies credentials with bcrypt. The cost is the work
// factor; hashing is CPU bound and runs on the calling goroutine.
type Hasher struct {
	cost int
	// dummy is compared against when the account does not exist, so a failed
	// lookup costs the same as a wrong password.
	dummy []byte
}

func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("could not prepare dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", domain.Invalid("password is required", nil)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.Invalid("password is too long", err)
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash. An empty hash is checked against
// the dummy hash and always fails.
func (h *Hasher) Verify(plain, hash string) bool {
	target := []byte(hash)
	if hash == "" {
		target = h.dummy
	}
	err := bcrypt.CompareHashAndPassword(target, []byte(plain))
	return err == nil && hash != ""
}
