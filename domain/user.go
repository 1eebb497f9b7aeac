package domain

import (
	"strings"
	"time"
)

// UserStatus is the lifecycle state of a user record. Removed is terminal.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusRemoved UserStatus = "removed"
)

// SystemActor is recorded in audit columns when no authenticated user performed the change.
const SystemActor = "system"

// Address is the structured postal address kept on every user.
type Address struct {
	Street       string `json:"street" validate:"required,max=255"`
	Number       string `json:"number" validate:"required,max=32"`
	Complement   string `json:"complement,omitempty" validate:"max=255"`
	Neighborhood string `json:"neighborhood" validate:"required,max=255"`
	City         string `json:"city" validate:"required,max=255"`
	State        string `json:"state" validate:"required,max=64"`
	PostalCode   string `json:"postal_code" validate:"required,max=16"`
}

// User is the authoritative account record. NationalID is the natural key.
type User struct {
	ID           int64      `json:"id"`
	NationalID   string     `json:"national_id"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"password_hash,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Address      Address    `json:"address"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CreatedBy    string     `json:"created_by"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	UpdatedBy    *string    `json:"updated_by,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	DeletedBy    *string    `json:"deleted_by,omitempty"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

func (u *User) IsRemoved() bool {
	return u != nil && u.Status == UserStatusRemoved
}

// WithoutCredential returns a copy with the password hash cleared.
func (u *User) WithoutCredential() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// NewUser carries the registration payload before the credential is hashed.
type NewUser struct {
	NationalID  string     `json:"national_id" validate:"required,max=32"`
	Name        string     `json:"name" validate:"required,max=255"`
	Password    string     `json:"password" validate:"required,max=72"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Address     Address    `json:"address"`
}

// Normalize trims surrounding whitespace from every text field.
func (n *NewUser) Normalize() {
	n.NationalID = strings.TrimSpace(n.NationalID)
	n.Name = strings.TrimSpace(n.Name)
	n.Address = n.Address.trimmed()
}

func (a Address) trimmed() Address {
	return Address{
		Street:       strings.TrimSpace(a.Street),
		Number:       strings.TrimSpace(a.Number),
		Complement:   strings.TrimSpace(a.Complement),
		Neighborhood: strings.TrimSpace(a.Neighborhood),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		PostalCode:   strings.TrimSpace(a.PostalCode),
	}
}

// AddressPatch replaces only the non-nil address fields.
type AddressPatch struct {
	Street       *string `json:"street,omitempty" validate:"omitempty,notblank,max=255"`
	Number       *string `json:"number,omitempty" validate:"omitempty,notblank,max=32"`
	Complement   *string `json:"complement,omitempty" validate:"omitempty,max=255"`
	Neighborhood *string `json:"neighborhood,omitempty" validate:"omitempty,notblank,max=255"`
	City         *string `json:"city,omitempty" validate:"omitempty,notblank,max=255"`
	State        *string `json:"state,omitempty" validate:"omitempty,notblank,max=64"`
	PostalCode   *string `json:"postal_code,omitempty" validate:"omitempty,notblank,max=16"`
}

func (p *AddressPatch) IsEmpty() bool {
	return p == nil || (p.Street == nil && p.Number == nil && p.Complement == nil &&
		p.Neighborhood == nil && p.City == nil && p.State == nil && p.PostalCode == nil)
}

// UserPatch is a partial update. National ID and credential are not patchable.
type UserPatch struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	DateOfBirth *time.Time    `json:"date_of_birth,omitempty"`
	Address     *AddressPatch `json:"address,omitempty"`
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.DateOfBirth == nil && p.Address.IsEmpty()
}

// Apply merges the patch into u. Used by stores that merge in memory.
func (p UserPatch) Apply(u *User) {
	if u == nil {
		return
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		u.DateOfBirth = &dob
	}
	if a := p.Address; a != nil {
		setIf(&u.Address.Street, a.Street)
		setIf(&u.Address.Number, a.Number)
		setIf(&u.Address.Complement, a.Complement)
		setIf(&u.Address.Neighborhood, a.Neighborhood)
		setIf(&u.Address.City, a.City)
		setIf(&u.Address.State, a.State)
		setIf(&u.Address.PostalCode, a.PostalCode)
	}
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// UserSummary is the short identity returned alongside a login token.
type UserSummary struct {
	ID         int64  `json:"id"`
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, NationalID: u.NationalID, Name: u.Name}
}
