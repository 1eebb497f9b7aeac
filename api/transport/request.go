package transport

import (
	"strings"
	"time"

	"github.com/fastygo/accounts/domain"
)

// DateLayout is the wire format of date_of_birth.
const DateLayout = "2006-01-02"

type AddressRequest struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

type RegisterRequest struct {
	NationalID  string         `json:"national_id"`
	Name        string         `json:"name"`
	Password    string         `json:"password"`
	DateOfBirth string         `json:"date_of_birth"`
	Address     AddressRequest `json:"address"`
}

// ToDomain converts the payload, rejecting malformed dates.
func (r RegisterRequest) ToDomain() (domain.NewUser, error) {
	dob, err := parseDate(r.DateOfBirth)
	if err != nil {
		return domain.NewUser{}, err
	}
	return domain.NewUser{
		NationalID:  r.NationalID,
		Name:        r.Name,
		Password:    r.Password,
		DateOfBirth: dob,
		Address: domain.Address{
			Street:       r.Address.Street,
			Number:       r.Address.Number,
			Complement:   r.Address.Complement,
			Neighborhood: r.Address.Neighborhood,
			City:         r.Address.City,
			State:        r.Address.State,
			PostalCode:   r.Address.PostalCode,
		},
	}, nil
}

type LoginRequest struct {
	NationalID string `json:"national_id"`
	Password   string `json:"password"`
}

// UpdateRequest carries only the fields the client wants to change.
type UpdateRequest struct {
	Name        *string              `json:"name"`
	DateOfBirth *string              `json:"date_of_birth"`
	Address     *domain.AddressPatch `json:"address"`
}

func (r UpdateRequest) ToDomain() (domain.UserPatch, error) {
	patch := domain.UserPatch{Address: r.Address}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		patch.Name = &name
	}
	if r.DateOfBirth != nil {
		dob, err := parseDate(*r.DateOfBirth)
		if err != nil {
			return domain.UserPatch{}, err
		}
		patch.DateOfBirth = dob
	}
	return patch, nil
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, domain.Invalid("date_of_birth must use YYYY-MM-DD", err)
	}
	return &t, nil
}
