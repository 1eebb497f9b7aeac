package transport

import (
	"time"

	"github.com/fastygo/accounts/domain"
)

// UserResponse is the public view of a user. It has no credential field.
type UserResponse struct {
	ID          int64          `json:"id"`
	NationalID  string         `json:"national_id"`
	Name        string         `json:"name"`
	DateOfBirth string         `json:"date_of_birth,omitempty"`
	Address     domain.Address `json:"address"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CreatedBy   string         `json:"created_by"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
	UpdatedBy   *string        `json:"updated_by,omitempty"`
}

func NewUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:         u.ID,
		NationalID: u.NationalID,
		Name:       u.Name,
		Address:    u.Address,
		Status:     string(u.Status),
		CreatedAt:  u.CreatedAt,
		CreatedBy:  u.CreatedBy,
		UpdatedAt:  u.UpdatedAt,
		UpdatedBy:  u.UpdatedBy,
	}
	if u.DateOfBirth != nil {
		resp.DateOfBirth = u.DateOfBirth.Format(DateLayout)
	}
	return resp
}

func NewUserList(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token     string             `json:"token"`
	ExpiresIn int64              `json:"expires_in"`
	User      domain.UserSummary `json:"user"`
}
