package ports

import (
	"context"

	"github.com/cbs/consultation-web/internal/core/domain"
)

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone,omitempty"`
}

// ProfileUpdate holds the fields a user may change; nil means untouched.
type ProfileUpdate struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	CurrentPassword *string `json:"currentPassword,omitempty"`
	NewPassword     *string `json:"newPassword,omitempty"`
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil &&
		p.CurrentPassword == nil && p.NewPassword == nil
}

// AuthService translates backend auth responses into the Session model of
// one browser context.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// GetCurrentUser returns nil when not logged in; it never fails.
	GetCurrentUser(ctx context.Context) *domain.User
	UpdateProfile(ctx context.Context, in ProfileUpdate) (*domain.User, error)
	Logout(ctx context.Context)
}

// TokenVerifier resolves the role behind a credential for the edge check.
type TokenVerifier interface {
	VerifyRole(ctx context.Context, token string) (string, error)
}
