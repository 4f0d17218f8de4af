package identity

import (
	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
	"github.com/akin/akin/internal/platform/session"
)

// SignInInput is the body of POST /auth/signin.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpInput is the body of POST /auth/signup.
type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

// ForgotPasswordInput is the body of POST /auth/forgot-password.
type ForgotPasswordInput struct {
	Email string `json:"email"`
}

// ResetPasswordInput is the body of PATCH /auth/reset-password.
type ResetPasswordInput struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// User is the profile returned to the dashboard. Tokens never appear here;
// they travel in the httpOnly cookie only.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role,omitempty"`
	RoleLabel string    `json:"roleLabel,omitempty"`
	Phone     string    `json:"phone,omitempty"`
}

// SessionResponse is the body of sign-in and /auth/me.
type SessionResponse struct {
	User User `json:"user"`
	// RedirectTo is the landing page of the user's role.
	RedirectTo string `json:"redirectTo"`
}

func userFrom(p backend.Profile, u session.User) User {
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		RoleLabel: u.Role.Label(),
		Phone:     p.Phone,
	}
}
