package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
	"github.com/akin/akin/internal/platform/session"
)

const minPasswordLength = 8

// ErrInvalid marks input rejected before reaching the backend.
var ErrInvalid = errors.New("invalid identity input")

type validationError string

func (e validationError) Error() string        { return string(e) }
func (e validationError) Is(target error) bool { return target == ErrInvalid }
func (e validationError) HTTPStatus() int      { return http.StatusBadRequest }
func (e validationError) UserMessage() string  { return string(e) }

// Backend is the part of the lab backend client the identity flows use.
// *backend.Client satisfies it.
type Backend interface {
	SignIn(ctx context.Context, in backend.SignInInput) (session.Tokens, error)
	SignUp(ctx context.Context, creds backend.Credentials, in backend.SignUpInput) error
	Me(ctx context.Context, creds backend.Credentials) (backend.Profile, error)
	Logout(ctx context.Context, creds backend.Credentials) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type Service struct {
	backend  Backend
	sessions *session.Manager
	registry *auth.Registry
	logger   zerolog.Logger
}

func NewService(b Backend, sessions *session.Manager, registry *auth.Registry, logger zerolog.Logger) *Service {
	return &Service{backend: b, sessions: sessions, registry: registry, logger: logger}
}

// SignIn exchanges credentials for tokens, loads the profile with them and
// starts the user's session. The profile lookup is what assigns the role.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*session.Store, SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, SessionResponse{}, validationError("email e palavra-passe são obrigatórios")
	}

	tokens, err := s.backend.SignIn(ctx, backend.SignInInput{Email: email, Password: in.Password})
	if err != nil {
		return nil, SessionResponse{}, err
	}
	profile, err := s.backend.Me(ctx, backend.StaticToken(tokens.AccessToken))
	if err != nil {
		return nil, SessionResponse{}, fmt.Errorf("load profile: %w", err)
	}
	user := profile.User()
	if user.ID == "" {
		return nil, SessionResponse{}, fmt.Errorf("load profile: backend returned no user id")
	}

	store, err := s.sessions.Begin(ctx, tokens, user)
	if err != nil {
		return nil, SessionResponse{}, err
	}
	if !user.Role.Valid() {
		s.logger.Warn().Str("user_id", user.ID).Str("role", profile.Role).Msg("signed in with unknown role")
	}
	return store, s.response(profile, user), nil
}

// SignUp creates a staff account signed by the chief's session.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return validationError("o nome é obrigatório")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return err
	}
	if len(in.Password) < minPasswordLength {
		return validationError(fmt.Sprintf("a palavra-passe deve ter pelo menos %d caracteres", minPasswordLength))
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return validationError("perfil inválido")
	}
	return s.backend.SignUp(ctx, backend.CredentialsFromContext(ctx), backend.SignUpInput{
		Name:     name,
		Email:    email,
		Password: in.Password,
		Phone:    strings.TrimSpace(in.Phone),
		Role:     string(role),
	})
}

// Me refreshes the session's profile from the backend.
func (s *Service) Me(ctx context.Context, store *session.Store) (SessionResponse, error) {
	profile, err := s.backend.Me(ctx, store)
	if err != nil {
		return SessionResponse{}, err
	}
	user := profile.User()
	if err := store.SetUser(ctx, user); err != nil {
		return SessionResponse{}, err
	}
	return s.response(profile, user), nil
}

// Logout revokes the refresh token and ends the local session. A backend
// failure is logged and does not keep the user signed in.
func (s *Service) Logout(ctx context.Context, store *session.Store) error {
	if store == nil {
		return nil
	}
	uid := store.State().UserID()
	if err := s.backend.Logout(ctx, store); err != nil {
		s.logger.Warn().Err(err).Str("user_id", uid).Msg("backend logout failed")
	}
	if uid == "" {
		return nil
	}
	return s.sessions.End(ctx, uid)
}

func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return err
	}
	return s.backend.ForgotPassword(ctx, email)
}

func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if strings.TrimSpace(in.Token) == "" {
		return validationError("o código de recuperação é obrigatório")
	}
	if len(in.Password) < minPasswordLength {
		return validationError(fmt.Sprintf("a palavra-passe deve ter pelo menos %d caracteres", minPasswordLength))
	}
	return s.backend.ResetPassword(ctx, strings.TrimSpace(in.Token), in.Password)
}

func (s *Service) response(p backend.Profile, u session.User) SessionResponse {
	return SessionResponse{User: userFrom(p, u), RedirectTo: s.registry.DefaultRoute(u.Role)}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("email inválido")
	}
	return email, nil
}
