package team

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
)

// ErrInvalid marks technician input rejected before reaching the backend.
var ErrInvalid = errors.New("invalid technician input")

type validationError string

func (e validationError) Error() string        { return string(e) }
func (e validationError) Is(target error) bool { return target == ErrInvalid }
func (e validationError) HTTPStatus() int      { return http.StatusBadRequest }
func (e validationError) UserMessage() string  { return string(e) }

// phonePattern accepts an optional + and 9 to 15 digits once spaces and
// dashes are removed.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

func normalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Technician, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, in Input) (*Technician, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, validationError("o nome é obrigatório")
	}
	if in.Email == "" {
		return nil, validationError("o e-mail é obrigatório")
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Technician, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("id obrigatório")
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	if in == (Input{}) {
		return nil, validationError("nenhuma alteração indicada")
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError("id obrigatório")
	}
	return s.repo.Delete(ctx, id)
}

// normalize trims the fields and validates the ones present.
func normalize(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = normalizePhone(in.Phone)

	if in.Email != "" {
		addr, err := mail.ParseAddress(in.Email)
		if err != nil || addr.Address != in.Email {
			return Input{}, validationError("e-mail inválido")
		}
	}
	if in.Phone != "" && !phonePattern.MatchString(in.Phone) {
		return Input{}, validationError("número de telefone inválido")
	}
	if in.Password != "" && len(in.Password) < 8 {
		return Input{}, validationError("a senha deve ter pelo menos 8 caracteres")
	}
	return in, nil
}
