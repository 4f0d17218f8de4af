package exam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akin/akin/internal/domain/scheduling"
	"github.com/akin/akin/internal/platform/auth"
)

var (
	ErrInvalid   = errors.New("invalid exam input")
	ErrForbidden = errors.New("exam change not allowed for role")
	ErrConflict  = errors.New("exam status transition not allowed")
)

// Error carries the user-facing reason a change was refused.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string        { return e.Msg }
func (e *Error) Is(target error) bool { return target == e.Kind }
func (e *Error) UserMessage() string  { return e.Msg }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func refuse(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ListQuery selects exams for a work list.
type ListQuery struct {
	Status string
	// Mine restricts the list to exams allocated to the caller.
	Mine bool
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the exams matching q. Technicians only ever see exams
// allocated to them.
func (s *Service) List(ctx context.Context, q ListQuery) ([]Exam, error) {
	status := strings.ToUpper(strings.TrimSpace(q.Status))
	if status != "" && status != scheduling.FilterAll && !scheduling.ValidExamStatus(status) {
		return nil, refuse(ErrInvalid, "estado de exame inválido: %s", status)
	}

	exams, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	mine := q.Mine || auth.RoleFromContext(ctx) == auth.RoleTechnician
	uid := auth.UserIDFromContext(ctx)

	out := make([]Exam, 0, len(exams))
	for _, e := range exams {
		if status != "" && status != scheduling.FilterAll && e.ExamStatus != status {
			continue
		}
		if mine && string(e.AllocatedTechnicianID) != uid {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Exam, error) {
	if strings.TrimSpace(id) == "" {
		return nil, refuse(ErrInvalid, "id obrigatório")
	}
	return s.repo.Get(ctx, id)
}

// Update validates in against the exam's current state and the caller's
// role before sending it. Technicians move exams through the lab workflow;
// payment and slot changes belong to the chief and reception.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Exam, error) {
	in.ExamStatus = strings.ToUpper(strings.TrimSpace(in.ExamStatus))
	in.PaymentStatus = strings.ToUpper(strings.TrimSpace(in.PaymentStatus))

	if in.empty() {
		return nil, refuse(ErrInvalid, "nenhuma alteração indicada")
	}
	if in.ExamStatus != "" && !scheduling.ValidExamStatus(in.ExamStatus) {
		return nil, refuse(ErrInvalid, "estado de exame inválido: %s", in.ExamStatus)
	}
	if in.PaymentStatus != "" && !scheduling.ValidPaymentStatus(in.PaymentStatus) {
		return nil, refuse(ErrInvalid, "estado de pagamento inválido: %s", in.PaymentStatus)
	}
	if in.Date != "" {
		if _, err := time.Parse(scheduling.DateLayout, in.Date); err != nil {
			return nil, refuse(ErrInvalid, "data inválida: use AAAA-MM-DD")
		}
	}

	if auth.RoleFromContext(ctx) == auth.RoleTechnician && (in.PaymentStatus != "" || in.Date != "" || in.Time != "") {
		return nil, refuse(ErrForbidden, "o técnico só pode alterar o estado do exame")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ExamStatus != "" && !CanTransition(current.ExamStatus, in.ExamStatus) {
		return nil, refuse(ErrConflict, "não é possível passar o exame de %s para %s", current.ExamStatus, in.ExamStatus)
	}
	return s.repo.Update(ctx, id, in)
}
