package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akin/akin/internal/platform/auth"
)

// ErrInvalid marks input rejected before reaching the backend.
var ErrInvalid = errors.New("invalid schedule input")

// ValidationError carries the user-facing reason for rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string        { return e.Msg }
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List fetches the caller's schedules and filters them.
func (s *Service) List(ctx context.Context, spec FilterSpec, role auth.Role) ([]Record, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(records, spec, role), nil
}

// ListCompleted fetches completed schedules and filters them with the
// completed-page defaults.
func (s *Service) ListCompleted(ctx context.Context, spec FilterSpec, role auth.Role) ([]Record, error) {
	records, err := s.repo.ListCompleted(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyCompleted(records, spec, role), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id obrigatório")
	}
	return s.repo.Get(ctx, id)
}

// Summary aggregates every schedule visible to the caller.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records), nil
}

// Create validates a new schedule request and submits it. New exams start
// pending, both for the exam and its payment.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Record, error) {
	in.Patient.Name = strings.TrimSpace(in.Patient.Name)
	if in.Patient.Name == "" {
		return nil, invalid("o nome do paciente é obrigatório")
	}
	if in.Patient.BirthDate != "" {
		if _, ok := parseDay(in.Patient.BirthDate); !ok {
			return nil, invalid("data de nascimento inválida")
		}
	}
	if len(in.ExamList) == 0 {
		return nil, invalid("indique pelo menos um exame")
	}

	exams := make([]Exam, len(in.ExamList))
	for i, e := range in.ExamList {
		if _, ok := e.Day(); !ok {
			return nil, invalid("exame %d: data inválida", i+1)
		}
		if strings.TrimSpace(e.ExamType) == "" {
			return nil, invalid("exame %d: tipo de exame obrigatório", i+1)
		}
		if e.Price < 0 {
			return nil, invalid("exame %d: o preço não pode ser negativo", i+1)
		}
		if e.ExamStatus == "" {
			e.ExamStatus = ExamPending
		} else if !ValidExamStatus(e.ExamStatus) {
			return nil, invalid("exame %d: estado inválido %s", i+1, e.ExamStatus)
		}
		if e.PaymentStatus == "" {
			e.PaymentStatus = PaymentPending
		} else if !ValidPaymentStatus(e.PaymentStatus) {
			return nil, invalid("exame %d: estado de pagamento inválido %s", i+1, e.PaymentStatus)
		}
		exams[i] = e
	}
	in.ExamList = exams

	return s.repo.Create(ctx, in)
}

// Update accepts or reschedules exams of a schedule.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id obrigatório")
	}
	if len(in.ExamList) == 0 {
		return nil, invalid("nenhuma alteração indicada")
	}
	for i, ch := range in.ExamList {
		if ch.ID == "" {
			return nil, invalid("alteração %d: id do exame obrigatório", i+1)
		}
		if ch.Date != "" {
			if _, ok := parseDay(ch.Date); !ok {
				return nil, invalid("alteração %d: data inválida", i+1)
			}
		}
		if ch.ExamStatus != "" && !ValidExamStatus(ch.ExamStatus) {
			return nil, invalid("alteração %d: estado inválido %s", i+1, ch.ExamStatus)
		}
		if ch.PaymentStatus != "" && !ValidPaymentStatus(ch.PaymentStatus) {
			return nil, invalid("alteração %d: estado de pagamento inválido %s", i+1, ch.PaymentStatus)
		}
	}
	return s.repo.Update(ctx, id, in)
}

// Allocate records chiefID as the allocating chief and assigns the
// technician.
func (s *Service) Allocate(ctx context.Context, id, chiefID string, in AllocateInput) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id obrigatório")
	}
	if chiefID == "" {
		return nil, invalid("chefe não identificado")
	}
	if in.TechnicianID == "" {
		return nil, invalid("indique o técnico a alocar")
	}
	return s.repo.Allocate(ctx, id, chiefID, in)
}
