package patient

import (
	"context"

	"github.com/akin/akin/internal/domain/scheduling"
)

type Service struct {
	patients  Repository
	schedules scheduling.Repository
}

func NewService(patients Repository, schedules scheduling.Repository) *Service {
	return &Service{patients: patients, schedules: schedules}
}

// Search returns the patients whose name, id number or phone contains
// query, in backend order.
func (s *Service) Search(ctx context.Context, query string) ([]Patient, error) {
	all, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Patient, 0, len(all))
	for _, p := range all {
		if p.MatchesSearch(query) {
			out = append(out, p)
		}
	}
	return out, nil
}

// History loads the patient and the schedules booked for them.
func (s *Service) History(ctx context.Context, id string) (*History, error) {
	p, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.schedules.List(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]scheduling.Record, 0)
	for _, r := range records {
		if p.Owns(r) {
			mine = append(mine, r)
		}
	}
	return &History{Patient: *p, Schedules: mine, Summary: scheduling.Summarize(mine)}, nil
}
