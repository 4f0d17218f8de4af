package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
)

// -- Fake Repository --

type fakeRepo struct {
	records   []Record
	completed []Record
	created   []CreateInput
	updated   map[string]UpdateInput
	allocated map[string]string
	err       error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:   sampleRecords(),
		completed: sampleRecords(),
		updated:   make(map[string]UpdateInput),
		allocated: make(map[string]string),
	}
}

func (f *fakeRepo) List(context.Context) ([]Record, error) {
	return f.records, f.err
}

func (f *fakeRepo) ListCompleted(context.Context) ([]Record, error) {
	return f.completed, f.err
}

func (f *fakeRepo) Get(_ context.Context, id string) (*Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.records {
		if string(r.ID) == id {
			r := r
			return &r, nil
		}
	}
	return nil, &backend.Error{StatusCode: 404, Message: "Not Found"}
}

func (f *fakeRepo) Create(_ context.Context, in CreateInput) (*Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &Record{ID: "99", Patient: in.Patient, ExamList: in.ExamList}, nil
}

func (f *fakeRepo) Update(_ context.Context, id string, in UpdateInput) (*Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updated[id] = in
	return &Record{ID: backend.ID(id)}, nil
}

func (f *fakeRepo) Allocate(_ context.Context, id, chiefID string, in AllocateInput) (*Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.allocated[id] = chiefID + "/" + string(in.TechnicianID)
	return &Record{ID: backend.ID(id), AllocatedChiefID: backend.ID(chiefID)}, nil
}

func validInput() CreateInput {
	return CreateInput{
		Patient:  Patient{Name: " Ana Domingos ", Gender: "F", BirthDate: "1990-02-14"},
		ExamList: []Exam{{Date: "2024-07-01", Time: "08:00", ExamType: "Glicemia", Price: 2000}},
	}
}

func TestService_ListFilters(t *testing.T) {
	svc := NewService(newFakeRepo())
	got, err := svc.List(context.Background(), FilterSpec{Gender: "F"}, auth.RoleReceptionist)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(got))
}

func TestService_ListCompletedDefaultsToCompleted(t *testing.T) {
	svc := NewService(newFakeRepo())
	got, err := svc.ListCompleted(context.Background(), FilterSpec{}, auth.RoleLabChief)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestService_ListPropagatesError(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("backend down")
	svc := NewService(repo)

	_, err := svc.List(context.Background(), FilterSpec{}, auth.RoleLabChief)
	assert.EqualError(t, err, "backend down")
	_, err = svc.Summary(context.Background())
	assert.Error(t, err)
}

func TestService_Create(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	rec, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, backend.ID("99"), rec.ID)

	require.Len(t, repo.created, 1)
	in := repo.created[0]
	assert.Equal(t, "Ana Domingos", in.Patient.Name)
	assert.Equal(t, ExamPending, in.ExamList[0].ExamStatus)
	assert.Equal(t, PaymentPending, in.ExamList[0].PaymentStatus)
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing name", func(in *CreateInput) { in.Patient.Name = "  " }},
		{"bad birth date", func(in *CreateInput) { in.Patient.BirthDate = "14/02/1990" }},
		{"no exams", func(in *CreateInput) { in.ExamList = nil }},
		{"exam without date", func(in *CreateInput) { in.ExamList[0].Date = "" }},
		{"exam without type", func(in *CreateInput) { in.ExamList[0].ExamType = " " }},
		{"negative price", func(in *CreateInput) { in.ExamList[0].Price = -1 }},
		{"unknown status", func(in *CreateInput) { in.ExamList[0].ExamStatus = "FEITO" }},
		{"unknown payment", func(in *CreateInput) { in.ExamList[0].PaymentStatus = "FIADO" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc := NewService(repo)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Empty(t, repo.created)
		})
	}
}

func TestService_Update(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), "1", UpdateInput{ExamList: []ExamChange{{ID: "10", ExamStatus: ExamInProgress}}})
	require.NoError(t, err)
	assert.Contains(t, repo.updated, "1")

	_, err = svc.Update(context.Background(), "1", UpdateInput{})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Update(context.Background(), "1", UpdateInput{ExamList: []ExamChange{{ExamStatus: ExamInProgress}}})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Update(context.Background(), "1", UpdateInput{ExamList: []ExamChange{{ID: "10", Date: "amanhã"}}})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Update(context.Background(), "1", UpdateInput{ExamList: []ExamChange{{ID: "10", PaymentStatus: "x"}}})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestService_Allocate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	rec, err := svc.Allocate(context.Background(), "2", "7", AllocateInput{TechnicianID: "12"})
	require.NoError(t, err)
	assert.True(t, rec.Allocated())
	assert.Equal(t, "7/12", repo.allocated["2"])

	_, err = svc.Allocate(context.Background(), "2", "", AllocateInput{TechnicianID: "12"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Allocate(context.Background(), "2", "7", AllocateInput{})
	assert.ErrorIs(t, err, ErrInvalid)
}
