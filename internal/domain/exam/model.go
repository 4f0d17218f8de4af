package exam

import (
	"github.com/akin/akin/internal/domain/scheduling"
	"github.com/akin/akin/internal/platform/backend"
)

// Exam is a booked exam as listed by the backend's /exams resource, with the
// schedule and patient it belongs to.
type Exam struct {
	scheduling.Exam
	SchedulingID backend.ID          `json:"schedulingId,omitempty"`
	Patient      *scheduling.Patient `json:"patient,omitempty"`
}

// UpdateInput changes an exam's status, payment or slot. Empty fields are
// left as they are.
type UpdateInput struct {
	ExamStatus    string `json:"examStatus,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
}

func (in UpdateInput) empty() bool {
	return in == UpdateInput{}
}

// transitions lists the exam statuses reachable from each status. Completed
// and cancelled exams are final.
var transitions = map[string][]string{
	scheduling.ExamPending:      {scheduling.ExamInProgress, scheduling.ExamCancelled, scheduling.ExamToReschedule},
	scheduling.ExamInProgress:   {scheduling.ExamCompleted, scheduling.ExamCancelled, scheduling.ExamToReschedule},
	scheduling.ExamToReschedule: {scheduling.ExamPending, scheduling.ExamCancelled},
	scheduling.ExamCompleted:    nil,
	scheduling.ExamCancelled:    nil,
}

// CanTransition reports whether an exam may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
