package scheduling

import (
	"strings"
	"time"

	"github.com/akin/akin/internal/platform/backend"
)

// Exam statuses, as stored by the backend.
const (
	ExamPending      = "PENDENTE"
	ExamInProgress   = "EM_ANDAMENTO"
	ExamCompleted    = "CONCLUIDO"
	ExamCancelled    = "CANCELADO"
	ExamToReschedule = "POR_REAGENDAR"
)

// Payment statuses.
const (
	PaymentPending = "PENDENTE"
	PaymentPaid    = "PAGO"
	PaymentUnpaid  = "NAO_PAGO"
	PaymentExempt  = "ISENTO"
)

// FilterAll disables the exam or payment status predicate.
const FilterAll = "ALL"

var ExamStatuses = []string{ExamPending, ExamInProgress, ExamCompleted, ExamCancelled, ExamToReschedule}

var PaymentStatuses = []string{PaymentPending, PaymentPaid, PaymentUnpaid, PaymentExempt}

func ValidExamStatus(s string) bool    { return contains(ExamStatuses, s) }
func ValidPaymentStatus(s string) bool { return contains(PaymentStatuses, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// DateLayout is the calendar date format of exam dates and filter bounds.
const DateLayout = "2006-01-02"

// Patient is the patient a schedule belongs to.
type Patient struct {
	ID        backend.ID `json:"id,omitempty"`
	Name      string     `json:"name"`
	IDNumber  string     `json:"idNumber"`
	Phone     string     `json:"phone"`
	Gender    string     `json:"gender"`
	BirthDate string     `json:"birthDate"`
}

// MatchesSearch reports whether query occurs in the patient's name, id
// number or phone, ignoring case and surrounding space. An empty query
// matches every patient.
func (p Patient) MatchesSearch(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return containsFold(p.Name, q) || containsFold(p.IDNumber, q) || containsFold(p.Phone, q)
}

// Exam is one booked exam of a schedule.
type Exam struct {
	ID                    backend.ID `json:"id,omitempty"`
	Date                  string     `json:"date"`
	Time                  string     `json:"time"`
	ExamStatus            string     `json:"examStatus"`
	PaymentStatus         string     `json:"paymentStatus"`
	ExamType              string     `json:"examType"`
	Price                 float64    `json:"price"`
	AllocatedTechnicianID backend.ID `json:"allocatedTechnicianId,omitempty"`
}

// Day returns the exam's calendar date. Backend dates may carry a time part,
// which is ignored.
func (e Exam) Day() (time.Time, bool) {
	return parseDay(e.Date)
}

func parseDay(s string) (time.Time, bool) {
	if len(s) < len(DateLayout) {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, s[:len(DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Record is a patient's grouped set of exam bookings. The backend owns it;
// the gateway only reads snapshots.
type Record struct {
	ID               backend.ID `json:"id"`
	Patient          Patient    `json:"patient"`
	ExamList         []Exam     `json:"examList"`
	AllocatedChiefID backend.ID `json:"allocatedChiefId,omitempty"`
}

// TotalPrice is the sum of the record's exam prices.
func (r Record) TotalPrice() float64 {
	var total float64
	for _, e := range r.ExamList {
		total += e.Price
	}
	return total
}

// Allocated reports whether a chief has allocated the record.
func (r Record) Allocated() bool { return r.AllocatedChiefID != "" }

// CreateInput is the body of a new schedule request.
type CreateInput struct {
	Patient  Patient `json:"patient"`
	ExamList []Exam  `json:"examList"`
}

// ExamChange updates one exam of a schedule. Empty fields are left as they
// are.
type ExamChange struct {
	ID            backend.ID `json:"id"`
	Date          string     `json:"date,omitempty"`
	Time          string     `json:"time,omitempty"`
	ExamStatus    string     `json:"examStatus,omitempty"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
}

// UpdateInput accepts or reschedules exams of a schedule.
type UpdateInput struct {
	ExamList []ExamChange `json:"examList"`
}

// AllocateInput assigns a technician to a schedule's exams. An empty ExamIDs
// allocates every exam.
type AllocateInput struct {
	TechnicianID backend.ID   `json:"technicianId"`
	ExamIDs      []backend.ID `json:"examIds,omitempty"`
}
