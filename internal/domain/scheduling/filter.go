package scheduling

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/akin/akin/internal/platform/auth"
)

// TechnicianFilter selects records by allocation.
type TechnicianFilter string

const (
	TechnicianAny         TechnicianFilter = ""
	TechnicianAllocated   TechnicianFilter = "ALLOCATED"
	TechnicianUnallocated TechnicianFilter = "UNALLOCATED"
)

// FilterSpec is the set of constraints a list page applies to the records it
// fetched. The zero value matches every record.
type FilterSpec struct {
	Search        string
	DateFrom      *time.Time
	DateTo        *time.Time
	ExamStatus    string
	PaymentStatus string
	Technician    TechnicianFilter
	Gender        string
	ExamType      string
	MinPrice      *float64
	MaxPrice      *float64
}

// Merge returns s with every field set in o copied over it. For specs that
// constrain different fields it is their union.
func (s FilterSpec) Merge(o FilterSpec) FilterSpec {
	if o.Search != "" {
		s.Search = o.Search
	}
	if o.DateFrom != nil {
		s.DateFrom = o.DateFrom
	}
	if o.DateTo != nil {
		s.DateTo = o.DateTo
	}
	if o.ExamStatus != "" {
		s.ExamStatus = o.ExamStatus
	}
	if o.PaymentStatus != "" {
		s.PaymentStatus = o.PaymentStatus
	}
	if o.Technician != TechnicianAny {
		s.Technician = o.Technician
	}
	if o.Gender != "" {
		s.Gender = o.Gender
	}
	if o.ExamType != "" {
		s.ExamType = o.ExamType
	}
	if o.MinPrice != nil {
		s.MinPrice = o.MinPrice
	}
	if o.MaxPrice != nil {
		s.MaxPrice = o.MaxPrice
	}
	return s
}

type predicate func(Record) bool

// Apply returns the records that satisfy every active predicate of spec, in
// input order. Records are never modified. The allocation predicate is
// skipped for the lab chief, who sees every record regardless of allocation.
func Apply(records []Record, spec FilterSpec, role auth.Role) []Record {
	preds := spec.predicates(role)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyCompleted is Apply for the completed schedules page: without an
// explicit exam status it keeps records with at least one completed exam.
func ApplyCompleted(records []Record, spec FilterSpec, role auth.Role) []Record {
	if spec.ExamStatus == "" {
		spec.ExamStatus = ExamCompleted
	}
	return Apply(records, spec, role)
}

func matchAll(r Record, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

func (s FilterSpec) predicates(role auth.Role) []predicate {
	var preds []predicate

	if q := strings.TrimSpace(s.Search); q != "" {
		preds = append(preds, func(r Record) bool { return r.Patient.MatchesSearch(q) })
	}

	if s.DateFrom != nil || s.DateTo != nil {
		from, to := s.DateFrom, s.DateTo
		preds = append(preds, func(r Record) bool {
			return anyExam(r, func(e Exam) bool {
				d, ok := e.Day()
				if !ok {
					return false
				}
				if from != nil && d.Before(*from) {
					return false
				}
				if to != nil && d.After(*to) {
					return false
				}
				return true
			})
		})
	}

	if st := s.ExamStatus; st != "" && st != FilterAll {
		preds = append(preds, func(r Record) bool {
			return anyExam(r, func(e Exam) bool { return e.ExamStatus == st })
		})
	}

	if st := s.PaymentStatus; st != "" && st != FilterAll {
		preds = append(preds, func(r Record) bool {
			return anyExam(r, func(e Exam) bool { return e.PaymentStatus == st })
		})
	}

	if role != auth.RoleLabChief {
		switch s.Technician {
		case TechnicianAllocated:
			preds = append(preds, Record.Allocated)
		case TechnicianUnallocated:
			preds = append(preds, func(r Record) bool { return !r.Allocated() })
		}
	}

	if g := s.Gender; g != "" {
		preds = append(preds, func(r Record) bool { return r.Patient.Gender == g })
	}

	if t := strings.ToLower(strings.TrimSpace(s.ExamType)); t != "" {
		preds = append(preds, func(r Record) bool {
			return anyExam(r, func(e Exam) bool { return containsFold(e.ExamType, t) })
		})
	}

	if s.MinPrice != nil || s.MaxPrice != nil {
		lo, hi := s.MinPrice, s.MaxPrice
		preds = append(preds, func(r Record) bool {
			total := r.TotalPrice()
			if lo != nil && total < *lo {
				return false
			}
			if hi != nil && total > *hi {
				return false
			}
			return true
		})
	}

	return preds
}

// containsFold reports whether lowered needle occurs in s, ignoring case.
func containsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), needle)
}

func anyExam(r Record, fn func(Exam) bool) bool {
	for _, e := range r.ExamList {
		if fn(e) {
			return true
		}
	}
	return false
}

// FilterError reports an unusable query parameter.
type FilterError struct {
	Param string
	Value string
	msg   string
}

func (e *FilterError) Error() string { return e.msg }

func filterErr(param, value, msg string) *FilterError {
	return &FilterError{Param: param, Value: value, msg: msg}
}

// ParseFilterSpec builds a spec from list query parameters:
//
//	search (or q), dateFrom, dateTo, examStatus (or status), paymentStatus,
//	technician, gender, examType, minPrice, maxPrice
//
// Status values are case-insensitive. Dates use YYYY-MM-DD.
func ParseFilterSpec(q url.Values) (FilterSpec, error) {
	var spec FilterSpec

	spec.Search = strings.TrimSpace(firstOf(q, "search", "q"))
	spec.Gender = strings.TrimSpace(q.Get("gender"))
	spec.ExamType = strings.TrimSpace(q.Get("examType"))

	var err error
	if spec.DateFrom, err = parseDateParam(q, "dateFrom"); err != nil {
		return FilterSpec{}, err
	}
	if spec.DateTo, err = parseDateParam(q, "dateTo"); err != nil {
		return FilterSpec{}, err
	}
	if spec.DateFrom != nil && spec.DateTo != nil && spec.DateFrom.After(*spec.DateTo) {
		return FilterSpec{}, filterErr("dateFrom", q.Get("dateFrom"), "a data inicial é posterior à data final")
	}

	if v := strings.ToUpper(strings.TrimSpace(firstOf(q, "examStatus", "status"))); v != "" {
		if v != FilterAll && !ValidExamStatus(v) {
			return FilterSpec{}, filterErr("examStatus", v, fmt.Sprintf("estado de exame inválido: %s", v))
		}
		spec.ExamStatus = v
	}
	if v := strings.ToUpper(strings.TrimSpace(q.Get("paymentStatus"))); v != "" {
		if v != FilterAll && !ValidPaymentStatus(v) {
			return FilterSpec{}, filterErr("paymentStatus", v, fmt.Sprintf("estado de pagamento inválido: %s", v))
		}
		spec.PaymentStatus = v
	}

	switch v := TechnicianFilter(strings.ToUpper(strings.TrimSpace(q.Get("technician")))); v {
	case TechnicianAny, FilterAll:
	case TechnicianAllocated, TechnicianUnallocated:
		spec.Technician = v
	default:
		return FilterSpec{}, filterErr("technician", string(v), fmt.Sprintf("filtro de alocação inválido: %s", v))
	}

	if spec.MinPrice, err = parsePriceParam(q, "minPrice"); err != nil {
		return FilterSpec{}, err
	}
	if spec.MaxPrice, err = parsePriceParam(q, "maxPrice"); err != nil {
		return FilterSpec{}, err
	}
	if spec.MinPrice != nil && spec.MaxPrice != nil && *spec.MinPrice > *spec.MaxPrice {
		return FilterSpec{}, filterErr("minPrice", q.Get("minPrice"), "o preço mínimo é superior ao preço máximo")
	}

	return spec, nil
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func parseDateParam(q url.Values, key string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, filterErr(key, v, fmt.Sprintf("data inválida em %s: use AAAA-MM-DD", key))
	}
	return &d, nil
}

func parsePriceParam(q url.Values, key string) (*float64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil || p < 0 {
		return nil, filterErr(key, v, fmt.Sprintf("preço inválido em %s", key))
	}
	return &p, nil
}
