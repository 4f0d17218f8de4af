package scheduling

// Summary aggregates a collection of schedules for the dashboard cards.
type Summary struct {
	Schedules       int            `json:"schedules"`
	Exams           int            `json:"exams"`
	ByExamStatus    map[string]int `json:"byExamStatus"`
	ByPaymentStatus map[string]int `json:"byPaymentStatus"`
	Allocated       int            `json:"allocated"`
	Unallocated     int            `json:"unallocated"`
	TotalBilled     float64        `json:"totalBilled"`
	TotalPaid       float64        `json:"totalPaid"`
}

// Summarize counts exams per status and schedules per allocation. Every
// known status is present in the maps, with zero when unused.
func Summarize(records []Record) Summary {
	s := Summary{
		Schedules:       len(records),
		ByExamStatus:    make(map[string]int, len(ExamStatuses)),
		ByPaymentStatus: make(map[string]int, len(PaymentStatuses)),
	}
	for _, st := range ExamStatuses {
		s.ByExamStatus[st] = 0
	}
	for _, st := range PaymentStatuses {
		s.ByPaymentStatus[st] = 0
	}

	for _, r := range records {
		if r.Allocated() {
			s.Allocated++
		} else {
			s.Unallocated++
		}
		for _, e := range r.ExamList {
			s.Exams++
			s.ByExamStatus[e.ExamStatus]++
			s.ByPaymentStatus[e.PaymentStatus]++
			s.TotalBilled += e.Price
			if e.PaymentStatus == PaymentPaid {
				s.TotalPaid += e.Price
			}
		}
	}
	return s
}
