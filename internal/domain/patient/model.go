package patient

import (
	"github.com/akin/akin/internal/domain/scheduling"
)

// Patient is a registered patient as served by the backend's /pacients
// resource.
type Patient struct {
	scheduling.Patient
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// History is a patient together with every schedule booked for them.
type History struct {
	Patient   Patient             `json:"patient"`
	Schedules []scheduling.Record `json:"schedules"`
	Summary   scheduling.Summary  `json:"summary"`
}

// Owns reports whether the schedule belongs to p. Schedules without a
// patient id are matched on the identity document number.
func (p Patient) Owns(r scheduling.Record) bool {
	if p.ID != "" && r.Patient.ID != "" {
		return p.ID == r.Patient.ID
	}
	return p.IDNumber != "" && p.IDNumber == r.Patient.IDNumber
}

