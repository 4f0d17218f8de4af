package team

import (
	"github.com/akin/akin/internal/platform/backend"
)

// Technician is a lab technician account as served by /lab-technicians.
type Technician struct {
	ID     backend.ID `json:"id"`
	Name   string     `json:"nome"`
	Email  string     `json:"email"`
	Phone  string     `json:"contacto_telefonico,omitempty"`
	Active *bool      `json:"ativo,omitempty"`
}

// Input creates or updates a technician. On update, empty fields are left
// as they are.
type Input struct {
	Name     string `json:"nome,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"contacto_telefonico,omitempty"`
	Password string `json:"senha,omitempty"`
	Active   *bool  `json:"ativo,omitempty"`
}
