package notification

import (
	"github.com/akin/akin/internal/platform/backend"
)

// Notification is an in-app message addressed to a user or to every user of
// a role.
type Notification struct {
	ID            backend.ID `json:"id"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	RecipientID   backend.ID `json:"recipientId,omitempty"`
	RecipientRole string     `json:"recipientRole,omitempty"`
	Read          bool       `json:"read"`
	CreatedAt     string     `json:"createdAt,omitempty"`
}

// CreateInput is the body of a new notification.
type CreateInput struct {
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	RecipientID   backend.ID `json:"recipientId,omitempty"`
	RecipientRole string     `json:"recipientRole,omitempty"`
}

// Event types pushed over the websocket.
const (
	EventCreated = "notification.created"
	EventRead    = "notification.read"
)
