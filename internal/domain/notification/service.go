package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/websocket"
)

// ErrInvalid marks notification input rejected before reaching the backend.
var ErrInvalid = errors.New("invalid notification input")

type validationError string

func (e validationError) Error() string        { return string(e) }
func (e validationError) Is(target error) bool { return target == ErrInvalid }
func (e validationError) HTTPStatus() int      { return http.StatusBadRequest }
func (e validationError) UserMessage() string  { return string(e) }

type Service struct {
	repo      Repository
	publisher websocket.EventPublisher
	logger    zerolog.Logger
}

func NewService(repo Repository, publisher websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// List returns the caller's notifications, optionally only the unread ones.
func (s *Service) List(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if !unreadOnly {
		return all, nil
	}
	out := make([]Notification, 0, len(all))
	for _, n := range all {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

// Create stores a notification and pushes it to its recipients.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Title == "" || in.Message == "" {
		return nil, validationError("título e mensagem são obrigatórios")
	}
	if in.RecipientRole != "" {
		role, err := auth.ParseRole(in.RecipientRole)
		if err != nil {
			return nil, validationError("perfil de destino inválido")
		}
		in.RecipientRole = string(role)
	}
	if in.RecipientID == "" && in.RecipientRole == "" {
		return nil, validationError("indique o destinatário")
	}

	n, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.RecipientID != "" {
		s.publish(ctx, websocket.UserTopic(string(in.RecipientID)), EventCreated, n)
	}
	if in.RecipientRole != "" {
		s.publish(ctx, websocket.RoleTopic(auth.Role(in.RecipientRole)), EventCreated, n)
	}
	return n, nil
}

// MarkRead marks a notification read and tells the caller's other
// connections.
func (s *Service) MarkRead(ctx context.Context, id string) (*Notification, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("id obrigatório")
	}
	n, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		s.publish(ctx, websocket.UserTopic(uid), EventRead, n)
	}
	return n, nil
}

// publish pushes n on topic. Delivery is best effort: the notification is
// already stored and clients reload the list on reconnect.
func (s *Service) publish(ctx context.Context, topic, eventType string, n *Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal notification event")
		return
	}
	err = s.publisher.Publish(ctx, websocket.Event{
		Type:         eventType,
		Topic:        topic,
		ResourceType: "notification",
		ResourceID:   string(n.ID),
		Data:         data,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("publish notification event")
	}
}
