package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
)

const (
	chatPath         = "/chat"
	maxMessageLength = 4000
)

var (
	ErrInvalid  = errors.New("invalid assistant message")
	ErrDisabled = errors.New("assistant not configured")
)

type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string        { return e.msg }
func (e *serviceError) Is(target error) bool { return target == e.kind }
func (e *serviceError) UserMessage() string  { return e.msg }

func (e *serviceError) HTTPStatus() int {
	if e.kind == ErrDisabled {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

// Agent sends requests to the chat agent. *backend.Client pointed at the
// agent's base URL satisfies it.
type Agent interface {
	Do(ctx context.Context, creds backend.Credentials, req backend.Request, out any) error
}

type Service struct {
	agent Agent
}

// NewService returns a service forwarding to agent. A nil agent disables
// chat.
func NewService(agent Agent) *Service {
	return &Service{agent: agent}
}

// Enabled reports whether an agent is configured.
func (s *Service) Enabled() bool { return s.agent != nil }

// Chat forwards in to the agent as the calling user and renders its reply.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*Reply, error) {
	if !s.Enabled() {
		return nil, &serviceError{kind: ErrDisabled, msg: "o assistente não está disponível"}
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return nil, &serviceError{kind: ErrInvalid, msg: "a mensagem está vazia"}
	}
	if utf8.RuneCountInString(in.Message) > maxMessageLength {
		return nil, &serviceError{kind: ErrInvalid, msg: "a mensagem é demasiado longa"}
	}

	// The agent validates the user's token against the lab backend; it has
	// no refresh endpoint of its own.
	var out agentReply
	err := s.agent.Do(ctx, backend.StaticToken(auth.TokenFromContext(ctx)), backend.Request{
		Method:      http.MethodPost,
		Path:        chatPath,
		Body:        in,
		SkipRefresh: true,
	}, &out)
	if err != nil {
		return nil, err
	}

	text := out.text()
	conv := out.ConversationID
	if conv == "" {
		conv = in.ConversationID
	}
	return &Reply{ConversationID: conv, Markdown: text, HTML: RenderMarkdown(text)}, nil
}
