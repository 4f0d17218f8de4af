package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// User-facing messages. They are shown verbatim as toast notifications.
const (
	MsgInternal     = "Ocorreu um erro inesperado. Tente novamente."
	MsgBadRequest   = "Pedido inválido."
	MsgUnauthorized = "Sessão expirada. Inicie sessão novamente."
	MsgForbidden    = "Sem permissão para esta operação."
	MsgNotFound     = "Recurso não encontrado."
	MsgConflict     = "O recurso foi alterado por outra operação."
	MsgTooLarge     = "O pedido é demasiado grande."
	MsgRateLimited  = "Demasiados pedidos. Aguarde um momento."
	MsgBadGateway   = "O serviço do laboratório não respondeu corretamente."
	MsgUnavailable  = "Serviço temporariamente indisponível."
	MsgTimeout      = "O servidor demorou demasiado a responder."
)

var defaultMessages = map[int]string{
	http.StatusBadRequest:            MsgBadRequest,
	http.StatusUnauthorized:          MsgUnauthorized,
	http.StatusForbidden:             MsgForbidden,
	http.StatusNotFound:              MsgNotFound,
	http.StatusMethodNotAllowed:      MsgBadRequest,
	http.StatusConflict:              MsgConflict,
	http.StatusRequestEntityTooLarge: MsgTooLarge,
	http.StatusUnprocessableEntity:   MsgBadRequest,
	http.StatusTooManyRequests:       MsgRateLimited,
	http.StatusBadGateway:            MsgBadGateway,
	http.StatusServiceUnavailable:    MsgUnavailable,
	http.StatusGatewayTimeout:        MsgTimeout,
}

// StatusCoder is implemented by errors that map to an HTTP status, such as
// backend API errors.
type StatusCoder interface {
	HTTPStatus() int
}

// UserMessager is implemented by errors that carry a message safe to show.
type UserMessager interface {
	UserMessage() string
}

// ErrorBody is the toast payload returned for every failed request.
type ErrorBody struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusOf maps an error to the status the error handler will send.
func StatusOf(err error) int {
	var he *echo.HTTPError
	var sc StatusCoder
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.As(err, &sc):
		return sc.HTTPStatus()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// MessageOf returns the toast message for err at status.
func MessageOf(err error, status int) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok && msg != "" && msg != http.StatusText(he.Code) {
			return msg
		}
	}
	var um UserMessager
	if status < 500 && errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	if msg, ok := defaultMessages[status]; ok {
		return msg
	}
	if status >= 500 {
		return MsgInternal
	}
	return MsgBadRequest
}

// ErrorHandler renders errors as ErrorBody with no internal detail.
// onUnauthorized runs before a 401 is written, typically to clear the
// session cookies.
func ErrorHandler(logger zerolog.Logger, onUnauthorized func(c echo.Context)) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}

		status := StatusOf(err)
		rid, _ := c.Get("request_id").(string)
		if status >= 500 {
			logger.Error().Err(err).Str("request_id", rid).Int("status", status).Msg("request failed")
		}
		if status == http.StatusUnauthorized && onUnauthorized != nil {
			onUnauthorized(c)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, ErrorBody{Message: MessageOf(err, status), RequestID: rid})
		}
		if werr != nil {
			logger.Error().Err(werr).Str("request_id", rid).Msg("write error response")
		}
	}
}
