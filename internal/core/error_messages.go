package core

// # Error Codes Reference
//
// Technical errors are mapped to user-facing messages carrying a code that
// users can quote to support. Sentinel errors are matched with errors.Is
// first; anything else falls back to case-insensitive substring patterns.
//
//	QRY001  Invalid query parameter (page size, sort, operator)
//	QRY002  Invalid filter value
//	TBL001  View not found
//	TBL002  View not configured
//	SRC001  Backend unavailable, no cached data to show
//	SRC002  Backend returned data that could not be read
//	DB004   Database connection refused
//	DB005   Database connection reset
//	DB006   Operation timed out
//	REQ001  Request cancelled
//	REQ002  Request deadline exceeded
//	RATE001 Too many requests
//	ERR000  Fallback; check the logs for the technical error

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

var (
	// ErrViewNotFound is returned for a view key that is not registered.
	ErrViewNotFound = errors.New("view not found")

	// ErrInvalidFilter is returned when a filter value does not match its column type.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrSourceUnavailable is returned when a fetch fails and no snapshot exists.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedData is returned when the backend payload cannot be decoded.
	ErrMalformedData = errors.New("malformed data")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgInvalidArgument = UserMessage{
		Message: "La consulta tiene parámetros inválidos",
		Action:  "Revise la página, el tamaño de página o el orden solicitado",
		Code:    "QRY001",
	}
	msgInvalidFilter = UserMessage{
		Message: "Un filtro tiene un valor inválido",
		Action:  "Use fechas AAAA-MM-DD y números sin separadores de miles",
		Code:    "QRY002",
	}
	msgViewNotFound = UserMessage{
		Message: "La tabla solicitada no existe",
		Action:  "Verifique el enlace o vuelva al panel principal",
		Code:    "TBL001",
	}
	msgSourceUnavailable = UserMessage{
		Message: "No fue posible obtener los datos del servidor",
		Action:  "Intente de nuevo en unos momentos",
		Code:    "SRC001",
	}
	msgMalformedData = UserMessage{
		Message: "El servidor devolvió datos con un formato inesperado",
		Action:  "Contacte a soporte con el código de error",
		Code:    "SRC002",
	}
	msgTooManyExports = UserMessage{
		Message: "Hay demasiadas exportaciones en curso",
		Action:  "Espere unos segundos e intente de nuevo",
		Code:    "EXP001",
	}
)

// sentinelMessages is checked with errors.Is before any pattern. Order matters
// when an error wraps more than one sentinel.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrInvalidFilter, msgInvalidFilter},
	{tablequery.ErrInvalidArgument, msgInvalidArgument},
	{ErrViewNotFound, msgViewNotFound},
	{ErrMalformedData, msgMalformedData},
	{ErrSourceUnavailable, msgSourceUnavailable},
	{ErrTooManyExports, msgTooManyExports},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "view not found", msg: msgViewNotFound},
	{
		pattern: "unknown view",
		msg: UserMessage{
			Message: "Tipo de tabla desconocido",
			Action:  "Esta tabla no está configurada",
			Code:    "TBL002",
		},
	},
	{pattern: "invalid filter", msg: msgInvalidFilter},
	{pattern: "invalid argument", msg: msgInvalidArgument},
	{pattern: "malformed data", msg: msgMalformedData},
	{pattern: "source unavailable", msg: msgSourceUnavailable},

	// =========================================================================
	// Connection Errors (DB004-DB006)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "No fue posible conectar con la base de datos",
			Action:  "Intente de nuevo en unos momentos",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "La conexión con la base de datos se interrumpió",
			Action:  "Intente de nuevo",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ002)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "La solicitud fue cancelada",
			Action:  "Intente de nuevo",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "La solicitud tardó demasiado",
			Action:  "Reduzca los filtros o intente más tarde",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "La operación excedió el tiempo de espera",
			Action:  "Intente de nuevo más tarde",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Demasiadas solicitudes",
			Action:  "Espere un momento antes de intentar de nuevo",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "Ocurrió un error inesperado",
	Action:  "Intente de nuevo o contacte a soporte",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("fetch solicitudes: %w", ErrSourceUnavailable))
//	// msg.Code == "SRC001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Código: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Código: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
