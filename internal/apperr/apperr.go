package apperr

import "errors"

type Kind string

const (
	KindInternal          Kind = "internal"
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindPaymentDeclined   Kind = "payment_declined"
	KindForbidden         Kind = "forbidden"
)

// Error — доменная ошибка с видом. Сообщение можно показывать пользователю.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf возвращает вид первой доменной ошибки в цепочке (KindInternal, если её нет).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message возвращает пользовательское сообщение, без внутренних подробностей.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
