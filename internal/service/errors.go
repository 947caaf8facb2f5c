// Package service holds the business rules for sign-in, appointments, the
// dashboard summary and support tickets. Transports only translate.
package service

import "errors"

type Kind int

const (
	KindInvalid Kind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is an expected failure whose message is safe to show to clients.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// KindOf unwraps err to a service Error. ok is false for unexpected errors.
func KindOf(err error) (kind Kind, msg string, ok bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, se.Msg, true
	}
	return 0, "", false
}

const (
	MsgUnauthorized      = "Unauthorized"
	MsgForbidden         = "Forbidden"
	MsgNameRequired      = "Name is required for registration."
	MsgUserExists        = "A user with this email already exists"
	MsgUserNotFound      = "User not found"
	MsgInvalidCreds      = "Invalid credentials"
	MsgInvalidRole       = "Invalid role specified"
	MsgFieldsRequired    = "All fields are required"
	MsgDoctorNotFound    = "Doctor not found"
	MsgAppointmentAbsent = "Appointment not found"
	MsgInternal          = "Internal Server Error"
)

func invalid(msg string) *Error         { return &Error{Kind: KindInvalid, Msg: msg} }
func unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Msg: msg} }
func forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Msg: msg} }
func notFound(msg string) *Error        { return &Error{Kind: KindNotFound, Msg: msg} }
func conflict(msg string) *Error        { return &Error{Kind: KindConflict, Msg: msg} }
