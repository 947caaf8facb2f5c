// Package store defines the persistence contract shared by the Postgres,
// MongoDB and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"medwise-api/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// AppointmentFilter narrows ListAppointments. Zero value lists everything.
type AppointmentFilter struct {
	DoctorID string
}

type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	UsersByRole(ctx context.Context, role model.Role) ([]model.User, error)
}

type Appointments interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	// ListAppointments returns matches ordered by date, then id.
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error)
	// UpdateAppointment returns ErrNotFound when no record has the id.
	UpdateAppointment(ctx context.Context, id string, p model.AppointmentPatch) error
	// DeleteAppointment returns ErrNotFound when no record has the id.
	DeleteAppointment(ctx context.Context, id string) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type Store interface {
	Users
	Appointments
	RefreshTokens
	Ping(ctx context.Context) error
	Close()
}
