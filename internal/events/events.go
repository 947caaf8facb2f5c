// Package events fans appointment changes and support tickets out to
// connected dashboards and the message broker.
package events

import (
	"context"
	"errors"
	"time"

	"medwise-api/internal/model"
)

type Type string

const (
	AppointmentCreated Type = "appointment.created"
	AppointmentUpdated Type = "appointment.updated"
	AppointmentDeleted Type = "appointment.deleted"
	SupportTicket      Type = "support.ticket"
)

type Event struct {
	Type             Type                 `json:"type"`
	AppointmentID    string               `json:"appointmentId,omitempty"`
	DoctorID         string               `json:"doctorId,omitempty"`
	// PreviousDoctorID is set when an update reassigned the appointment.
	PreviousDoctorID string               `json:"previousDoctorId,omitempty"`
	Ticket           *model.SupportTicket `json:"ticket,omitempty"`
	At               time.Time            `json:"at"`
}

// VisibleTo reports whether the caller may receive e. Admins see every
// appointment event; doctors only those touching their own schedule.
// Support tickets go to admins.
func (e Event) VisibleTo(id model.Identity) bool {
	switch id.Role {
	case model.RoleAdmin:
		return true
	case model.RoleDoctor:
		if e.Type == SupportTicket {
			return false
		}
		return id.UserID != "" && (e.DoctorID == id.UserID || e.PreviousDoctorID == id.UserID)
	}
	return false
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to each publisher in turn and joins the failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
