package service

import (
	"context"
	"log/slog"
	"time"

	"medwise-api/internal/model"
	"medwise-api/internal/store"
)

// Summary backs the dashboard cards. Doctors is only filled for admins.
type Summary struct {
	Total    int  `json:"total"`
	InPerson int  `json:"inPerson"`
	Virtual  int  `json:"virtual"`
	Upcoming int  `json:"upcoming"`
	Today    int  `json:"today"`
	Doctors  *int `json:"doctors,omitempty"`
}

type Dashboard struct {
	store store.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewDashboard(st store.Store, log *slog.Logger) *Dashboard {
	return &Dashboard{store: st, log: log, now: time.Now}
}

func (d *Dashboard) Summary(ctx context.Context, id model.Identity) (*Summary, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	var f store.AppointmentFilter
	if id.Role == model.RoleDoctor {
		f.DoctorID = id.UserID
	}
	list, err := d.store.ListAppointments(ctx, f)
	if err != nil {
		d.log.Error("summary appointments failed", "user_id", id.UserID, "error", err)
		return nil, err
	}

	now := d.now().UTC()
	y, m, day := now.Date()
	startOfDay := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	s := &Summary{Total: len(list)}
	for _, a := range list {
		switch a.Type {
		case model.VisitInPerson:
			s.InPerson++
		case model.VisitVirtual:
			s.Virtual++
		}
		if !a.Date.Before(now) {
			s.Upcoming++
		}
		if !a.Date.Before(startOfDay) && a.Date.Before(endOfDay) {
			s.Today++
		}
	}

	if id.Role == model.RoleAdmin {
		docs, err := d.store.UsersByRole(ctx, model.RoleDoctor)
		if err != nil {
			d.log.Error("summary doctors failed", "error", err)
			return nil, err
		}
		n := len(docs)
		s.Doctors = &n
	}
	return s, nil
}
