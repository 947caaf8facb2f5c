package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"medwise-api/internal/events"
	"medwise-api/internal/model"
	"medwise-api/internal/store"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type AppointmentInput struct {
	PatientName    string
	PatientAge     int
	PatientGender  model.Gender
	ReasonForVisit string
	DoctorID       string
	Date           time.Time
	Type           model.VisitType
	Notes          string
}

// ListQuery filters, orders and pages a listing. Page 0 returns everything.
type ListQuery struct {
	Q        string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

type Page struct {
	Items []model.Appointment
	Total int
}

type Appointments struct {
	store store.Store
	pub   events.Publisher
	log   *slog.Logger
	now   func() time.Time
}

func NewAppointments(st store.Store, pub events.Publisher, log *slog.Logger) *Appointments {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Appointments{store: st, pub: pub, log: log, now: time.Now}
}

// checkIdentity runs before any store access.
func checkIdentity(id model.Identity) error {
	if id.UserID == "" || id.Role == "" {
		return unauthenticated(MsgUnauthorized)
	}
	if !id.Role.Valid() {
		return forbidden(MsgForbidden)
	}
	return nil
}

func (s *Appointments) internal(op string, err error, args ...any) error {
	s.log.Error(op+" failed", append(args, "error", err)...)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Appointments) visible(ctx context.Context, id model.Identity) ([]model.Appointment, error) {
	var f store.AppointmentFilter
	if id.Role == model.RoleDoctor {
		f.DoctorID = id.UserID
	}
	return s.store.ListAppointments(ctx, f)
}

func (s *Appointments) List(ctx context.Context, id model.Identity, q ListQuery) (*Page, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	less, err := sorter(q.Sort, q.Order)
	if err != nil {
		return nil, err
	}
	if q.Page < 0 || q.PageSize < 0 || q.PageSize > MaxPageSize {
		return nil, invalid("Invalid pagination")
	}

	all, err := s.visible(ctx, id)
	if err != nil {
		return nil, s.internal("list appointments", err, "user_id", id.UserID)
	}

	items := all
	if needle := strings.ToLower(strings.TrimSpace(q.Q)); needle != "" {
		items = items[:0:0]
		for _, a := range all {
			if matches(a, needle) {
				items = append(items, a)
			}
		}
	}
	if less != nil {
		sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	}

	page := &Page{Items: items, Total: len(items)}
	if q.Page > 0 {
		size := q.PageSize
		if size == 0 {
			size = DefaultPageSize
		}
		// compare before multiplying so huge pages cannot overflow
		start := len(items)
		if q.Page-1 <= len(items)/size {
			start = (q.Page - 1) * size
		}
		if start > len(items) {
			start = len(items)
		}
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		page.Items = items[start:end]
	}
	return page, nil
}

// matches is a case-insensitive substring test over every displayed field.
func matches(a model.Appointment, needle string) bool {
	fields := []string{
		a.ID,
		a.PatientName,
		strconv.Itoa(a.PatientAge),
		string(a.PatientGender),
		a.ReasonForVisit,
		a.DoctorName,
		a.Date.Format("2006-01-02"),
		string(a.Type),
		a.Notes,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func sorter(field, order string) (func(a, b model.Appointment) bool, error) {
	var less func(a, b model.Appointment) bool
	switch field {
	case "":
		less = nil
	case "patientName":
		less = func(a, b model.Appointment) bool { return strings.ToLower(a.PatientName) < strings.ToLower(b.PatientName) }
	case "patientAge":
		less = func(a, b model.Appointment) bool { return a.PatientAge < b.PatientAge }
	case "patientGender":
		less = func(a, b model.Appointment) bool { return a.PatientGender < b.PatientGender }
	case "reasonForVisit":
		less = func(a, b model.Appointment) bool {
			return strings.ToLower(a.ReasonForVisit) < strings.ToLower(b.ReasonForVisit)
		}
	case "doctorName":
		less = func(a, b model.Appointment) bool { return strings.ToLower(a.DoctorName) < strings.ToLower(b.DoctorName) }
	case "date":
		less = func(a, b model.Appointment) bool { return a.Date.Before(b.Date) }
	case "type":
		less = func(a, b model.Appointment) bool { return a.Type < b.Type }
	case "createdAt":
		less = func(a, b model.Appointment) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return nil, invalid("Invalid sort field")
	}

	switch order {
	case "", "asc":
		return less, nil
	case "desc":
		if less == nil {
			return nil, invalid("Order requires a sort field")
		}
		return func(a, b model.Appointment) bool { return less(b, a) }, nil
	}
	return nil, invalid("Invalid sort order")
}

func validAge(age int) bool { return age >= 0 && age <= 150 }

// resolveDoctor loads the doctor an appointment is assigned to.
func (s *Appointments) resolveDoctor(ctx context.Context, doctorID string) (*model.User, error) {
	u, err := s.store.UserByID(ctx, doctorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(MsgDoctorNotFound)
	}
	if err != nil {
		return nil, s.internal("resolve doctor", err, "doctor_id", doctorID)
	}
	if u.Role != model.RoleDoctor {
		return nil, notFound(MsgDoctorNotFound)
	}
	return u, nil
}

// Create books an appointment and returns its id. Doctors book for
// themselves; leaving DoctorID empty assigns the caller.
func (s *Appointments) Create(ctx context.Context, id model.Identity, in AppointmentInput) (string, error) {
	if err := checkIdentity(id); err != nil {
		return "", err
	}
	if id.Role == model.RoleDoctor {
		if in.DoctorID == "" {
			in.DoctorID = id.UserID
		} else if in.DoctorID != id.UserID {
			return "", forbidden(MsgForbidden)
		}
	}

	in.PatientName = strings.TrimSpace(in.PatientName)
	if in.PatientName == "" || in.DoctorID == "" || in.Date.IsZero() || in.Type == "" {
		return "", invalid(MsgFieldsRequired)
	}
	if !in.Type.Valid() {
		return "", invalid("Invalid appointment type")
	}
	if in.PatientGender != "" && !in.PatientGender.Valid() {
		return "", invalid("Invalid patient gender")
	}
	if !validAge(in.PatientAge) {
		return "", invalid("Invalid patient age")
	}

	doc, err := s.resolveDoctor(ctx, in.DoctorID)
	if err != nil {
		return "", err
	}

	a := &model.Appointment{
		ID:             uuid.New().String(),
		PatientName:    in.PatientName,
		PatientAge:     in.PatientAge,
		PatientGender:  in.PatientGender,
		ReasonForVisit: strings.TrimSpace(in.ReasonForVisit),
		DoctorID:       doc.ID,
		DoctorName:     doc.Name,
		Date:           in.Date.UTC(),
		Type:           in.Type,
		Notes:          in.Notes,
		CreatedBy:      id.UserID,
	}
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		return "", s.internal("create appointment", err, "user_id", id.UserID)
	}

	s.publish(ctx, events.Event{Type: events.AppointmentCreated, AppointmentID: a.ID, DoctorID: a.DoctorID})
	return a.ID, nil
}

// owned loads the appointment and hides it from doctors who do not own it.
func (s *Appointments) owned(ctx context.Context, id model.Identity, appointmentID string) (*model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, appointmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(MsgAppointmentAbsent)
	}
	if err != nil {
		return nil, s.internal("get appointment", err, "appointment_id", appointmentID)
	}
	if id.Role == model.RoleDoctor && a.DoctorID != id.UserID {
		return nil, notFound(MsgAppointmentAbsent)
	}
	return a, nil
}

func validatePatch(p model.AppointmentPatch) error {
	if p.PatientName != nil && strings.TrimSpace(*p.PatientName) == "" {
		return invalid(MsgFieldsRequired)
	}
	if p.DoctorID != nil && *p.DoctorID == "" {
		return invalid(MsgFieldsRequired)
	}
	if p.Date != nil && p.Date.IsZero() {
		return invalid(MsgFieldsRequired)
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalid("Invalid appointment type")
	}
	if p.PatientGender != nil && !p.PatientGender.Valid() {
		return invalid("Invalid patient gender")
	}
	if p.PatientAge != nil && !validAge(*p.PatientAge) {
		return invalid("Invalid patient age")
	}
	return nil
}

// Update merges p into the appointment. The doctor name follows the doctor
// id and cannot be set directly.
func (s *Appointments) Update(ctx context.Context, id model.Identity, appointmentID string, p model.AppointmentPatch) error {
	if err := checkIdentity(id); err != nil {
		return err
	}
	p.DoctorName = nil
	if appointmentID == "" {
		return invalid("Appointment id is required")
	}
	if p.Empty() {
		return invalid("Update is required")
	}
	if err := validatePatch(p); err != nil {
		return err
	}

	cur, err := s.owned(ctx, id, appointmentID)
	if err != nil {
		return err
	}

	if p.DoctorID != nil {
		if id.Role == model.RoleDoctor && *p.DoctorID != id.UserID {
			return forbidden(MsgForbidden)
		}
		doc, err := s.resolveDoctor(ctx, *p.DoctorID)
		if err != nil {
			return err
		}
		p.DoctorName = &doc.Name
	}
	if p.Date != nil {
		d := p.Date.UTC()
		p.Date = &d
	}
	if p.PatientName != nil {
		n := strings.TrimSpace(*p.PatientName)
		p.PatientName = &n
	}

	if err := s.store.UpdateAppointment(ctx, appointmentID, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(MsgAppointmentAbsent)
		}
		return s.internal("update appointment", err, "appointment_id", appointmentID)
	}

	e := events.Event{Type: events.AppointmentUpdated, AppointmentID: appointmentID, DoctorID: cur.DoctorID}
	if p.DoctorID != nil && *p.DoctorID != cur.DoctorID {
		e.DoctorID, e.PreviousDoctorID = *p.DoctorID, cur.DoctorID
	}
	s.publish(ctx, e)
	return nil
}

func (s *Appointments) Delete(ctx context.Context, id model.Identity, appointmentID string) error {
	if err := checkIdentity(id); err != nil {
		return err
	}
	if appointmentID == "" {
		return invalid("Appointment id is required")
	}
	cur, err := s.owned(ctx, id, appointmentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAppointment(ctx, appointmentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(MsgAppointmentAbsent)
		}
		return s.internal("delete appointment", err, "appointment_id", appointmentID)
	}
	s.publish(ctx, events.Event{Type: events.AppointmentDeleted, AppointmentID: appointmentID, DoctorID: cur.DoctorID})
	return nil
}

// Doctors lists every registered doctor.
func (s *Appointments) Doctors(ctx context.Context, id model.Identity) ([]model.PublicUser, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	users, err := s.store.UsersByRole(ctx, model.RoleDoctor)
	if err != nil {
		return nil, s.internal("list doctors", err)
	}
	out := make([]model.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// publish never fails the caller.
func (s *Appointments) publish(ctx context.Context, e events.Event) {
	e.At = s.now().UTC()
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Warn("publish event", "type", e.Type, "appointment_id", e.AppointmentID, "error", err)
	}
}
