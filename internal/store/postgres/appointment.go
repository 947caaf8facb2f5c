package postgres

import (
	"context"
	"fmt"
	"strings"

	"medwise-api/internal/model"
	"medwise-api/internal/store"
)

const appointmentCols = `id, patient_name, patient_age, patient_gender, reason_for_visit,
	doctor_id, doctor_name, date, type, notes, created_by, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*model.Appointment, error) {
	a := &model.Appointment{}
	var gender, typ string
	err := row.Scan(&a.ID, &a.PatientName, &a.PatientAge, &gender, &a.ReasonForVisit,
		&a.DoctorID, &a.DoctorName, &a.Date, &typ, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.PatientGender = model.Gender(gender)
	a.Type = model.VisitType(typ)
	return a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, patient_name, patient_age, patient_gender, reason_for_visit,
		                           doctor_id, doctor_name, date, type, notes, created_by)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING created_at, updated_at`,
		a.ID, a.PatientName, a.PatientAge, string(a.PatientGender), a.ReasonForVisit,
		a.DoctorID, a.DoctorName, a.Date, string(a.Type), a.Notes, a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]model.Appointment, error) {
	q := `SELECT ` + appointmentCols + ` FROM appointments`
	var args []any
	if f.DoctorID != "" {
		q += ` WHERE doctor_id = $1`
		args = append(args, f.DoctorID)
	}
	q += ` ORDER BY date, id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAppointment(ctx context.Context, id string, p model.AppointmentPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if p.PatientName != nil {
		set("patient_name", *p.PatientName)
	}
	if p.PatientAge != nil {
		set("patient_age", *p.PatientAge)
	}
	if p.PatientGender != nil {
		set("patient_gender", string(*p.PatientGender))
	}
	if p.ReasonForVisit != nil {
		set("reason_for_visit", *p.ReasonForVisit)
	}
	if p.DoctorID != nil {
		set("doctor_id", *p.DoctorID)
	}
	if p.DoctorName != nil {
		set("doctor_name", *p.DoctorName)
	}
	if p.Date != nil {
		set("date", *p.Date)
	}
	if p.Type != nil {
		set("type", string(*p.Type))
	}
	if p.Notes != nil {
		set("notes", *p.Notes)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE appointments SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
