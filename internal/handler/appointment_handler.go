package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medwise-api/internal/middleware"
	"medwise-api/internal/model"
	"medwise-api/internal/service"
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// flexTime accepts RFC 3339 timestamps as well as the bare dates and
// datetime-local values HTML forms send. Values without a zone are UTC.
type flexTime struct{ time.Time }

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

type appointmentRequest struct {
	PatientName    string          `json:"patientName"`
	PatientAge     int             `json:"patientAge"`
	PatientGender  model.Gender    `json:"patientGender"`
	ReasonForVisit string          `json:"reasonForVisit"`
	DoctorID       string          `json:"doctorId"`
	Date           flexTime        `json:"date"`
	Type           model.VisitType `json:"type"`
	Notes          string          `json:"notes"`
}

type appointmentUpdate struct {
	PatientName    *string          `json:"patientName"`
	PatientAge     *int             `json:"patientAge"`
	PatientGender  *model.Gender    `json:"patientGender"`
	ReasonForVisit *string          `json:"reasonForVisit"`
	DoctorID       *string          `json:"doctorId"`
	Date           *flexTime        `json:"date"`
	Type           *model.VisitType `json:"type"`
	Notes          *string          `json:"notes"`
}

type updateRequest struct {
	ID     string            `json:"id"`
	Update appointmentUpdate `json:"update"`
}

func (u appointmentUpdate) patch() model.AppointmentPatch {
	p := model.AppointmentPatch{
		PatientName:    u.PatientName,
		PatientAge:     u.PatientAge,
		PatientGender:  u.PatientGender,
		ReasonForVisit: u.ReasonForVisit,
		DoctorID:       u.DoctorID,
		Type:           u.Type,
		Notes:          u.Notes,
	}
	if u.Date != nil {
		d := u.Date.Time
		p.Date = &d
	}
	return p
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// ListAppointments answers with the visible appointments. The unpaged total
// goes into X-Total-Count.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	page, err := queryInt(r, "page")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid page", h.logger)
		return
	}
	size, err := queryInt(r, "pageSize")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid pageSize", h.logger)
		return
	}

	q := r.URL.Query()
	res, err := h.appointments.List(r.Context(), id, service.ListQuery{
		Q:        q.Get("q"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := res.Items
	if items == nil {
		items = []model.Appointment{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(res.Total))
	respondWithJSON(w, http.StatusOK, items, h.logger)
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	var req appointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	apptID, err := h.appointments.Create(r.Context(), id, service.AppointmentInput{
		PatientName:    req.PatientName,
		PatientAge:     req.PatientAge,
		PatientGender:  req.PatientGender,
		ReasonForVisit: req.ReasonForVisit,
		DoctorID:       req.DoctorID,
		Date:           req.Date.Time,
		Type:           req.Type,
		Notes:          req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("appointment created", "appointment_id", apptID, "user_id", id.UserID)
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "id": apptID}, h.logger)
}

// UpdateAppointment takes {id, update}; only the fields present change.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.appointments.Update(r.Context(), id, req.ID, req.Update.patch()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("appointment updated", "appointment_id", req.ID, "user_id", id.UserID)
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true}, h.logger)
}

// DeleteAppointment reads the id from the Id header, falling back to ?id=.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	apptID := strings.TrimSpace(r.Header.Get("Id"))
	if apptID == "" {
		apptID = strings.TrimSpace(r.URL.Query().Get("id"))
	}

	if err := h.appointments.Delete(r.Context(), id, apptID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("appointment deleted", "appointment_id", apptID, "user_id", id.UserID)
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true}, h.logger)
}

func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	docs, err := h.appointments.Doctors(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, docs, h.logger)
}
