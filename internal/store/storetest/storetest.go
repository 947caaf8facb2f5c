// Package storetest holds a conformance suite every store.Store backend must
// pass. Data is namespaced by random ids so it can run against shared
// databases.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medwise-api/internal/model"
	"medwise-api/internal/store"
)

func Run(t *testing.T, s store.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, s) })
	t.Run("Appointments", func(t *testing.T) { testAppointments(t, s) })
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, s) })
}

func newUser(role model.Role, name string) *model.User {
	id := uuid.New().String()
	return &model.User{
		ID:           id,
		Name:         name,
		Email:        "u-" + id[:8] + "@medwise.test",
		PasswordHash: "hash",
		Role:         role,
	}
}

func mustUser(t *testing.T, s store.Store, role model.Role, name string) *model.User {
	t.Helper()
	u := newUser(role, name)
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := mustUser(t, s, model.RoleDoctor, "Dr. Conformance")
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.UserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Name, got.Name)
	assert.Equal(t, model.RoleDoctor, got.Role)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	dup := newUser(model.RoleAdmin, "Someone Else")
	dup.Email = u.Email
	assert.ErrorIs(t, s.CreateUser(ctx, dup), store.ErrDuplicateEmail)

	_, err = s.UserByEmail(ctx, "missing-"+uuid.New().String()+"@medwise.test")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UserByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, store.ErrNotFound)

	admin := mustUser(t, s, model.RoleAdmin, "Admin Conformance")
	doctors, err := s.UsersByRole(ctx, model.RoleDoctor)
	require.NoError(t, err)
	var sawDoctor bool
	for _, d := range doctors {
		assert.Equal(t, model.RoleDoctor, d.Role)
		assert.NotEqual(t, admin.ID, d.ID)
		if d.ID == u.ID {
			sawDoctor = true
		}
	}
	assert.True(t, sawDoctor, "doctor missing from role listing")
}

func testAppointments(t *testing.T, s store.Store) {
	ctx := context.Background()
	doc := mustUser(t, s, model.RoleDoctor, "Dr. Lee")
	other := mustUser(t, s, model.RoleDoctor, "Dr. Okafor")

	base := time.Date(2031, 3, 1, 9, 0, 0, 0, time.UTC)
	later := &model.Appointment{
		ID: uuid.New().String(), PatientName: "Ada", PatientAge: 41, PatientGender: model.GenderFemale,
		ReasonForVisit: "checkup", DoctorID: doc.ID, DoctorName: doc.Name,
		Date: base.Add(48 * time.Hour), Type: model.VisitVirtual, CreatedBy: doc.ID,
	}
	earlier := &model.Appointment{
		ID: uuid.New().String(), PatientName: "Ben", PatientAge: 7,
		DoctorID: doc.ID, DoctorName: doc.Name, Date: base, Type: model.VisitInPerson, CreatedBy: doc.ID,
	}
	elsewhere := &model.Appointment{
		ID: uuid.New().String(), PatientName: "Cy", DoctorID: other.ID, DoctorName: other.Name,
		Date: base, Type: model.VisitInPerson, CreatedBy: other.ID,
	}
	for _, a := range []*model.Appointment{later, earlier, elsewhere} {
		require.NoError(t, s.CreateAppointment(ctx, a))
	}

	got, err := s.GetAppointment(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.PatientName)
	assert.Equal(t, 41, got.PatientAge)
	assert.Equal(t, model.GenderFemale, got.PatientGender)
	assert.Equal(t, model.VisitVirtual, got.Type)
	assert.Equal(t, doc.Name, got.DoctorName)
	assert.True(t, later.Date.Equal(got.Date), "date round trip: %v vs %v", later.Date, got.Date)

	mine, err := s.ListAppointments(ctx, store.AppointmentFilter{DoctorID: doc.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, earlier.ID, mine[0].ID, "ordered by date")
	assert.Equal(t, later.ID, mine[1].ID)

	all, err := s.ListAppointments(ctx, store.AppointmentFilter{})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, a := range all {
		ids[a.ID] = true
	}
	assert.True(t, ids[later.ID] && ids[earlier.ID] && ids[elsewhere.ID])

	notes := "bring labs"
	newDoc := other.ID
	newName := other.Name
	require.NoError(t, s.UpdateAppointment(ctx, earlier.ID, model.AppointmentPatch{
		Notes: &notes, DoctorID: &newDoc, DoctorName: &newName,
	}))
	got, err = s.GetAppointment(ctx, earlier.ID)
	require.NoError(t, err)
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, other.ID, got.DoctorID)
	assert.Equal(t, other.Name, got.DoctorName)
	assert.Equal(t, "Ben", got.PatientName, "untouched fields survive")

	missing := uuid.New().String()
	assert.ErrorIs(t, s.UpdateAppointment(ctx, missing, model.AppointmentPatch{Notes: &notes}), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAppointment(ctx, missing), store.ErrNotFound)

	require.NoError(t, s.DeleteAppointment(ctx, later.ID))
	_, err = s.GetAppointment(ctx, later.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAppointment(ctx, later.ID), store.ErrNotFound)
}

func testRefreshTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, model.RoleAdmin, "Token Owner")
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	hash := "h-" + uuid.New().String()
	id, err := s.CreateRefreshToken(ctx, u.ID, hash, exp)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rt, err := s.GetRefreshTokenByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, id, rt.ID)
	assert.Equal(t, u.ID, rt.UserID)
	assert.False(t, rt.Revoked)
	assert.Nil(t, rt.ReplacedBy)
	assert.True(t, exp.Equal(rt.ExpiresAt))

	newID := uuid.New().String()
	newHash := "h-" + uuid.New().String()
	require.NoError(t, s.RotateRefreshToken(ctx, id, newID, u.ID, newHash, exp))

	old, err := s.GetRefreshTokenByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, newID, *old.ReplacedBy)

	// a second rotation of the same token loses
	assert.ErrorIs(t, s.RotateRefreshToken(ctx, id, uuid.New().String(), u.ID, "h-"+uuid.New().String(), exp), store.ErrNotFound)

	require.NoError(t, s.RevokeAllRefreshTokens(ctx, u.ID))
	fresh, err := s.GetRefreshTokenByHash(ctx, newHash)
	require.NoError(t, err)
	assert.True(t, fresh.Revoked)

	_, err = s.GetRefreshTokenByHash(ctx, "h-missing-"+uuid.New().String())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
