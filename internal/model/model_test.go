package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"medwise-api/internal/model"
)

func TestEnums(t *testing.T) {
	assert.True(t, model.RoleDoctor.Valid())
	assert.True(t, model.RoleAdmin.Valid())
	assert.False(t, model.Role("doctor").Valid())
	assert.False(t, model.Role("").Valid())

	assert.True(t, model.GenderOther.Valid())
	assert.False(t, model.Gender("x").Valid())

	assert.True(t, model.VisitVirtual.Valid())
	assert.False(t, model.VisitType("Phone").Valid())
}

func TestPatchApply(t *testing.T) {
	assert.True(t, model.AppointmentPatch{}.Empty())

	a := model.Appointment{PatientName: "Ada", PatientAge: 40, Notes: "keep", Type: model.VisitInPerson}
	name, age, empty := "Ada L.", 41, ""
	when := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)
	virtual := model.VisitVirtual

	p := model.AppointmentPatch{PatientName: &name, PatientAge: &age, Notes: &empty, Date: &when, Type: &virtual}
	assert.False(t, p.Empty())
	p.Apply(&a)

	assert.Equal(t, "Ada L.", a.PatientName)
	assert.Equal(t, 41, a.PatientAge)
	assert.Equal(t, "", a.Notes)
	assert.Equal(t, when, a.Date)
	assert.Equal(t, model.VisitVirtual, a.Type)
}

func TestPublicUserHidesHash(t *testing.T) {
	u := &model.User{ID: "u1", Name: "Dr. Lee", Email: "lee@clinic.test", PasswordHash: "$2a$...", Role: model.RoleDoctor}
	assert.Equal(t, model.PublicUser{ID: "u1", Name: "Dr. Lee", Email: "lee@clinic.test", Role: model.RoleDoctor}, u.Public())
}

func TestJSONUsesID(t *testing.T) {
	b, err := json.Marshal(model.Appointment{ID: "a1"})
	assert.NoError(t, err)
	assert.Contains(t, string(b), `"id":"a1"`)
	assert.NotContains(t, string(b), `"_id"`)

	b, err = json.Marshal(model.PublicUser{ID: "u1"})
	assert.NoError(t, err)
	assert.Contains(t, string(b), `"id":"u1"`)
}
