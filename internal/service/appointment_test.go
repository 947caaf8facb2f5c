package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medwise-api/internal/events"
	"medwise-api/internal/model"
	"medwise-api/internal/service"
	"medwise-api/internal/store"
	"medwise-api/internal/store/memory"
)

type fixture struct {
	st     *memory.Store
	svc    *service.Appointments
	pub    *recorder
	admin  model.Identity
	lee    model.Identity
	okafor model.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	pub := &recorder{}
	return &fixture{
		st:     st,
		svc:    service.NewAppointments(st, pub, discard()),
		pub:    pub,
		admin:  addUser(t, st, model.RoleAdmin, "Front Desk"),
		lee:    addUser(t, st, model.RoleDoctor, "Dr. Lee"),
		okafor: addUser(t, st, model.RoleDoctor, "Dr. Okafor"),
	}
}

var day = time.Date(2031, 5, 4, 10, 0, 0, 0, time.UTC)

func input(patient, doctorID string, at time.Time) service.AppointmentInput {
	return service.AppointmentInput{
		PatientName:    patient,
		PatientAge:     30,
		PatientGender:  model.GenderOther,
		ReasonForVisit: "follow-up",
		DoctorID:       doctorID,
		Date:           at,
		Type:           model.VisitInPerson,
	}
}

func (f *fixture) create(t *testing.T, caller model.Identity, in service.AppointmentInput) string {
	t.Helper()
	id, err := f.svc.Create(context.Background(), caller, in)
	require.NoError(t, err)
	return id
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	all, err := f.st.ListAppointments(context.Background(), store.AppointmentFilter{})
	require.NoError(t, err)
	return len(all)
}

func TestCreateDenormalizesDoctorName(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, f.admin, input("Ada", f.lee.UserID, day))

	a, err := f.st.GetAppointment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Lee", a.DoctorName)
	assert.Equal(t, f.admin.UserID, a.CreatedBy)
	assert.Equal(t, "", a.Notes)
	assert.Equal(t, []events.Type{events.AppointmentCreated}, f.pub.types())
}

func TestCreateUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.admin, input("Ada", "no-such-doctor", day))
	requireKind(t, err, service.KindNotFound, service.MsgDoctorNotFound)

	// an admin is not a doctor
	_, err = f.svc.Create(ctx, f.admin, input("Ada", f.admin.UserID, day))
	requireKind(t, err, service.KindNotFound, service.MsgDoctorNotFound)

	assert.Zero(t, f.count(t))
	assert.Empty(t, f.pub.types())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := []func(*service.AppointmentInput){
		func(in *service.AppointmentInput) { in.PatientName = "  " },
		func(in *service.AppointmentInput) { in.DoctorID = "" },
		func(in *service.AppointmentInput) { in.Date = time.Time{} },
		func(in *service.AppointmentInput) { in.Type = "" },
	}
	for _, mutate := range missing {
		in := input("Ada", f.lee.UserID, day)
		mutate(&in)
		_, err := f.svc.Create(ctx, f.admin, in)
		requireKind(t, err, service.KindInvalid, service.MsgFieldsRequired)
	}

	in := input("Ada", f.lee.UserID, day)
	in.Type = "Telepathic"
	_, err := f.svc.Create(ctx, f.admin, in)
	requireKind(t, err, service.KindInvalid, "")

	in = input("Ada", f.lee.UserID, day)
	in.PatientGender = "Unknown"
	_, err = f.svc.Create(ctx, f.admin, in)
	requireKind(t, err, service.KindInvalid, "")

	in = input("Ada", f.lee.UserID, day)
	in.PatientAge = -1
	_, err = f.svc.Create(ctx, f.admin, in)
	requireKind(t, err, service.KindInvalid, "")

	assert.Zero(t, f.count(t))
}

func TestCallerChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, model.Identity{}, service.ListQuery{})
	requireKind(t, err, service.KindUnauthenticated, service.MsgUnauthorized)
	_, err = f.svc.List(ctx, model.Identity{UserID: "u", Role: "Nurse"}, service.ListQuery{})
	requireKind(t, err, service.KindForbidden, service.MsgForbidden)
	_, err = f.svc.Create(ctx, model.Identity{Role: model.RoleAdmin}, input("Ada", f.lee.UserID, day))
	requireKind(t, err, service.KindUnauthenticated, "")
	requireKind(t, f.svc.Delete(ctx, model.Identity{UserID: "u"}, "x"), service.KindUnauthenticated, "")
	_, err = f.svc.Doctors(ctx, model.Identity{})
	requireKind(t, err, service.KindUnauthenticated, "")
}

func TestDoctorSelfAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, f.lee, input("Ben", "", day))
	a, err := f.st.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.lee.UserID, a.DoctorID)
	assert.Equal(t, "Dr. Lee", a.DoctorName)

	_, err = f.svc.Create(ctx, f.lee, input("Ben", f.okafor.UserID, day))
	requireKind(t, err, service.KindForbidden, "")
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.create(t, f.admin, input("Ada", f.lee.UserID, day))
	a2 := f.create(t, f.admin, input("Ben", f.okafor.UserID, day.Add(time.Hour)))

	all, err := f.svc.List(ctx, f.admin, service.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	lee, err := f.svc.List(ctx, f.lee, service.ListQuery{})
	require.NoError(t, err)
	require.Len(t, lee.Items, 1)
	assert.Equal(t, a1, lee.Items[0].ID)

	okafor, err := f.svc.List(ctx, f.okafor, service.ListQuery{})
	require.NoError(t, err)
	require.Len(t, okafor.Items, 1)
	assert.Equal(t, a2, okafor.Items[0].ID)
}

func TestListSearchSortPaginate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	names := []string{"Carla", "alice", "Bob", "Dmitri", "Eve"}
	for i, n := range names {
		in := input(n, f.lee.UserID, day.Add(time.Duration(i)*time.Hour))
		in.PatientAge = 20 + i
		if n == "Bob" {
			in.Type = model.VisitVirtual
			in.Notes = "Needs interpreter"
		}
		f.create(t, f.admin, in)
	}

	p, err := f.svc.List(ctx, f.admin, service.ListQuery{Q: "ALI"})
	require.NoError(t, err)
	require.Equal(t, 1, p.Total)
	assert.Equal(t, "alice", p.Items[0].PatientName)

	p, err = f.svc.List(ctx, f.admin, service.ListQuery{Q: "interpreter"})
	require.NoError(t, err)
	require.Equal(t, 1, p.Total)
	assert.Equal(t, "Bob", p.Items[0].PatientName)

	p, err = f.svc.List(ctx, f.admin, service.ListQuery{Q: "virtual"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Total)

	p, err = f.svc.List(ctx, f.admin, service.ListQuery{Sort: "patientName"})
	require.NoError(t, err)
	var got []string
	for _, a := range p.Items {
		got = append(got, a.PatientName)
	}
	assert.Equal(t, []string{"alice", "Bob", "Carla", "Dmitri", "Eve"}, got)

	p, err = f.svc.List(ctx, f.admin, service.ListQuery{Sort: "patientAge", Order: "desc", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Total)
	require.Len(t, p.Items, 2)
	assert.Equal(t, 22, p.Items[0].PatientAge)
	assert.Equal(t, 21, p.Items[1].PatientAge)

	p, err = f.svc.List(ctx, f.admin, service.ListQuery{Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Total)
	assert.Empty(t, p.Items)

	for _, page := range []int{100000000000000001, math.MaxInt} {
		p, err = f.svc.List(ctx, f.admin, service.ListQuery{Page: page, PageSize: service.MaxPageSize})
		require.NoError(t, err)
		assert.Equal(t, 5, p.Total)
		assert.Empty(t, p.Items)
	}

	_, err = f.svc.List(ctx, f.admin, service.ListQuery{Sort: "password"})
	requireKind(t, err, service.KindInvalid, "")
	_, err = f.svc.List(ctx, f.admin, service.ListQuery{Sort: "date", Order: "sideways"})
	requireKind(t, err, service.KindInvalid, "")
	_, err = f.svc.List(ctx, f.admin, service.ListQuery{Page: 1, PageSize: service.MaxPageSize + 1})
	requireKind(t, err, service.KindInvalid, "")
}

func TestUpdateRefreshesDoctorName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, f.admin, input("Ada", f.lee.UserID, day))

	newDoc := f.okafor.UserID
	notes := "moved"
	require.NoError(t, f.svc.Update(ctx, f.admin, id, model.AppointmentPatch{DoctorID: &newDoc, Notes: &notes}))

	a, err := f.st.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.okafor.UserID, a.DoctorID)
	assert.Equal(t, "Dr. Okafor", a.DoctorName)
	assert.Equal(t, "moved", a.Notes)
	assert.Equal(t, "Ada", a.PatientName)

	last := f.pub.got[len(f.pub.got)-1]
	assert.Equal(t, events.AppointmentUpdated, last.Type)
	assert.Equal(t, f.okafor.UserID, last.DoctorID)
	assert.Equal(t, f.lee.UserID, last.PreviousDoctorID)
}

func TestUpdateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, f.admin, input("Ada", f.lee.UserID, day))
	notes := "n"

	requireKind(t, f.svc.Update(ctx, f.admin, "", model.AppointmentPatch{Notes: &notes}), service.KindInvalid, "")
	requireKind(t, f.svc.Update(ctx, f.admin, id, model.AppointmentPatch{}), service.KindInvalid, "")

	// doctorName alone is not an update
	name := "Dr. Fake"
	requireKind(t, f.svc.Update(ctx, f.admin, id, model.AppointmentPatch{DoctorName: &name}), service.KindInvalid, "")

	requireKind(t, f.svc.Update(ctx, f.admin, "missing", model.AppointmentPatch{Notes: &notes}),
		service.KindNotFound, service.MsgAppointmentAbsent)

	ghost := "ghost"
	requireKind(t, f.svc.Update(ctx, f.admin, id, model.AppointmentPatch{DoctorID: &ghost}),
		service.KindNotFound, service.MsgDoctorNotFound)

	// another doctor cannot see it
	requireKind(t, f.svc.Update(ctx, f.okafor, id, model.AppointmentPatch{Notes: &notes}), service.KindNotFound, "")

	// the owner cannot hand it off
	to := f.okafor.UserID
	requireKind(t, f.svc.Update(ctx, f.lee, id, model.AppointmentPatch{DoctorID: &to}), service.KindForbidden, "")

	require.NoError(t, f.svc.Update(ctx, f.lee, id, model.AppointmentPatch{Notes: &notes}))
	a, err := f.st.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Lee", a.DoctorName)
	assert.Equal(t, "n", a.Notes)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, f.admin, input("Ada", f.lee.UserID, day))

	requireKind(t, f.svc.Delete(ctx, f.admin, "missing"), service.KindNotFound, service.MsgAppointmentAbsent)
	requireKind(t, f.svc.Delete(ctx, f.admin, ""), service.KindInvalid, "")
	requireKind(t, f.svc.Delete(ctx, f.okafor, id), service.KindNotFound, "")
	assert.Equal(t, 1, f.count(t))

	require.NoError(t, f.svc.Delete(ctx, f.lee, id))
	assert.Zero(t, f.count(t))
	assert.Equal(t, []events.Type{events.AppointmentCreated, events.AppointmentDeleted}, f.pub.types())
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	st := memory.New()
	admin := addUser(t, st, model.RoleAdmin, "Admin")
	doc := addUser(t, st, model.RoleDoctor, "Dr. Who")
	svc := service.NewAppointments(st, &recorder{err: errBroker}, discard())

	id, err := svc.Create(context.Background(), admin, input("Ada", doc.UserID, day))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestDoctors(t *testing.T) {
	f := newFixture(t)
	docs, err := f.svc.Doctors(context.Background(), f.lee)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Dr. Lee", docs[0].Name)
	assert.Equal(t, "Dr. Okafor", docs[1].Name)
	for _, d := range docs {
		assert.Equal(t, model.RoleDoctor, d.Role)
	}
}

func TestEndToEnd(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	auth := service.NewAuthenticator(st, service.AuthConfig{Secret: secret, AccessTTL: time.Minute, RefreshTTL: time.Hour}, discard())
	svc := service.NewAppointments(st, nil, discard())

	signIn := func(email string, role model.Role, name string) model.Identity {
		s, err := auth.SignIn(ctx, creds(service.AuthRegister, email, "pw", role, name))
		require.NoError(t, err)
		id, err := auth.Verify(s.AccessToken)
		require.NoError(t, err)
		return id
	}
	admin := signIn("admin@clinic.test", model.RoleAdmin, "Admin")
	d1 := signIn("d1@clinic.test", model.RoleDoctor, "Dr. One")
	d2 := signIn("d2@clinic.test", model.RoleDoctor, "Dr. Two")

	_, err := svc.Create(ctx, admin, input("P1", d1.UserID, day))
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, input("P2", d2.UserID, day))
	require.NoError(t, err)

	all, err := svc.List(ctx, admin, service.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	for _, tc := range []struct {
		id      model.Identity
		patient string
	}{{d1, "P1"}, {d2, "P2"}} {
		p, err := svc.List(ctx, tc.id, service.ListQuery{})
		require.NoError(t, err)
		require.Len(t, p.Items, 1)
		assert.Equal(t, tc.patient, p.Items[0].PatientName)
		assert.Equal(t, tc.id.UserID, p.Items[0].DoctorID)
	}
}
