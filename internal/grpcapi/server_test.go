package grpcapi_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"medwise-api/internal/grpcapi"
	"medwise-api/internal/middleware"
	"medwise-api/internal/model"
	"medwise-api/internal/service"
	"medwise-api/internal/store/memory"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func start(t *testing.T, limiter *middleware.RateLimiter) *grpcapi.Client {
	t.Helper()
	st := memory.New()
	log := discard()
	authn := service.NewAuthenticator(st, service.AuthConfig{
		Secret:     "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	}, log)
	srv := grpcapi.NewGRPCServer(grpcapi.NewServer(authn, service.NewAppointments(st, nil, log), log), limiter)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return grpcapi.NewClient(conn)
}

func TestScheduleService(t *testing.T) {
	c := start(t, nil)
	ctx := context.Background()

	admin, err := c.Register(ctx, &grpcapi.RegisterRequest{Email: "desk@clinic.test", Password: "pw", Name: "Front Desk", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.User.Role)
	assert.NotEmpty(t, admin.AccessToken)
	assert.True(t, admin.ExpiresAt.After(time.Now()))

	_, err = c.Register(ctx, &grpcapi.RegisterRequest{Email: "lee@clinic.test", Password: "pw", Name: "Dr. Lee", Role: model.RoleDoctor})
	require.NoError(t, err)
	lee, err := c.Login(ctx, &grpcapi.LoginRequest{Email: "lee@clinic.test", Password: "pw", Role: model.RoleDoctor})
	require.NoError(t, err)

	_, err = c.Login(ctx, &grpcapi.LoginRequest{Email: "lee@clinic.test", Password: "bad", Role: model.RoleDoctor})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	_, err = c.Register(ctx, &grpcapi.RegisterRequest{Email: "lee@clinic.test", Password: "pw", Name: "Dup", Role: model.RoleDoctor})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	// everything else needs a token
	_, err = c.ListAppointments(ctx, &grpcapi.ListAppointmentsRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	adminCtx := grpcapi.WithToken(ctx, admin.AccessToken)
	leeCtx := grpcapi.WithToken(ctx, lee.AccessToken)

	docs, err := c.ListDoctors(leeCtx)
	require.NoError(t, err)
	require.Len(t, docs.Doctors, 1)
	assert.Equal(t, "Dr. Lee", docs.Doctors[0].Name)

	when := time.Date(2031, 5, 4, 10, 30, 0, 0, time.UTC)
	created, err := c.CreateAppointment(adminCtx, &grpcapi.CreateAppointmentRequest{
		PatientName:   "Ada",
		PatientAge:    41,
		PatientGender: model.GenderFemale,
		DoctorID:      lee.User.ID,
		Date:          when,
		Type:          model.VisitVirtual,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	_, err = c.CreateAppointment(adminCtx, &grpcapi.CreateAppointmentRequest{PatientName: "x"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	list, err := c.ListAppointments(leeCtx, &grpcapi.ListAppointmentsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Appointments, 1)
	got := list.Appointments[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Dr. Lee", got.DoctorName)
	assert.Equal(t, 41, got.PatientAge)
	assert.True(t, when.Equal(got.Date))

	empty := ""
	_, err = c.UpdateAppointment(leeCtx, &grpcapi.UpdateAppointmentRequest{ID: created.ID, Patch: model.AppointmentPatch{Notes: &empty}})
	require.NoError(t, err)
	_, err = c.UpdateAppointment(leeCtx, &grpcapi.UpdateAppointmentRequest{ID: created.ID})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	other := "someone-else"
	_, err = c.UpdateAppointment(leeCtx, &grpcapi.UpdateAppointmentRequest{ID: created.ID, Patch: model.AppointmentPatch{DoctorID: &other}})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = c.DeleteAppointment(leeCtx, &grpcapi.DeleteAppointmentRequest{ID: created.ID})
	require.NoError(t, err)
	_, err = c.DeleteAppointment(adminCtx, &grpcapi.DeleteAppointmentRequest{ID: created.ID})
	assert.Equal(t, codes.NotFound, status.Code(err))

	refreshed, err := c.Refresh(ctx, &grpcapi.RefreshRequest{RefreshToken: lee.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, lee.RefreshToken, refreshed.RefreshToken)
	_, err = c.Refresh(ctx, &grpcapi.RefreshRequest{RefreshToken: lee.RefreshToken})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHugePageIsEmpty(t *testing.T) {
	c := start(t, nil)
	ctx := context.Background()

	_, err := c.Register(ctx, &grpcapi.RegisterRequest{Email: "lee@clinic.test", Password: "pw", Name: "Dr. Lee", Role: model.RoleDoctor})
	require.NoError(t, err)
	lee, err := c.Login(ctx, &grpcapi.LoginRequest{Email: "lee@clinic.test", Password: "pw", Role: model.RoleDoctor})
	require.NoError(t, err)
	leeCtx := grpcapi.WithToken(ctx, lee.AccessToken)

	_, err = c.CreateAppointment(leeCtx, &grpcapi.CreateAppointmentRequest{
		PatientName: "Ada",
		Date:        time.Date(2031, 5, 4, 10, 30, 0, 0, time.UTC),
		Type:        model.VisitInPerson,
	})
	require.NoError(t, err)

	list, err := c.ListAppointments(leeCtx, &grpcapi.ListAppointmentsRequest{Page: 100000000000000001, PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Empty(t, list.Appointments)

	// the server is still serving
	_, err = c.ListDoctors(leeCtx)
	require.NoError(t, err)
}

func TestLoginRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := start(t, middleware.NewRateLimiter(ctx, 0.001, 2))

	req := &grpcapi.LoginRequest{Email: "ghost@clinic.test", Password: "x", Role: model.RoleDoctor}
	for i := 0; i < 2; i++ {
		_, err := c.Login(ctx, req)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	}
	_, err := c.Login(ctx, req)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestUpdatePresenceSurvivesWire(t *testing.T) {
	empty := ""
	age := 0
	in := &grpcapi.UpdateAppointmentRequest{ID: "a1", Patch: model.AppointmentPatch{Notes: &empty, PatientAge: &age}}

	var out grpcapi.UpdateAppointmentRequest
	require.NoError(t, out.UnmarshalWire(in.MarshalWire()))
	assert.Equal(t, "a1", out.ID)
	require.NotNil(t, out.Patch.Notes)
	assert.Equal(t, "", *out.Patch.Notes)
	require.NotNil(t, out.Patch.PatientAge)
	assert.Equal(t, 0, *out.Patch.PatientAge)
	assert.Nil(t, out.Patch.PatientName)
	assert.Nil(t, out.Patch.Date)
}

func TestCodecRejectsGarbage(t *testing.T) {
	var m grpcapi.ListAppointmentsResponse
	assert.Error(t, grpcapi.Codec{}.Unmarshal([]byte{0x0a, 0x10, 0x01}, &m))
	_, err := grpcapi.Codec{}.Marshal("not a message")
	assert.Error(t, err)
}
