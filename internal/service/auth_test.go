package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medwise-api/internal/model"
	"medwise-api/internal/service"
	"medwise-api/internal/store/memory"
)

const secret = "service-test-secret"

func newAuth(t *testing.T) (*service.Authenticator, *memory.Store) {
	t.Helper()
	st := memory.New()
	cfg := service.AuthConfig{Secret: secret, AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour}
	return service.NewAuthenticator(st, cfg, discard()), st
}

func creds(typ service.AuthType, email, password string, role model.Role, name string) service.Credentials {
	return service.Credentials{Email: email, Password: password, Role: role, Name: name, Type: typ}
}

func TestRegister(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	u, err := a.Authorize(ctx, creds(service.AuthRegister, "  House@Clinic.TEST ", "vicodin", model.RoleDoctor, "  Greg House "))
	require.NoError(t, err)
	assert.Equal(t, "house@clinic.test", u.Email)
	assert.Equal(t, "Greg House", u.Name)
	assert.Equal(t, model.RoleDoctor, u.Role)
	assert.NotEqual(t, "vicodin", u.PasswordHash)

	_, err = a.Authorize(ctx, creds(service.AuthRegister, "house@clinic.test", "other", model.RoleAdmin, "Someone"))
	requireKind(t, err, service.KindConflict, service.MsgUserExists)

	// the duplicate wins over a missing name
	_, err = a.Authorize(ctx, creds(service.AuthRegister, "house@clinic.test", "other", model.RoleAdmin, ""))
	requireKind(t, err, service.KindConflict, service.MsgUserExists)

	_, err = a.Authorize(ctx, creds(service.AuthRegister, "cuddy@clinic.test", "pw", model.RoleAdmin, "   "))
	requireKind(t, err, service.KindInvalid, service.MsgNameRequired)
}

func TestLogin(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()
	_, err := a.Authorize(ctx, creds(service.AuthRegister, "wilson@clinic.test", "oncology", model.RoleDoctor, "James Wilson"))
	require.NoError(t, err)

	u, err := a.Authorize(ctx, creds(service.AuthLogin, "WILSON@clinic.test", "oncology", model.RoleDoctor, ""))
	require.NoError(t, err)
	assert.Equal(t, "James Wilson", u.Name)

	_, err = a.Authorize(ctx, creds(service.AuthLogin, "wilson@clinic.test", "wrong", model.RoleDoctor, ""))
	requireKind(t, err, service.KindUnauthenticated, service.MsgInvalidCreds)

	_, err = a.Authorize(ctx, creds(service.AuthLogin, "wilson@clinic.test", "oncology", model.RoleAdmin, ""))
	requireKind(t, err, service.KindUnauthenticated, service.MsgInvalidRole)

	_, err = a.Authorize(ctx, creds(service.AuthLogin, "nobody@clinic.test", "x", model.RoleDoctor, ""))
	requireKind(t, err, service.KindUnauthenticated, service.MsgUserNotFound)
}

func TestAuthorizeValidation(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	_, err := a.Authorize(ctx, creds(service.AuthLogin, "", "x", model.RoleDoctor, ""))
	requireKind(t, err, service.KindInvalid, "")
	_, err = a.Authorize(ctx, creds(service.AuthLogin, "a@b.c", "", model.RoleDoctor, ""))
	requireKind(t, err, service.KindInvalid, "")
	_, err = a.Authorize(ctx, creds(service.AuthLogin, "a@b.c", "x", "Nurse", ""))
	requireKind(t, err, service.KindInvalid, service.MsgInvalidRole)
	_, err = a.Authorize(ctx, creds("magic", "a@b.c", "x", model.RoleDoctor, ""))
	requireKind(t, err, service.KindInvalid, "")
}

func TestAutoMode(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	// unknown email without a name asks for one
	_, err := a.Authorize(ctx, creds(service.AuthAuto, "chase@clinic.test", "pw", model.RoleDoctor, ""))
	requireKind(t, err, service.KindInvalid, service.MsgNameRequired)

	u, err := a.Authorize(ctx, creds(service.AuthAuto, "chase@clinic.test", "pw", model.RoleDoctor, "Robert Chase"))
	require.NoError(t, err)

	again, err := a.Authorize(ctx, creds(service.AuthAuto, "chase@clinic.test", "pw", model.RoleDoctor, ""))
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	_, err = a.Authorize(ctx, creds(service.AuthAuto, "chase@clinic.test", "bad", model.RoleDoctor, ""))
	requireKind(t, err, service.KindUnauthenticated, service.MsgInvalidCreds)
}

func TestSessionAndVerify(t *testing.T) {
	a, _ := newAuth(t)
	s, err := a.SignIn(context.Background(), creds(service.AuthRegister, "cameron@clinic.test", "pw", model.RoleAdmin, "Allison Cameron"))
	require.NoError(t, err)
	assert.NotEmpty(t, s.AccessToken)
	assert.Len(t, s.RefreshToken, 64)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), s.ExpiresAt, 5*time.Second)
	assert.Equal(t, "cameron@clinic.test", s.User.Email)

	id, err := a.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, id.UserID)
	assert.Equal(t, model.RoleAdmin, id.Role)

	me, err := a.Me(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Allison Cameron", me.Name)

	_, err = a.Verify(s.AccessToken + "x")
	requireKind(t, err, service.KindUnauthenticated, service.MsgUnauthorized)

	other := service.NewAuthenticator(memory.New(), service.AuthConfig{Secret: "another", AccessTTL: time.Minute, RefreshTTL: time.Hour}, discard())
	_, err = other.Verify(s.AccessToken)
	requireKind(t, err, service.KindUnauthenticated, "")
}

func TestRefreshRotation(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()
	s1, err := a.SignIn(ctx, creds(service.AuthRegister, "foreman@clinic.test", "pw", model.RoleDoctor, "Eric Foreman"))
	require.NoError(t, err)

	s2, err := a.Refresh(ctx, s1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s1.RefreshToken, s2.RefreshToken)
	assert.Equal(t, s1.User, s2.User)

	// replaying the rotated token kills the whole family
	_, err = a.Refresh(ctx, s1.RefreshToken)
	requireKind(t, err, service.KindUnauthenticated, "")
	_, err = a.Refresh(ctx, s2.RefreshToken)
	requireKind(t, err, service.KindUnauthenticated, "")

	_, err = a.Refresh(ctx, "")
	requireKind(t, err, service.KindUnauthenticated, "")
	_, err = a.Refresh(ctx, "deadbeef")
	requireKind(t, err, service.KindUnauthenticated, "")
}

func TestRefreshExpired(t *testing.T) {
	st := memory.New()
	a := service.NewAuthenticator(st, service.AuthConfig{Secret: secret, AccessTTL: time.Minute, RefreshTTL: -time.Minute}, discard())
	s, err := a.SignIn(context.Background(), creds(service.AuthRegister, "taub@clinic.test", "pw", model.RoleDoctor, "Chris Taub"))
	require.NoError(t, err)

	_, err = a.Refresh(context.Background(), s.RefreshToken)
	requireKind(t, err, service.KindUnauthenticated, "")
}

func TestSignOut(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()
	s, err := a.SignIn(ctx, creds(service.AuthRegister, "thirteen@clinic.test", "pw", model.RoleDoctor, "Remy Hadley"))
	require.NoError(t, err)

	require.NoError(t, a.SignOut(ctx, s.User.ID))
	_, err = a.Refresh(ctx, s.RefreshToken)
	requireKind(t, err, service.KindUnauthenticated, "")

	requireKind(t, a.SignOut(ctx, ""), service.KindUnauthenticated, "")
}
