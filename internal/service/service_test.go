package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medwise-api/internal/events"
	"medwise-api/internal/model"
	"medwise-api/internal/service"
	"medwise-api/internal/store/memory"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireKind(t *testing.T, err error, want service.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	kind, got, ok := service.KindOf(err)
	require.True(t, ok, "expected service error, got %v", err)
	assert.Equal(t, want, kind)
	if msg != "" {
		assert.Equal(t, msg, got)
	}
}

type recorder struct {
	mu  sync.Mutex
	got []events.Event
	err error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return r.err
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Type
	for _, e := range r.got {
		out = append(out, e.Type)
	}
	return out
}

var errBroker = errors.New("broker down")

func addUser(t *testing.T, st *memory.Store, role model.Role, name string) model.Identity {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        uuid.New().String()[:8] + "@clinic.test",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return model.Identity{UserID: u.ID, Role: role}
}
