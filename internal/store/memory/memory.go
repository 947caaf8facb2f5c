// Package memory is a map-backed store.Store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"medwise-api/internal/model"
	"medwise-api/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]model.User
	emails       map[string]string // email -> user id
	appointments map[string]model.Appointment
	tokens       map[string]model.RefreshToken
	now          func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[string]model.User),
		emails:       make(map[string]string),
		appointments: make(map[string]model.Appointment),
		tokens:       make(map[string]model.RefreshToken),
		now:          time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return store.ErrDuplicateEmail
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UsersByRole(_ context.Context, role model.Role) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.User{}
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.appointments[a.ID] = *a
	return nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAppointments(_ context.Context, f store.AppointmentFilter) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateAppointment(_ context.Context, id string, p model.AppointmentPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Apply(&a)
	a.UpdatedAt = s.now()
	s.appointments[id] = a
	return nil
}

func (s *Store) DeleteAppointment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

func (s *Store) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.tokens[id] = model.RefreshToken{
		ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: s.now(),
	}
	return id, nil
}

func (s *Store) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rt := range s.tokens {
		if rt.TokenHash == tokenHash {
			return &rt, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tokens[oldID]
	if !ok || old.Revoked {
		return store.ErrNotFound
	}
	old.Revoked = true
	old.ReplacedBy = &newID
	s.tokens[oldID] = old
	s.tokens[newID] = model.RefreshToken{
		ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: s.now(),
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rt := range s.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			s.tokens[id] = rt
		}
	}
	return nil
}
