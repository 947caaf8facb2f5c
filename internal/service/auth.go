package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"medwise-api/internal/auth"
	"medwise-api/internal/model"
	"medwise-api/internal/store"
)

type AuthType string

const (
	AuthLogin    AuthType = "login"
	AuthRegister AuthType = "register"
	// AuthAuto registers unknown emails and logs known ones in.
	AuthAuto AuthType = ""
)

type Credentials struct {
	Email    string
	Password string
	Role     model.Role
	Name     string
	Type     AuthType
}

type Session struct {
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresAt    time.Time        `json:"expiresAt"`
}

type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Authenticator resolves credentials to users and mints sessions: a signed
// access token plus a rotating refresh token whose hash is stored.
type Authenticator struct {
	users  store.Users
	tokens store.RefreshTokens
	cfg    AuthConfig
	log    *slog.Logger
	now    func() time.Time
}

func NewAuthenticator(st store.Store, cfg AuthConfig, log *slog.Logger) *Authenticator {
	return &Authenticator{users: st, tokens: st, cfg: cfg, log: log, now: time.Now}
}

// RefreshTTL is how long a freshly issued refresh token stays valid.
func (a *Authenticator) RefreshTTL() time.Duration { return a.cfg.RefreshTTL }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authorize registers or logs in according to c.Type and returns the user.
func (a *Authenticator) Authorize(ctx context.Context, c Credentials) (*model.User, error) {
	c.Email = normalizeEmail(c.Email)
	if c.Email == "" || c.Password == "" {
		return nil, invalid("Email and password are required")
	}
	if !c.Role.Valid() {
		return nil, invalid(MsgInvalidRole)
	}

	switch c.Type {
	case AuthRegister:
		return a.register(ctx, c)
	case AuthLogin:
		return a.login(ctx, c)
	case AuthAuto:
		_, err := a.users.UserByEmail(ctx, c.Email)
		if errors.Is(err, store.ErrNotFound) {
			return a.register(ctx, c)
		}
		if err != nil {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		return a.login(ctx, c)
	}
	return nil, invalid("Invalid authentication type")
}

func (a *Authenticator) register(ctx context.Context, c Credentials) (*model.User, error) {
	switch _, err := a.users.UserByEmail(ctx, c.Email); {
	case err == nil:
		return nil, conflict(MsgUserExists)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil, invalid(MsgNameRequired)
	}

	hash, err := auth.HashPassword(c.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        c.Email,
		PasswordHash: hash,
		Role:         c.Role,
	}
	if err := a.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, conflict(MsgUserExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	a.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (a *Authenticator) login(ctx context.Context, c Credentials) (*model.User, error) {
	u, err := a.users.UserByEmail(ctx, c.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthenticated(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, c.Password) {
		return nil, unauthenticated(MsgInvalidCreds)
	}
	if u.Role != c.Role {
		return nil, unauthenticated(MsgInvalidRole)
	}
	return u, nil
}

// SignIn authorizes c and issues a fresh session.
func (a *Authenticator) SignIn(ctx context.Context, c Credentials) (*Session, error) {
	u, err := a.Authorize(ctx, c)
	if err != nil {
		return nil, err
	}
	return a.issue(ctx, u)
}

func (a *Authenticator) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, exp, err := auth.MakeToken(u.ID, u.Role, a.cfg.Secret, a.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if _, err := a.tokens.CreateRefreshToken(ctx, u.ID, hash, a.now().Add(a.cfg.RefreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{User: u.Public(), AccessToken: access, RefreshToken: raw, ExpiresAt: exp}, nil
}

// Refresh trades a refresh token for a new session and revokes the old
// token. Presenting an already revoked token revokes every session of its
// owner.
func (a *Authenticator) Refresh(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, unauthenticated(MsgUnauthorized)
	}
	rt, err := a.tokens.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthenticated(MsgUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if rt.Revoked {
		a.revokeFamily(ctx, rt.UserID)
		return nil, unauthenticated(MsgUnauthorized)
	}
	if !a.now().Before(rt.ExpiresAt) {
		return nil, unauthenticated(MsgUnauthorized)
	}

	u, err := a.users.UserByID(ctx, rt.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthenticated(MsgUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	newID := uuid.New().String()
	err = a.tokens.RotateRefreshToken(ctx, rt.ID, newID, u.ID, newHash, a.now().Add(a.cfg.RefreshTTL))
	if errors.Is(err, store.ErrNotFound) {
		// lost a race with another rotation of the same token
		a.revokeFamily(ctx, rt.UserID)
		return nil, unauthenticated(MsgUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, exp, err := auth.MakeToken(u.ID, u.Role, a.cfg.Secret, a.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &Session{User: u.Public(), AccessToken: access, RefreshToken: newRaw, ExpiresAt: exp}, nil
}

func (a *Authenticator) revokeFamily(ctx context.Context, userID string) {
	a.log.Warn("refresh token replay, revoking all sessions", "user_id", userID)
	if err := a.tokens.RevokeAllRefreshTokens(ctx, userID); err != nil {
		a.log.Error("revoke refresh tokens", "user_id", userID, "error", err)
	}
}

func (a *Authenticator) SignOut(ctx context.Context, userID string) error {
	if userID == "" {
		return unauthenticated(MsgUnauthorized)
	}
	if err := a.tokens.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// Verify checks an access token and returns the identity it carries.
func (a *Authenticator) Verify(token string) (model.Identity, error) {
	claims, err := auth.ParseToken(token, a.cfg.Secret)
	if err != nil || !claims.Role.Valid() {
		return model.Identity{}, unauthenticated(MsgUnauthorized)
	}
	return claims.Identity(), nil
}

// Me returns the public profile of the caller.
func (a *Authenticator) Me(ctx context.Context, id model.Identity) (model.PublicUser, error) {
	if id.UserID == "" {
		return model.PublicUser{}, unauthenticated(MsgUnauthorized)
	}
	u, err := a.users.UserByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return model.PublicUser{}, unauthenticated(MsgUnauthorized)
	}
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("lookup user: %w", err)
	}
	return u.Public(), nil
}
