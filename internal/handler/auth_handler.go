package handler

import (
	"net/http"
	"time"

	"medwise-api/internal/middleware"
	"medwise-api/internal/model"
	"medwise-api/internal/service"
)

const refreshCookie = "refresh_token"

type signInRequest struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Role     model.Role       `json:"role"`
	Name     string           `json:"name"`
	Type     service.AuthType `json:"type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// setSessionCookies mirrors the session into httpOnly cookies for browsers.
func setSessionCookies(w http.ResponseWriter, r *http.Request, s *service.Session, refreshTTL time.Duration) {
	secure := r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    s.AccessToken,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    s.RefreshToken,
		Path:     "/api/auth",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: middleware.AccessCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Path: "/api/auth", MaxAge: -1, HttpOnly: true})
}

// SignIn registers or logs in depending on the request type.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.auth.SignIn(r.Context(), service.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Name:     req.Name,
		Type:     req.Type,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("user signed in", "user_id", s.User.ID, "role", s.User.Role)
	setSessionCookies(w, r, s, h.auth.RefreshTTL())
	respondWithJSON(w, http.StatusOK, s, h.logger)
}

// Refresh accepts the refresh token from the cookie or the body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if c, err := r.Cookie(refreshCookie); err == nil {
		raw = c.Value
	}
	if raw == "" && r.ContentLength != 0 {
		var req refreshRequest
		if !h.decode(w, r, &req) {
			return
		}
		raw = req.RefreshToken
	}

	s, err := h.auth.Refresh(r.Context(), raw)
	if err != nil {
		clearSessionCookies(w)
		h.fail(w, r, err)
		return
	}
	setSessionCookies(w, r, s, h.auth.RefreshTTL())
	respondWithJSON(w, http.StatusOK, s, h.logger)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	if err := h.auth.SignOut(r.Context(), id.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	clearSessionCookies(w)
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true}, h.logger)
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	u, err := h.auth.Me(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]model.PublicUser{"user": u}, h.logger)
}
