package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"example.com/abonos/internal/auth"
	"example.com/abonos/internal/domain"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	Username    string      `json:"username"`
	Role        domain.Role `json:"role"`
	ExpiresIn   int64       `json:"expiresIn"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type CreateUserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}

	u, err := a.Users.Get(r.Context(), req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		a.Log.Info("login rejected", "username", req.Username, "ip", clientIP(r))
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	token, err := a.Auth.Sign(u.Username, u.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		Username:    u.Username,
		Role:        u.Role,
		ExpiresIn:   int64(a.Auth.TTL().Seconds()),
	})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFromContext(r.Context())

	u, err := a.Users.Get(r.Context(), c.Username)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user not found")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFromContext(r.Context())

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := a.Users.Get(r.Context(), c.Username)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "current password is wrong")
		return
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		a.fail(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to hash password")
		return
	}
	if err := a.Users.UpdatePassword(r.Context(), u.Username, hash); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := auth.NewUser(req.Username, req.Password, req.Role)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Users.Create(r.Context(), u); err != nil {
		a.fail(w, r, err)
		return
	}

	a.Log.Info("user created", "username", u.Username, "role", u.Role, "by", Actor(r.Context()))
	writeJSON(w, http.StatusCreated, map[string]any{"username": u.Username, "role": u.Role})
}
