package http

import (
	"net/http"

	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-practice/internal/auth/middleware"
)

type credentialsReq struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	User        auth.User `json:"user"`
}

// POST /api/auth/register {username, password}
func RegisterHandler(users *auth.UserStore, a *auth.AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		u, err := users.Create(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, log, err)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Username)
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("user registered", zap.Int64("user_id", u.ID))
		writeJSON(w, http.StatusCreated, tokenResp{AccessToken: tok, User: u})
	}
}

// POST /api/auth/login {username, password}
func LoginHandler(users *auth.UserStore, a *auth.AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		u, err := users.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, log, err)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Username)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResp{AccessToken: tok, User: u})
	}
}

// GET /api/auth/me
func MeHandler(users *auth.UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		u, err := users.Get(r.Context(), uid)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
