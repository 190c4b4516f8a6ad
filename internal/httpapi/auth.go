package httpapi

import (
	"net/http"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/authtoken"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// handleRegister creates a new USER account seeded with the current
// InitialCash (spec §4.3), grounded on the teacher's bcrypt-free
// handlers rewritten to hash credentials since this game keeps its own
// account store rather than delegating to an external auth provider.
func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" || req.DisplayName == "" {
		writeError(w, apperr.New(apperr.KindValidation, "username, password and displayName are required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, "hash password", err))
		return
	}

	gs, err := a.store.GetGameStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	u, err := a.store.CreateUser(r.Context(), req.Username, string(hash), req.DisplayName, gs.InitialCash)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := a.auth.Issue(u.ID, u.Role, time.Now().Add(tokenTTL).Unix())
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, "issue token", err))
		return
	}
	writeOK(w, http.StatusCreated, "registered", authResponse{Token: token, User: u})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	u, err := a.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, apperr.New(apperr.KindAuth, "invalid username or password"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, apperr.New(apperr.KindAuth, "invalid username or password"))
		return
	}

	token, err := a.auth.Issue(u.ID, u.Role, time.Now().Add(tokenTTL).Unix())
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, "issue token", err))
		return
	}
	writeOK(w, http.StatusOK, "logged in", authResponse{Token: token, User: u})
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, err := authtoken.FromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := a.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", u)
}

type updateAvatarRequest struct {
	Avatar string `json:"avatar"`
}

// handleUpdateAvatar lets a player change their avatar, tracked by
// AvatarUpdateCount the way the teacher's game_player_store tracks
// per-player counters, and fans USER_DATA_UPDATED out to every socket
// that user currently has open (spec §6 "as their names suggest").
func (a *App) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	claims, err := authtoken.FromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateAvatarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Avatar == "" {
		writeError(w, apperr.New(apperr.KindValidation, "avatar is required"))
		return
	}

	u, err := a.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	u.Avatar = req.Avatar
	u.AvatarUpdateCount++
	if err := a.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		return a.store.UpdateUserProfile(r.Context(), tx, u)
	}); err != nil {
		writeError(w, err)
		return
	}

	a.hub.SendToUser(u.ID, comm.NewMessage(comm.EventUserDataUpdated, u))
	writeOK(w, http.StatusOK, "avatar updated", u)
}

type updateAccountRequest struct {
	DisplayName *string `json:"displayName"`
}

func (a *App) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	claims, err := authtoken.FromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	u, err := a.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.DisplayName != nil && *req.DisplayName != "" {
		u.DisplayName = *req.DisplayName
	}
	if err := a.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		return a.store.UpdateUserProfile(r.Context(), tx, u)
	}); err != nil {
		writeError(w, err)
		return
	}

	a.hub.SendToUser(u.ID, comm.NewMessage(comm.EventUserDataUpdated, u))
	writeOK(w, http.StatusOK, "account updated", u)
}
