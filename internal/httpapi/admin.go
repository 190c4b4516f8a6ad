package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/authtoken"
	"github.com/avvvet/marketday/internal/clockengine"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/go-chi/chi"
	"github.com/jackc/pgx/v5"
)

func (a *App) actorID(r *http.Request) int64 {
	claims, _ := authtoken.FromContext(r.Context())
	return claims.UserID
}

// handleGameStart runs the clock lifecycle op and then resets the tick
// loop's day-transition tracker (tick.Loop.NotifyStarted), so the next
// scheduled 1s tick records the current day instead of running a
// day-boundary pipeline. No tick is run from here.
func (a *App) handleGameStart(w http.ResponseWriter, r *http.Request) {
	if err := a.clock.Start(r.Context(), time.Now(), a.actorID(r)); err != nil {
		writeError(w, err)
		return
	}
	a.tick.NotifyStarted()
	writeOK(w, http.StatusOK, "game started", nil)
}

func (a *App) handleGameStop(w http.ResponseWriter, r *http.Request) {
	if err := a.clock.Stop(r.Context(), time.Now(), a.actorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "game stopped", nil)
}

func (a *App) handleGameResume(w http.ResponseWriter, r *http.Request) {
	if err := a.clock.Resume(r.Context(), time.Now(), a.actorID(r)); err != nil {
		writeError(w, err)
		return
	}
	a.tick.NotifyStarted()
	writeOK(w, http.StatusOK, "game resumed", nil)
}

func (a *App) handleGameRestart(w http.ResponseWriter, r *http.Request) {
	if err := a.clock.Restart(r.Context(), a.actorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "game restarted", nil)
}

func (a *App) handleGameReset(w http.ResponseWriter, r *http.Request) {
	if err := a.clock.Reset(r.Context(), a.actorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "game reset", nil)
}

func (a *App) handleGetParams(w http.ResponseWriter, r *http.Request) {
	gs, err := a.store.GetGameStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", gs)
}

type putParamsRequest struct {
	TimeRatio         *int64  `json:"timeRatio"`
	MaxLeverage       *int    `json:"maxLeverage"`
	DailyInterestRate *string `json:"dailyInterestRate"`
	MaxLoanAmount     *string `json:"maxLoanAmount"`
}

// handlePutParams edits the live game_status row. A timeRatio change
// goes through clockengine.UpdateTimeRatio so the derived day/second
// never jumps (spec §4.1 "update params"); the credit knobs are plain
// field writes, broadcasting LOAN_CONFIG_UPDATE since they change what a
// borrower is allowed to do (spec §6).
func (a *App) handlePutParams(w http.ResponseWriter, r *http.Request) {
	var req putParamsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.TimeRatio != nil {
		if err := a.clock.UpdateTimeRatio(r.Context(), time.Now(), *req.TimeRatio, a.actorID(r)); err != nil {
			writeError(w, err)
			return
		}
	}

	var creditChanged bool
	err := a.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		gs, err := a.store.GetGameStatusForUpdate(r.Context(), tx)
		if err != nil {
			return err
		}
		if req.MaxLeverage != nil {
			gs.MaxLeverage = *req.MaxLeverage
		}
		if req.DailyInterestRate != nil {
			rate, err := parseDecimal(*req.DailyInterestRate)
			if err != nil {
				return err
			}
			gs.DailyInterestRate = rate
			creditChanged = true
		}
		if req.MaxLoanAmount != nil {
			amount, err := parseDecimal(*req.MaxLoanAmount)
			if err != nil {
				return err
			}
			gs.MaxLoanAmount = amount
			creditChanged = true
		}
		return a.store.UpdateGameStatus(r.Context(), tx, gs)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "UPDATE_PARAMS", "game_status", "", "")
	if creditChanged {
		gs, err := a.store.GetGameStatus(r.Context())
		if err == nil {
			a.hub.BroadcastGlobal(comm.NewMessage(comm.EventLoanConfigUpdate, gs))
		}
	}
	writeOK(w, http.StatusOK, "params updated", nil)
}

func (a *App) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", users)
}

type updateUserRequest struct {
	Cash        *string `json:"cash"`
	Debt        *string `json:"debt"`
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role"`
}

// handleUpdateUser lets an admin directly edit a player's balances or
// role, the same single-row FOR UPDATE shape as every other money write
// (spec §5).
func (a *App) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var out *models.User
	err = a.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		u, err := a.store.GetUserForUpdate(r.Context(), tx, id)
		if err != nil {
			return err
		}
		if req.Cash != nil {
			v, err := parseDecimal(*req.Cash)
			if err != nil {
				return err
			}
			u.Cash = v
		}
		if req.Debt != nil {
			v, err := parseDecimal(*req.Debt)
			if err != nil {
				return err
			}
			u.Debt = v
		}
		if err := a.store.UpdateUserBalances(r.Context(), tx, u); err != nil {
			return err
		}
		if req.DisplayName != nil {
			u.DisplayName = *req.DisplayName
		}
		if req.Role != nil {
			u.Role = models.Role(*req.Role)
		}
		if err := a.store.UpdateUserProfile(r.Context(), tx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "UPDATE_USER", "user", strconv.FormatInt(id, 10), "")
	a.hub.SendToUser(id, comm.NewMessage(comm.EventUserDataUpdated, out))
	a.hub.SendToUser(id, comm.NewMessage(comm.EventAssetsUpdate, comm.AssetsUpdatePayload{
		Cash: out.Cash, Stocks: out.Stocks, Debt: out.Debt, DailyBorrowed: out.DailyBorrowed,
	}))
	writeOK(w, http.StatusOK, "user updated", out)
}

// handleDeleteUser issues a direct statement inside the same row-lock
// transaction as every other user write; the store's DeleteUsersExcept
// bulk op doesn't fit a single arbitrary id.
func (a *App) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = a.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		if _, err := a.store.GetUserForUpdate(r.Context(), tx, id); err != nil {
			return err
		}
		_, execErr := tx.Exec(r.Context(), `DELETE FROM users WHERE id = $1`, id)
		return execErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "DELETE_USER", "user", strconv.FormatInt(id, 10), "")
	writeOK(w, http.StatusOK, "user deleted", nil)
}

// handleKickUser force-disconnects every socket a user has open (spec §6
// "FORCE_LOGOUT").
func (a *App) handleKickUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	a.hub.KickUser(id)
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "KICK_USER", "user", strconv.FormatInt(id, 10), "")
	writeOK(w, http.StatusOK, "user kicked", nil)
}

func (a *App) handleMonitorHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := a.store.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", entries)
}

// handleClearNews wipes the current day's visible headline without
// touching the price timeline (spec §6 "CLEAR_NEWS ... as their names
// suggest").
func (a *App) handleClearNews(w http.ResponseWriter, r *http.Request) {
	gs, err := a.store.GetGameStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	state := clockengine.Derive(gs, time.Now())
	_ = a.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		d, err := a.store.GetScriptDay(r.Context(), state.CurrentDay)
		if err != nil {
			return nil
		}
		d.Title = nil
		d.News = nil
		return a.store.UpsertScriptDay(r.Context(), tx, d)
	})
	_ = a.cache.Reload(r.Context(), a.store)
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "CLEAR_NEWS", "script_day", strconv.Itoa(state.CurrentDay), "")
	a.hub.BroadcastGlobal(comm.NewMessage(comm.EventClearNews, nil))
	writeOK(w, http.StatusOK, "news cleared", nil)
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.KindValidation, "invalid id")
	}
	return id, nil
}
