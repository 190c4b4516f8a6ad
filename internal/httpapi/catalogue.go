package httpapi

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/script"
)

func (a *App) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.store.ListEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", events)
}

type upsertEventRequest struct {
	ID    int64        `json:"id"`
	Day   int          `json:"day"`
	Title string       `json:"title"`
	News  *string      `json:"news"`
	Trend models.Trend `json:"trend"`
}

func (a *App) handleUpsertEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req upsertEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Day < 1 {
		writeError(w, apperr.New(apperr.KindValidation, "day must be at least 1"))
		return
	}
	ev, err := a.store.UpsertEvent(r.Context(), &models.Event{
		ID: id, Day: req.Day, Title: req.Title, News: req.News, Trend: req.Trend,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "UPSERT_EVENT", "event", strconv.FormatInt(ev.ID, 10), "")
	writeOK(w, http.StatusOK, "event saved", ev)
}

func (a *App) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.DeleteEvent(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "DELETE_EVENT", "event", strconv.FormatInt(id, 10), "")
	writeOK(w, http.StatusOK, "event deleted", nil)
}

// handleGenerateScript regenerates the whole price/news timeline from
// the current InitialPrice, TotalDays, admin-authored events, and the
// balance config's drift coefficients (spec §4.7). Unlike script_days
// rows scanned back from storage, a fresh run here always reseeds with
// a new pseudo-random source — there is no "replay the same script"
// requirement in the spec, so a caller that wants a new timeline always
// gets a genuinely new one.
func (a *App) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	gs, err := a.store.GetGameStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := a.store.ListEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	params := script.Params{
		TargetDailyChange: a.balance.Script.TargetDailyChange,
		BullDrift:         a.balance.Script.BullDrift,
		Decay:             a.balance.Script.Decay,
	}
	if err := script.Generate(r.Context(), a.store, gs.InitialPrice, gs.TotalDays, events, params, rng, gs.TimeRatio); err != nil {
		writeError(w, err)
		return
	}
	if err := a.cache.Reload(r.Context(), a.store); err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "GENERATE_SCRIPT", "script", "", "")
	writeOK(w, http.StatusOK, "script generated", nil)
}

func (a *App) handleListScriptDays(w http.ResponseWriter, r *http.Request) {
	days, err := a.store.ListScriptDays(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", days)
}

func (a *App) handleListQuizQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := a.store.ListQuizQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", qs)
}

func (a *App) handleUpsertQuizQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var q models.QuizQuestion
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, err)
		return
	}
	q.ID = id
	out, err := a.store.UpsertQuizQuestion(r.Context(), &q)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "UPSERT_QUIZ_QUESTION", "quiz_question", strconv.FormatInt(out.ID, 10), "")
	writeOK(w, http.StatusOK, "quiz question saved", out)
}

func (a *App) handleDeleteQuizQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.DeleteQuizQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "DELETE_QUIZ_QUESTION", "quiz_question", strconv.FormatInt(id, 10), "")
	writeOK(w, http.StatusOK, "quiz question deleted", nil)
}

func (a *App) handleListMinorityQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := a.store.ListMinorityQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", qs)
}

func (a *App) handleUpsertMinorityQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var q models.MinorityQuestion
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, err)
		return
	}
	q.ID = id
	out, err := a.store.UpsertMinorityQuestion(r.Context(), &q)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "UPSERT_MINORITY_QUESTION", "minority_question", strconv.FormatInt(out.ID, 10), "")
	writeOK(w, http.StatusOK, "minority question saved", out)
}

func (a *App) handleDeleteMinorityQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.DeleteMinorityQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "DELETE_MINORITY_QUESTION", "minority_question", strconv.FormatInt(id, 10), "")
	writeOK(w, http.StatusOK, "minority question deleted", nil)
}

func (a *App) handleListRedEnvelopeItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.store.ListActiveRedEnvelopeItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ok", items)
}

func (a *App) handleUpsertRedEnvelopeItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var it models.RedEnvelopeItem
	if err := decodeJSON(r, &it); err != nil {
		writeError(w, err)
		return
	}
	it.ID = id
	out, err := a.store.UpsertRedEnvelopeItem(r.Context(), &it)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "UPSERT_RED_ENVELOPE_ITEM", "red_envelope_item", strconv.FormatInt(out.ID, 10), "")
	writeOK(w, http.StatusOK, "red envelope item saved", out)
}

func (a *App) handleDeleteRedEnvelopeItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.DeleteRedEnvelopeItem(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	_ = a.store.WriteAudit(r.Context(), a.actorID(r), "DELETE_RED_ENVELOPE_ITEM", "red_envelope_item", strconv.FormatInt(id, 10), "")
	writeOK(w, http.StatusOK, "red envelope item deleted", nil)
}
