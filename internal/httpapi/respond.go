package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/shopspring/decimal"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, apperr.New(apperr.KindValidation, "invalid decimal value")
	}
	return v.Round(2), nil
}

// Response mirrors the teacher's {message, code, data, error} envelope
// (internal/gamesvc/handlers.Response) used by every JSON endpoint.
type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rsp)
}

func writeOK(w http.ResponseWriter, code int, message string, data interface{}) {
	writeJSON(w, code, Response{Message: message, Code: code, Data: data})
}

// writeError maps an apperr.Kind to the HTTP status table in spec §6.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case apperr.KindValidation:
		code = http.StatusBadRequest
	case apperr.KindAuth:
		code = http.StatusUnauthorized
	case apperr.KindPermission:
		code = http.StatusForbidden
	case apperr.KindPrecondition, apperr.KindInsufficient, apperr.KindHoldings, apperr.KindQuotaExceeded, apperr.KindGameNotRunning:
		code = http.StatusBadRequest
	case apperr.KindConflict:
		code = http.StatusConflict
	case apperr.KindNotFound:
		code = http.StatusNotFound
	case apperr.KindStoreDown:
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, Response{Message: "request failed", Code: code, Error: err.Error()})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}
