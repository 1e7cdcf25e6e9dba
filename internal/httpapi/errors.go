package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/chessica/backend/internal/apperr"
)

// writeError maps a domain error's apperr.Kind to its stable HTTP status
// and writes a small JSON error body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(apperr.KindOf(err)), map[string]string{"error": err.Error()})
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindIllegalMove:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindMatchmakingConflict:
		return http.StatusConflict
	case apperr.KindGameOver:
		return http.StatusGone
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindSummarizerUnavailable:
		return http.StatusBadGateway
	case apperr.KindFeatureDisabled:
		return http.StatusServiceUnavailable
	case apperr.KindPersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
