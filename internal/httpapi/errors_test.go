package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chessica/backend/internal/apperr"
)

func TestStatusForMapsEveryKind(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindIllegalMove, http.StatusBadRequest},
		{apperr.KindUnauthorized, http.StatusUnauthorized},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindMatchmakingConflict, http.StatusConflict},
		{apperr.KindGameOver, http.StatusGone},
		{apperr.KindRateLimited, http.StatusTooManyRequests},
		{apperr.KindSummarizerUnavailable, http.StatusBadGateway},
		{apperr.KindFeatureDisabled, http.StatusServiceUnavailable},
		{apperr.KindPersistence, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.kind))
	}
}

func TestWriteErrorSetsStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperr.NotFound("session not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session not found")
}
