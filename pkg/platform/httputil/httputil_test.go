package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veritas/pkg/domain-errors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err         error
		status      int
		description string
	}{
		{dErrors.New(dErrors.CodeInternal, "pq: connection refused"), http.StatusInternalServerError, ""},
		{dErrors.New(dErrors.CodeInvalidState, "attempt is not ready"), http.StatusConflict, "attempt is not ready"},
		{dErrors.New(dErrors.CodeNotFound, "attempt not found"), http.StatusNotFound, "attempt not found"},
		{dErrors.New(dErrors.CodeRateLimited, "slow down"), http.StatusTooManyRequests, "slow down"},
	}
	for _, tt := range tests {
		code := dErrors.CodeOf(tt.err)
		t.Run(string(code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeError(t, rec)
			assert.Equal(t, string(code), body.Error)
			assert.Equal(t, tt.description, body.ErrorDescription, "internal messages stay private")
		})
	}
}

func TestStatusFor(t *testing.T) {
	want := map[dErrors.Code]int{
		dErrors.CodeValidation:         http.StatusBadRequest,
		dErrors.CodeUnauthorized:       http.StatusUnauthorized,
		dErrors.CodeForbidden:          http.StatusForbidden,
		dErrors.CodeConflict:           http.StatusConflict,
		dErrors.CodeInvalidState:       http.StatusConflict,
		dErrors.CodeInvariantViolation: http.StatusUnprocessableEntity,
		dErrors.CodeRateLimited:        http.StatusTooManyRequests,
		dErrors.CodeTimeout:            http.StatusGatewayTimeout,
		dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	}
	for code, status := range want {
		assert.Equal(t, status, StatusFor(code), code)
	}
}

type windowRequest struct {
	Days int `json:"days"`
}

func (r *windowRequest) Validate() error {
	if r.Days <= 0 {
		return dErrors.New(dErrors.CodeValidation, "days must be positive")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	decode := func(body string) (*windowRequest, *httptest.ResponseRecorder, bool) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/windows", strings.NewReader(body))
		req, ok := DecodeAndPrepare[windowRequest](rec, r, logger, r.Context(), "req-1")
		return req, rec, ok
	}

	req, _, ok := decode(`{"days":30}`)
	require.True(t, ok)
	assert.Equal(t, 30, req.Days)

	for name, body := range map[string]string{
		"fails validation": `{"days":0}`,
		"empty body":       ``,
		"unknown field":    `{"days":3,"staff":true}`,
		"malformed":        `{"days":`,
	} {
		t.Run(name, func(t *testing.T) {
			_, rec, ok := decode(body)
			assert.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
