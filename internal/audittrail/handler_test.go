package audittrail

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veritas/pkg/domain"
	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/audit/archive"
)

type failingReader struct{}

func (failingReader) ListByUser(context.Context, id.UserID, int) ([]archive.Record, error) {
	return nil, errors.New("connection reset")
}

func serve(r Reader, target string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	New(r, slog.New(slog.DiscardHandler)).RegisterAdmin(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleUserTrail(t *testing.T) {
	ctx := context.Background()
	store := archive.NewMemory()
	userID := id.NewUserID()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range []audit.AuditEvent{audit.EventAttemptSubmitted, audit.EventAttemptApproved} {
		_, err := store.Append(ctx, archive.Record{
			EventID:    uuid.New(),
			Category:   audit.CategoryCompliance,
			Action:     string(action),
			UserID:     &userID,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	rec := serve(store, "/admin/audit/users/"+userID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var body TrailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, string(audit.EventAttemptApproved), body.Events[0].Action, "newest first")

	rec = serve(store, "/admin/audit/users/"+userID.String()+"?limit=1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Events, 1)

	rec = serve(store, "/admin/audit/users/"+id.NewUserID().String())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, rec, "events")))
}

func TestHandleUserTrailErrors(t *testing.T) {
	userID := id.NewUserID().String()
	tests := []struct {
		name   string
		reader Reader
		target string
		status int
	}{
		{"bad user id", archive.NewMemory(), "/admin/audit/users/nope", http.StatusBadRequest},
		{"limit too large", archive.NewMemory(), "/admin/audit/users/" + userID + "?limit=501", http.StatusBadRequest},
		{"limit not a number", archive.NewMemory(), "/admin/audit/users/" + userID + "?limit=ten", http.StatusBadRequest},
		{"archive down", failingReader{}, "/admin/audit/users/" + userID, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(tt.reader, tt.target).Code)
		})
	}
}

func mustField(t *testing.T, rec *httptest.ResponseRecorder, field string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m[field]
}
