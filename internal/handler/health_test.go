package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantStore  string
	}{
		{"store up", nil, http.StatusOK, "ok"},
		{"store down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "down"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(stubPinger{err: tc.pingErr}, "postgres")
			rr := httptest.NewRecorder()

			h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tc.wantStatus, rr.Code)
			var body struct {
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.wantStore, body.Checks["store"])
		})
	}
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, "memory")
	rr := httptest.NewRecorder()

	h.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}
