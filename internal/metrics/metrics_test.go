package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                             "/",
		"/metrics":                     "/metrics",
		"/api/v1/chat-events":          "/api/v1/chat-events",
		"/api/v1/chats/-1001/balances": "/api/v1/chats/{chatID}/balances",
		"/api/v1/chats/42/confirm":     "/api/v1/chats/{chatID}/confirm",
		"/api/v1/chats/":               "/api/v1/chats/",
	}
	for input, want := range cases {
		assert.Equal(t, want, CanonicalPath(input), "input %q", input)
	}
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.MessageProcessed("message", "recorded")
	m.MessageProcessed("message", "recorded")
	m.LedgerOp("add", "ok")
	m.PublishFailed()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.messages.WithLabelValues("message", "recorded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ledgerOps.WithLabelValues("add", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.publishErrs))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageProcessed("message", "ignored")
		m.LedgerOp("add", "error")
		m.PublishFailed()
	})
}

func TestInstrumentAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())

	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/chats/7/report", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/chats/{chatID}/report", "418"),
	))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "chatledger_http_requests_total"))
}
