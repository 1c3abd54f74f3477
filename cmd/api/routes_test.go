package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/chatledger/internal/auth"
	"github.com/josh-kwaku/chatledger/internal/config"
	"github.com/josh-kwaku/chatledger/internal/ledger"
	"github.com/josh-kwaku/chatledger/internal/metrics"
	"github.com/josh-kwaku/chatledger/internal/parser"
	"github.com/josh-kwaku/chatledger/internal/repository"
	"github.com/josh-kwaku/chatledger/internal/service"
)

const (
	jwtSecret     = "router-jwt-secret"
	webhookSecret = "router-webhook-secret"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		StoreDriver:   config.StoreMemory,
		JWTSecret:     jwtSecret,
		WebhookSecret: webhookSecret,
		LockTimeout:   time.Second,
	}
	store := repository.NewMemoryGroupStore(cfg.LockTimeout)
	m := metrics.New(prometheus.NewRegistry())
	l := ledger.NewService(store, nil, m)

	srv := httptest.NewServer(newRouter(routerDeps{
		cfg:      cfg,
		store:    store,
		ledger:   l,
		messages: service.NewMessageService(parser.New(parser.DefaultConfig()), l, m),
		metrics:  m,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postEvent(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/chat-events", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func operatorGet(t *testing.T, srv *httptest.Server, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_ChatFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postEvent(t, srv, `{"type":"message","chat_id":-500,"message_id":1,"text":"27 دلار و احمد"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = postEvent(t, srv, `{"type":"message","chat_id":-500,"message_id":2,"text":"۵ تا امامی خ علی"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := auth.GenerateToken(-500, "ops", jwtSecret, time.Hour)
	require.NoError(t, err)

	resp = operatorGet(t, srv, http.MethodGet, "/api/v1/chats/-500/balances", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Assets []struct {
				Asset   string `json:"asset"`
				Current int64  `json:"current"`
			} `json:"assets"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.Len(t, body.Data.Assets, 2)
	assert.Equal(t, "امامی", body.Data.Assets[0].Asset)
	assert.Equal(t, int64(-5), body.Data.Assets[0].Current)
	assert.Equal(t, "دلار", body.Data.Assets[1].Asset)
	assert.Equal(t, int64(27), body.Data.Assets[1].Current)

	resp = operatorGet(t, srv, http.MethodPost, "/api/v1/chats/-500/confirm", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_OperatorAuth(t *testing.T) {
	srv := newTestServer(t)
	otherChat, err := auth.GenerateToken(-999, "ops", jwtSecret, time.Hour)
	require.NoError(t, err)

	resp := operatorGet(t, srv, http.MethodGet, "/api/v1/chats/-500/report", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = operatorGet(t, srv, http.MethodGet, "/api/v1/chats/-500/report", otherChat)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Unsigned(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Post(srv.URL+"/api/v1/chat-events", "application/json",
		strings.NewReader(`{"type":"message","chat_id":1,"message_id":1,"text":"1 دلار و علی"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_OpsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/metrics", "/docs", "/docs/openapi.yaml"} {
		resp := operatorGet(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
