package main

import (
	"net/http"

	"github.com/josh-kwaku/chatledger/api"
	"github.com/josh-kwaku/chatledger/internal/app"
	"github.com/josh-kwaku/chatledger/internal/config"
	"github.com/josh-kwaku/chatledger/internal/handler"
	"github.com/josh-kwaku/chatledger/internal/ledger"
	"github.com/josh-kwaku/chatledger/internal/metrics"
	"github.com/josh-kwaku/chatledger/internal/middleware"
	"github.com/josh-kwaku/chatledger/internal/service"
)

type routerDeps struct {
	cfg      *config.Config
	store    app.Store
	ledger   *ledger.Service
	messages *service.MessageService
	metrics  *metrics.Metrics
}

func newRouter(d routerDeps) http.Handler {
	health := handler.NewHealthHandler(d.store, d.cfg.StoreDriver)
	events := handler.NewChatEventHandler(d.messages, d.cfg.WebhookSecret)
	ledgerH := handler.NewLedgerHandler(d.ledger)
	requireToken := middleware.Auth(d.cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /ready", health.Readiness)
	mux.Handle("GET /metrics", d.metrics.Handler())
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.OpenAPI))

	limit := middleware.RateLimit(d.cfg.RateLimitRPS, d.cfg.RateLimitBurst)
	mux.Handle("POST /api/v1/chat-events", limit(http.HandlerFunc(events.Receive)))

	operator := func(h http.HandlerFunc) http.Handler { return requireToken(h) }
	mux.Handle("GET /api/v1/chats/{chatID}/balances", operator(ledgerH.Balances))
	mux.Handle("GET /api/v1/chats/{chatID}/report", operator(ledgerH.Report))
	mux.Handle("GET /api/v1/chats/{chatID}/confirmed", operator(ledgerH.Confirmed))
	mux.Handle("POST /api/v1/chats/{chatID}/confirm", operator(ledgerH.Confirm))
	mux.Handle("GET /api/v1/chats/{chatID}/dashboard", operator(ledgerH.GetDashboard))
	mux.Handle("PUT /api/v1/chats/{chatID}/dashboard", operator(ledgerH.SetDashboard))

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.Tracing,
		middleware.Logging,
		d.metrics.Instrument,
	)
}
