package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/service/auth"
	"github.com/topdog/backend/internal/service/contest"
	"github.com/topdog/backend/internal/service/draft"
	"github.com/topdog/backend/internal/service/funding"
	"github.com/topdog/backend/internal/service/payout"
	"github.com/topdog/backend/internal/service/players"
	"github.com/topdog/backend/internal/service/wallet"
	"github.com/topdog/backend/internal/service/webhook"
	"github.com/topdog/backend/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	wallet   wallet.Service
	payout   payout.Service
	funding  funding.Service
	contest  contest.Service
	draft    *draft.Service
	players  *players.Service
	webhook  webhook.Service
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
}

const (
	rateWindowDefault   = time.Minute
	rateWindowRealtime  = 30 * time.Second
	rateLimitSignup     = 5
	rateLimitLogin      = 12
	rateLimitUserWrite  = 60
	rateLimitUserRead   = 120
	rateLimitWithdrawal = 10
	rateLimitWebsocket  = 30
	rateLimitWebhook    = 600
	healthCheckTimeout  = 2 * time.Second
	sseHeartbeat        = 15 * time.Second
	maxWebhookBody      = 1 << 20
)

// componentPinger is implemented by limiter backends with an external
// dependency worth surfacing in /healthz (the Redis limiter); the in-memory
// limiter has none.
type componentPinger interface {
	Ping(ctx context.Context) error
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, walletSvc wallet.Service, payoutSvc payout.Service, fundingSvc funding.Service, contestSvc contest.Service, draftSvc *draft.Service, playerSvc *players.Service, webhookSvc webhook.Service, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		auth:    authSvc,
		wallet:  walletSvc,
		payout:  payoutSvc,
		funding: fundingSvc,
		contest: contestSvc,
		draft:   draftSvc,
		players: playerSvc,
		webhook: webhookSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/auth/signup", r.audit("signup", r.withRateLimit("signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup)))
	r.mux.HandleFunc("/auth/login", r.audit("login", r.withRateLimit("login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/auth/refresh", r.audit("refresh", r.withRateLimit("refresh", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleRefresh)))
	r.mux.HandleFunc("/wallet/balance", r.audit("wallet_balance", r.handlerAuthRate("wallet_balance", rateLimitUserRead, rateWindowDefault, r.handleBalance)))
	r.mux.HandleFunc("/wallet/transactions", r.audit("wallet_transactions", r.handlerAuthRate("wallet_transactions", rateLimitUserRead, rateWindowDefault, r.handleTransactions)))
	r.mux.HandleFunc("/wallet/accounts", r.audit("wallet_accounts", r.handlerAuthRate("wallet_accounts", rateLimitUserWrite, rateWindowDefault, r.handleAccounts)))
	r.mux.HandleFunc("/wallet/accounts/", r.audit("wallet_accounts", r.handlerAuthRate("wallet_accounts", rateLimitUserWrite, rateWindowDefault, r.handleAccountByID)))
	r.mux.HandleFunc("/wallet/withdrawals", r.audit("withdrawals", r.handlerAuthRate("withdrawals", rateLimitWithdrawal, rateWindowDefault, r.handleWithdraw)))
	r.mux.HandleFunc("/wallet/deposits", r.audit("deposits", r.handlerAuthRate("deposits", rateLimitUserWrite, rateWindowDefault, r.handleDeposit)))
	r.mux.HandleFunc("/webhook/", r.audit("webhook", r.withRateLimit("webhook", rateLimitWebhook, rateWindowDefault, rateLimitKeyIP, r.handleWebhook)))
	r.mux.HandleFunc("/contests", r.audit("contests", r.handlerAuthRate("contests", rateLimitUserWrite, rateWindowDefault, r.handleContests)))
	r.mux.HandleFunc("/contests/", r.audit("contests", r.handlerAuthRate("contests", rateLimitUserWrite, rateWindowDefault, r.handleContestSubroutes)))
	r.mux.HandleFunc("/drafts", r.audit("drafts", r.handlerAuthRate("drafts", rateLimitUserWrite, rateWindowDefault, r.handleDrafts)))
	r.mux.HandleFunc("/drafts/", r.audit("drafts", r.handleDraftSubroutes))
	r.mux.HandleFunc("/ws/draft", r.audit("ws_draft", r.handlerAuthRate("ws_draft", rateLimitWebsocket, rateWindowRealtime, r.handleDraftWS)))
	r.mux.HandleFunc("/players", r.audit("players", r.handlerAuthRate("players", rateLimitUserRead, rateWindowDefault, r.handlePlayers)))
	r.mux.HandleFunc("/players/", r.audit("players", r.handlerAuthRate("players", rateLimitUserRead, rateWindowDefault, r.handlePlayerByID)))
	r.mux.HandleFunc("/admin/players/import", r.audit("admin_import", r.requireAdmin(r.handlePlayersImport)))
	r.mux.HandleFunc("/admin/integrity-flags", r.audit("admin_integrity", r.requireAdmin(r.handleIntegrityFlags)))
	r.mux.HandleFunc("/admin/reconcile", r.audit("admin_reconcile", r.requireAdmin(r.handleReconcile)))
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
		return
	}
	user, tokens, err := r.auth.Signup(req.Context(), payload.Email, payload.Username, payload.Password)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": map[string]any{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
		"tokens": tokens,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
		"tokens": tokens,
	})
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
		return
	}
	user, tokens, err := r.auth.Refresh(req.Context(), payload.RefreshToken)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
		"tokens": tokens,
	})
}

func (r *Router) handleBalance(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w, req)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	balance, err := r.wallet.Balance(req.Context(), info.UserID)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (r *Router) handleTransactions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w, req)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	limit, offset := pagination(req)
	txs, err := r.wallet.ListTransactions(req.Context(), info.UserID, limit, offset)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (r *Router) handleAccounts(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodPost:
		var payload struct {
			Provider      string `json:"provider"`
			ChannelCode   string `json:"channel_code"`
			HolderName    string `json:"holder_name"`
			AccountNumber string `json:"account_number"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
			return
		}
		account, err := r.payout.AddAccount(req.Context(), info.UserID, payload.Provider, payload.ChannelCode, payload.HolderName, payload.AccountNumber)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	case http.MethodGet:
		accounts, err := r.payout.ListAccounts(req.Context(), info.UserID)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	default:
		r.methodNotAllowed(w, req)
	}
}

func (r *Router) handleAccountByID(w http.ResponseWriter, req *http.Request) {
	accountID := strings.TrimPrefix(req.URL.Path, "/wallet/accounts/")
	if accountID == "" || strings.Contains(accountID, "/") {
		r.notFound(w, req)
		return
	}
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w, req)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	if err := r.payout.RemoveAccount(req.Context(), info.UserID, accountID); err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) handleWithdraw(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	var payload struct {
		AccountID string          `json:"account_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
		return
	}
	tx, err := r.payout.Withdraw(req.Context(), info.UserID, payload.AccountID, payload.Amount)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

func (r *Router) handleDeposit(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	var payload struct {
		BankCode   string          `json:"bank_code"`
		HolderName string          `json:"holder_name"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
		return
	}
	account, err := r.funding.CreateVirtualAccount(req.Context(), info.UserID, payload.BankCode, payload.HolderName, payload.Amount)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// handleWebhook applies provider callbacks. Once the caller is authenticated
// as the provider the response is always 200 so the provider does not retry
// events we have already recorded; processing errors are logged instead.
func (r *Router) handleWebhook(w http.ResponseWriter, req *http.Request) {
	providerName := strings.TrimPrefix(req.URL.Path, "/webhook/")
	if providerName == "" || strings.Contains(providerName, "/") {
		r.notFound(w, req)
		return
	}
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxWebhookBody))
	if err != nil {
		writeErrorCode(w, req, apperror.CodeValidation, "could not read body")
		return
	}
	callbackToken := req.Header.Get("X-Callback-Token")
	signature := req.Header.Get("X-Paystack-Signature")
	if err := r.webhook.Verify(providerName, callbackToken, signature, body); err != nil {
		r.recordWebhookEvent(providerName, "rejected")
		writeError(w, req, err)
		return
	}
	if err := r.webhook.Process(req.Context(), providerName, body); err != nil {
		r.recordWebhookEvent(providerName, "failed")
		r.logger.Error("webhook processing failed", "provider", providerName, "error", err)
	} else {
		r.recordWebhookEvent(providerName, "processed")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleContests(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		info, ok := r.mustAuthInfo(w, req)
		if !ok {
			return
		}
		if !info.Admin {
			writeErrorCode(w, req, apperror.CodeForbidden, "admin access required")
			return
		}
		var payload contest.CreateInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
			return
		}
		created, err := r.contest.Create(req.Context(), payload)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		limit, offset := pagination(req)
		contests, err := r.contest.List(req.Context(), req.URL.Query().Get("status"), limit, offset)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"contests": contests})
	default:
		r.methodNotAllowed(w, req)
	}
}

func (r *Router) handleContestSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/contests/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w, req)
		return
	}
	contestID := parts[0]
	switch {
	case len(parts) == 1:
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w, req)
			return
		}
		found, err := r.contest.Get(req.Context(), contestID)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	case len(parts) == 2 && parts[1] == "enter":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w, req)
			return
		}
		info, ok := r.mustAuthInfo(w, req)
		if !ok {
			return
		}
		entry, err := r.contest.Enter(req.Context(), contestID, info.UserID)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		r.notFound(w, req)
	}
}

func (r *Router) handleDrafts(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	var payload struct {
		ContestID string `json:"contest_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
		return
	}
	room, err := r.draft.CreateRoom(req.Context(), payload.ContestID, info.UserID)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (r *Router) handleDraftSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/drafts/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w, req)
		return
	}
	roomID := parts[0]
	if len(parts) == 2 && parts[1] == "stream" {
		r.handleDraftSSE(w, req, roomID)
		return
	}
	r.handlerAuthRate("drafts", rateLimitUserWrite, rateWindowDefault, func(w http.ResponseWriter, req *http.Request) {
		r.handleDraftAction(w, req, roomID, parts[1:])
	})(w, req)
}

func (r *Router) handleDraftAction(w http.ResponseWriter, req *http.Request, roomID string, rest []string) {
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	switch {
	case len(rest) == 0:
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w, req)
			return
		}
		snapshot, err := r.draft.Snapshot(req.Context(), roomID)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	case len(rest) == 1 && rest[0] == "join":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w, req)
			return
		}
		seat, err := r.draft.Join(req.Context(), roomID, info.UserID)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, seat)
	case len(rest) == 1 && rest[0] == "start":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w, req)
			return
		}
		room, err := r.draft.Start(req.Context(), roomID, info.UserID)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case len(rest) == 1 && rest[0] == "picks":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w, req)
			return
		}
		var payload struct {
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeErrorCode(w, req, apperror.CodeValidation, "invalid JSON body")
			return
		}
		pick, err := r.draft.Pick(req.Context(), roomID, info.UserID, payload.PlayerID)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, pick)
	default:
		r.notFound(w, req)
	}
}

func (r *Router) handleDraftWS(w http.ResponseWriter, req *http.Request) {
	if _, ok := r.mustAuthInfo(w, req); !ok {
		return
	}
	roomID := req.URL.Query().Get("room_id")
	if roomID == "" {
		writeErrorCode(w, req, apperror.CodeValidation, "room_id query parameter required")
		return
	}
	if _, err := r.draft.Snapshot(req.Context(), roomID); err != nil {
		writeError(w, req, err)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.draft.Hub().Register(roomID, client)
	go func() {
		defer func() {
			r.draft.Hub().Unregister(roomID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// handleDraftSSE streams snapshots to spectators without authentication; it
// exposes only what /drafts/{id} already returns.
func (r *Router) handleDraftSSE(w http.ResponseWriter, req *http.Request, roomID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w, req)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorCode(w, req, apperror.CodeInternal, "streaming unsupported")
		return
	}
	snapshot, err := r.draft.Snapshot(req.Context(), roomID)
	if err != nil {
		writeError(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, flusher, r.logger)
	if payload, err := snapshot.Marshal(); err == nil {
		_ = client.Send(payload)
	}
	r.draft.Hub().Register(roomID, client)
	defer func() {
		r.draft.Hub().Unregister(roomID, client)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handlePlayers(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w, req)
		return
	}
	lastMod, err := r.players.LastModified(req.Context())
	if err != nil {
		writeError(w, req, err)
		return
	}
	if !lastMod.IsZero() {
		etag := `W/"` + strconv.FormatInt(lastMod.UnixNano(), 16) + `"`
		w.Header().Set("ETag", etag)
		w.Header().Set("Last-Modified", lastMod.UTC().Format(http.TimeFormat))
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(r.players.CacheTTL().Seconds())))
		if match := req.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	limit, offset := pagination(req)
	list, err := r.players.List(req.Context(), req.URL.Query().Get("position"), limit, offset)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": list})
}

func (r *Router) handlePlayerByID(w http.ResponseWriter, req *http.Request) {
	playerID := strings.TrimPrefix(req.URL.Path, "/players/")
	if playerID == "" || strings.Contains(playerID, "/") {
		r.notFound(w, req)
		return
	}
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w, req)
		return
	}
	player, err := r.players.Get(req.Context(), playerID)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (r *Router) handlePlayersImport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	count, err := r.players.ImportCSV(req.Context(), req.Body)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": count})
}

func (r *Router) handleIntegrityFlags(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w, req)
		return
	}
	var reviewed *bool
	if raw := req.URL.Query().Get("reviewed"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeErrorCode(w, req, apperror.CodeValidation, "reviewed must be a boolean")
			return
		}
		reviewed = &parsed
	}
	limit, offset := pagination(req)
	flags, err := r.draft.ListIntegrityFlags(req.Context(), reviewed, limit, offset)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flags": flags})
}

func (r *Router) handleReconcile(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w, req)
		return
	}
	drifts, err := r.wallet.Reconcile(req.Context())
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drifts": drifts})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w, req)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	if pinger, ok := r.limiter.(componentPinger); ok {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			status = "degraded"
			components["redis"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["redis"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// mustAuthInfo fetches the auth context or reports a wiring bug.
func (r *Router) mustAuthInfo(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeErrorCode(w, req, apperror.CodeInternal, "authorization context missing")
		return authInfo{}, false
	}
	return info, true
}

func pagination(req *http.Request) (int, int) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	return limit, offset
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
			if info.Admin {
				fields = append(fields, "admin", true)
			}
		} else if strings.HasPrefix(req.URL.Path, "/webhook/") {
			actor = "provider"
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]errorBody{
		"error": {Code: apperror.CodeValidation, Message: "method not allowed", RequestID: requestID(req)},
	})
}

func (r *Router) notFound(w http.ResponseWriter, req *http.Request) {
	writeErrorCode(w, req, apperror.CodeNotFound, "not found")
}
