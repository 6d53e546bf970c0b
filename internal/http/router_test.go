package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/provider"
	"github.com/topdog/backend/internal/repository"
	"github.com/topdog/backend/internal/service/auth"
	"github.com/topdog/backend/internal/service/contest"
	"github.com/topdog/backend/internal/service/draft"
	"github.com/topdog/backend/internal/service/funding"
	"github.com/topdog/backend/internal/service/payout"
	"github.com/topdog/backend/internal/service/players"
	"github.com/topdog/backend/internal/service/wallet"
	"github.com/topdog/backend/internal/service/webhook"
	"github.com/topdog/backend/pkg/config"
	jwtpkg "github.com/topdog/backend/pkg/jwt"
)

const testJWTSecret = "router-test-secret"

func TestHealthzReportsDatabase(t *testing.T) {
	router, _ := newTestRouter(t, func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Status string `json:"status"`
		} `json:"components"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Status != "ok" || payload.Components["database"].Status != "up" {
		t.Fatalf("unexpected health payload %+v", payload)
	}
}

func TestHealthzDegradedWhenDatabaseDown(t *testing.T) {
	router, _ := newTestRouter(t, func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestWebhookAlwaysAcknowledgesAfterAuth(t *testing.T) {
	router, repo := newTestRouter(t, nil)

	// Unknown disbursement reference, so processing fails after verification.
	body := `{"id":"disb-unknown","status":"COMPLETED"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/xendit", strings.NewReader(body))
	req.Header.Set("X-Callback-Token", "cb-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite processing failure, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("expected acknowledgement, got %+v", payload)
	}
	if len(repo.webhookEvents) != 1 {
		t.Fatalf("expected event recorded, got %d", len(repo.webhookEvents))
	}
}

func TestWebhookRejectsBadToken(t *testing.T) {
	router, repo := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/xendit", strings.NewReader(`{}`))
	req.Header.Set("X-Callback-Token", "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(apperror.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED envelope, got %q", code)
	}
	if len(repo.webhookEvents) != 0 {
		t.Fatalf("expected no event recorded, got %d", len(repo.webhookEvents))
	}
}

func TestSignupRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	var last *httptest.ResponseRecorder
	for i := 0; i < rateLimitSignup+1; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{not json"))
		req.RemoteAddr = "203.0.113.9:4000"
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
		if i < rateLimitSignup && last.Code != http.StatusBadRequest {
			t.Fatalf("request %d: expected 400, got %d", i+1, last.Code)
		}
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d", last.Code)
	}
	if code := decodeErrorCode(t, last); code != string(apperror.CodeRateLimited) {
		t.Fatalf("expected RATE_LIMITED envelope, got %q", code)
	}
	if got := last.Header().Get("X-RateLimit-Limit"); got != strconv.Itoa(rateLimitSignup) {
		t.Fatalf("expected limit header, got %q", got)
	}
}

func TestMissingAuthReturnsTaxonomyEnvelope(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet/balance", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(apperror.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED envelope, got %q", code)
	}
}

func TestSignupThenBalance(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := `{"email":"alice@example.com","username":"alice","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var signup struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&signup); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	if signup.Tokens.AccessToken == "" {
		t.Fatal("expected access token")
	}

	balanceReq := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	balanceReq.Header.Set("Authorization", "Bearer "+signup.Tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, balanceReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthzIncludesRedisWhenLimiterPings(t *testing.T) {
	limiter := &pingingLimiter{}
	router, _ := newTestRouterWithLimiter(t, func(context.Context) error { return nil }, limiter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Status string `json:"status"`
		} `json:"components"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Components["redis"].Status != "up" {
		t.Fatalf("expected redis component up, got %+v", payload)
	}

	limiter.pingErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when redis is down, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Status != "degraded" || payload.Components["redis"].Status != "down" {
		t.Fatalf("expected degraded redis component, got %+v", payload)
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	router, repo := newTestRouter(t, nil)

	body := strings.Repeat("a", maxWebhookBody+1)
	req := httptest.NewRequest(http.MethodPost, "/webhook/xendit", strings.NewReader(body))
	req.Header.Set("X-Callback-Token", "cb-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
	if len(repo.webhookEvents) != 0 {
		t.Fatalf("expected no event recorded, got %d", len(repo.webhookEvents))
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := `{"email":"bob@example.com","username":"bob","password":"longenough"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var signup struct {
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&signup); err != nil {
		t.Fatalf("decode signup: %v", err)
	}

	refreshBody := `{"refresh_token":"` + signup.Tokens.RefreshToken + `"}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(refreshBody)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var refreshed struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&refreshed); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if refreshed.Tokens.AccessToken == "" {
		t.Fatal("expected new access token")
	}

	balanceReq := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	balanceReq.Header.Set("Authorization", "Bearer "+refreshed.Tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, balanceReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected refreshed access token to work, got %d", rec.Code)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	accessToken := seedUser(t, repo, "user-1", false)

	body := `{"refresh_token":"` + accessToken + `"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token in refresh, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(apperror.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED envelope, got %q", code)
	}
}

func TestBearerRejectsRefreshToken(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	repo.users["user-1"] = &domain.User{ID: "user-1", Email: "u@example.com", Username: "u", Balance: decimal.Zero}
	refreshToken, err := jwtpkg.GenerateToken("user-1", false, jwtpkg.KindRefresh, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token as bearer, got %d", rec.Code)
	}
}

func TestAdminRouteForbiddenForRegularUser(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	token := seedUser(t, repo, "user-1", false)

	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(apperror.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN envelope, got %q", code)
	}
}

func TestAdminReconcile(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	token := seedUser(t, repo, "admin-1", true)

	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPlayersConditionalGet(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	token := seedUser(t, repo, "user-1", false)
	repo.latestUpdate = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	req := httptest.NewRequest(http.MethodGet, "/players", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" || rec.Header().Get("Last-Modified") == "" {
		t.Fatal("expected caching headers")
	}

	again := httptest.NewRequest(http.MethodGet, "/players", nil)
	again.Header.Set("Authorization", "Bearer "+token)
	again.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, again)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304 for matching ETag, got %d", rec.Code)
	}
}

func TestMethodNotAllowedEnvelope(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(apperror.CodeValidation) {
		t.Fatalf("expected VALIDATION envelope, got %q", code)
	}
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if payload.Error.RequestID == "" {
		t.Fatal("expected request id in error envelope")
	}
	return payload.Error.Code
}

func seedUser(t *testing.T, repo *fakeRepo, id string, admin bool) string {
	t.Helper()
	repo.users[id] = &domain.User{
		ID:       id,
		Email:    id + "@example.com",
		Username: id,
		Admin:    admin,
		Balance:  decimal.Zero,
	}
	token, err := jwtpkg.GenerateToken(id, admin, jwtpkg.KindAccess, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func newTestRouter(t *testing.T, dbHealth func(context.Context) error) (*Router, *fakeRepo) {
	t.Helper()
	return newTestRouterWithLimiter(t, dbHealth, nil)
}

func newTestRouterWithLimiter(t *testing.T, dbHealth func(context.Context) error, limiter RateLimiter) (*Router, *fakeRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := config.APIConfig{
		JWTSecret:         testJWTSecret,
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   24 * time.Hour,
		SecretsKey:        "router-test-secrets-key",
		XenditCallbackTok: "cb-token",
		PaystackSecret:    "ps-secret",
		DraftPickClock:    30 * time.Second,
		DraftMinPickGap:   time.Second,
		PlayerCacheTTL:    30 * time.Second,
	}
	repo := newFakeRepo()

	authSvc := auth.New(repo, logger, cfg)
	walletSvc := wallet.New(repo, repo, logger)
	payoutSvc := payout.New(repo, repo, nil, logger, cfg)
	fundingSvc := funding.New(repo, repo, stubIssuer{}, logger)
	contestSvc := contest.New(repo, repo, logger)
	playerSvc := players.New(repo, logger, cfg.PlayerCacheTTL)
	draftSvc := draft.New(repo, repo, repo, nil, logger, cfg)
	webhookSvc := webhook.New(repo, payoutSvc, fundingSvc, logger, cfg)

	router := NewRouter(logger, authSvc, walletSvc, payoutSvc, fundingSvc, contestSvc, draftSvc, playerSvc, webhookSvc, limiter, dbHealth)
	t.Cleanup(router.Close)
	return router, repo
}

// pingingLimiter mimics the Redis limiter: it never throttles, but exposes a
// liveness check the health endpoint picks up.
type pingingLimiter struct {
	pingErr error
}

func (pl *pingingLimiter) Allow(string, int, time.Duration) rateDecision {
	return rateDecision{allowed: true}
}

func (pl *pingingLimiter) Close() {}

func (pl *pingingLimiter) Ping(context.Context) error { return pl.pingErr }

type stubIssuer struct{}

func (stubIssuer) Name() string { return "xendit" }

func (stubIssuer) CreateVirtualAccount(context.Context, provider.VirtualAccountRequest) (*provider.VirtualAccountResult, error) {
	return nil, errors.New("not available in tests")
}

// fakeRepo is an in-memory stand-in for the postgres repository.
type fakeRepo struct {
	users         map[string]*domain.User
	webhookEvents map[string]domain.WebhookEvent
	latestUpdate  time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:         make(map[string]*domain.User),
		webhookEvents: make(map[string]domain.WebhookEvent),
	}
}

func (f *fakeRepo) CreateUser(_ context.Context, user *domain.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) ListUserIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepo) DebitBalance(context.Context, string, decimal.Decimal) error  { return nil }
func (f *fakeRepo) CreditBalance(context.Context, string, decimal.Decimal) error { return nil }

func (f *fakeRepo) GetBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	user, ok := f.users[userID]
	if !ok {
		return decimal.Zero, repository.ErrNotFound
	}
	return user.Balance, nil
}

func (f *fakeRepo) CreateTransaction(context.Context, *domain.Transaction) error { return nil }

func (f *fakeRepo) UpdateTransactionStatus(context.Context, string, string, string) error {
	return nil
}

func (f *fakeRepo) MarkTransactionProcessing(context.Context, string, string) error { return nil }

func (f *fakeRepo) GetTransactionByID(context.Context, string) (*domain.Transaction, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) GetTransactionByProviderRef(context.Context, string, string) (*domain.Transaction, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) ListTransactionsByUser(context.Context, string, int, int) ([]domain.Transaction, error) {
	return nil, nil
}

func (f *fakeRepo) SumCompletedByUser(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeRepo) CreateDisbursementAccount(context.Context, *domain.DisbursementAccount) error {
	return nil
}

func (f *fakeRepo) GetDisbursementAccount(context.Context, string) (*domain.DisbursementAccount, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) ListDisbursementAccountsByUser(context.Context, string) ([]domain.DisbursementAccount, error) {
	return nil, nil
}

func (f *fakeRepo) DeleteDisbursementAccount(context.Context, string, string) error { return nil }

func (f *fakeRepo) CreateVirtualAccount(context.Context, *domain.VirtualAccount) error { return nil }

func (f *fakeRepo) GetVirtualAccountByProviderRef(context.Context, string, string) (*domain.VirtualAccount, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) UpdateVirtualAccountStatus(context.Context, string, string) error { return nil }

func (f *fakeRepo) InsertWebhookEvent(_ context.Context, event *domain.WebhookEvent) error {
	key := event.Provider + ":" + event.EventID
	if _, ok := f.webhookEvents[key]; ok {
		return repository.ErrDuplicate
	}
	f.webhookEvents[key] = *event
	return nil
}

func (f *fakeRepo) MarkWebhookEventProcessed(context.Context, string, string) error { return nil }

func (f *fakeRepo) CreateContest(context.Context, *domain.Contest) error { return nil }

func (f *fakeRepo) GetContestByID(context.Context, string) (*domain.Contest, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) ListContests(context.Context, string, int, int) ([]domain.Contest, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateContestStatus(context.Context, string, string) error { return nil }

func (f *fakeRepo) CreateContestEntry(context.Context, *domain.ContestEntry) error { return nil }

func (f *fakeRepo) CreateDraftRoom(context.Context, *domain.DraftRoom) error { return nil }

func (f *fakeRepo) GetDraftRoom(context.Context, string) (*domain.DraftRoom, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) UpdateDraftRoom(context.Context, *domain.DraftRoom) error { return nil }

func (f *fakeRepo) ListExpiredDraftRooms(context.Context, time.Time) ([]domain.DraftRoom, error) {
	return nil, nil
}

func (f *fakeRepo) AddDraftSeat(context.Context, *domain.DraftSeat) error { return nil }

func (f *fakeRepo) ListDraftSeats(context.Context, string) ([]domain.DraftSeat, error) {
	return nil, nil
}

func (f *fakeRepo) InsertDraftPick(context.Context, *domain.DraftPick) error { return nil }

func (f *fakeRepo) ListDraftPicks(context.Context, string) ([]domain.DraftPick, error) {
	return nil, nil
}

func (f *fakeRepo) InsertIntegrityFlag(context.Context, *domain.DraftIntegrityFlag) error {
	return nil
}

func (f *fakeRepo) ListIntegrityFlags(context.Context, *bool, int, int) ([]domain.DraftIntegrityFlag, error) {
	return nil, nil
}

func (f *fakeRepo) UpsertPlayers(_ context.Context, players []domain.Player) (int, error) {
	return len(players), nil
}

func (f *fakeRepo) ListPlayers(context.Context, string, int, int) ([]domain.Player, error) {
	return nil, nil
}

func (f *fakeRepo) GetPlayerByID(context.Context, string) (*domain.Player, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) ListAvailablePlayers(context.Context, string, int) ([]domain.Player, error) {
	return nil, nil
}

func (f *fakeRepo) LatestPlayerUpdate(context.Context) (time.Time, error) {
	if f.latestUpdate.IsZero() {
		return time.Time{}, repository.ErrNotFound
	}
	return f.latestUpdate, nil
}
