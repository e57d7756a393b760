package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stampcard/stampcard-api/internal/handlers"
	"github.com/stampcard/stampcard-api/internal/logger"
	"github.com/stampcard/stampcard-api/internal/pass"
	"github.com/stampcard/stampcard-api/internal/services"
	"github.com/stampcard/stampcard-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "qr-secret"

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger("test", "error")
}

type testEnv struct {
	router *gin.Engine
	store  *testutil.MemStore
	clock  time.Time
	mu     sync.Mutex
}

func (e *testEnv) now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = e.clock.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store: testutil.NewMemStore(),
		clock: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	identity := services.NewIdentityService(env.store)
	stamps := services.NewStampService(services.StampServiceConfig{
		Store:     env.store,
		Identity:  identity,
		Validator: services.NewStaticTokenValidator(testToken),
		Now:       env.now,
	})
	issuer := pass.NewIssuer("Test Cafe", 10)

	common := handlers.NewCommonServices(env.store, nil)

	router := gin.New()
	router.GET("/health", handlers.NewHealthHandler(common).Health)
	v1 := router.Group("/api/v1")
	v1.POST("/signup", handlers.NewSignupHandler(common, identity).Signup)
	v1.POST("/stamp", handlers.NewStampHandler(common, stamps).AddStamp)
	customerHandler := handlers.NewCustomerHandler(common, identity, issuer)
	v1.GET("/customers/:identifier", customerHandler.GetCustomer)
	v1.GET("/customers/:identifier/pass", customerHandler.GetPass)

	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/signup", handlers.SignupRequest{
		Email: "a@x.com",
		Name:  "Ada",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.CustomerResponse
	decode(t, w, &resp)
	assert.Equal(t, "a@x.com", resp.CustomerID)
	require.NotNil(t, resp.Name)
	assert.Equal(t, "Ada", *resp.Name)
	assert.Equal(t, int32(0), resp.Stamps)
}

func TestSignup_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(t, http.MethodPost, "/api/v1/signup", handlers.SignupRequest{Email: "a@x.com", Name: "Ada"})
	require.Equal(t, http.StatusOK, first.Code)

	// A stamp in between must survive the second signup.
	stamp := env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "a@x.com", Token: testToken})
	require.Equal(t, http.StatusOK, stamp.Code)

	second := env.do(t, http.MethodPost, "/api/v1/signup", handlers.SignupRequest{Email: "a@x.com", Name: "Imposter"})
	require.Equal(t, http.StatusOK, second.Code)

	var resp handlers.CustomerResponse
	decode(t, second, &resp)
	assert.Equal(t, "a@x.com", resp.CustomerID)
	assert.Equal(t, "Ada", *resp.Name)
	assert.Equal(t, int32(1), resp.Stamps)
	assert.Equal(t, 1, env.store.CustomerCount())
}

func TestSignup_MissingIdentifier(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/signup", handlers.SignupRequest{Name: "Nobody"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handlers.ErrorResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Error)
}

func TestStamp_FlowAndCooldown(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "a@x.com", Token: testToken})
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.StampResponse
	decode(t, w, &resp)
	assert.Equal(t, "a@x.com", resp.CustomerID)
	assert.Equal(t, int32(1), resp.Stamps)
	assert.False(t, resp.Redeemed)
	assert.Nil(t, resp.RewardMessage)

	// Immediate rescan lands in the cooldown window. Still a 200, with the
	// unchanged count and the remaining seconds in the body.
	env.advance(30 * time.Second)
	w = env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "a@x.com", Token: testToken})
	require.Equal(t, http.StatusOK, w.Code)

	var cooldown handlers.CooldownResponse
	decode(t, w, &cooldown)
	assert.True(t, cooldown.Cooldown)
	assert.Equal(t, int32(1), cooldown.Stamps)
	assert.Equal(t, int64(90), cooldown.SecondsRemaining)

	env.advance(91 * time.Second)
	w = env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "a@x.com", Token: testToken})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, int32(2), resp.Stamps)
}

func TestStamp_RewardCycle(t *testing.T) {
	env := newTestEnv(t)

	var resp handlers.StampResponse
	for i := 1; i <= 9; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "a@x.com", Token: testToken})
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &resp)
		env.advance(121 * time.Second)
	}
	require.NotNil(t, resp.RewardMessage)
	assert.Equal(t, int32(9), resp.Stamps)

	w := env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "a@x.com", Token: testToken})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.True(t, resp.Redeemed)
	assert.Equal(t, int32(0), resp.Stamps)
}

func TestStamp_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "never-seen@x.com", Token: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The rejected scan must not have created the customer.
	assert.Equal(t, 0, env.store.CustomerCount())
	lookup := env.do(t, http.MethodGet, "/api/v1/customers/never-seen@x.com", nil)
	assert.Equal(t, http.StatusNotFound, lookup.Code)
}

func TestStamp_MissingIdentifier(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Token: testToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCustomer(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/customers/a@x.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, "/api/v1/signup", handlers.SignupRequest{Email: "a@x.com", Name: "Ada"}).Code)

	w = env.do(t, http.MethodGet, "/api/v1/customers/a@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.CustomerResponse
	decode(t, w, &resp)
	assert.Equal(t, "a@x.com", resp.CustomerID)

	// Lookup is read-only: the miss above created nothing.
	assert.Equal(t, 1, env.store.CustomerCount())
}

func TestGetPass(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, "/api/v1/signup", handlers.SignupRequest{Email: "a@x.com", Name: "Ada"}).Code)
	require.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, "/api/v1/stamp", handlers.StampRequest{Identifier: "a@x.com", Token: testToken}).Code)

	w := env.do(t, http.MethodGet, "/api/v1/customers/a@x.com/pass", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var artifact pass.Artifact
	decode(t, w, &artifact)
	assert.Equal(t, "stampcard.v1", artifact.Format)
	assert.Equal(t, "Test Cafe", artifact.OrganizationName)
	assert.Equal(t, "a@x.com", artifact.CustomerID)
	assert.Equal(t, int32(1), artifact.Stamps)
	assert.Equal(t, int32(10), artifact.Threshold)
	assert.NotEmpty(t, artifact.SerialNumber)
	assert.Equal(t, "QR", artifact.Barcode.Format)
	assert.Equal(t, "a@x.com", artifact.Barcode.Message)

	missing := env.do(t, http.MethodGet, "/api/v1/customers/nobody@x.com/pass", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

type failingPingStore struct {
	*testutil.MemStore
}

func (s failingPingStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Storage)
}

func TestHealth_StorageDown(t *testing.T) {
	common := handlers.NewCommonServices(failingPingStore{testutil.NewMemStore()}, nil)
	router := gin.New()
	router.GET("/health", handlers.NewHealthHandler(common).Health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unreachable", resp.Storage)
}
