package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/password"
	"account-service/internal/repository/sqlite"
	"account-service/internal/service"
	"account-service/internal/token"
)

type recordingNotifier struct {
	tokens []string
}

func (n *recordingNotifier) SendVerification(ctx context.Context, email, tok string) error {
	n.tokens = append(n.tokens, tok)
	return nil
}

func newTestServer(t *testing.T) (*gin.Engine, *recordingNotifier) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewAccountRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	notifier := &recordingNotifier{}
	sessions := token.NewIssuer("test-secret", 30*time.Minute)
	accounts := service.NewAccountService(repo, password.NewHasher(bcrypt.MinCost), sessions, notifier, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(accounts, sessions).RegisterRoutes(router)
	return router, notifier
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterVerifyLoginProfileFlow(t *testing.T) {
	router, notifier := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "alice",
		"email":    "a@x.com",
		"password": "Testpass1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.Equal(t, "alice", created["username"])
	assert.Equal(t, "a@x.com", created["email"])
	assert.Equal(t, false, created["is_verified"])
	assert.NotContains(t, created, "password_hash")
	assert.NotContains(t, created, "verification_token")

	require.Len(t, notifier.tokens, 1)
	rec = doJSON(t, router, http.MethodGet, "/api/verify-email?token="+notifier.tokens[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified successfully", decodeBody(t, rec)["message"])

	rec = doJSON(t, router, http.MethodPost, "/api/login", gin.H{
		"email":    "a@x.com",
		"password": "Testpass1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeBody(t, rec)
	assert.Equal(t, "bearer", login["token_type"])
	accessToken, _ := login["access_token"].(string)
	require.NotEmpty(t, accessToken)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	profileRec := httptest.NewRecorder()
	router.ServeHTTP(profileRec, req)
	require.Equal(t, http.StatusOK, profileRec.Code)
	assert.Equal(t, "a@x.com", decodeBody(t, profileRec)["email"])
}

func TestLoginWrongPassword(t *testing.T) {
	router, notifier := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "Testpass1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/verify-email?token="+notifier.tokens[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/login", gin.H{
		"email": "a@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email or password", decodeBody(t, rec)["error"])

	// unknown email reads identically
	rec = doJSON(t, router, http.MethodPost, "/api/login", gin.H{
		"email": "nobody@x.com", "password": "Testpass1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email or password", decodeBody(t, rec)["error"])
}

func TestLoginUnverifiedEmail(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "Testpass1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/login", gin.H{
		"email": "a@x.com", "password": "Testpass1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Email not verified", decodeBody(t, rec)["error"])
}

func TestVerifyEmailConsumedToken(t *testing.T) {
	router, notifier := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "Testpass1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/verify-email?token="+notifier.tokens[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/verify-email?token="+notifier.tokens[0], nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["error"])
}

func TestRegisterValidationStatuses(t *testing.T) {
	router, _ := newTestServer(t)

	// weak password
	rec := doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "abc123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// malformed username
	rec = doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "a!", "email": "a@x.com", "password": "Testpass1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// duplicates
	rec = doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "Testpass1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "other@x.com", "password": "Testpass1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already taken", decodeBody(t, rec)["error"])

	rec = doJSON(t, router, http.MethodPost, "/api/register", gin.H{
		"username": "bob", "email": "a@x.com", "password": "Testpass1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decodeBody(t, rec)["error"])
}

func TestProfileRequiresValidSession(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// token signed with a different secret
	forged, err := token.NewIssuer("other-secret", time.Hour).Issue("a@x.com")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
