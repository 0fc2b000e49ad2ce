package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calum/gatehouse/internal/api/dto"
	"github.com/calum/gatehouse/internal/api/handlers"
	"github.com/calum/gatehouse/internal/auth"
	"github.com/calum/gatehouse/internal/directory"
	"github.com/calum/gatehouse/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEmail struct {
	to, subject, html string
}

type captureNotifier struct {
	sent []capturedEmail
}

func (n *captureNotifier) SendEmail(_ context.Context, to, subject, html string) error {
	n.sent = append(n.sent, capturedEmail{to: to, subject: subject, html: html})
	return nil
}

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestContext, *captureNotifier) {
	t.Helper()

	tc := testutil.NewTestContext(t)
	store := directory.NewStore(tc.DB)
	notifier := &captureNotifier{}

	authRouter := auth.NewRouter(auth.RouterConfig{
		Users:       store,
		Orgs:        store,
		Notifier:    notifier,
		Credentials: auth.NewBcryptVerifier(),
		Tokens:      tc.JWTService,
		PublicURL:   "http://localhost:8080",
	})

	handler := handlers.NewAuthHandler(authRouter, nil, store)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/register", handler.Register)
	r.Post("/api/v1/auth/login", handler.Login)
	r.Post("/api/v1/auth/logout", handler.Logout)
	r.Get("/api/v1/auth/activate/{id}", handler.Activate)

	return r, tc, notifier
}

func TestAuthHandler_Register(t *testing.T) {
	router, tc, notifier := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful registration", func(t *testing.T) {
		body := map[string]string{
			"email":    "newuser@example.com",
			"password": "securepassword123",
			"name":     "New User",
			"company":  "New Org",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, "local", resp.User.Provider)
		assert.Equal(t, "New Org", resp.User.OrgName)

		require.Len(t, notifier.sent, 1)
		assert.Equal(t, "newuser@example.com", notifier.sent[0].to)
		assert.Equal(t, "Activate your account", notifier.sent[0].subject)
		assert.Contains(t, notifier.sent[0].html, `<a href="`)
		assert.Contains(t, notifier.sent[0].html, resp.User.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":    "duplicate@example.com",
			"password": "securepassword123",
			"name":     "First User",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)

		emailsBefore := len(notifier.sent)

		req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", body)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "User already exists", resp.Error)
		assert.Len(t, notifier.sent, emailsBefore)
	})

	t.Run("missing email", func(t *testing.T) {
		body := map[string]string{
			"password": "securepassword123",
			"name":     "No Email User",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("password too short", func(t *testing.T) {
		body := map[string]string{
			"email":    "shortpw@example.com",
			"password": "short",
			"name":     "Short PW User",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc, _ := setupAuthTestRouter(t)
	defer tc.Cleanup()

	// Register a user first
	registerBody := map[string]string{
		"email":    "logintest@example.com",
		"password": "securepassword123",
		"name":     "Login Test User",
	}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", registerBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("successful login", func(t *testing.T) {
		body := map[string]string{
			"email":    "logintest@example.com",
			"password": "securepassword123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "logintest@example.com", resp.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{
			"email":    "logintest@example.com",
			"password": "wrongpassword",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Invalid user name or password", resp.Error)
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		body := map[string]string{
			"email":    "nobody@example.com",
			"password": "whatever123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Invalid user name or password", resp.Error)
	})

	t.Run("missing password", func(t *testing.T) {
		body := map[string]string{
			"email": "logintest@example.com",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Activate(t *testing.T) {
	router, tc, _ := setupAuthTestRouter(t)
	defer tc.Cleanup()

	registerBody := map[string]string{
		"email":    "pending@example.com",
		"password": "securepassword123",
		"name":     "Pending User",
	}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", registerBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp dto.AuthResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	require.False(t, resp.User.Activated)

	t.Run("activation link flips the flag", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "GET", "/api/v1/auth/activate/"+resp.User.ID, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		store := directory.NewStore(tc.DB)
		user, err := store.UserByEmail(context.Background(), auth.ProviderLocal, "pending@example.com")
		require.NoError(t, err)
		assert.True(t, user.Activated)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "GET", "/api/v1/auth/activate/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
