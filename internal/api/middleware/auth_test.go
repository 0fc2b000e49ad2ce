package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calum/gatehouse/internal/api/middleware"
	"github.com/calum/gatehouse/internal/database/models"
	"github.com/calum/gatehouse/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuth(t *testing.T) {
	jwtService := testutil.CreateTestJWTService()

	user := &models.User{
		Base:           models.Base{ID: uuid.New()},
		Email:          "mw@example.com",
		Provider:       "local",
		OrganizationID: uuid.New(),
	}

	protected := middleware.Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, user.ID, middleware.GetUserID(r.Context()))
		assert.Equal(t, user.OrganizationID, middleware.GetOrganizationID(r.Context()))
		assert.Equal(t, "mw@example.com", middleware.GetUserEmail(r.Context()))
		assert.Equal(t, "local", middleware.GetProvider(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("accepts bearer token", func(t *testing.T) {
		token := testutil.GenerateTestToken(t, jwtService, user)

		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("accepts cookie token", func(t *testing.T) {
		token := testutil.GenerateTestToken(t, jwtService, user)

		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
