package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citizenvoice/engagement-server/internal/models"
)

const testSecret = "test-secret"

type stubLoader struct {
	users map[uuid.UUID]*models.User
}

func (s *stubLoader) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, assert.AnError
}

func signToken(t *testing.T, id uuid.UUID, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  id.String(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticatorValidToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleCitizen, Email: "citizen@example.com"}
	loader := &stubLoader{users: map[uuid.UUID]*models.User{user.ID: user}}

	var got *models.User
	handler := Authenticator(testSecret, loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, user.Email, got.Email)
}

func TestAuthenticatorRejects(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleCitizen}
	loader := &stubLoader{users: map[uuid.UUID]*models.User{user.ID: user}}
	handler := Authenticator(testSecret, loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
		{"expired token", "Bearer " + signToken(t, user.ID, -time.Hour)},
		{"unknown user", "Bearer " + signToken(t, uuid.New(), time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthenticatorRejectsWrongSigningKey(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	loader := &stubLoader{users: map[uuid.UUID]*models.User{user.ID: user}}
	handler := Authenticator("other-secret", loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := RequireRole(models.RoleDistrictAdmin, models.RoleSuperAdmin)(next)

	serve := func(user *models.User) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != nil {
			req = req.WithContext(context.WithValue(req.Context(), userKey, user))
		}
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve(&models.User{Role: models.RoleDistrictAdmin}))
	assert.Equal(t, http.StatusOK, serve(&models.User{Role: models.RoleSuperAdmin}))
	assert.Equal(t, http.StatusForbidden, serve(&models.User{Role: models.RoleCitizen}))
	assert.Equal(t, http.StatusForbidden, serve(&models.User{Role: models.RoleSectorAdmin}))
	assert.Equal(t, http.StatusUnauthorized, serve(nil))
}
