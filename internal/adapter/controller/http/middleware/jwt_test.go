package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, role string, expiresIn time.Duration) string {
	t.Helper()

	claims := &Claims{
		Username: "alice",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAdminChain(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	var gotSubject string
	handler := JWTAuth(verifier)(RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = GetSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), "admin", time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "admin", -time.Hour), http.StatusUnauthorized},
		{"viewer role", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "viewer", time.Hour), http.StatusForbidden},
		{"admin", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "admin", time.Hour), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/cache", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusNoContent {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}

	assert.Equal(t, "u-1", gotSubject)
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	token := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), "admin", time.Hour)
	_, err := verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
