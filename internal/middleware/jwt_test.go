package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims JWTClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuth(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	valid := JWTClaims{
		UserID: "operator-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	expired := JWTClaims{
		UserID: "operator-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}

	for name, tc := range map[string]struct {
		header string
		status int
		body   string
	}{
		"valid":          {"Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusOK, "operator-1"},
		"missing header": {"", http.StatusUnauthorized, ""},
		"not bearer":     {"Basic abc", http.StatusUnauthorized, ""},
		"empty bearer":   {"Bearer ", http.StatusUnauthorized, ""},
		"wrong secret":   {"Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), valid), http.StatusUnauthorized, ""},
		"wrong method":   {"Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), valid), http.StatusUnauthorized, ""},
		"expired":        {"Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized, ""},
		"no user id":     {"Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), JWTClaims{}), http.StatusUnauthorized, ""},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newTestRouter().ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("body = %q", rec.Body.String())
			}
		})
	}
}
