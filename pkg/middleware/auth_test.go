package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := &Claims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func organizerRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/promote", AuthMiddleware(testSecret), RequireRole("organizer"), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return router
}

func doPromote(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/promote", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	resp := doPromote(organizerRouter(), "")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "UNAUTHORIZED")
}

func TestAuthMiddleware_MalformedToken(t *testing.T) {
	resp := doPromote(organizerRouter(), "Bearer not-a-token")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthMiddleware_WrongSigningKey(t *testing.T) {
	claims := &Claims{UserID: "user-1", Role: "organizer"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	resp := doPromote(organizerRouter(), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequireRole_OrganizerAllowed(t *testing.T) {
	resp := doPromote(organizerRouter(), "Bearer "+signToken(t, "organizer"))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "user-1")
}

func TestRequireRole_AttendeeForbidden(t *testing.T) {
	resp := doPromote(organizerRouter(), "Bearer "+signToken(t, "attendee"))

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "FORBIDDEN")
}
