package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/utils"
)

const testSecret = "test-secret"

func protected(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := echo.HandlerFunc(func(c echo.Context) error {
		uid, _ := c.Get("user_id").(uint64)
		return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "role": c.Get("role")})
	})
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	_ = h(c)
	return rec
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, model.RoleRestaurant, 5)
	require.NoError(t, err)

	rec := protected(t, "Bearer "+tok.Token, JWTAuth(testSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":42`)
	assert.Contains(t, rec.Body.String(), model.RoleRestaurant)
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, protected(t, "", JWTAuth(testSecret)).Code)
	assert.Equal(t, http.StatusUnauthorized, protected(t, "Bearer garbage", JWTAuth(testSecret)).Code)

	wrongKey, err := utils.NewAccessToken("other-secret", 42, model.RoleRestaurant, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, protected(t, "Bearer "+wrongKey.Token, JWTAuth(testSecret)).Code)
}

func TestRequireRole(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, model.RoleVenueManager, 5)
	require.NoError(t, err)

	allowed := protected(t, "Bearer "+tok.Token, JWTAuth(testSecret), RequireRole(model.RoleVenueManager))
	assert.Equal(t, http.StatusOK, allowed.Code)

	denied := protected(t, "Bearer "+tok.Token, JWTAuth(testSecret), RequireRole(model.RoleRestaurant))
	assert.Equal(t, http.StatusForbidden, denied.Code)
}
