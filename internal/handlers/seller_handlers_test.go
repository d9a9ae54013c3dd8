package handlers_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarmate/backend/internal/models"
	"github.com/bazaarmate/backend/internal/password"
)

func seedAdmin(t *testing.T, app *testApp) string {
	t.Helper()

	hash, err := password.HashPassword(strongPassword)
	require.NoError(t, err)
	admin := models.User{Username: "root", Email: "root@example.com", PasswordHash: hash, Role: models.RoleAdmin, Active: true}
	require.NoError(t, app.db.Create(&admin).Error)

	access, _ := app.login(t, "root")
	return access
}

func registerSeller(t *testing.T, app *testApp, adminAccess, username string) string {
	t.Helper()

	rec := app.do(t, http.MethodPost, "/api/v1/auth/register", adminAccess, echo.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": strongPassword,
		"role":     models.RoleSeller,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	access, _ := app.login(t, username)
	return access
}

func TestSellerProfile(t *testing.T) {
	app := newTestApp(t)
	adminAccess := seedAdmin(t, app)
	sellerAccess := registerSeller(t, app, adminAccess, "shopkeeper")

	t.Run("created with the seller account", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/v1/sellers/profile", sellerAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode(t, rec)
		assert.Equal(t, "shopkeeper", body["store_name"])
		assert.Equal(t, float64(0), body["earnings"])
	})

	t.Run("owner updates store fields", func(t *testing.T) {
		rec := app.do(t, http.MethodPatch, "/api/v1/sellers/profile", sellerAccess, echo.Map{
			"store_name":  "Shopkeeper's Corner",
			"description": "handmade lamps",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodGet, "/api/v1/sellers/profile", sellerAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Shopkeeper's Corner", body["store_name"])
		assert.Equal(t, "handmade lamps", body["description"])
	})

	t.Run("earnings not writable", func(t *testing.T) {
		rec := app.do(t, http.MethodPatch, "/api/v1/sellers/profile", sellerAccess, echo.Map{
			"earnings": 9999.0,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(0), decode(t, rec)["earnings"])
	})

	t.Run("buyer is refused", func(t *testing.T) {
		app.register(t, "window-shopper")
		buyerAccess, _ := app.login(t, "window-shopper")

		rec := app.do(t, http.MethodGet, "/api/v1/sellers/profile", buyerAccess, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("anonymous is refused", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/v1/sellers/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("absent profile is 404", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/v1/sellers/profile", adminAccess, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decode(t, rec)["code"])
	})
}

func TestSellerPayoutRequest(t *testing.T) {
	app := newTestApp(t)
	adminAccess := seedAdmin(t, app)
	sellerAccess := registerSeller(t, app, adminAccess, "vendor")

	t.Run("no earnings yet", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/v1/payouts", sellerAccess, echo.Map{"amount": 10.0})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "insufficient_earnings", decode(t, rec)["code"])
	})

	require.NoError(t, app.db.Model(&models.SellerProfile{}).
		Where("store_name = ?", "vendor").
		Update("earnings", 100.0).Error)

	rec := app.do(t, http.MethodPost, "/api/v1/payouts", sellerAccess, echo.Map{"amount": 60.0})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.PayoutPending, decode(t, rec)["status"])
}

func TestHealthReady(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
