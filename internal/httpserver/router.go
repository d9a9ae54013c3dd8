package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bazaarmate/backend/internal/handlers"
	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
)

type Deps struct {
	DB       *gorm.DB
	Auth     *middleware.Auth
	AuthH    *handlers.AuthHandler
	AdminH   *handlers.AdminHandler
	SellerH  *handlers.SellerHandler
	ProductH *handlers.ProductHandler
	CartH    *handlers.CartHandler
	OrderH   *handlers.OrderHandler
	ReviewH  *handlers.ReviewHandler
	WishH    *handlers.WishlistHandler
	MessageH *handlers.MessageHandler
	PayoutH  *handlers.PayoutHandler
	SearchH  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", readiness(d.DB))

	v1 := e.Group("/api/v1", d.Auth.Resolve)

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", d.AuthH.Register)
	authGroup.POST("/login", d.AuthH.Login)
	authGroup.POST("/refresh", d.AuthH.Refresh)
	authGroup.POST("/password/forgot", d.AuthH.ForgotPassword)

	authPrivate := authGroup.Group("", d.Auth.RequireAuth)
	authPrivate.POST("/logout", d.AuthH.Logout)
	authPrivate.GET("/profile", d.AuthH.GetProfile)
	authPrivate.PATCH("/profile", d.AuthH.PatchProfile)
	authPrivate.POST("/password", d.AuthH.ChangePassword)

	sellers := v1.Group("/sellers", d.Auth.RequireRole(models.RoleSeller, models.RoleAdmin))
	sellers.GET("/profile", d.SellerH.GetProfile)
	sellers.PATCH("/profile", d.SellerH.PatchProfile)

	products := v1.Group("/products")
	products.GET("", d.ProductH.GetProducts)
	products.GET("/:id", d.ProductH.GetProduct)
	products.GET("/:id/reviews", d.ReviewH.ListByProduct)

	selling := v1.Group("/products", d.Auth.RequireRole(models.RoleSeller, models.RoleAdmin))
	selling.POST("", d.ProductH.CreateProduct)
	selling.PATCH("/:id", d.ProductH.PatchProduct)
	selling.DELETE("/:id", d.ProductH.DeleteProduct)

	if d.SearchH != nil {
		v1.GET("/search", d.SearchH.Search)
	}

	cart := v1.Group("/cart", d.Auth.RequireRole(models.RoleBuyer, models.RoleAdmin))
	cart.GET("", d.CartH.GetCart)
	cart.POST("", d.CartH.AddToCart)
	cart.POST("/order", d.OrderH.MakeOrder)
	cart.DELETE("/:id", d.CartH.DeleteOneFromCart)
	cart.DELETE("/:id/all", d.CartH.DeleteAllFromCart)

	orders := v1.Group("/orders", d.Auth.RequireAuth)
	orders.GET("", d.OrderH.GetOrders)
	orders.GET("/:id", d.OrderH.GetOrder)

	reviews := v1.Group("/reviews", d.Auth.RequireRole(models.RoleBuyer, models.RoleAdmin))
	reviews.POST("", d.ReviewH.CreateReview)
	reviews.PATCH("/:id", d.ReviewH.PatchReview)
	reviews.DELETE("/:id", d.ReviewH.DeleteReview)

	wishlist := v1.Group("/wishlist", d.Auth.RequireRole(models.RoleBuyer, models.RoleAdmin))
	wishlist.GET("", d.WishH.GetWishlist)
	wishlist.POST("", d.WishH.AddToWishlist)
	wishlist.DELETE("/:id", d.WishH.RemoveFromWishlist)

	messages := v1.Group("/messages", d.Auth.RequireAuth)
	messages.GET("", d.MessageH.ListMessages)
	messages.POST("", d.MessageH.SendMessage)
	messages.PATCH("/:id/read", d.MessageH.MarkRead)

	payouts := v1.Group("/payouts", d.Auth.RequireRole(models.RoleSeller, models.RoleAdmin))
	payouts.GET("", d.PayoutH.ListPayouts)
	payouts.POST("", d.PayoutH.RequestPayout)

	admin := v1.Group("/admin", d.Auth.RequireRole(models.RoleAdmin))
	admin.PATCH("/users/:id/deactivate", d.AdminH.DeactivateUser)
	admin.PATCH("/payouts/:id", d.PayoutH.ProcessPayout)
}

// readiness reports healthy only when the database answers a ping, since
// every request path depends on it.
func readiness(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}
