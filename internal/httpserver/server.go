// Package httpserver is the storefront shell: the pages of the storefront
// served as JSON views on localhost, with the route guard in front of them.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/backoffice"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/orders"
	"github.com/Skotchmaster/storefront/internal/profile"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

type Deps struct {
	Logger *slog.Logger
	Client *apiclient.Client
	Bus    *events.Bus
	Guard  guard.StateSource

	Customer *session.Store
	Admin    *session.Store

	Menu      *catalog.Catalog
	Cart      *cart.Cart
	Wishlist  *cart.Wishlist
	Checkout  *checkout.Wizard
	History   *orders.History
	Profile   *profile.Profile
	Board     *orders.Board
	Foods     *backoffice.Foods
	Customers *backoffice.Customers

	Inbox   *notify.Inbox
	Metrics *metrics.Metrics
	Hub     *Hub

	// Ready reports whether the backend can be reached; nil means always ready.
	Ready func(ctx context.Context) error
}

func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(loggingmw.RequestLogger(logger))
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	h := &handlers{d: d}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", h.ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
		if d.Bus != nil {
			d.Bus.SubscribeAll(func(_ context.Context, ev events.Event) {
				d.Metrics.EventsPublished.WithLabelValues(string(ev.Topic)).Inc()
			})
		}
	}

	e.GET("/", func(c echo.Context) error { return c.Redirect(http.StatusFound, guard.LoginPath) })
	e.GET("/login", h.loginPage)
	e.POST("/login", h.customerLogin)
	e.GET("/signup", h.signupPage)
	e.POST("/signup", h.signup)
	e.GET("/admin", h.adminLoginPage)
	e.POST("/admin", h.adminLogin)
	e.POST("/logout", h.logout)

	anyone := func(path string) echo.MiddlewareFunc {
		return guard.Middleware(d.Guard, guard.Route{Path: path})
	}
	customer := func(path string) echo.MiddlewareFunc {
		return guard.Middleware(d.Guard, guard.Route{Path: path, Role: models.RoleCustomer})
	}
	admin := func(path string) echo.MiddlewareFunc {
		return guard.Middleware(d.Guard, guard.Route{Path: path, Role: models.RoleAdmin})
	}

	e.GET("/alerts", h.alerts, anyone("/alerts"))
	if d.Hub != nil {
		e.GET("/ws", h.websocket, anyone("/ws"))
	}

	e.GET("/customerDashboard", h.customerDashboard, customer("/customerDashboard"))
	e.GET("/about", h.about, customer("/about"))

	e.GET("/food/:id", h.foodDetails, customer("/food"))
	e.POST("/food/:id/cart", h.foodToCart, customer("/food"))
	e.POST("/food/:id/wishlist", h.foodToWishlist, customer("/food"))

	e.GET("/wishlist", h.wishlist, customer("/wishlist"))
	e.POST("/wishlist/toggle/:foodId", h.toggleWishlist, customer("/wishlist"))
	e.DELETE("/wishlist/:foodId", h.removeFromWishlist, customer("/wishlist"))
	e.POST("/wishlist/move/:id", h.moveToCart, customer("/wishlist"))

	e.GET("/cart", h.cart, customer("/cart"))
	e.POST("/cart/items", h.addToCart, customer("/cart"))
	e.PUT("/cart/items/:id", h.setQuantity, customer("/cart"))
	e.DELETE("/cart/items/:id", h.removeFromCart, customer("/cart"))

	e.GET("/cart/checkout", h.checkout, customer("/cart"))
	e.POST("/cart/checkout/address/:id", h.selectAddress, customer("/cart"))
	e.POST("/cart/checkout/new", h.useNewAddress, customer("/cart"))
	e.POST("/cart/checkout/saved", h.useSavedAddresses, customer("/cart"))
	e.PUT("/cart/checkout/draft", h.setDraft, customer("/cart"))
	e.POST("/cart/checkout/confirm", h.confirmCheckout, customer("/cart"))

	e.GET("/orders", h.orders, customer("/orders"))

	e.GET("/profile", h.profile, customer("/profile"))
	e.PUT("/profile", h.updateProfile, customer("/profile"))
	e.DELETE("/profile", h.deleteProfile, customer("/profile"))
	e.POST("/profile/verify-password", h.verifyPassword, customer("/profile"))
	e.POST("/profile/addresses", h.addAddress, customer("/profile"))
	e.PUT("/profile/addresses/:id", h.updateAddress, customer("/profile"))
	e.DELETE("/profile/addresses/:id", h.deleteAddress, customer("/profile"))

	e.GET("/dashboard", h.adminDashboard, admin("/dashboard"))
	e.GET("/dashboard/foods", h.adminFoods, admin("/dashboard/foods"))
	e.POST("/dashboard/foods", h.createFood, admin("/dashboard/foods"))
	e.PUT("/dashboard/foods/:id", h.updateFood, admin("/dashboard/foods"))
	e.DELETE("/dashboard/foods/:id", h.deleteFood, admin("/dashboard/foods"))
	e.GET("/dashboard/customers", h.adminCustomers, admin("/dashboard/customers"))
	e.PUT("/dashboard/customers/:id", h.updateCustomer, admin("/dashboard/customers"))
	e.DELETE("/dashboard/customers/:id", h.deleteCustomer, admin("/dashboard/customers"))
	e.GET("/dashboard/orders", h.adminOrders, admin("/dashboard/orders"))
	e.PUT("/dashboard/orders/:id/status", h.setOrderStatus, admin("/dashboard/orders"))
}

type handlers struct {
	d *Deps
}

func (h *handlers) ready(c echo.Context) error {
	if h.d.Ready == nil {
		return c.NoContent(http.StatusOK)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.d.Ready(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusOK)
}
