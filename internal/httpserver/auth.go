package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/profile"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func (h *handlers) loginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, PageView{Page: "login", Session: sessionView(h.d.Customer)})
}

func (h *handlers) signupPage(c echo.Context) error {
	return c.JSON(http.StatusOK, PageView{Page: "signup"})
}

func (h *handlers) adminLoginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, PageView{Page: "admin", Session: sessionView(h.d.Admin)})
}

func (h *handlers) customerLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.login")

	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("customer_login_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	if err := h.d.Customer.SignIn(ctx, strings.TrimSpace(req.Email), req.Password); err != nil {
		return fail(c, "customer_login_error", err)
	}
	h.warmCustomer(ctx)

	l.Info("customer_logged_in")
	return c.JSON(http.StatusOK, PageView{Page: "login", Session: sessionView(h.d.Customer), Redirect: guard.CustomerHomePath})
}

// warmCustomer loads the badge counts right after sign-in. Failures only
// leave the badges empty.
func (h *handlers) warmCustomer(ctx context.Context) {
	l := logging.FromContext(ctx)
	if h.d.Cart != nil {
		if err := h.d.Cart.Load(ctx); err != nil {
			l.Warn("cart_warmup_error", "error", err)
		}
	}
	if h.d.Wishlist != nil {
		if err := h.d.Wishlist.Load(ctx); err != nil {
			l.Warn("wishlist_warmup_error", "error", err)
		}
	}
}

func (h *handlers) adminLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.login")

	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("admin_login_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	if err := h.d.Admin.SignIn(ctx, strings.TrimSpace(req.Username), req.Password); err != nil {
		return fail(c, "admin_login_error", err)
	}
	l.Info("admin_logged_in")
	return c.JSON(http.StatusOK, PageView{Page: "admin", Session: sessionView(h.d.Admin), Redirect: guard.AdminHomePath})
}

func (h *handlers) signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.signup")

	var req struct {
		Name            string  `json:"name" form:"name"`
		Email           string  `json:"email" form:"email"`
		Phone           string  `json:"phone" form:"phone"`
		Password        string  `json:"password" form:"password"`
		ConfirmPassword string  `json:"confirmPassword" form:"confirmPassword"`
		Address         *string `json:"address,omitempty" form:"address"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	img, err := upload(c, "image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := profile.SignUp(ctx, h.d.Client, profile.SignUpForm{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Address:         req.Address,
		Image:           img,
	}); err != nil {
		return fail(c, "signup_error", err)
	}
	return c.JSON(http.StatusCreated, PageView{Page: "signup", Message: "Account Created! Please Login.", Redirect: guard.LoginPath})
}

// logout signs out the role given by ?role=, the customer by default. Local
// state is cleared even when the backend call fails.
func (h *handlers) logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "logout")

	store, redirect := h.d.Customer, guard.LoginPath
	if models.Role(strings.ToUpper(c.QueryParam("role"))) == models.RoleAdmin {
		store, redirect = h.d.Admin, "/admin"
	}
	if err := store.Logout(ctx); err != nil {
		l.Error("logout_error", "role", string(store.Role()), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not clear session")
	}
	l.Info("logged_out", "role", string(store.Role()))
	return c.JSON(http.StatusOK, PageView{Page: "logout", Redirect: redirect})
}

// upload reads an optional file field of a multipart request.
func upload(c echo.Context, field string) (*apiclient.Image, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &apiclient.Image{Name: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Data: data}, nil
}
