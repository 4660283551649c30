package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/profile"
)

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// bindPart decodes v from the JSON form field part of a multipart request,
// or from the body otherwise.
func bindPart(c echo.Context, part string, v any) error {
	if isMultipart(c) {
		raw := c.FormValue(part)
		if raw == "" {
			return echo.NewHTTPError(http.StatusBadRequest, part+" is required")
		}
		if err := json.Unmarshal([]byte(raw), v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid "+part)
		}
		return nil
	}
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

func (h *handlers) profile(c echo.Context) error {
	ctx := c.Request().Context()
	cust, err := h.d.Profile.Load(ctx)
	if err != nil {
		return fail(c, "profile_load_error", err)
	}
	addrs, err := h.d.Profile.Addresses(ctx)
	if err != nil {
		return fail(c, "address_list_error", err)
	}
	if addrs == nil {
		addrs = []models.Address{}
	}
	return c.JSON(http.StatusOK, ProfileView{Customer: *cust, Addresses: addrs})
}

func (h *handlers) updateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	var ch profile.Changes
	if err := bindPart(c, "customerInfo", &ch); err != nil {
		return err
	}
	img, err := upload(c, "imageFile")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, ok := h.d.Profile.Customer(); !ok {
		if _, err := h.d.Profile.Load(ctx); err != nil {
			return fail(c, "profile_load_error", err)
		}
	}
	updated, err := h.d.Profile.Update(ctx, ch, img)
	if err != nil {
		return fail(c, "profile_update_error", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// deleteProfile is the confirmed deletion.
func (h *handlers) deleteProfile(c echo.Context) error {
	if err := h.d.Profile.Delete(c.Request().Context(), cart.AlwaysConfirm); err != nil {
		return fail(c, "profile_delete_error", err)
	}
	return c.JSON(http.StatusOK, PageView{Page: "profile", Message: "Account deleted.", Redirect: guard.LoginPath})
}

func (h *handlers) verifyPassword(c echo.Context) error {
	var req struct {
		CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.d.Profile.VerifyPassword(c.Request().Context(), req.CurrentPassword); err != nil {
		return fail(c, "verify_password_error", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}

func (h *handlers) addAddress(c echo.Context) error {
	var a models.Address
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	saved, err := h.d.Profile.AddAddress(c.Request().Context(), a)
	if err != nil {
		return fail(c, "address_add_error", err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *handlers) updateAddress(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var a models.Address
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	a.ID = &id
	saved, err := h.d.Profile.UpdateAddress(c.Request().Context(), a)
	if err != nil {
		return fail(c, "address_update_error", err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *handlers) deleteAddress(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.d.Profile.DeleteAddress(c.Request().Context(), id); err != nil {
		return fail(c, "address_delete_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) alerts(c echo.Context) error {
	msgs := h.d.Inbox.Drain()
	if msgs == nil {
		msgs = []notify.Message{}
	}
	return c.JSON(http.StatusOK, AlertsView{Alerts: msgs})
}
