package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/backoffice"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/orders"
	"github.com/Skotchmaster/storefront/internal/profile"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	badRequest = []error{
		cart.ErrInvalidQuantity,
		checkout.ErrMissingAddressFields,
		checkout.ErrNoAddressSelected,
		backoffice.ErrValidation,
		profile.ErrPasswordMismatch,
		profile.ErrWeakPassword,
		profile.ErrMissingFields,
		profile.ErrInvalidEmail,
		profile.ErrWrongPassword,
		profile.ErrNotLoaded,
		apiclient.ErrAddressID,
		models.ErrUnknownStatus,
	}
	notFound = []error{
		cart.ErrNotInCart,
		cart.ErrNotWishlisted,
		checkout.ErrUnknownAddress,
		orders.ErrUnknownOrder,
	}
	conflict = []error{
		cart.ErrAlreadyWishlisted,
		cart.ErrDeclined,
		checkout.ErrFinished,
		profile.ErrDeclined,
		backoffice.ErrDeclined,
	}
	signedOut = []error{
		cart.ErrNoCustomer,
		checkout.ErrNoCustomer,
		orders.ErrNoSession,
		profile.ErrNoCustomer,
		backoffice.ErrNoSession,
		session.ErrNotAuthenticated,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusFor maps state errors to shell status codes. Backend answers keep
// their own status; transport failures become 502.
func statusFor(err error) int {
	switch {
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case isAny(err, signedOut):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	if code := apiclient.StatusCode(err); code > 0 {
		return code
	}
	return http.StatusBadGateway
}

func messageFor(err error) string {
	if msg := apiclient.Message(err); msg != "" {
		return msg
	}
	if apiclient.StatusCode(err) > 0 || statusFor(err) >= 500 {
		return http.StatusText(statusFor(err))
	}
	return err.Error()
}

// fail logs err under event and turns it into the HTTP error the request
// logger reports.
func fail(c echo.Context, event string, err error) error {
	l := logging.FromContext(c.Request().Context())
	status := statusFor(err)
	if status >= 500 {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "error", err)
	}
	return echo.NewHTTPError(status, messageFor(err)).SetInternal(err)
}

func intParam(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}
