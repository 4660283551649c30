// Package guard decides whether a page may be shown for the stored session.
// There is no forbidden state: a signed-in user on the wrong side is sent
// to their own home page.
package guard

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	LoginPath           = "/login"
	AdminHomePath       = "/dashboard"
	CustomerHomePath    = "/customerDashboard"
	legacyAdminTokenKey = "admin_token"
)

// Route is a guarded page. An empty Role admits any signed-in user.
type Route struct {
	Path string
	Role models.Role
}

type State struct {
	HasToken bool
	Role     models.Role
}

type Decision struct {
	Allow    bool
	Redirect string
}

func Home(role models.Role) string {
	if role == models.RoleAdmin {
		return AdminHomePath
	}
	return CustomerHomePath
}

func Check(route Route, st State) Decision {
	if !st.HasToken {
		return Decision{Redirect: LoginPath}
	}
	if route.Role != "" && st.Role != route.Role {
		if st.Role == "" {
			return Decision{Redirect: LoginPath}
		}
		return Decision{Redirect: Home(st.Role)}
	}
	return Decision{Allow: true}
}

// StateSource reports the session state a request is checked against.
type StateSource interface {
	State(ctx context.Context) (State, error)
}

// StorageState reads the state straight from session storage: any stored
// token counts, and the role is the shared role key.
type StorageState struct {
	Storage session.Storage
}

func (s StorageState) State(ctx context.Context) (State, error) {
	var st State
	for _, k := range []string{session.AdminKeys.Token, session.CustomerKeys.Token, legacyAdminTokenKey} {
		v, ok, err := s.Storage.Get(ctx, k)
		if err != nil {
			return State{}, err
		}
		if ok && v != "" {
			st.HasToken = true
			break
		}
	}
	role, err := session.StoredRole(ctx, s.Storage)
	if err != nil {
		return State{}, err
	}
	st.Role = role
	return st, nil
}

// Middleware answers 302 for every request the route does not admit.
// Unreadable state is treated as signed out.
func Middleware(src StateSource, route Route) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			st, err := src.State(ctx)
			if err != nil {
				logging.FromContext(ctx).Warn("guard_state_error", "path", route.Path, "error", err)
				st = State{}
			}
			d := Check(route, st)
			if !d.Allow {
				logging.FromContext(ctx).Info("guard_redirect", "path", route.Path, "to", d.Redirect)
				return c.Redirect(http.StatusFound, d.Redirect)
			}
			return next(c)
		}
	}
}
