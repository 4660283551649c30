package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/models"
)

func (h *handlers) adminDashboard(c echo.Context) error {
	if err := h.d.Board.Load(c.Request().Context()); err != nil {
		return fail(c, "dashboard_stats_error", err)
	}
	return c.JSON(http.StatusOK, AdminDashboardView{Cards: adminCards, Stats: h.d.Board.Stats()})
}

func (h *handlers) adminFoods(c echo.Context) error {
	kw := strings.TrimSpace(c.QueryParam("keyword"))
	items, err := h.d.Foods.Search(c.Request().Context(), kw)
	if err != nil {
		return fail(c, "admin_foods_error", err)
	}
	if items == nil {
		items = []models.FoodItem{}
	}
	groups := h.d.Foods.Groups()
	if groups == nil {
		groups = []catalog.Group{}
	}
	return c.JSON(http.StatusOK, map[string]any{"keyword": kw, "items": items, "groups": groups})
}

func (h *handlers) createFood(c echo.Context) error {
	var f models.FoodItem
	if err := bindPart(c, "food", &f); err != nil {
		return err
	}
	img, err := upload(c, "imageFile")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.d.Foods.Create(c.Request().Context(), f, img)
	if err != nil {
		return fail(c, "create_food_error", err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *handlers) updateFood(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var f models.FoodItem
	if err := bindPart(c, "food", &f); err != nil {
		return err
	}
	img, err := upload(c, "imageFile")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.d.Foods.Update(c.Request().Context(), id, f, img)
	if err != nil {
		return fail(c, "update_food_error", err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *handlers) deleteFood(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.d.Foods.Delete(c.Request().Context(), id, cart.AlwaysConfirm); err != nil {
		return fail(c, "delete_food_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) adminCustomers(c echo.Context) error {
	out, err := h.d.Customers.Search(c.Request().Context(), c.QueryParam("keyword"))
	if err != nil {
		return fail(c, "admin_customers_error", err)
	}
	if out == nil {
		out = []models.Customer{}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) updateCustomer(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var cust models.Customer
	if err := c.Bind(&cust); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	cust.CustomerID = id
	updated, err := h.d.Customers.Update(c.Request().Context(), cust)
	if err != nil {
		return fail(c, "update_customer_error", err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *handlers) deleteCustomer(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.d.Customers.Delete(c.Request().Context(), id, cart.AlwaysConfirm); err != nil {
		return fail(c, "delete_customer_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) adminOrders(c echo.Context) error {
	if err := h.d.Board.Load(c.Request().Context()); err != nil {
		return fail(c, "admin_orders_error", err)
	}
	f := filterParam(c)
	return c.JSON(http.StatusOK, OrdersView{Filter: f, Orders: h.d.Board.View(f), Counts: h.d.Board.Counts()})
}

// setOrderStatus takes the status from ?status= or a JSON body.
func (h *handlers) setOrderStatus(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		status = req.Status
	}
	ctx := c.Request().Context()
	if len(h.d.Board.View(models.FilterAll)) == 0 {
		if err := h.d.Board.Load(ctx); err != nil {
			return fail(c, "admin_orders_error", err)
		}
	}
	if err := h.d.Board.SetStatus(ctx, c.Param("id"), status); err != nil {
		return fail(c, "order_status_error", err)
	}
	f := filterParam(c)
	return c.JSON(http.StatusOK, OrdersView{Filter: f, Orders: h.d.Board.View(f), Counts: h.d.Board.Counts()})
}
