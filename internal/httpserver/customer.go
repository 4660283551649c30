package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func (h *handlers) badges() Badges {
	return Badges{Cart: h.d.Cart.Count(), Wishlist: len(h.d.Wishlist.Items())}
}

func (h *handlers) wishlisted() []int {
	items := h.d.Wishlist.Items()
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.Food.ID)
	}
	return out
}

func (h *handlers) customerDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	kw := strings.TrimSpace(c.QueryParam("keyword"))

	if _, err := h.d.Menu.Search(ctx, kw); err != nil {
		return fail(c, "dashboard_menu_error", err)
	}
	h.warmCustomer(ctx)

	v := DashboardView{
		Keyword:    kw,
		Groups:     h.d.Menu.Groups(),
		Wishlisted: h.wishlisted(),
		Badges:     h.badges(),
	}
	if v.Groups == nil {
		v.Groups = []catalog.Group{}
	}
	if err := h.d.Wishlist.Err(); err != nil {
		v.WishlistError = messageFor(err)
	}
	if len(v.Groups) == 0 {
		v.Empty = &EmptyState{Message: "No food items found."}
	}
	return c.JSON(http.StatusOK, v)
}

func (h *handlers) about(c echo.Context) error {
	return c.JSON(http.StatusOK, PageView{Page: "about"})
}

func (h *handlers) foodDetails(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	f, err := h.d.Menu.Food(ctx, id)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "Food item not found")
		}
		return fail(c, "food_details_error", err)
	}
	v := FoodView{Food: f}
	if err := h.d.Wishlist.Load(ctx); err != nil {
		logging.FromContext(ctx).Warn("wishlist_check_error", "error", err)
		v.WishlistError = messageFor(err)
	}
	v.InWishlist = h.d.Wishlist.Contains(id)
	return c.JSON(http.StatusOK, v)
}

type quantityRequest struct {
	FoodID   int `json:"foodId" form:"foodId"`
	Quantity int `json:"quantity" form:"quantity"`
}

func (h *handlers) foodToCart(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req quantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.d.Cart.Add(c.Request().Context(), id, req.Quantity); err != nil {
		return fail(c, "add_to_cart_error", err)
	}
	return c.JSON(http.StatusOK, h.cartView())
}

func (h *handlers) foodToWishlist(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.d.Wishlist.Add(c.Request().Context(), id); err != nil {
		return fail(c, "add_to_wishlist_error", err)
	}
	return c.JSON(http.StatusOK, h.wishlistView())
}

func (h *handlers) wishlistView() WishlistView {
	v := WishlistView{Items: h.d.Wishlist.Items()}
	if v.Items == nil {
		v.Items = []models.WishlistItem{}
	}
	if len(v.Items) == 0 {
		v.Empty = &EmptyState{Message: "Looks like you haven't decided on the food yet.", Action: &browseMenu}
	}
	return v
}

func (h *handlers) wishlist(c echo.Context) error {
	if err := h.d.Wishlist.Load(c.Request().Context()); err != nil {
		return fail(c, "wishlist_load_error", err)
	}
	return c.JSON(http.StatusOK, h.wishlistView())
}

func (h *handlers) toggleWishlist(c echo.Context) error {
	id, err := intParam(c, "foodId")
	if err != nil {
		return err
	}
	in, err := h.d.Wishlist.Toggle(c.Request().Context(), id)
	if err != nil {
		return fail(c, "toggle_wishlist_error", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"inWishlist": in})
}

func (h *handlers) removeFromWishlist(c echo.Context) error {
	id, err := intParam(c, "foodId")
	if err != nil {
		return err
	}
	if err := h.d.Wishlist.Remove(c.Request().Context(), id); err != nil {
		return fail(c, "remove_wishlist_error", err)
	}
	return c.JSON(http.StatusOK, h.wishlistView())
}

func (h *handlers) moveToCart(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.d.Wishlist.MoveToCart(c.Request().Context(), id); err != nil {
		return fail(c, "move_to_cart_error", err)
	}
	return c.JSON(http.StatusOK, h.wishlistView())
}

func (h *handlers) cartView() CartView {
	v := CartView{Items: h.d.Cart.Items(), Total: h.d.Cart.Total(), Count: h.d.Cart.Count()}
	if v.Items == nil {
		v.Items = []models.CartItem{}
	}
	if len(v.Items) == 0 {
		v.Empty = &EmptyState{Message: "Your cart is empty", Action: &browseMenu}
	}
	return v
}

func (h *handlers) cart(c echo.Context) error {
	if err := h.d.Cart.Load(c.Request().Context()); err != nil {
		return fail(c, "cart_load_error", err)
	}
	return c.JSON(http.StatusOK, h.cartView())
}

func (h *handlers) addToCart(c echo.Context) error {
	var req quantityRequest
	if err := c.Bind(&req); err != nil || req.FoodID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "foodId is required")
	}
	if err := h.d.Cart.Add(c.Request().Context(), req.FoodID, req.Quantity); err != nil {
		return fail(c, "add_to_cart_error", err)
	}
	return c.JSON(http.StatusOK, h.cartView())
}

func (h *handlers) setQuantity(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Quantity *int `json:"quantity" form:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity is required")
	}
	if err := h.d.Cart.SetQuantity(c.Request().Context(), id, *req.Quantity); err != nil {
		return fail(c, "update_cart_error", err)
	}
	return c.JSON(http.StatusOK, h.cartView())
}

// removeFromCart is the confirmed removal; asking happens on the page.
func (h *handlers) removeFromCart(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.d.Cart.Remove(c.Request().Context(), id, cart.AlwaysConfirm); err != nil {
		return fail(c, "remove_cart_error", err)
	}
	return c.JSON(http.StatusOK, h.cartView())
}

func (h *handlers) checkoutView() CheckoutView {
	w := h.d.Checkout
	v := CheckoutView{Step: w.Step(), Saved: w.Saved(), Draft: w.Draft(), Total: h.d.Cart.Total(), Order: w.Order()}
	if v.Saved == nil {
		v.Saved = []models.Address{}
	}
	if id, ok := w.Selected(); ok {
		v.Selected = &id
	}
	return v
}

// checkout opens the wizard. A finished wizard is restarted so a new visit
// never shows the previous order.
func (h *handlers) checkout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.d.Cart.Load(ctx); err != nil {
		return fail(c, "cart_load_error", err)
	}
	if h.d.Cart.IsEmpty() && h.d.Checkout.Step() != checkout.StepDone {
		return c.JSON(http.StatusOK, h.cartView())
	}
	if h.d.Checkout.Step() == checkout.StepDone || c.QueryParam("restart") != "" || !h.d.Checkout.Started() {
		if err := h.d.Checkout.Start(ctx); err != nil {
			return fail(c, "checkout_start_error", err)
		}
	}
	return c.JSON(http.StatusOK, h.checkoutView())
}

func (h *handlers) selectAddress(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.d.Checkout.Select(id); err != nil {
		return fail(c, "checkout_select_error", err)
	}
	return c.JSON(http.StatusOK, h.checkoutView())
}

func (h *handlers) useNewAddress(c echo.Context) error {
	h.d.Checkout.UseNewAddress()
	return c.JSON(http.StatusOK, h.checkoutView())
}

func (h *handlers) useSavedAddresses(c echo.Context) error {
	h.d.Checkout.UseSavedAddresses()
	return c.JSON(http.StatusOK, h.checkoutView())
}

func (h *handlers) setDraft(c echo.Context) error {
	var a models.Address
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	h.d.Checkout.SetDraft(a)
	return c.JSON(http.StatusOK, h.checkoutView())
}

func (h *handlers) confirmCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	order, err := h.d.Checkout.Confirm(ctx)
	if err != nil {
		return fail(c, "checkout_confirm_error", err)
	}
	if err := h.d.Cart.Load(ctx); err != nil {
		logging.FromContext(ctx).Warn("cart_refresh_error", "error", err)
	}
	logging.FromContext(ctx).Info("order_placed", "order_id", order.OrderID)
	return c.JSON(http.StatusCreated, h.checkoutView())
}

func (h *handlers) orders(c echo.Context) error {
	if err := h.d.History.Load(c.Request().Context()); err != nil {
		return fail(c, "orders_load_error", err)
	}
	f := filterParam(c)
	v := OrdersView{Filter: f, Orders: h.d.History.View(f), Counts: h.d.History.Counts()}
	if len(v.Orders) == 0 {
		v.Empty = &EmptyState{Message: "No orders in this category."}
		if v.Counts[models.FilterAll] == 0 {
			v.Empty.Action = &Link{Label: "Order Something Yummy", Href: "/customerDashboard"}
		}
	}
	return c.JSON(http.StatusOK, v)
}

// filterParam reads ?filter=, defaulting to the active tab.
func filterParam(c echo.Context) models.OrderFilter {
	v := c.QueryParam("filter")
	if v == "" {
		return models.FilterActive
	}
	return models.ParseOrderFilter(v)
}
