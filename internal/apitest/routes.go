package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (b *Backend) register() {
	e := b.Echo
	e.Use(b.record)

	authed := b.requireRole("")
	admin := b.requireRole(models.RoleAdmin)

	e.POST("/admin/signin", b.adminSignIn)
	e.POST("/admin/signout", b.signOut, authed)
	e.POST("/customer/signin", b.customerSignIn)
	e.POST("/customer/signup", b.signUp)
	e.POST("/customer/signout", b.signOut, authed)

	for _, prefix := range []string{"/admin", "/customer"} {
		e.GET(prefix+"/foods", b.listFoods, authed)
		e.GET(prefix+"/foods/search", b.searchFoods, authed)
		e.GET(prefix+"/food/:id", b.getFood, authed)
	}
	e.POST("/admin/food", b.createFood, admin)
	e.PUT("/admin/food/:id", b.updateFood, admin)
	e.DELETE("/admin/food/:id", b.deleteFood, admin)

	e.GET("/customer/:id", b.getCustomer, authed)
	e.PUT("/customer/:id", b.updateCustomer, authed)
	e.DELETE("/customer/:id", b.deleteCustomer, authed)
	e.POST("/customer/:id/verify-password", b.verifyPassword, authed)
	e.GET("/admin/customers", b.listCustomers, admin)
	e.GET("/admin/customers/search", b.searchCustomers, admin)
	e.PUT("/admin/customer/:id", b.updateCustomer, admin)
	e.DELETE("/admin/customer/:id", b.deleteCustomer, admin)

	e.GET("/customer/wishlist/:id", b.getWishlist, authed)
	e.POST("/customer/wishlist/add", b.addWishlist, authed)
	e.DELETE("/customer/wishlist/remove", b.removeWishlist, authed)
	e.POST("/customer/wishlist/move-to-cart/:id", b.moveToCart, authed)

	e.GET("/cart/:id", b.getCart, authed)
	e.POST("/cart/:id/add", b.addCart, authed)
	e.PUT("/cart/update/:cust/:item", b.updateCart, authed)
	e.DELETE("/cart/remove/:cust/:item", b.removeCart, authed)

	e.POST("/:cust/order/place", b.placeOrder, authed)
	e.GET("/customer/:id/orders", b.customerOrders, authed)
	e.GET("/admin/orders", b.allOrders, admin)
	e.PUT("/admin/orders/order/:id/status", b.updateStatus, admin)

	e.GET("/customer/:id/address", b.listAddresses, authed)
	e.POST("/customer/:id/address", b.addAddress, authed)
	e.PUT("/customer/:id/profile/address", b.updateAddress, authed)
	e.DELETE("/customer/address/:id", b.deleteAddress, authed)
}

// requireRole checks the bearer token; an empty role accepts any principal.
func (b *Backend) requireRole(role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			b.mu.Lock()
			p, ok := b.tokens[raw]
			b.mu.Unlock()
			if raw == "" || !ok {
				return message(c, http.StatusUnauthorized, "Unauthorized")
			}
			if role != "" && p.role != role {
				return message(c, http.StatusForbidden, "Access denied")
			}
			return next(c)
		}
	}
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"message": msg})
}

func intParam(c echo.Context, name string) (int, bool) {
	v := c.Param(name)
	if v == "" {
		v = c.QueryParam(name)
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func readJSONPart(c echo.Context, name string, v any) error {
	fh, err := c.FormFile(name)
	if err != nil {
		if raw := c.FormValue(name); raw != "" {
			return json.Unmarshal([]byte(raw), v)
		}
		return fmt.Errorf("part %q missing: %w", name, err)
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

type upload struct {
	name, contentType string
	data              []byte
}

func readFilePart(c echo.Context, name string) (*upload, error) {
	fh, err := c.FormFile(name)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
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
	return &upload{name: fh.Filename, contentType: fh.Header.Get("Content-Type"), data: data}, nil
}

func (b *Backend) adminSignIn(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	if req.Username != AdminUsername || req.Password != AdminPassword {
		return message(c, http.StatusUnauthorized, "Invalid username or password")
	}

	b.mu.Lock()
	tok := b.issue(principal{role: models.RoleAdmin})
	b.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]string{
		"message":   "Login successful",
		"token":     tok,
		"tokenType": "Bearer",
	})
}

func (b *Backend) customerSignIn(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.customers {
		if strings.EqualFold(rec.Email, req.Email) && rec.checkPassword(req.Password) {
			tok := b.issue(principal{role: models.RoleCustomer, customerID: rec.CustomerID})
			return c.JSON(http.StatusOK, map[string]any{
				"token": tok,
				"id":    rec.CustomerID,
				"name":  rec.Name,
				"email": rec.Email,
			})
		}
	}
	return message(c, http.StatusUnauthorized, "Invalid email or password")
}

func (b *Backend) signUp(c echo.Context) error {
	var req struct {
		Name     string  `json:"name"`
		Email    string  `json:"email"`
		Phone    string  `json:"phone"`
		Password string  `json:"password"`
		Address  *string `json:"address"`
	}
	if err := readJSONPart(c, "customer", &req); err != nil {
		return message(c, http.StatusBadRequest, err.Error())
	}
	img, err := readFilePart(c, "image")
	if err != nil {
		return message(c, http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.customers {
		if strings.EqualFold(rec.Email, req.Email) {
			return message(c, http.StatusConflict, "Email already registered")
		}
	}
	cust := models.Customer{
		CustomerID: b.id(),
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		CreatedAt:  models.DateTime{Time: time.Now().Truncate(time.Second)},
	}
	if img != nil {
		cust.ImageType = img.contentType
		cust.ImageData = img.data
	}
	b.customers = append(b.customers, &customerRecord{Customer: cust, password: hashPassword(req.Password)})
	return c.JSON(http.StatusCreated, cust)
}

func (b *Backend) signOut(c echo.Context) error {
	raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	b.mu.Lock()
	delete(b.tokens, raw)
	b.mu.Unlock()
	return c.String(http.StatusOK, "Logged out successfully")
}

func (b *Backend) listFoods(c echo.Context) error {
	return c.JSON(http.StatusOK, b.Foods())
}

func (b *Backend) searchFoods(c echo.Context) error {
	kw := strings.ToLower(strings.TrimSpace(c.QueryParam("keyword")))
	out := []models.FoodItem{}
	for _, f := range b.Foods() {
		fields := []string{f.Name, f.Description, f.CategoryOrDefault()}
		if f.Ingredients != nil {
			fields = append(fields, *f.Ingredients)
		}
		for _, v := range fields {
			if strings.Contains(strings.ToLower(v), kw) {
				out = append(out, f)
				break
			}
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) getFood(c echo.Context) error {
	id, ok := intParam(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	f, idx := b.food(id)
	b.mu.Unlock()
	if idx < 0 {
		return message(c, http.StatusNotFound, "Food not found")
	}
	return c.JSON(http.StatusOK, f)
}

func (b *Backend) readFood(c echo.Context) (models.FoodItem, *upload, error) {
	var f models.FoodItem
	if err := readJSONPart(c, "food", &f); err != nil {
		return f, nil, err
	}
	img, err := readFilePart(c, "imageFile")
	if err != nil {
		return f, nil, err
	}
	if img == nil {
		return f, nil, fmt.Errorf("imageFile is required")
	}
	if strings.TrimSpace(f.Name) == "" || f.Price < 0 {
		return f, nil, fmt.Errorf("name and a non-negative price are required")
	}
	f.ImageName = img.name
	f.ImageType = img.contentType
	f.ImageData = img.data
	return f, img, nil
}

func (b *Backend) createFood(c echo.Context) error {
	f, _, err := b.readFood(c)
	if err != nil {
		return message(c, http.StatusBadRequest, err.Error())
	}
	b.mu.Lock()
	f.ID = b.id()
	b.foods = append(b.foods, f)
	b.mu.Unlock()
	return c.JSON(http.StatusCreated, map[string]any{"message": "Food item added successfully", "data": f})
}

func (b *Backend) updateFood(c echo.Context) error {
	id, ok := intParam(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	f, _, err := b.readFood(c)
	if err != nil {
		return message(c, http.StatusBadRequest, err.Error())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, idx := b.food(id)
	if idx < 0 {
		return message(c, http.StatusNotFound, "Food not found")
	}
	f.ID = id
	b.foods[idx] = f
	return c.JSON(http.StatusOK, f)
}

func (b *Backend) deleteFood(c echo.Context) error {
	id, _ := intParam(c, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	_, idx := b.food(id)
	if idx < 0 {
		return message(c, http.StatusNotFound, "Food not found")
	}
	b.foods = append(b.foods[:idx], b.foods[idx+1:]...)
	return c.String(http.StatusOK, "Food item deleted successfully")
}

func (b *Backend) getCustomer(c echo.Context) error {
	id, _ := intParam(c, "id")
	cust, ok := b.Customer(id)
	if !ok {
		return message(c, http.StatusNotFound, "Customer not found")
	}
	return c.JSON(http.StatusOK, cust)
}

func (b *Backend) updateCustomer(c echo.Context) error {
	id, _ := intParam(c, "id")
	var in models.Customer
	if err := readJSONPart(c, "customerInfo", &in); err != nil {
		return message(c, http.StatusBadRequest, err.Error())
	}
	img, err := readFilePart(c, "imageFile")
	if err != nil {
		return message(c, http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.customer(id)
	if rec == nil {
		return message(c, http.StatusNotFound, "Customer not found")
	}
	rec.Name = in.Name
	rec.Email = in.Email
	rec.Phone = in.Phone
	rec.Address = in.Address
	if img != nil {
		rec.ImageType = img.contentType
		rec.ImageData = img.data
	}
	return c.JSON(http.StatusOK, rec.Customer)
}

func (b *Backend) deleteCustomer(c echo.Context) error {
	id, _ := intParam(c, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, rec := range b.customers {
		if rec.CustomerID == id {
			b.customers = append(b.customers[:i], b.customers[i+1:]...)
			return c.String(http.StatusOK, "Customer deleted successfully")
		}
	}
	return message(c, http.StatusNotFound, "Customer not found")
}

func (b *Backend) verifyPassword(c echo.Context) error {
	id, _ := intParam(c, "id")
	var req struct {
		CurrentPassword string `json:"currentPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	b.mu.Lock()
	rec := b.customer(id)
	b.mu.Unlock()
	if rec == nil {
		return message(c, http.StatusNotFound, "Customer not found")
	}
	if !rec.checkPassword(req.CurrentPassword) {
		return message(c, http.StatusUnauthorized, "Current password is incorrect")
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}

func (b *Backend) customersMatching(kw string) []models.Customer {
	b.mu.Lock()
	defer b.mu.Unlock()
	kw = strings.ToLower(kw)
	out := []models.Customer{}
	for _, rec := range b.customers {
		if kw == "" || strings.Contains(strings.ToLower(rec.Name), kw) || strings.Contains(strings.ToLower(rec.Email), kw) {
			out = append(out, rec.Customer)
		}
	}
	return out
}

func (b *Backend) listCustomers(c echo.Context) error {
	return c.JSON(http.StatusOK, b.customersMatching(""))
}

func (b *Backend) searchCustomers(c echo.Context) error {
	return c.JSON(http.StatusOK, b.customersMatching(strings.TrimSpace(c.QueryParam("keyword"))))
}

func (b *Backend) getWishlist(c echo.Context) error {
	id, _ := intParam(c, "id")
	out := b.Wishlist(id)
	if out == nil {
		out = []models.WishlistItem{}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) addWishlist(c echo.Context) error {
	custID, ok1 := intParam(c, "customerId")
	foodID, ok2 := intParam(c, "foodId")
	if !ok1 || !ok2 {
		return message(c, http.StatusBadRequest, "customerId and foodId are required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	f, idx := b.food(foodID)
	if idx < 0 {
		return message(c, http.StatusNotFound, "Food not found")
	}
	for _, w := range b.wishlists[custID] {
		if w.Food.ID == foodID {
			return message(c, http.StatusConflict, "Food already in wishlist")
		}
	}
	b.wishlists[custID] = append(b.wishlists[custID], models.WishlistItem{ID: b.id(), Food: f})
	return c.String(http.StatusOK, "Added to wishlist")
}

func (b *Backend) removeWishlist(c echo.Context) error {
	custID, _ := intParam(c, "customerId")
	foodID, _ := intParam(c, "foodId")
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.wishlists[custID]
	for i, w := range items {
		if w.Food.ID == foodID {
			b.wishlists[custID] = append(items[:i], items[i+1:]...)
			return c.String(http.StatusOK, "Removed from wishlist")
		}
	}
	return message(c, http.StatusNotFound, "Item not in wishlist")
}

func (b *Backend) moveToCart(c echo.Context) error {
	wid, _ := intParam(c, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for custID, items := range b.wishlists {
		for i, w := range items {
			if w.ID != wid {
				continue
			}
			b.addToCart(custID, w.Food, 1)
			b.wishlists[custID] = append(items[:i], items[i+1:]...)
			return c.String(http.StatusOK, "Moved to cart")
		}
	}
	return message(c, http.StatusNotFound, "Wishlist item not found")
}

func (b *Backend) addToCart(custID int, f models.FoodItem, qty int) {
	items := b.carts[custID]
	for i := range items {
		if items[i].Food.ID == f.ID {
			items[i].Quantity += qty
			return
		}
	}
	b.carts[custID] = append(items, models.CartItem{CartItemID: b.id(), Food: f, Quantity: qty})
}

func (b *Backend) cart(custID int) models.Cart {
	items := append([]models.CartItem{}, b.carts[custID]...)
	return models.Cart{CartID: custID, CartItems: items}
}

func (b *Backend) getCart(c echo.Context) error {
	id, _ := intParam(c, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, b.cart(id))
}

func (b *Backend) addCart(c echo.Context) error {
	custID, _ := intParam(c, "id")
	foodID, ok := intParam(c, "foodId")
	if !ok {
		return message(c, http.StatusBadRequest, "foodId is required")
	}
	qty, ok := intParam(c, "quantity")
	if !ok || qty < 1 {
		qty = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	f, idx := b.food(foodID)
	if idx < 0 {
		return message(c, http.StatusNotFound, "Food not found")
	}
	b.addToCart(custID, f, qty)
	return c.JSON(http.StatusOK, b.cart(custID))
}

func (b *Backend) updateCart(c echo.Context) error {
	custID, _ := intParam(c, "cust")
	itemID, _ := intParam(c, "item")
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity < 1 {
		return message(c, http.StatusBadRequest, "quantity must be at least 1")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.carts[custID]
	for i := range items {
		if items[i].CartItemID == itemID {
			items[i].Quantity = req.Quantity
			return c.JSON(http.StatusOK, items[i])
		}
	}
	return message(c, http.StatusNotFound, "Cart item not found")
}

func (b *Backend) removeCart(c echo.Context) error {
	custID, _ := intParam(c, "cust")
	itemID, _ := intParam(c, "item")
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.carts[custID]
	for i := range items {
		if items[i].CartItemID == itemID {
			b.carts[custID] = append(items[:i], items[i+1:]...)
			return c.String(http.StatusOK, "Item removed from cart")
		}
	}
	return message(c, http.StatusNotFound, "Cart item not found")
}

func (b *Backend) placeOrder(c echo.Context) error {
	custID, _ := intParam(c, "cust")
	var req struct {
		Address string `json:"address"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		return message(c, http.StatusBadRequest, "address is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.customer(custID)
	if rec == nil {
		return message(c, http.StatusNotFound, "Customer not found")
	}
	items := b.carts[custID]
	if len(items) == 0 {
		return message(c, http.StatusBadRequest, "Cart is empty")
	}

	order := models.Order{
		OrderID:       "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
		CustomerName:  rec.Name,
		Email:         rec.Email,
		Address:       req.Address,
		Status:        models.StatusPlaced,
		OrderDateTime: models.DateTime{Time: time.Now().Truncate(time.Second)},
		TotalAmount:   models.Total(items),
	}
	for _, it := range items {
		order.Items = append(order.Items, models.OrderItem{
			FoodName:   it.Food.Name,
			Quantity:   it.Quantity,
			TotalPrice: it.LineTotal(),
		})
	}
	b.orders = append(b.orders, ordered{customerID: custID, order: order})
	delete(b.carts, custID)
	return c.JSON(http.StatusOK, order)
}

func (b *Backend) customerOrders(c echo.Context) error {
	custID, _ := intParam(c, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Order{}
	for _, o := range b.orders {
		if o.customerID == custID {
			out = append(out, o.order)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) allOrders(c echo.Context) error {
	return c.JSON(http.StatusOK, b.Orders())
}

func (b *Backend) updateStatus(c echo.Context) error {
	st, err := models.ParseOrderStatus(c.QueryParam("status"))
	if err != nil {
		return message(c, http.StatusBadRequest, err.Error())
	}
	id := c.Param("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].order.OrderID == id {
			b.orders[i].order.Status = st
			return c.JSON(http.StatusOK, b.orders[i].order)
		}
	}
	return message(c, http.StatusNotFound, "Order not found")
}

func (b *Backend) listAddresses(c echo.Context) error {
	custID, _ := intParam(c, "id")
	out := b.Addresses(custID)
	if out == nil {
		out = []models.Address{}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) addAddress(c echo.Context) error {
	custID, _ := intParam(c, "id")
	var a models.Address
	if err := c.Bind(&a); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	if a.Street == "" || a.City == "" || a.ZipCode == "" {
		return message(c, http.StatusBadRequest, "street, city and zipCode are required")
	}
	return c.JSON(http.StatusCreated, b.AddAddress(custID, a))
}

func (b *Backend) updateAddress(c echo.Context) error {
	custID, _ := intParam(c, "id")
	var a models.Address
	if err := c.Bind(&a); err != nil || a.ID == nil {
		return message(c, http.StatusBadRequest, "address id is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.addresses[custID]
	for i := range items {
		if *items[i].ID == *a.ID {
			items[i] = a
			return c.JSON(http.StatusOK, a)
		}
	}
	return message(c, http.StatusNotFound, "Address not found")
}

func (b *Backend) deleteAddress(c echo.Context) error {
	id, _ := intParam(c, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for custID, items := range b.addresses {
		for i := range items {
			if *items[i].ID == id {
				b.addresses[custID] = append(items[:i], items[i+1:]...)
				return c.String(http.StatusOK, "Address deleted successfully")
			}
		}
	}
	return message(c, http.StatusNotFound, "Address not found")
}
