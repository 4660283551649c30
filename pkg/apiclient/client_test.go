package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apitest"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type recorder struct {
	mu  sync.Mutex
	ops map[string]int
}

func (r *recorder) ObserveRequest(op string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = map[string]int{}
	}
	r.ops[op] = status
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T) (*apitest.Backend, *apiclient.Client, models.Customer, models.FoodItem) {
	t.Helper()
	b := apitest.New(t)
	cust := b.AddCustomer(models.Customer{Name: "Asha", Email: "asha@example.com", Phone: "9999999999"}, "Secret@123")
	food := b.AddFood(models.FoodItem{Name: "Paneer Tikka", Price: 120, Category: strPtr("APPETIZER"), Available: true})
	return b, apiclient.NewClient(b.URL() + "/"), cust, food
}

func TestCustomerSignIn(t *testing.T) {
	_, c, cust, _ := seed(t)

	res, err := c.CustomerSignIn(context.Background(), cust.Email, "Secret@123")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	id, ok := res.Customer()
	require.True(t, ok)
	require.Equal(t, cust.CustomerID, id)
	require.Equal(t, "Asha", res.Name)
}

func TestSignInWrongPassword(t *testing.T) {
	_, c, cust, _ := seed(t)

	_, err := c.CustomerSignIn(context.Background(), cust.Email, "nope")
	require.Error(t, err)
	require.True(t, apiclient.IsUnauthorized(err))
	require.Equal(t, "Invalid email or password", apiclient.Message(err))

	var se *apiclient.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "/customer/signin", se.Path)
}

func TestAdminSignIn(t *testing.T) {
	_, c, _, _ := seed(t)

	res, err := c.AdminSignIn(context.Background(), apitest.AdminUsername, apitest.AdminPassword)
	require.NoError(t, err)
	require.Equal(t, "Bearer", res.TokenType)
	_, ok := res.Customer()
	require.False(t, ok)
}

func TestRequestCarriesBearerAndRequestID(t *testing.T) {
	b, c, cust, _ := seed(t)
	tok := b.CustomerToken(cust.CustomerID)

	_, err := c.GetCart(context.Background(), tok, cust.CustomerID)
	require.NoError(t, err)

	h := b.LastHeader("GET /cart/:id")
	require.Equal(t, "Bearer "+tok, h.Get("Authorization"))
	require.NotEmpty(t, h.Get(apiclient.HeaderRequestID))
}

func TestCartOperations(t *testing.T) {
	b, c, cust, food := seed(t)
	ctx := context.Background()
	tok := b.CustomerToken(cust.CustomerID)

	cart, err := c.AddToCart(ctx, tok, cust.CustomerID, food.ID, 0)
	require.NoError(t, err)
	require.Len(t, cart.CartItems, 1)
	require.Equal(t, 1, cart.CartItems[0].Quantity)

	itemID := cart.CartItems[0].CartItemID
	require.NoError(t, c.UpdateCartQuantity(ctx, tok, cust.CustomerID, itemID, 4))

	cart, err = c.GetCart(ctx, tok, cust.CustomerID)
	require.NoError(t, err)
	require.Equal(t, 4, cart.CartItems[0].Quantity)
	require.InDelta(t, 480, cart.Total(), 0.001)

	require.NoError(t, c.RemoveFromCart(ctx, tok, cust.CustomerID, itemID))
	require.Empty(t, b.CartItems(cust.CustomerID))

	err = c.RemoveFromCart(ctx, tok, cust.CustomerID, itemID)
	require.True(t, apiclient.IsNotFound(err))
}

func TestWishlistMoveToCart(t *testing.T) {
	b, c, cust, food := seed(t)
	ctx := context.Background()
	tok := b.CustomerToken(cust.CustomerID)

	require.NoError(t, c.AddToWishlist(ctx, tok, cust.CustomerID, food.ID))
	items, err := c.GetWishlist(ctx, tok, cust.CustomerID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, c.MoveToCart(ctx, tok, items[0].ID))
	require.Empty(t, b.Wishlist(cust.CustomerID))
	require.Len(t, b.CartItems(cust.CustomerID), 1)
}

func TestPlaceOrder(t *testing.T) {
	b, c, cust, food := seed(t)
	ctx := context.Background()
	tok := b.CustomerToken(cust.CustomerID)

	_, err := c.AddToCart(ctx, tok, cust.CustomerID, food.ID, 2)
	require.NoError(t, err)

	order, err := c.PlaceOrder(ctx, tok, cust.CustomerID, "1 MG Road, Pune, MH - 411001")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(order.OrderID, "ORD-"))
	require.Equal(t, models.StatusPlaced, order.Status)
	require.InDelta(t, 240, order.TotalAmount, 0.001)
	require.False(t, order.OrderDateTime.IsZero())
	require.Empty(t, b.CartItems(cust.CustomerID))

	orders, err := c.CustomerOrders(ctx, tok, cust.CustomerID)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	admin := b.AdminToken()
	updated, err := c.UpdateOrderStatus(ctx, admin, order.OrderID, models.StatusCooking)
	require.NoError(t, err)
	require.Equal(t, models.StatusCooking, updated.Status)

	_, err = c.UpdateOrderStatus(ctx, tok, order.OrderID, models.StatusDelivered)
	require.True(t, apiclient.IsUnauthorized(err))
}

func TestCreateFoodSendsMultipart(t *testing.T) {
	b, c, _, _ := seed(t)
	ctx := context.Background()
	admin := b.AdminToken()

	food := models.FoodItem{Name: "Gulab Jamun", Price: 60, Category: strPtr("DESSERT")}
	img := &apiclient.Image{Name: "jamun.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

	created, err := c.CreateFood(ctx, admin, food, img)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "jamun.png", created.ImageName)
	require.Equal(t, img.Data, created.ImageData)

	_, err = c.CreateFood(ctx, admin, food, nil)
	require.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))
	require.Equal(t, "imageFile is required", apiclient.Message(err))
}

func TestUpdateCustomerUsesCustomerInfoPart(t *testing.T) {
	b, c, cust, _ := seed(t)
	tok := b.CustomerToken(cust.CustomerID)

	cust.Name = "Asha K"
	updated, err := c.UpdateCustomer(context.Background(), tok, cust, nil)
	require.NoError(t, err)
	require.Equal(t, "Asha K", updated.Name)

	stored, ok := b.Customer(cust.CustomerID)
	require.True(t, ok)
	require.Equal(t, "Asha K", stored.Name)
}

func TestVerifyPassword(t *testing.T) {
	b, c, cust, _ := seed(t)
	ctx := context.Background()
	tok := b.CustomerToken(cust.CustomerID)

	require.NoError(t, c.VerifyPassword(ctx, tok, cust.CustomerID, "Secret@123"))
	err := c.VerifyPassword(ctx, tok, cust.CustomerID, "wrong")
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
}

func TestAddresses(t *testing.T) {
	b, c, cust, _ := seed(t)
	ctx := context.Background()
	tok := b.CustomerToken(cust.CustomerID)

	addr, err := c.AddAddress(ctx, tok, cust.CustomerID, models.Address{Street: "1 MG Road", City: "Pune", State: "MH", ZipCode: "411001", AddressType: "HOME"})
	require.NoError(t, err)
	require.NotNil(t, addr.ID)

	_, err = c.UpdateAddress(ctx, tok, cust.CustomerID, models.Address{Street: "x"})
	require.ErrorIs(t, err, apiclient.ErrAddressID)

	addr.City = "Mumbai"
	_, err = c.UpdateAddress(ctx, tok, cust.CustomerID, *addr)
	require.NoError(t, err)

	list, err := c.ListAddresses(ctx, tok, cust.CustomerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Mumbai", list[0].City)

	require.NoError(t, c.DeleteAddress(ctx, tok, *addr.ID))
	require.Empty(t, b.Addresses(cust.CustomerID))
}

func TestObserverSeesEveryCall(t *testing.T) {
	b := apitest.New(t)
	rec := &recorder{}
	c := apiclient.NewClient(b.URL(), apiclient.WithObserver(rec))

	_, err := c.ListFoods(context.Background(), "", apiclient.AudienceCustomer)
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, http.StatusUnauthorized, rec.ops["foods.list"])
}

func TestCanceledContext(t *testing.T) {
	b := apitest.New(t)
	c := apiclient.NewClient(b.URL())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CustomerSignIn(ctx, "a@b.c", "x")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, apiclient.StatusCode(err))
}
