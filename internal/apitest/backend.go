// Package apitest runs an in-process fake of the Foodyy REST backend for
// tests. It keeps all state in memory and lets tests force failures per
// route.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	AdminUsername = "admin"
	AdminPassword = "Admin@123"

	signingKey = "apitest-signing-key"
)

type principal struct {
	role       models.Role
	customerID int
}

type customerRecord struct {
	models.Customer
	password []byte
}

type ordered struct {
	customerID int
	order      models.Order
}

type Backend struct {
	Echo   *echo.Echo
	Server *httptest.Server

	mu        sync.Mutex
	nextID    int
	tokens    map[string]principal
	foods     []models.FoodItem
	customers []*customerRecord
	carts     map[int][]models.CartItem
	wishlists map[int][]models.WishlistItem
	addresses map[int][]models.Address
	orders    []ordered

	failures map[string]int
	hits     map[string]int
	headers  map[string]http.Header
}

// New starts a fake backend and closes it when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		Echo:      echo.New(),
		nextID:    100,
		tokens:    map[string]principal{},
		carts:     map[int][]models.CartItem{},
		wishlists: map[int][]models.WishlistItem{},
		addresses: map[int][]models.Address{},
		failures:  map[string]int{},
		hits:      map[string]int{},
		headers:   map[string]http.Header{},
	}
	b.Echo.HideBanner = true
	b.Echo.HidePort = true
	b.register()

	b.Server = httptest.NewServer(b.Echo)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL
}

// Fail makes every request to route answer status until Recover is called.
// route is "METHOD /path/:param" as registered, e.g. "PUT /cart/update/:cust/:item".
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = status
}

func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Hits returns how many requests reached route, failed ones included.
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// LastHeader returns the headers of the latest request to route.
func (b *Backend) LastHeader(route string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[route]
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Request().Method + " " + c.Path()

		b.mu.Lock()
		b.hits[route]++
		b.headers[route] = c.Request().Header.Clone()
		status, failing := b.failures[route]
		b.mu.Unlock()

		if failing {
			return c.JSON(status, map[string]string{"message": "forced failure"})
		}
		return next(c)
	}
}

func (b *Backend) id() int {
	b.nextID++
	return b.nextID
}

// Token signs a backend style JWT. ttl may be negative to produce an
// already expired token.
func Token(role models.Role, subject string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"jti":  uuid.NewString(),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return s
}

func (b *Backend) issue(p principal) string {
	subject := AdminUsername
	if p.role == models.RoleCustomer {
		subject = strconv.Itoa(p.customerID)
	}
	tok := Token(p.role, subject, time.Hour)
	b.tokens[tok] = p
	return tok
}

// AdminToken returns a valid admin bearer token.
func (b *Backend) AdminToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issue(principal{role: models.RoleAdmin})
}

// CustomerToken returns a valid bearer token for customerID.
func (b *Backend) CustomerToken(customerID int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issue(principal{role: models.RoleCustomer, customerID: customerID})
}

// Revoke makes token answer 401 from now on.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

func (b *Backend) AddFood(f models.FoodItem) models.FoodItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	f.ID = b.id()
	b.foods = append(b.foods, f)
	return f
}

func (b *Backend) AddCustomer(c models.Customer, password string) models.Customer {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.CustomerID = b.id()
	c.CreatedAt = models.DateTime{Time: time.Now().Truncate(time.Second)}
	b.customers = append(b.customers, &customerRecord{Customer: c, password: hashPassword(password)})
	return c
}

func (b *Backend) AddAddress(customerID int, a models.Address) models.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.id()
	a.ID = &id
	b.addresses[customerID] = append(b.addresses[customerID], a)
	return a
}

func (b *Backend) AddOrder(customerID int, o models.Order) models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.OrderDateTime.IsZero() {
		o.OrderDateTime = models.DateTime{Time: time.Now().Truncate(time.Second)}
	}
	b.orders = append(b.orders, ordered{customerID: customerID, order: o})
	return o
}

func (b *Backend) CartItems(customerID int) []models.CartItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.CartItem(nil), b.carts[customerID]...)
}

func (b *Backend) Wishlist(customerID int) []models.WishlistItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.WishlistItem(nil), b.wishlists[customerID]...)
}

func (b *Backend) Addresses(customerID int) []models.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Address(nil), b.addresses[customerID]...)
}

func (b *Backend) Foods() []models.FoodItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.FoodItem{}, b.foods...)
}

func (b *Backend) Orders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o.order)
	}
	return out
}

func (b *Backend) Customer(id int) (models.Customer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec := b.customer(id); rec != nil {
		return rec.Customer, true
	}
	return models.Customer{}, false
}

func (b *Backend) customer(id int) *customerRecord {
	for _, c := range b.customers {
		if c.CustomerID == id {
			return c
		}
	}
	return nil
}

func (b *Backend) food(id int) (models.FoodItem, int) {
	for i, f := range b.foods {
		if f.ID == id {
			return f, i
		}
	}
	return models.FoodItem{}, -1
}

// Passwords are stored the way the real backend stores them. MinCost keeps
// tests fast.
func hashPassword(password string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: hash password: %v", err))
	}
	return h
}

func (r *customerRecord) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(r.password, []byte(password)) == nil
}
