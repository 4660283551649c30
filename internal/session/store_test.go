package session

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apitest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type env struct {
	b        *apitest.Backend
	client   *apiclient.Client
	storage  *MemoryStorage
	bus      *events.Bus
	customer models.Customer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	b := apitest.New(t)
	return &env{
		b:        b,
		client:   apiclient.NewClient(b.URL()),
		storage:  NewMemoryStorage(),
		bus:      events.NewBus(),
		customer: b.AddCustomer(models.Customer{Name: "Ravi", Email: "ravi@example.com"}, "Secret@123"),
	}
}

func (e *env) stored(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := e.storage.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func TestCustomerSignIn(t *testing.T) {
	e := newEnv(t)
	s := NewCustomerStore(e.storage, e.client, e.bus)

	var changes int
	e.bus.Subscribe(events.SessionChanged, func(context.Context, events.Event) { changes++ })

	require.False(t, s.IsAuthenticated())
	require.NoError(t, s.SignIn(context.Background(), e.customer.Email, "Secret@123"))
	require.True(t, s.IsAuthenticated())
	require.Equal(t, 1, changes)

	id, ok := s.CustomerID()
	require.True(t, ok)
	require.Equal(t, e.customer.CustomerID, id)

	tok, ok := e.stored(t, "customer_token")
	require.True(t, ok)
	require.Equal(t, s.Token(), tok)
	rawID, _ := e.stored(t, "customerId")
	require.Equal(t, strconv.Itoa(e.customer.CustomerID), rawID)
	role, _ := e.stored(t, RoleKey)
	require.Equal(t, "CUSTOMER", role)

	_, ok = e.stored(t, "token")
	require.False(t, ok)
}

func TestSignInFailureLeavesLoggedOut(t *testing.T) {
	e := newEnv(t)
	s := NewCustomerStore(e.storage, e.client, e.bus)

	err := s.SignIn(context.Background(), e.customer.Email, "wrong")
	require.True(t, apiclient.IsUnauthorized(err))
	require.False(t, s.IsAuthenticated())
}

func TestLoginRequiresCustomerID(t *testing.T) {
	e := newEnv(t)
	s := NewCustomerStore(e.storage, e.client, e.bus)

	require.ErrorIs(t, s.Login(context.Background(), "tok", Identity{}), ErrMissingCustomerID)
	require.ErrorIs(t, s.Login(context.Background(), "", Identity{}), ErrEmptyToken)
	require.False(t, s.IsAuthenticated())
}

func TestLogoutFailsOpen(t *testing.T) {
	e := newEnv(t)
	s := NewCustomerStore(e.storage, e.client, e.bus)
	require.NoError(t, s.SignIn(context.Background(), e.customer.Email, "Secret@123"))

	e.b.Fail("POST /customer/signout", http.StatusInternalServerError)
	require.NoError(t, s.Logout(context.Background()))

	require.False(t, s.IsAuthenticated())
	require.Equal(t, 1, e.b.Hits("POST /customer/signout"))
	_, ok := e.stored(t, "customer_token")
	require.False(t, ok)
	_, ok = e.stored(t, RoleKey)
	require.False(t, ok)
}

func TestLogoutWhenBackendUnreachable(t *testing.T) {
	e := newEnv(t)
	s := NewCustomerStore(e.storage, apiclient.NewClient("http://127.0.0.1:1"), e.bus)
	id := 5
	require.NoError(t, s.Login(context.Background(), "tok", Identity{CustomerID: &id}))

	require.NoError(t, s.Logout(context.Background()))
	require.False(t, s.IsAuthenticated())
}

func TestBothRolesCoexist(t *testing.T) {
	e := newEnv(t)
	cust := NewCustomerStore(e.storage, e.client, e.bus)
	admin := NewAdminStore(e.storage, e.client, e.bus)
	ctx := context.Background()

	require.NoError(t, cust.SignIn(ctx, e.customer.Email, "Secret@123"))
	require.NoError(t, admin.SignIn(ctx, apitest.AdminUsername, apitest.AdminPassword))

	require.True(t, cust.IsAuthenticated())
	require.True(t, admin.IsAuthenticated())
	role, err := StoredRole(ctx, e.storage)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, role)

	// customer logout leaves the admin's role marker alone
	require.NoError(t, cust.Logout(ctx))
	role, err = StoredRole(ctx, e.storage)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, role)
	require.True(t, admin.IsAuthenticated())
}

func TestLogoutHandsRoleToRemainingSession(t *testing.T) {
	e := newEnv(t)
	cust := NewCustomerStore(e.storage, e.client, e.bus)
	admin := NewAdminStore(e.storage, e.client, e.bus)
	ctx := context.Background()

	require.NoError(t, cust.SignIn(ctx, e.customer.Email, "Secret@123"))
	require.NoError(t, admin.SignIn(ctx, apitest.AdminUsername, apitest.AdminPassword))

	require.NoError(t, admin.Logout(ctx))
	role, err := StoredRole(ctx, e.storage)
	require.NoError(t, err)
	require.Equal(t, models.RoleCustomer, role)
	require.True(t, cust.IsAuthenticated())

	require.NoError(t, cust.Logout(ctx))
	_, ok := e.stored(t, RoleKey)
	require.False(t, ok)
}

func TestRestore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := NewCustomerStore(e.storage, e.client, e.bus)
	require.NoError(t, first.SignIn(ctx, e.customer.Email, "Secret@123"))

	second := NewCustomerStore(e.storage, e.client, e.bus)
	require.NoError(t, second.Restore(ctx))
	require.True(t, second.IsAuthenticated())
	require.Equal(t, first.Current(), second.Current())
}

func TestRestoreDropsExpiredToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.storage.Set(ctx, "customer_token", apitest.Token(models.RoleCustomer, "7", -time.Minute)))
	require.NoError(t, e.storage.Set(ctx, "customerId", "7"))

	s := NewCustomerStore(e.storage, e.client, e.bus)
	require.NoError(t, s.Restore(ctx))
	require.False(t, s.IsAuthenticated())
	_, ok := e.stored(t, "customer_token")
	require.False(t, ok)
}

func TestRestoreKeepsOpaqueToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.storage.Set(ctx, "token", "opaque-admin-token"))

	s := NewAdminStore(e.storage, e.client, e.bus)
	require.NoError(t, s.Restore(ctx))
	require.True(t, s.IsAuthenticated())
}

func TestCheckUnauthorized(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := NewCustomerStore(e.storage, e.client, e.bus)
	require.NoError(t, s.SignIn(ctx, e.customer.Email, "Secret@123"))

	e.b.Revoke(s.Token())
	id, _ := s.CustomerID()
	_, err := e.client.GetCart(ctx, s.Token(), id)

	require.True(t, s.CheckUnauthorized(ctx, err))
	require.False(t, s.IsAuthenticated())
	require.False(t, s.CheckUnauthorized(ctx, nil))
}

func TestCurrentReturnsCopy(t *testing.T) {
	e := newEnv(t)
	s := NewCustomerStore(e.storage, e.client, e.bus)
	id := 9
	require.NoError(t, s.Login(context.Background(), "tok", Identity{CustomerID: &id}))

	cur := s.Current()
	*cur.CustomerID = 10
	got, _ := s.CustomerID()
	require.Equal(t, 9, got)
}

func TestExpiresAt(t *testing.T) {
	_, ok := ExpiresAt("not-a-jwt")
	require.False(t, ok)

	exp, ok := ExpiresAt(apitest.Token(models.RoleAdmin, "admin", time.Hour))
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}
