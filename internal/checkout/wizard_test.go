package checkout

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apitest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type testEnv struct {
	b      *apitest.Backend
	client *apiclient.Client
	sess   *session.Store
	bus    *events.Bus
	custID int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := apitest.New(t)
	client := apiclient.NewClient(b.URL())
	bus := events.NewBus()
	cust := b.AddCustomer(models.Customer{Name: "Kabir", Email: "kabir@example.com"}, "Secret@123")
	sess := session.NewCustomerStore(session.NewMemoryStorage(), client, bus)
	require.NoError(t, sess.SignIn(context.Background(), cust.Email, "Secret@123"))

	food := b.AddFood(models.FoodItem{Name: "Thali", Price: 250})
	_, err := client.AddToCart(context.Background(), sess.Token(), cust.CustomerID, food.ID, 2)
	require.NoError(t, err)

	return &testEnv{b: b, client: client, sess: sess, bus: bus, custID: cust.CustomerID}
}

var home = models.Address{Street: "12 Park St", City: "Kolkata", State: "WB", ZipCode: "700016", AddressType: "HOME"}

func TestStartWithoutSavedAddresses(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.client, env.sess, env.bus)

	require.NoError(t, w.Start(context.Background()))
	require.Equal(t, StepNew, w.Step())
	_, ok := w.Selected()
	require.False(t, ok)

	w.UseSavedAddresses()
	require.Equal(t, StepNew, w.Step())
}

func TestStartSelectsFirstSaved(t *testing.T) {
	env := newTestEnv(t)
	first := env.b.AddAddress(env.custID, home)
	env.b.AddAddress(env.custID, models.Address{Street: "5 Lake Rd", City: "Kolkata", ZipCode: "700029"})
	w := New(env.client, env.sess, env.bus)

	require.NoError(t, w.Start(context.Background()))
	require.Equal(t, StepList, w.Step())
	sel, ok := w.Selected()
	require.True(t, ok)
	require.Equal(t, *first.ID, sel)

	require.ErrorIs(t, w.Select(999999), ErrUnknownAddress)
}

func TestConfirmSavedAddress(t *testing.T) {
	env := newTestEnv(t)
	env.b.AddAddress(env.custID, home)
	w := New(env.client, env.sess, env.bus)
	ctx := context.Background()

	var topics []events.Topic
	env.bus.SubscribeAll(func(_ context.Context, ev events.Event) { topics = append(topics, ev.Topic) })

	require.NoError(t, w.Start(ctx))
	order, err := w.Confirm(ctx)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(order.OrderID, "ORD-"))
	require.Equal(t, "12 Park St, Kolkata, WB - 700016", order.Address)
	require.Equal(t, StepDone, w.Step())
	require.Equal(t, order, w.Order())
	require.Equal(t, []events.Topic{events.CartUpdated, events.OrdersUpdated}, topics)
	require.Empty(t, env.b.CartItems(env.custID))

	_, err = w.Confirm(ctx)
	require.ErrorIs(t, err, ErrFinished)
}

func TestConfirmValidatesDraft(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.client, env.sess, env.bus)
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))

	w.SetDraft(models.Address{Street: "12 Park St", City: " ", ZipCode: "700016"})
	_, err := w.Confirm(ctx)
	require.ErrorIs(t, err, ErrMissingAddressFields)
	require.Equal(t, 0, env.b.Hits("POST /customer/:id/address"))
	require.Equal(t, 0, env.b.Hits("POST /:cust/order/place"))
}

func TestConfirmNewAddress(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.client, env.sess, env.bus)
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))

	w.SetDraft(home)
	order, err := w.Confirm(ctx)
	require.NoError(t, err)
	require.Equal(t, home.Flatten(), order.Address)
	require.Len(t, env.b.Addresses(env.custID), 1)
}

func TestAddressSaveFailureAbortsOrder(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.client, env.sess, env.bus)
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))

	env.b.Fail("POST /customer/:id/address", http.StatusInternalServerError)
	w.SetDraft(home)
	_, err := w.Confirm(ctx)
	require.Error(t, err)
	require.Equal(t, 0, env.b.Hits("POST /:cust/order/place"))
	require.Equal(t, StepNew, w.Step())
	require.Len(t, env.b.CartItems(env.custID), 1)
}

func TestOrderFailureKeepsSavedAddress(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.client, env.sess, env.bus)
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))

	env.b.Fail("POST /:cust/order/place", http.StatusInternalServerError)
	w.SetDraft(home)
	_, err := w.Confirm(ctx)
	require.Error(t, err)
	require.Len(t, env.b.Addresses(env.custID), 1)
	require.Len(t, env.b.CartItems(env.custID), 1)
	require.Empty(t, env.b.Orders())

	// retry goes through the saved address, no second save
	require.Equal(t, StepList, w.Step())
	env.b.Recover("POST /:cust/order/place")
	_, err = w.Confirm(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, env.b.Hits("POST /customer/:id/address"))
}

func TestEmptyCartIsReported(t *testing.T) {
	env := newTestEnv(t)
	env.b.AddAddress(env.custID, home)
	for _, it := range env.b.CartItems(env.custID) {
		require.NoError(t, env.client.RemoveFromCart(context.Background(), env.sess.Token(), env.custID, it.CartItemID))
	}
	w := New(env.client, env.sess, env.bus)
	require.NoError(t, w.Start(context.Background()))

	_, err := w.Confirm(context.Background())
	require.Equal(t, "Cart is empty", apiclient.Message(err))
}
