package orders

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apitest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

func sample() []models.Order {
	return []models.Order{
		{OrderID: "ORD-1", Status: models.StatusPlaced, TotalAmount: 100},
		{OrderID: "ORD-2", Status: models.StatusCooking, TotalAmount: 200},
		{OrderID: "ORD-3", Status: models.StatusDelivered, TotalAmount: 300},
		{OrderID: "ORD-4", Status: models.StatusCancelled, TotalAmount: 400},
		{OrderID: "ORD-5", Status: models.StatusOutForDelivery, TotalAmount: 500},
	}
}

func orderIDs(orders []models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.OrderID
	}
	return out
}

func TestFilter(t *testing.T) {
	all := sample()
	require.Equal(t, []string{"ORD-1", "ORD-2", "ORD-5"}, orderIDs(Filter(all, models.FilterActive)))
	require.Equal(t, []string{"ORD-3", "ORD-4"}, orderIDs(Filter(all, models.FilterHistory)))
	require.Len(t, Filter(all, models.FilterAll), 5)
	require.Equal(t, 3, Count(all, models.FilterActive))
	require.Empty(t, Filter(nil, models.FilterAll))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample())
	require.Equal(t, 5, s.Total)
	require.Equal(t, 3, s.Active)
	require.Equal(t, 1, s.ByStatus[models.StatusCancelled])
	require.InDelta(t, 300, s.Revenue, 0.001)

	empty := Summarize(nil)
	require.Len(t, empty.ByStatus, len(models.OrderStatuses))
}

type boardEnv struct {
	b     *apitest.Backend
	board *Board
	admin *session.Store
	inbox *notify.Inbox
	bus   *events.Bus
}

func newBoardEnv(t *testing.T) *boardEnv {
	t.Helper()
	b := apitest.New(t)
	client := apiclient.NewClient(b.URL())
	bus := events.NewBus()
	admin := session.NewAdminStore(session.NewMemoryStorage(), client, bus)
	require.NoError(t, admin.SignIn(context.Background(), apitest.AdminUsername, apitest.AdminPassword))
	for _, o := range sample() {
		b.AddOrder(1, o)
	}
	inbox := notify.NewInbox()
	return &boardEnv{b: b, board: NewBoard(client, admin, inbox, bus), admin: admin, inbox: inbox, bus: bus}
}

func TestBoardSetStatus(t *testing.T) {
	env := newBoardEnv(t)
	ctx := context.Background()
	require.NoError(t, env.board.Load(ctx))

	var published int
	env.bus.Subscribe(events.OrdersUpdated, func(context.Context, events.Event) { published++ })

	require.NoError(t, env.board.SetStatus(ctx, "ORD-1", "cooking"))
	require.Len(t, env.board.View(models.FilterActive), 3)
	require.Equal(t, models.StatusCooking, env.b.Orders()[0].Status)
	require.Equal(t, 1, published)
}

func TestBoardRejectsUnknownStatusBeforeCalling(t *testing.T) {
	env := newBoardEnv(t)
	ctx := context.Background()
	require.NoError(t, env.board.Load(ctx))

	require.Error(t, env.board.SetStatus(ctx, "ORD-1", "EATEN"))
	require.ErrorIs(t, env.board.SetStatus(ctx, "ORD-404", "COOKING"), ErrUnknownOrder)
	require.Equal(t, 0, env.b.Hits("PUT /admin/orders/order/:id/status"))
}

func TestBoardFailureAlertsAndRefetches(t *testing.T) {
	env := newBoardEnv(t)
	ctx := context.Background()
	require.NoError(t, env.board.Load(ctx))

	env.b.Fail("PUT /admin/orders/order/:id/status", http.StatusInternalServerError)
	require.Error(t, env.board.SetStatus(ctx, "ORD-1", "DELIVERED"))

	require.Equal(t, StatusUpdateFailed, env.inbox.Last())
	require.Equal(t, 2, env.b.Hits("GET /admin/orders"))
	require.Equal(t, models.StatusPlaced, env.board.View(models.FilterAll)[0].Status)
}

func TestBoardStats(t *testing.T) {
	env := newBoardEnv(t)
	require.NoError(t, env.board.Load(context.Background()))
	require.Equal(t, 5, env.board.Stats().Total)
	require.Equal(t, 2, env.board.Counts()[models.FilterHistory])
}

func TestHistory(t *testing.T) {
	b := apitest.New(t)
	client := apiclient.NewClient(b.URL())
	bus := events.NewBus()
	cust := b.AddCustomer(models.Customer{Name: "Ira", Email: "ira@example.com"}, "Secret@123")
	sess := session.NewCustomerStore(session.NewMemoryStorage(), client, bus)
	ctx := context.Background()

	h := NewHistory(client, sess)
	require.ErrorIs(t, h.Load(ctx), ErrNoSession)

	require.NoError(t, sess.SignIn(ctx, cust.Email, "Secret@123"))
	b.AddOrder(cust.CustomerID, models.Order{OrderID: "ORD-A", Status: models.StatusDelivered})
	b.AddOrder(999, models.Order{OrderID: "ORD-B", Status: models.StatusPlaced})

	stop := h.Watch(bus)
	defer stop()
	bus.Publish(ctx, events.Event{Topic: events.OrdersUpdated})

	require.Equal(t, []string{"ORD-A"}, orderIDs(h.View(models.FilterAll)))
	require.Empty(t, h.View(models.FilterActive))
	require.Equal(t, 1, h.Counts()[models.FilterHistory])
}
