// Package orders backs the customer's order history and the admin order
// board.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrNoSession    = errors.New("orders: not signed in")
	ErrUnknownOrder = errors.New("orders: unknown order")
)

const StatusUpdateFailed = "Failed to update status"

func Filter(orders []models.Order, f models.OrderFilter) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o.Status) {
			out = append(out, o)
		}
	}
	return out
}

func Count(orders []models.Order, f models.OrderFilter) int {
	n := 0
	for _, o := range orders {
		if f.Match(o.Status) {
			n++
		}
	}
	return n
}

type Stats struct {
	Total    int                        `json:"total"`
	Active   int                        `json:"active"`
	ByStatus map[models.OrderStatus]int `json:"byStatus"`
	Revenue  float64                    `json:"revenue"`
}

// Summarize counts orders per status. Revenue only includes delivered
// orders.
func Summarize(orders []models.Order) Stats {
	s := Stats{Total: len(orders), ByStatus: map[models.OrderStatus]int{}}
	for _, st := range models.OrderStatuses {
		s.ByStatus[st] = 0
	}
	for _, o := range orders {
		s.ByStatus[o.Status]++
		if o.Status.IsActive() {
			s.Active++
		}
		if o.Status == models.StatusDelivered {
			s.Revenue += o.TotalAmount
		}
	}
	return s
}

type CustomerSession interface {
	Token() string
	CustomerID() (int, bool)
	CheckUnauthorized(ctx context.Context, err error) bool
}

// History is the read-only order list of the signed-in customer.
type History struct {
	client *apiclient.Client
	sess   CustomerSession

	mu     sync.RWMutex
	orders []models.Order
}

func NewHistory(client *apiclient.Client, sess CustomerSession) *History {
	return &History{client: client, sess: sess}
}

func (h *History) Load(ctx context.Context) error {
	id, ok := h.sess.CustomerID()
	tok := h.sess.Token()
	if !ok || tok == "" {
		return ErrNoSession
	}
	orders, err := h.client.CustomerOrders(ctx, tok, id)
	if err != nil {
		h.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Error("orders_history_error", "status", apiclient.StatusCode(err), "error", err)
		return err
	}
	h.mu.Lock()
	h.orders = orders
	h.mu.Unlock()
	return nil
}

func (h *History) View(f models.OrderFilter) []models.Order {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Filter(h.orders, f)
}

func (h *History) Counts() map[models.OrderFilter]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return counts(h.orders)
}

func counts(orders []models.Order) map[models.OrderFilter]int {
	return map[models.OrderFilter]int{
		models.FilterActive:  Count(orders, models.FilterActive),
		models.FilterHistory: Count(orders, models.FilterHistory),
		models.FilterAll:     len(orders),
	}
}

// Watch reloads the history whenever an order is placed.
func (h *History) Watch(bus *events.Bus) func() {
	return bus.Subscribe(events.OrdersUpdated, func(ctx context.Context, _ events.Event) {
		if err := h.Load(ctx); err != nil && !errors.Is(err, ErrNoSession) {
			logging.FromContext(ctx).Warn("orders_refresh_error", "error", err)
		}
	})
}

type AdminSession interface {
	Token() string
	CheckUnauthorized(ctx context.Context, err error) bool
}

// Board is the admin view over all orders.
type Board struct {
	client   *apiclient.Client
	sess     AdminSession
	notifier notify.Notifier
	bus      *events.Bus

	mu     sync.RWMutex
	orders []models.Order
}

func NewBoard(client *apiclient.Client, sess AdminSession, notifier notify.Notifier, bus *events.Bus) *Board {
	return &Board{client: client, sess: sess, notifier: notifier, bus: bus}
}

func (b *Board) Load(ctx context.Context) error {
	tok := b.sess.Token()
	if tok == "" {
		return ErrNoSession
	}
	orders, err := b.client.AllOrders(ctx, tok)
	if err != nil {
		b.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Error("orders_board_error", "status", apiclient.StatusCode(err), "error", err)
		return err
	}
	b.mu.Lock()
	b.orders = orders
	b.mu.Unlock()
	return nil
}

func (b *Board) View(f models.OrderFilter) []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Filter(b.orders, f)
}

func (b *Board) Counts() map[models.OrderFilter]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return counts(b.orders)
}

func (b *Board) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Summarize(b.orders)
}

// SetStatus moves an order to status. The board shows the new status right
// away; when the backend refuses, the user is alerted and the board is
// reloaded from the backend.
func (b *Board) SetStatus(ctx context.Context, orderID, status string) error {
	l := logging.FromContext(ctx).With("component", "order_board", "order_id", orderID)

	st, err := models.ParseOrderStatus(status)
	if err != nil {
		return err
	}
	tok := b.sess.Token()
	if tok == "" {
		return ErrNoSession
	}

	b.mu.Lock()
	idx := -1
	for i := range b.orders {
		if b.orders[i].OrderID == orderID {
			idx = i
			b.orders[i].Status = st
		}
	}
	b.mu.Unlock()
	if idx < 0 {
		return ErrUnknownOrder
	}

	updated, err := b.client.UpdateOrderStatus(ctx, tok, orderID, st)
	if err != nil {
		b.sess.CheckUnauthorized(ctx, err)
		l.Error("order_status_error", "status", apiclient.StatusCode(err), "error", err)
		if b.notifier != nil {
			b.notifier.Alert(ctx, StatusUpdateFailed)
		}
		if lerr := b.Load(ctx); lerr != nil {
			return errors.Join(err, fmt.Errorf("refetch: %w", lerr))
		}
		return err
	}

	b.mu.Lock()
	for i := range b.orders {
		if b.orders[i].OrderID == orderID {
			b.orders[i] = *updated
		}
	}
	b.mu.Unlock()

	l.Info("order_status_updated", "new_status", string(st))
	if b.bus != nil {
		b.bus.Publish(ctx, events.Event{Topic: events.OrdersUpdated, Payload: orderID})
	}
	return nil
}
