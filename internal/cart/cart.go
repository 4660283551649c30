// Package cart holds the customer's cart and wishlist between page loads
// and keeps them in step with the backend.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must not be negative")
	ErrNoCustomer      = errors.New("cart: no signed-in customer")
	ErrDeclined        = errors.New("cart: removal declined")
	ErrNotInCart       = errors.New("cart: item not in cart")
)

// source tags events this package publishes so Watch can skip its own.
const source = "cart"

type Session interface {
	Token() string
	CustomerID() (int, bool)
	CheckUnauthorized(ctx context.Context, err error) bool
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

const RemovePrompt = "Are you sure you want to remove this item?"

type Cart struct {
	client  *apiclient.Client
	sess    Session
	bus     *events.Bus
	confirm Confirmer

	mu     sync.RWMutex
	cartID int
	items  []models.CartItem
}

type Option func(*Cart)

// WithConfirmer sets who is asked when a quantity drops to zero.
func WithConfirmer(c Confirmer) Option {
	return func(ct *Cart) { ct.confirm = c }
}

func New(client *apiclient.Client, sess Session, bus *events.Bus, opts ...Option) *Cart {
	c := &Cart{client: client, sess: sess, bus: bus, confirm: AlwaysConfirm}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func customer(sess Session) (string, int, error) {
	id, ok := sess.CustomerID()
	tok := sess.Token()
	if !ok || tok == "" {
		return "", 0, ErrNoCustomer
	}
	return tok, id, nil
}

func (c *Cart) fail(ctx context.Context, event string, err error) error {
	c.sess.CheckUnauthorized(ctx, err)
	logging.FromContext(ctx).Error(event, "status", apiclient.StatusCode(err), "error", err)
	return err
}

// Load replaces local state with the backend's cart.
func (c *Cart) Load(ctx context.Context) error {
	tok, id, err := customer(c.sess)
	if err != nil {
		return err
	}
	cart, err := c.client.GetCart(ctx, tok, id)
	if err != nil {
		return c.fail(ctx, "cart_load_error", err)
	}
	c.replace(cart)
	return nil
}

func (c *Cart) replace(cart *models.Cart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartID = cart.CartID
	c.items = append([]models.CartItem(nil), cart.CartItems...)
}

// Add puts qty units of a food in the cart; qty below 1 counts as 1.
func (c *Cart) Add(ctx context.Context, foodID, qty int) error {
	tok, id, err := customer(c.sess)
	if err != nil {
		return err
	}
	if qty < 1 {
		qty = 1
	}
	cart, err := c.client.AddToCart(ctx, tok, id, foodID, qty)
	if err != nil {
		return c.fail(ctx, "cart_add_error", err)
	}
	c.replace(cart)
	logging.FromContext(ctx).Info("cart_item_added", "food_id", foodID, "quantity", qty)
	c.publish(ctx, id)
	return nil
}

// SetQuantity changes a line's quantity. Zero removes the line after
// confirmation, negative values are rejected. The local line changes
// before the backend answers; on failure the cart is fetched again.
func (c *Cart) SetQuantity(ctx context.Context, cartItemID, n int) error {
	if n < 0 {
		return ErrInvalidQuantity
	}
	if n == 0 {
		return c.Remove(ctx, cartItemID, c.confirm)
	}
	tok, id, err := customer(c.sess)
	if err != nil {
		return err
	}

	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.items[i].CartItemID == cartItemID {
			c.items[i].Quantity = n
			found = true
		}
	}
	c.mu.Unlock()
	if !found {
		return ErrNotInCart
	}

	if err := c.client.UpdateCartQuantity(ctx, tok, id, cartItemID, n); err != nil {
		err = c.fail(ctx, "cart_update_error", err)
		if lerr := c.Load(ctx); lerr != nil {
			return errors.Join(err, fmt.Errorf("refetch: %w", lerr))
		}
		return err
	}
	c.publish(ctx, id)
	return nil
}

// Remove drops a line after confirm agrees; a nil confirm asks the cart's
// own Confirmer. A declined prompt sends nothing.
func (c *Cart) Remove(ctx context.Context, cartItemID int, confirm Confirmer) error {
	tok, id, err := customer(c.sess)
	if err != nil {
		return err
	}
	if confirm == nil {
		confirm = c.confirm
	}
	if !confirm.Confirm(ctx, RemovePrompt) {
		return ErrDeclined
	}
	if err := c.client.RemoveFromCart(ctx, tok, id, cartItemID); err != nil {
		return c.fail(ctx, "cart_remove_error", err)
	}

	c.mu.Lock()
	kept := c.items[:0:0]
	for _, it := range c.items {
		if it.CartItemID != cartItemID {
			kept = append(kept, it)
		}
	}
	c.items = kept
	c.mu.Unlock()

	c.publish(ctx, id)
	return nil
}

func (c *Cart) Items() []models.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.CartItem(nil), c.items...)
}

func (c *Cart) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.Total(c.items)
}

// Count is the number of units across all lines, as shown on the navbar.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items) == 0
}

// Reset forgets local state, e.g. after logout.
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartID = 0
	c.items = nil
}

// Watch reloads the cart when someone else changed it and resets it when
// the session changes. The returned func stops watching.
func (c *Cart) Watch(bus *events.Bus) func() {
	stopCart := bus.Subscribe(events.CartUpdated, func(ctx context.Context, ev events.Event) {
		if ev.Origin == bus.Origin() && ev.Payload == source {
			return
		}
		if err := c.Load(ctx); err != nil && !errors.Is(err, ErrNoCustomer) {
			logging.FromContext(ctx).Warn("cart_refresh_error", "error", err)
		}
	})
	stopSession := bus.Subscribe(events.SessionChanged, func(_ context.Context, ev events.Event) {
		if ev.Payload == string(models.RoleCustomer) {
			c.Reset()
		}
	})
	return func() {
		stopCart()
		stopSession()
	}
}

func (c *Cart) publish(ctx context.Context, customerID int) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, events.Event{Topic: events.CartUpdated, CustomerID: &customerID, Payload: source})
}
