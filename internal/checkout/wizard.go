// Package checkout is the two step address wizard that turns a cart into an
// order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Step string

const (
	StepList Step = "LIST"
	StepNew  Step = "NEW"
	StepDone Step = "DONE"
)

var (
	ErrMissingAddressFields = errors.New("checkout: street, city and zip code are required")
	ErrNoAddressSelected    = errors.New("checkout: no delivery address selected")
	ErrUnknownAddress       = errors.New("checkout: unknown saved address")
	ErrNoCustomer           = errors.New("checkout: no signed-in customer")
	ErrFinished             = errors.New("checkout: order already placed")
)

type Session interface {
	Token() string
	CustomerID() (int, bool)
	CheckUnauthorized(ctx context.Context, err error) bool
}

type Wizard struct {
	client *apiclient.Client
	sess   Session
	bus    *events.Bus

	mu       sync.Mutex
	started  bool
	step     Step
	saved    []models.Address
	selected *int
	draft    models.Address
	order    *models.Order
}

func New(client *apiclient.Client, sess Session, bus *events.Bus) *Wizard {
	return &Wizard{client: client, sess: sess, bus: bus, step: StepList}
}

func (w *Wizard) customer() (string, int, error) {
	id, ok := w.sess.CustomerID()
	tok := w.sess.Token()
	if !ok || tok == "" {
		return "", 0, ErrNoCustomer
	}
	return tok, id, nil
}

// Start loads saved addresses and picks the first one. Without saved
// addresses the wizard opens on the new address form.
func (w *Wizard) Start(ctx context.Context) error {
	tok, id, err := w.customer()
	if err != nil {
		return err
	}
	saved, err := w.client.ListAddresses(ctx, tok, id)
	if err != nil {
		w.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Error("checkout_addresses_error", "status", apiclient.StatusCode(err), "error", err)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.started = true
	w.saved = saved
	w.order = nil
	w.draft = models.Address{}
	w.selected = nil
	if len(saved) == 0 {
		w.step = StepNew
		return nil
	}
	w.step = StepList
	w.selected = saved[0].ID
	return nil
}

// Reset forgets everything, as for a fresh session.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.started = false
	w.step = StepList
	w.saved = nil
	w.selected = nil
	w.draft = models.Address{}
	w.order = nil
}

// Started reports whether Start has succeeded at least once.
func (w *Wizard) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Saved() []models.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Address(nil), w.saved...)
}

// Selected returns the chosen saved address id.
func (w *Wizard) Selected() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selected == nil {
		return 0, false
	}
	return *w.selected, true
}

func (w *Wizard) Draft() models.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

func (w *Wizard) Order() *models.Order {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.order
}

func (w *Wizard) Select(addressID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range w.saved {
		if a.ID != nil && *a.ID == addressID {
			id := addressID
			w.selected = &id
			w.step = StepList
			return nil
		}
	}
	return ErrUnknownAddress
}

func (w *Wizard) UseNewAddress() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepNew
}

// UseSavedAddresses goes back to the list; it is a no-op without saved
// addresses.
func (w *Wizard) UseSavedAddresses() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.saved) > 0 {
		w.step = StepList
	}
}

func (w *Wizard) SetDraft(a models.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a.ID = nil
	w.draft = a
}

func validDraft(a models.Address) bool {
	return strings.TrimSpace(a.Street) != "" && strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.ZipCode) != ""
}

// Confirm runs the order: a new address is validated and saved first, the
// chosen address is flattened and the order placed. A saved address
// survives a failed placement and becomes the selection for a retry.
func (w *Wizard) Confirm(ctx context.Context) (*models.Order, error) {
	l := logging.FromContext(ctx).With("component", "checkout")
	tok, id, err := w.customer()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	step, draft := w.step, w.draft
	var chosen *models.Address
	if step == StepList && w.selected != nil {
		for i := range w.saved {
			if w.saved[i].ID != nil && *w.saved[i].ID == *w.selected {
				a := w.saved[i]
				chosen = &a
			}
		}
	}
	w.mu.Unlock()

	switch step {
	case StepDone:
		return nil, ErrFinished
	case StepNew:
		if !validDraft(draft) {
			return nil, ErrMissingAddressFields
		}
		saved, err := w.client.AddAddress(ctx, tok, id, draft)
		if err != nil {
			w.sess.CheckUnauthorized(ctx, err)
			l.Error("checkout_address_save_error", "status", apiclient.StatusCode(err), "error", err)
			return nil, fmt.Errorf("save address: %w", err)
		}
		w.mu.Lock()
		w.saved = append(w.saved, *saved)
		w.selected = saved.ID
		w.draft = models.Address{}
		w.step = StepList
		w.mu.Unlock()
		chosen = saved
	default:
		if chosen == nil {
			return nil, ErrNoAddressSelected
		}
	}

	order, err := w.client.PlaceOrder(ctx, tok, id, chosen.Flatten())
	if err != nil {
		w.sess.CheckUnauthorized(ctx, err)
		l.Error("checkout_place_order_error", "status", apiclient.StatusCode(err), "error", err)
		return nil, fmt.Errorf("place order: %w", err)
	}

	w.mu.Lock()
	w.step = StepDone
	w.order = order
	w.mu.Unlock()

	l.Info("order_placed", "order_id", order.OrderID, "total", order.TotalAmount)
	if w.bus != nil {
		w.bus.Publish(ctx, events.Event{Topic: events.CartUpdated, CustomerID: &id, Payload: "checkout"})
		w.bus.Publish(ctx, events.Event{Topic: events.OrdersUpdated, CustomerID: &id, Payload: order.OrderID})
	}
	return order, nil
}
