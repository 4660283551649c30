package cart

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrAlreadyWishlisted = errors.New("cart: food already in wishlist")
	ErrNotWishlisted     = errors.New("cart: item not in wishlist")
)

type Wishlist struct {
	client *apiclient.Client
	sess   Session
	bus    *events.Bus

	mu    sync.RWMutex
	items []models.WishlistItem
	err   error
}

func NewWishlist(client *apiclient.Client, sess Session, bus *events.Bus) *Wishlist {
	return &Wishlist{client: client, sess: sess, bus: bus}
}

// Load fetches the wishlist. A failure is kept in Err so views can tell
// "not wishlisted" from "could not check".
func (w *Wishlist) Load(ctx context.Context) error {
	tok, id, err := customer(w.sess)
	if err != nil {
		return err
	}
	items, err := w.client.GetWishlist(ctx, tok, id)

	w.mu.Lock()
	w.err = err
	if err == nil {
		w.items = items
	}
	w.mu.Unlock()

	if err != nil {
		w.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Warn("wishlist_load_error", "status", apiclient.StatusCode(err), "error", err)
		return err
	}
	return nil
}

func (w *Wishlist) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

func (w *Wishlist) Items() []models.WishlistItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]models.WishlistItem(nil), w.items...)
}

func (w *Wishlist) Contains(foodID int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, it := range w.items {
		if it.Food.ID == foodID {
			return true
		}
	}
	return false
}

// Toggle adds the food when absent and removes it when present. It reports
// whether the food is wishlisted afterwards.
func (w *Wishlist) Toggle(ctx context.Context, foodID int) (bool, error) {
	if w.Contains(foodID) {
		return false, w.Remove(ctx, foodID)
	}
	if err := w.Add(ctx, foodID); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Wishlist) Add(ctx context.Context, foodID int) error {
	tok, id, err := customer(w.sess)
	if err != nil {
		return err
	}
	if err := w.client.AddToWishlist(ctx, tok, id, foodID); err != nil {
		w.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Warn("wishlist_add_error", "food_id", foodID, "status", apiclient.StatusCode(err), "error", err)
		if apiclient.StatusCode(err) == http.StatusConflict {
			return ErrAlreadyWishlisted
		}
		return err
	}
	// the add answer carries no wishlist id, MoveToCart needs it
	if err := w.Load(ctx); err != nil {
		return err
	}
	w.publish(ctx, id, events.WishlistUpdated)
	return nil
}

func (w *Wishlist) Remove(ctx context.Context, foodID int) error {
	tok, id, err := customer(w.sess)
	if err != nil {
		return err
	}
	if err := w.client.RemoveFromWishlist(ctx, tok, id, foodID); err != nil {
		w.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Warn("wishlist_remove_error", "food_id", foodID, "status", apiclient.StatusCode(err), "error", err)
		return err
	}
	w.splice(func(it models.WishlistItem) bool { return it.Food.ID == foodID })
	w.publish(ctx, id, events.WishlistUpdated)
	return nil
}

// MoveToCart asks the backend to move one wishlist entry into the cart. The
// entry leaves local state only after the backend confirmed.
func (w *Wishlist) MoveToCart(ctx context.Context, wishlistID int) error {
	tok, id, err := customer(w.sess)
	if err != nil {
		return err
	}
	if err := w.client.MoveToCart(ctx, tok, wishlistID); err != nil {
		w.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Error("wishlist_move_error", "wishlist_id", wishlistID, "status", apiclient.StatusCode(err), "error", err)
		if apiclient.IsNotFound(err) {
			return ErrNotWishlisted
		}
		return err
	}
	w.splice(func(it models.WishlistItem) bool { return it.ID == wishlistID })
	w.publish(ctx, id, events.WishlistUpdated)
	w.publish(ctx, id, events.CartUpdated)
	return nil
}

func (w *Wishlist) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = nil
	w.err = nil
}

func (w *Wishlist) splice(drop func(models.WishlistItem) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.items[:0:0]
	for _, it := range w.items {
		if !drop(it) {
			kept = append(kept, it)
		}
	}
	w.items = kept
}

func (w *Wishlist) publish(ctx context.Context, customerID int, topic events.Topic) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(ctx, events.Event{Topic: topic, CustomerID: &customerID, Payload: "wishlist"})
}
