// Package profile manages the signed-in customer's account and address book.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrNoCustomer    = errors.New("profile: not signed in as a customer")
	ErrNotLoaded     = errors.New("profile: not loaded")
	ErrWrongPassword = errors.New("profile: current password is incorrect")
	ErrDeclined      = errors.New("profile: deletion declined")
)

const DeletePrompt = "Are you sure? This will permanently delete your account."

type Session interface {
	Token() string
	CustomerID() (int, bool)
	CheckUnauthorized(ctx context.Context, err error) bool
	Invalidate(ctx context.Context) error
}

// Changes are the editable profile fields. Email is not among them.
type Changes struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address *string `json:"address,omitempty"`
}

type Profile struct {
	client *apiclient.Client
	sess   Session
	bus    *events.Bus

	mu       sync.RWMutex
	customer *models.Customer
}

func New(client *apiclient.Client, sess Session, bus *events.Bus) *Profile {
	return &Profile{client: client, sess: sess, bus: bus}
}

func (p *Profile) principal() (string, int, error) {
	id, ok := p.sess.CustomerID()
	tok := p.sess.Token()
	if !ok || tok == "" {
		return "", 0, ErrNoCustomer
	}
	return tok, id, nil
}

func (p *Profile) fail(ctx context.Context, event string, err error) error {
	p.sess.CheckUnauthorized(ctx, err)
	logging.FromContext(ctx).Error(event, "status", apiclient.StatusCode(err), "error", err)
	return err
}

func (p *Profile) Load(ctx context.Context) (*models.Customer, error) {
	tok, id, err := p.principal()
	if err != nil {
		return nil, err
	}
	c, err := p.client.GetCustomer(ctx, tok, id)
	if err != nil {
		return nil, p.fail(ctx, "profile_load_error", err)
	}
	p.mu.Lock()
	p.customer = c
	p.mu.Unlock()
	out := *c
	return &out, nil
}

func (p *Profile) Customer() (models.Customer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.customer == nil {
		return models.Customer{}, false
	}
	return *p.customer, true
}

// Update saves changes on top of the loaded profile. The stored email is
// always sent back unchanged; image may be nil to keep the current picture.
func (p *Profile) Update(ctx context.Context, ch Changes, image *apiclient.Image) (*models.Customer, error) {
	tok, _, err := p.principal()
	if err != nil {
		return nil, err
	}
	current, ok := p.Customer()
	if !ok {
		return nil, ErrNotLoaded
	}

	next := current
	next.Name = strings.TrimSpace(ch.Name)
	next.Phone = strings.TrimSpace(ch.Phone)
	next.Address = ch.Address

	updated, err := p.client.UpdateCustomer(ctx, tok, next, image)
	if err != nil {
		return nil, p.fail(ctx, "profile_update_error", err)
	}
	updated.Email = current.Email

	p.mu.Lock()
	p.customer = updated
	p.mu.Unlock()

	logging.FromContext(ctx).Info("profile_updated", "customer_id", updated.CustomerID, "image", image != nil)
	if p.bus != nil {
		p.bus.Publish(ctx, events.Event{Topic: events.ProfileUpdated, CustomerID: &updated.CustomerID, Payload: "profile"})
	}
	out := *updated
	return &out, nil
}

// Delete removes the account after confirmation and then drops the local
// session. A nil confirm declines.
func (p *Profile) Delete(ctx context.Context, confirm cart.Confirmer) error {
	tok, id, err := p.principal()
	if err != nil {
		return err
	}
	if confirm == nil || !confirm.Confirm(ctx, DeletePrompt) {
		return ErrDeclined
	}
	if err := p.client.DeleteCustomer(ctx, tok, id); err != nil {
		return p.fail(ctx, "profile_delete_error", err)
	}

	p.mu.Lock()
	p.customer = nil
	p.mu.Unlock()

	logging.FromContext(ctx).Info("profile_deleted", "customer_id", id)
	if err := p.sess.Invalidate(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// VerifyPassword reports ErrWrongPassword for a mismatch. The backend answers
// a mismatch with 401, which must not end the session.
func (p *Profile) VerifyPassword(ctx context.Context, current string) error {
	tok, id, err := p.principal()
	if err != nil {
		return err
	}
	err = p.client.VerifyPassword(ctx, tok, id, current)
	switch {
	case err == nil:
		return nil
	case apiclient.StatusCode(err) == 401:
		return ErrWrongPassword
	default:
		return p.fail(ctx, "profile_verify_password_error", err)
	}
}
