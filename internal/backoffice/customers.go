package backoffice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func DeleteCustomerPrompt(id int) string {
	return fmt.Sprintf("Are you sure you want to delete customer ID: %d?", id)
}

type Customers struct {
	client *apiclient.Client
	sess   Session

	mu      sync.RWMutex
	keyword string
	items   []models.Customer
}

func NewCustomers(client *apiclient.Client, sess Session) *Customers {
	return &Customers{client: client, sess: sess}
}

func (cs *Customers) Items() []models.Customer {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return append([]models.Customer(nil), cs.items...)
}

func (cs *Customers) List(ctx context.Context) ([]models.Customer, error) {
	return cs.Search(ctx, "")
}

// Search lists customers matching keyword; an empty keyword lists everyone.
// The keyword is kept so writes refresh the same view.
func (cs *Customers) Search(ctx context.Context, keyword string) ([]models.Customer, error) {
	tok := cs.sess.Token()
	if tok == "" {
		return nil, ErrNoSession
	}
	keyword = strings.TrimSpace(keyword)

	var (
		out []models.Customer
		err error
	)
	if keyword == "" {
		out, err = cs.client.ListCustomers(ctx, tok)
	} else {
		out, err = cs.client.SearchCustomers(ctx, tok, keyword)
	}
	if err != nil {
		cs.sess.CheckUnauthorized(ctx, err)
		logging.FromContext(ctx).Error("customers_load_error", "keyword", keyword, "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}

	cs.mu.Lock()
	cs.keyword = keyword
	cs.items = out
	cs.mu.Unlock()
	return append([]models.Customer(nil), out...), nil
}

func (cs *Customers) Update(ctx context.Context, c models.Customer) (*models.Customer, error) {
	l := logging.FromContext(ctx).With("component", "backoffice_customers", "customer_id", c.CustomerID)
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	tok := cs.sess.Token()
	if tok == "" {
		return nil, ErrNoSession
	}
	updated, err := cs.client.AdminUpdateCustomer(ctx, tok, c, nil)
	if err != nil {
		cs.sess.CheckUnauthorized(ctx, err)
		l.Error("customer_update_error", "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}
	l.Info("customer_updated")
	cs.refresh(ctx)
	return updated, nil
}

// Delete asks confirm first; a nil confirm declines.
func (cs *Customers) Delete(ctx context.Context, id int, confirm cart.Confirmer) error {
	l := logging.FromContext(ctx).With("component", "backoffice_customers", "customer_id", id)
	tok := cs.sess.Token()
	if tok == "" {
		return ErrNoSession
	}
	if confirm == nil || !confirm.Confirm(ctx, DeleteCustomerPrompt(id)) {
		return ErrDeclined
	}
	if err := cs.client.AdminDeleteCustomer(ctx, tok, id); err != nil {
		cs.sess.CheckUnauthorized(ctx, err)
		l.Error("customer_delete_error", "status", apiclient.StatusCode(err), "error", err)
		return err
	}
	l.Info("customer_deleted")
	cs.refresh(ctx)
	return nil
}

func (cs *Customers) refresh(ctx context.Context) {
	cs.mu.RLock()
	kw := cs.keyword
	cs.mu.RUnlock()
	if _, err := cs.Search(ctx, kw); err != nil {
		logging.FromContext(ctx).Warn("customers_refresh_error", "error", err)
	}
}
