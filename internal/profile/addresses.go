package profile

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

func (p *Profile) Addresses(ctx context.Context) ([]models.Address, error) {
	tok, id, err := p.principal()
	if err != nil {
		return nil, err
	}
	out, err := p.client.ListAddresses(ctx, tok, id)
	if err != nil {
		return nil, p.fail(ctx, "address_list_error", err)
	}
	return out, nil
}

func (p *Profile) AddAddress(ctx context.Context, a models.Address) (*models.Address, error) {
	tok, id, err := p.principal()
	if err != nil {
		return nil, err
	}
	saved, err := p.client.AddAddress(ctx, tok, id, a)
	if err != nil {
		return nil, p.fail(ctx, "address_add_error", err)
	}
	p.addressesChanged(ctx, id)
	return saved, nil
}

// UpdateAddress requires a.ID to be set.
func (p *Profile) UpdateAddress(ctx context.Context, a models.Address) (*models.Address, error) {
	if a.ID == nil {
		return nil, apiclient.ErrAddressID
	}
	tok, id, err := p.principal()
	if err != nil {
		return nil, err
	}
	saved, err := p.client.UpdateAddress(ctx, tok, id, a)
	if err != nil {
		return nil, p.fail(ctx, "address_update_error", err)
	}
	p.addressesChanged(ctx, id)
	return saved, nil
}

func (p *Profile) DeleteAddress(ctx context.Context, addressID int) error {
	tok, id, err := p.principal()
	if err != nil {
		return err
	}
	if err := p.client.DeleteAddress(ctx, tok, addressID); err != nil {
		return p.fail(ctx, "address_delete_error", err)
	}
	p.addressesChanged(ctx, id)
	return nil
}

func (p *Profile) addressesChanged(ctx context.Context, customerID int) {
	if p.bus != nil {
		p.bus.Publish(ctx, events.Event{Topic: events.ProfileUpdated, CustomerID: &customerID, Payload: "addresses"})
	}
}
