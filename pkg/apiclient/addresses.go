package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
)

var ErrAddressID = errors.New("address id is required for update")

func (c *Client) ListAddresses(ctx context.Context, token string, customerID int) ([]models.Address, error) {
	var out []models.Address
	if err := c.do(ctx, request{
		op: "address.list", method: http.MethodGet, path: "/customer/" + pathID(customerID) + "/address", token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddAddress(ctx context.Context, token string, customerID int, addr models.Address) (*models.Address, error) {
	body, err := jsonBody(addr)
	if err != nil {
		return nil, err
	}
	var out models.Address
	if err := c.do(ctx, request{
		op: "address.add", method: http.MethodPost, path: "/customer/" + pathID(customerID) + "/address",
		token: token, body: body, contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAddress(ctx context.Context, token string, customerID int, addr models.Address) (*models.Address, error) {
	if addr.ID == nil {
		return nil, ErrAddressID
	}
	body, err := jsonBody(addr)
	if err != nil {
		return nil, err
	}
	var out models.Address
	if err := c.do(ctx, request{
		op: "address.update", method: http.MethodPut, path: "/customer/" + pathID(customerID) + "/profile/address",
		token: token, body: body, contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAddress(ctx context.Context, token string, addressID int) error {
	return c.do(ctx, request{
		op: "address.delete", method: http.MethodDelete, path: "/customer/address/" + pathID(addressID), token: token,
	}, nil)
}
