package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (c *Client) GetCustomer(ctx context.Context, token string, customerID int) (*models.Customer, error) {
	var out models.Customer
	if err := c.do(ctx, request{
		op: "customer.get", method: http.MethodGet, path: "/customer/" + pathID(customerID), token: token,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCustomer sends the profile as the customerInfo part; image may be nil.
func (c *Client) UpdateCustomer(ctx context.Context, token string, customer models.Customer, image *Image) (*models.Customer, error) {
	return c.updateCustomer(ctx, "customer.update", "/customer/"+pathID(customer.CustomerID), token, customer, image)
}

func (c *Client) DeleteCustomer(ctx context.Context, token string, customerID int) error {
	return c.do(ctx, request{
		op: "customer.delete", method: http.MethodDelete, path: "/customer/" + pathID(customerID), token: token,
	}, nil)
}

// VerifyPassword answers nil when currentPassword matches. A wrong password
// comes back as a 401 StatusError.
func (c *Client) VerifyPassword(ctx context.Context, token string, customerID int, currentPassword string) error {
	body, err := jsonBody(map[string]string{"currentPassword": currentPassword})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		op: "customer.verify_password", method: http.MethodPost,
		path:  "/customer/" + pathID(customerID) + "/verify-password",
		token: token, body: body, contentType: "application/json",
	}, nil)
}

func (c *Client) ListCustomers(ctx context.Context, token string) ([]models.Customer, error) {
	var out []models.Customer
	if err := c.do(ctx, request{
		op: "customers.list", method: http.MethodGet, path: "/admin/customers", token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchCustomers(ctx context.Context, token, keyword string) ([]models.Customer, error) {
	var out []models.Customer
	if err := c.do(ctx, request{
		op: "customers.search", method: http.MethodGet, path: "/admin/customers/search",
		query: url.Values{"keyword": {keyword}}, token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminUpdateCustomer(ctx context.Context, token string, customer models.Customer, image *Image) (*models.Customer, error) {
	return c.updateCustomer(ctx, "customers.update", "/admin/customer/"+pathID(customer.CustomerID), token, customer, image)
}

func (c *Client) AdminDeleteCustomer(ctx context.Context, token string, customerID int) error {
	return c.do(ctx, request{
		op: "customers.delete", method: http.MethodDelete, path: "/admin/customer/" + pathID(customerID), token: token,
	}, nil)
}

func (c *Client) updateCustomer(ctx context.Context, op, path, token string, customer models.Customer, image *Image) (*models.Customer, error) {
	customer.ImageData = nil
	body, ct, err := multipartBody(
		formPart{name: "customerInfo", json: customer},
		formPart{name: "imageFile", image: image},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var out models.Customer
	if err := c.do(ctx, request{
		op: op, method: http.MethodPut, path: path, token: token, body: body, contentType: ct,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
