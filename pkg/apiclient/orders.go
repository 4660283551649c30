package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (c *Client) PlaceOrder(ctx context.Context, token string, customerID int, address string) (*models.Order, error) {
	body, err := jsonBody(map[string]string{"address": address})
	if err != nil {
		return nil, err
	}
	var out models.Order
	if err := c.do(ctx, request{
		op: "orders.place", method: http.MethodPost, path: "/" + pathID(customerID) + "/order/place",
		token: token, body: body, contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CustomerOrders(ctx context.Context, token string, customerID int) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, request{
		op: "orders.customer", method: http.MethodGet, path: "/customer/" + pathID(customerID) + "/orders", token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AllOrders(ctx context.Context, token string) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, request{
		op: "orders.all", method: http.MethodGet, path: "/admin/orders", token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID string, status models.OrderStatus) (*models.Order, error) {
	var out models.Order
	if err := c.do(ctx, request{
		op: "orders.update_status", method: http.MethodPut,
		path:  "/admin/orders/order/" + seg(orderID) + "/status",
		query: url.Values{"status": {string(status)}},
		token: token,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
