package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (c *Client) GetCart(ctx context.Context, token string, customerID int) (*models.Cart, error) {
	var out models.Cart
	if err := c.do(ctx, request{
		op: "cart.get", method: http.MethodGet, path: "/cart/" + pathID(customerID), token: token,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddToCart adds quantity units of a food; quantity < 1 is sent as 1.
func (c *Client) AddToCart(ctx context.Context, token string, customerID, foodID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		quantity = 1
	}
	var out models.Cart
	if err := c.do(ctx, request{
		op: "cart.add", method: http.MethodPost, path: "/cart/" + pathID(customerID) + "/add",
		query: url.Values{"foodId": {pathID(foodID)}, "quantity": {pathID(quantity)}},
		token: token,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCartQuantity(ctx context.Context, token string, customerID, cartItemID, quantity int) error {
	body, err := jsonBody(map[string]int{"quantity": quantity})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		op: "cart.update", method: http.MethodPut,
		path:  "/cart/update/" + pathID(customerID) + "/" + pathID(cartItemID),
		token: token, body: body, contentType: "application/json",
	}, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, token string, customerID, cartItemID int) error {
	return c.do(ctx, request{
		op: "cart.remove", method: http.MethodDelete,
		path:  "/cart/remove/" + pathID(customerID) + "/" + pathID(cartItemID),
		token: token,
	}, nil)
}
