package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (c *Client) GetWishlist(ctx context.Context, token string, customerID int) ([]models.WishlistItem, error) {
	var out []models.WishlistItem
	if err := c.do(ctx, request{
		op: "wishlist.get", method: http.MethodGet, path: "/customer/wishlist/" + pathID(customerID), token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddToWishlist(ctx context.Context, token string, customerID, foodID int) error {
	return c.do(ctx, request{
		op: "wishlist.add", method: http.MethodPost, path: "/customer/wishlist/add",
		query: wishQuery(customerID, foodID), token: token,
	}, nil)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, token string, customerID, foodID int) error {
	return c.do(ctx, request{
		op: "wishlist.remove", method: http.MethodDelete, path: "/customer/wishlist/remove",
		query: wishQuery(customerID, foodID), token: token,
	}, nil)
}

func (c *Client) MoveToCart(ctx context.Context, token string, wishlistID int) error {
	return c.do(ctx, request{
		op: "wishlist.move_to_cart", method: http.MethodPost,
		path: "/customer/wishlist/move-to-cart/" + pathID(wishlistID), token: token,
	}, nil)
}

func wishQuery(customerID, foodID int) url.Values {
	return url.Values{"customerId": {pathID(customerID)}, "foodId": {pathID(foodID)}}
}
