package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Audience selects the admin or customer flavour of the shared food routes.
type Audience string

const (
	AudienceAdmin    Audience = "admin"
	AudienceCustomer Audience = "customer"
)

func (a Audience) prefix() string {
	if a == AudienceAdmin {
		return "/admin"
	}
	return "/customer"
}

func (c *Client) ListFoods(ctx context.Context, token string, aud Audience) ([]models.FoodItem, error) {
	var out []models.FoodItem
	if err := c.do(ctx, request{
		op: "foods.list", method: http.MethodGet, path: aud.prefix() + "/foods", token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchFoods(ctx context.Context, token string, aud Audience, keyword string) ([]models.FoodItem, error) {
	var out []models.FoodItem
	if err := c.do(ctx, request{
		op: "foods.search", method: http.MethodGet, path: aud.prefix() + "/foods/search",
		query: url.Values{"keyword": {keyword}}, token: token,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFood(ctx context.Context, token string, aud Audience, id int) (*models.FoodItem, error) {
	var out models.FoodItem
	if err := c.do(ctx, request{
		op: "foods.get", method: http.MethodGet, path: aud.prefix() + "/food/" + pathID(id), token: token,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateFood(ctx context.Context, token string, food models.FoodItem, image *Image) (*models.FoodItem, error) {
	body, ct, err := foodForm(food, image)
	if err != nil {
		return nil, fmt.Errorf("foods.create: %w", err)
	}
	var out struct {
		Message string          `json:"message"`
		Data    models.FoodItem `json:"data"`
	}
	if err := c.do(ctx, request{
		op: "foods.create", method: http.MethodPost, path: "/admin/food",
		token: token, body: body, contentType: ct,
	}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) UpdateFood(ctx context.Context, token string, id int, food models.FoodItem, image *Image) (*models.FoodItem, error) {
	body, ct, err := foodForm(food, image)
	if err != nil {
		return nil, fmt.Errorf("foods.update: %w", err)
	}
	var out models.FoodItem
	if err := c.do(ctx, request{
		op: "foods.update", method: http.MethodPut, path: "/admin/food/" + pathID(id),
		token: token, body: body, contentType: ct,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFood(ctx context.Context, token string, id int) error {
	return c.do(ctx, request{
		op: "foods.delete", method: http.MethodDelete, path: "/admin/food/" + pathID(id), token: token,
	}, nil)
}

func foodForm(food models.FoodItem, image *Image) (io.Reader, string, error) {
	// image bytes travel in their own part, never inside the JSON.
	food.ImageData = nil
	return multipartBody(
		formPart{name: "food", json: food},
		formPart{name: "imageFile", image: image},
	)
}
