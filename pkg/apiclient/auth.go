package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
)

// SignInResult covers both sign-in answers: the admin endpoint returns
// {message, token, tokenType}, the customer endpoint {token, id, name, email}.
type SignInResult struct {
	Token      string `json:"token"`
	TokenType  string `json:"tokenType,omitempty"`
	Message    string `json:"message,omitempty"`
	ID         *int   `json:"id,omitempty"`
	UserID     *int   `json:"userId,omitempty"`
	CustomerID *int   `json:"customerId,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Customer returns the customer id from whichever field the backend filled.
func (r SignInResult) Customer() (int, bool) {
	for _, v := range []*int{r.ID, r.UserID, r.CustomerID} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

type SignUpRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Password string  `json:"password"`
	Address  *string `json:"address,omitempty"`
}

func (c *Client) AdminSignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	var out SignInResult
	if err := c.do(ctx, request{
		op: "admin.signin", method: http.MethodPost, path: "/admin/signin",
		body: body, contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("admin.signin: response carries no token")
	}
	return &out, nil
}

func (c *Client) AdminSignOut(ctx context.Context, token string) error {
	return c.do(ctx, request{op: "admin.signout", method: http.MethodPost, path: "/admin/signout", token: token}, nil)
}

func (c *Client) CustomerSignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	var out SignInResult
	if err := c.do(ctx, request{
		op: "customer.signin", method: http.MethodPost, path: "/customer/signin",
		body: body, contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("customer.signin: response carries no token")
	}
	return &out, nil
}

func (c *Client) CustomerSignUp(ctx context.Context, req SignUpRequest, image *Image) (*models.Customer, error) {
	body, ct, err := multipartBody(
		formPart{name: "customer", json: req},
		formPart{name: "image", image: image},
	)
	if err != nil {
		return nil, fmt.Errorf("customer.signup: %w", err)
	}
	var out models.Customer
	if err := c.do(ctx, request{
		op: "customer.signup", method: http.MethodPost, path: "/customer/signup",
		body: body, contentType: ct,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CustomerSignOut(ctx context.Context, token string) error {
	return c.do(ctx, request{op: "customer.signout", method: http.MethodPost, path: "/customer/signout", token: token}, nil)
}
