package profile

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrWeakPassword     = errors.New("password must be 8+ characters with upper and lower case letters, a digit and one of @#$%^&+=")
	ErrMissingFields    = errors.New("name, email and phone are required")
	ErrInvalidEmail     = errors.New("invalid email address")
)

const passwordSymbols = "@#$%^&+="

// StrongPassword matches the backend rule: at least 8 characters with a
// lower case letter, an upper case letter, a digit and one of @#$%^&+=.
func StrongPassword(pw string) bool {
	if len([]rune(pw)) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

type SignUpForm struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	Address         *string
	Image           *apiclient.Image
}

func (f SignUpForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Email) == "" || strings.TrimSpace(f.Phone) == "" {
		return ErrMissingFields
	}
	if _, err := mail.ParseAddress(f.Email); err != nil {
		return ErrInvalidEmail
	}
	if f.Password != f.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if !StrongPassword(f.Password) {
		return ErrWeakPassword
	}
	return nil
}

// SignUp validates the form locally and registers the customer. The caller
// signs in separately.
func SignUp(ctx context.Context, client *apiclient.Client, f SignUpForm) (*models.Customer, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, err := client.CustomerSignUp(ctx, apiclient.SignUpRequest{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		Password: f.Password,
		Address:  f.Address,
	}, f.Image)
	if err != nil {
		logging.FromContext(ctx).Error("signup_error", "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}
	logging.FromContext(ctx).Info("signup_completed", "customer_id", c.CustomerID)
	return c, nil
}
