package httpserver

import (
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/orders"
	"github.com/Skotchmaster/storefront/internal/session"
)

type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

var browseMenu = Link{Label: "Browse Menu", Href: "/customerDashboard"}

type EmptyState struct {
	Message string `json:"message"`
	Action  *Link  `json:"action,omitempty"`
}

type SessionView struct {
	Role       models.Role `json:"role"`
	CustomerID *int        `json:"customerId,omitempty"`
	Name       string      `json:"name,omitempty"`
	Email      string      `json:"email,omitempty"`
}

func sessionView(s *session.Store) *SessionView {
	if s == nil || !s.IsAuthenticated() {
		return nil
	}
	cur := s.Current()
	return &SessionView{Role: cur.Role, CustomerID: cur.CustomerID, Name: cur.Name, Email: cur.Email}
}

type PageView struct {
	Page     string       `json:"page"`
	Session  *SessionView `json:"session,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
	Message  string       `json:"message,omitempty"`
}

type Badges struct {
	Cart     int `json:"cart"`
	Wishlist int `json:"wishlist"`
}

type DashboardView struct {
	Keyword       string          `json:"keyword,omitempty"`
	Groups        []catalog.Group `json:"groups"`
	Wishlisted    []int           `json:"wishlisted"`
	WishlistError string          `json:"wishlistError,omitempty"`
	Badges        Badges          `json:"badges"`
	Empty         *EmptyState     `json:"empty,omitempty"`
}

type FoodView struct {
	Food          *models.FoodItem `json:"food"`
	InWishlist    bool             `json:"inWishlist"`
	WishlistError string           `json:"wishlistError,omitempty"`
}

type WishlistView struct {
	Items []models.WishlistItem `json:"items"`
	Empty *EmptyState           `json:"empty,omitempty"`
}

type CartView struct {
	Items []models.CartItem `json:"items"`
	Total float64           `json:"total"`
	Count int               `json:"count"`
	Empty *EmptyState       `json:"empty,omitempty"`
}

type CheckoutView struct {
	Step     checkout.Step    `json:"step"`
	Saved    []models.Address `json:"saved"`
	Selected *int             `json:"selected,omitempty"`
	Draft    models.Address   `json:"draft"`
	Total    float64          `json:"total"`
	Order    *models.Order    `json:"order,omitempty"`
}

type OrdersView struct {
	Filter models.OrderFilter         `json:"filter"`
	Orders []models.Order             `json:"orders"`
	Counts map[models.OrderFilter]int `json:"counts"`
	Empty  *EmptyState                `json:"empty,omitempty"`
}

type ProfileView struct {
	Customer  models.Customer  `json:"customer"`
	Addresses []models.Address `json:"addresses"`
}

type AdminDashboardView struct {
	Cards []Link       `json:"cards"`
	Stats orders.Stats `json:"stats"`
}

var adminCards = []Link{
	{Label: "Manage Foods", Href: "/dashboard/foods"},
	{Label: "Customers", Href: "/dashboard/customers"},
	{Label: "Orders", Href: "/dashboard/orders"},
}

type AlertsView struct {
	Alerts []notify.Message `json:"alerts"`
}
