package models

import "fmt"

const DefaultCategory = "Uncategorized"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

type FoodItem struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	Category        *string  `json:"category"`
	Ingredients     *string  `json:"ingredients,omitempty"`
	Calories        *float64 `json:"calories,omitempty"`
	PreparationTime *int     `json:"preparationTime,omitempty"`
	Spiciness       *string  `json:"spiciness,omitempty"`
	IsVeg           bool     `json:"isVeg"`
	Available       bool     `json:"available"`
	ImageName       string   `json:"imageName,omitempty"`
	ImageType       string   `json:"imageType,omitempty"`
	ImageData       []byte   `json:"imageData,omitempty"`
}

func (f FoodItem) CategoryOrDefault() string {
	if f.Category == nil || *f.Category == "" {
		return DefaultCategory
	}
	return *f.Category
}

type CartItem struct {
	CartItemID int      `json:"cartItemId"`
	Food       FoodItem `json:"food"`
	Quantity   int      `json:"quantity"`
}

func (i CartItem) LineTotal() float64 {
	return i.Food.Price * float64(i.Quantity)
}

type Cart struct {
	CartID    int        `json:"cartId"`
	CartItems []CartItem `json:"cartItems"`
}

func (c Cart) Total() float64 {
	return Total(c.CartItems)
}

func Total(items []CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}

type WishlistItem struct {
	ID   int      `json:"id"`
	Food FoodItem `json:"food"`
}

type Address struct {
	ID          *int   `json:"id,omitempty"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
	AddressType string `json:"addressType"`
}

// Flatten renders the address the way orders store it.
func (a Address) Flatten() string {
	return fmt.Sprintf("%s, %s, %s - %s", a.Street, a.City, a.State, a.ZipCode)
}

type OrderItem struct {
	FoodName   string  `json:"foodName"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"totalPrice"`
}

type Order struct {
	OrderID       string      `json:"orderId"`
	CustomerName  string      `json:"customerName"`
	Email         string      `json:"email,omitempty"`
	Address       string      `json:"address"`
	Status        OrderStatus `json:"status"`
	OrderDateTime DateTime    `json:"orderDateTime"`
	TotalAmount   float64     `json:"totalAmount"`
	Items         []OrderItem `json:"items"`
}

type Customer struct {
	CustomerID int       `json:"customerId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    *string   `json:"address,omitempty"`
	ImageType  string    `json:"imageType,omitempty"`
	ImageData  []byte    `json:"imageData,omitempty"`
	CreatedAt  DateTime  `json:"createdAt,omitzero"`
}

// Session is the client side view of a signed-in principal.
type Session struct {
	Token      string `json:"token"`
	Role       Role   `json:"role"`
	CustomerID *int   `json:"customerId,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}
