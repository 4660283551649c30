package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCartTotal(t *testing.T) {
	cart := Cart{CartItems: []CartItem{
		{CartItemID: 1, Food: FoodItem{Price: 120}, Quantity: 2},
		{CartItemID: 2, Food: FoodItem{Price: 35.5}, Quantity: 1},
	}}
	require.InDelta(t, 275.5, cart.Total(), 1e-9)
	require.Zero(t, Cart{}.Total())
}

func TestAddressFlatten(t *testing.T) {
	a := Address{Street: "12 MG Road", City: "Pune", State: "MH", ZipCode: "411001"}
	require.Equal(t, "12 MG Road, Pune, MH - 411001", a.Flatten())
}

func TestCategoryOrDefault(t *testing.T) {
	empty := ""
	snack := "SNACK"
	require.Equal(t, DefaultCategory, FoodItem{}.CategoryOrDefault())
	require.Equal(t, DefaultCategory, FoodItem{Category: &empty}.CategoryOrDefault())
	require.Equal(t, "SNACK", FoodItem{Category: &snack}.CategoryOrDefault())
}

func TestOrderFilterMatch(t *testing.T) {
	for _, s := range []OrderStatus{StatusPlaced, StatusCooking, StatusOutForDelivery} {
		require.True(t, FilterActive.Match(s))
		require.False(t, FilterHistory.Match(s))
	}
	for _, s := range []OrderStatus{StatusDelivered, StatusCancelled} {
		require.False(t, FilterActive.Match(s))
		require.True(t, FilterHistory.Match(s))
	}
	require.True(t, FilterAll.Match(StatusCooking))
	require.Equal(t, FilterAll, ParseOrderFilter("whatever"))
	require.Equal(t, FilterActive, ParseOrderFilter("active"))
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus(" cooking ")
	require.NoError(t, err)
	require.Equal(t, StatusCooking, st)

	_, err = ParseOrderStatus("LOST")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestDateTimeAcceptsLocalTimestamps(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"orderId":"ORD-1","status":"PLACED","orderDateTime":"2025-03-01T18:22:05.123456"}`), &o))
	require.Equal(t, 2025, o.OrderDateTime.Year())
	require.Equal(t, 18, o.OrderDateTime.Hour())

	require.NoError(t, json.Unmarshal([]byte(`{"orderDateTime":null}`), &o))
	require.True(t, o.OrderDateTime.IsZero())

	require.Error(t, json.Unmarshal([]byte(`{"orderDateTime":"yesterday"}`), &o))
}
