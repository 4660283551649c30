package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownStatus = errors.New("unknown order status")

type OrderStatus string

const (
	StatusPlaced         OrderStatus = "PLACED"
	StatusCooking        OrderStatus = "COOKING"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{
	StatusPlaced,
	StatusCooking,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) IsActive() bool {
	return s == StatusPlaced || s == StatusCooking || s == StatusOutForDelivery
}

type OrderFilter string

const (
	FilterActive  OrderFilter = "ACTIVE"
	FilterHistory OrderFilter = "HISTORY"
	FilterAll     OrderFilter = "ALL"
)

func ParseOrderFilter(s string) OrderFilter {
	switch OrderFilter(strings.ToUpper(s)) {
	case FilterActive:
		return FilterActive
	case FilterHistory:
		return FilterHistory
	default:
		return FilterAll
	}
}

func (f OrderFilter) Match(s OrderStatus) bool {
	switch f {
	case FilterActive:
		return s.IsActive()
	case FilterHistory:
		return s.IsTerminal()
	default:
		return true
	}
}
