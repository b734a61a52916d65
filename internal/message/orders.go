// Package message holds the message types compiled into the service.
package message

import "reggie/internal/registry"

type OrderCreated struct {
	OrderID    string  `json:"orderId"`
	CustomerID string  `json:"customerId"`
	Amount     float64 `json:"amount"`
}

type OrderCancelled struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// RegisterBuiltins adds the compiled-in types to r.
func RegisterBuiltins(r *registry.Registry) error {
	if err := registry.RegisterType[OrderCreated](r, "OrderCreated"); err != nil {
		return err
	}
	return registry.RegisterType[OrderCancelled](r, "OrderCancelled")
}
