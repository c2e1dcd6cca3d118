package entity

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrStatusConflict     = errors.New("order status changed concurrently")
	ErrAlreadyConsumed    = errors.New("prepared stock already consumed for order")
	ErrNotAwaitingPayment = errors.New("order is not awaiting payment verification")
)
