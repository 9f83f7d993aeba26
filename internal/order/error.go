package order

import "errors"

var (
	ErrMissingFields       = errors.New("Missing required fields")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrOrderNotFound       = errors.New("order not found")
	ErrGatewayFailure      = errors.New("payment gateway failure")
	ErrInvalidNotification = errors.New("missing order id in notification")
)
