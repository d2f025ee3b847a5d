package service

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingSession     = errors.New("session id is required")
	ErrInvalidCustomer    = errors.New("customer name and phone are required")
	ErrStorageUnavailable = errors.New("cart storage unavailable")
)
