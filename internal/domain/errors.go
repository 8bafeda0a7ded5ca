package domain

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrPackageNotFound = errors.New("package not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrAlreadyClaimed  = errors.New("broadcast already claimed")
	ErrInvalidAmount   = errors.New("invalid amount")
)
