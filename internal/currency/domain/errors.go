package domain

import "errors"

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidCode          = errors.New("invalid_currency_code")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidDecimalDigits = errors.New("invalid_decimal_digits")
	ErrDuplicateCode        = errors.New("duplicate_currency_code")
	ErrNotFound             = errors.New("not_found")

	// ErrNoCurrencyConfigured means no currency exists at any scope. It is a
	// provisioning fault and must reach the caller.
	ErrNoCurrencyConfigured = errors.New("no_currency_configured")
)
