package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidCountryCode  = errors.New("invalid_country_code")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrDuplicateRate       = errors.New("duplicate_tax_rate")

	// ErrNoDefaultTaxRate is a data-integrity fault: backfill guarantees a
	// default for every organization.
	ErrNoDefaultTaxRate = errors.New("no_default_tax_rate")
)
