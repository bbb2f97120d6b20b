package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidKind         = errors.New("invalid_document_kind")
	ErrInvalidStatus       = errors.New("invalid_document_status")
	ErrInvalidTax          = errors.New("invalid_tax_amount")
	ErrInvalidAmount       = errors.New("invalid_payment_amount")
	ErrNotFound            = errors.New("document_not_found")
	ErrStatusTransition    = errors.New("invalid_status_transition")
	ErrAlreadyPaid         = errors.New("invoice_already_paid")
	ErrOverpayment         = errors.New("payment_exceeds_balance")
	ErrNumberExhausted     = errors.New("document_number_exhausted")
	ErrRendererUnavailable = errors.New("renderer_not_configured")
)
