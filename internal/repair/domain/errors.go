package domain

import "errors"

var (
	ErrInvalidOrganization   = errors.New("invalid_organization")
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidCustomer       = errors.New("invalid_customer")
	ErrInvalidDevice         = errors.New("invalid_device")
	ErrInvalidTechnician     = errors.New("invalid_technician")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidPriority       = errors.New("invalid_priority")
	ErrInvalidDescription    = errors.New("invalid_description")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrInvalidUnitPrice      = errors.New("invalid_unit_price")
	ErrInvalidItemType       = errors.New("invalid_item_type")
	ErrNotFound              = errors.New("not_found")
	ErrItemNotFound          = errors.New("line_item_not_found")
	ErrTicketNumberExhausted = errors.New("ticket_number_exhausted")
)
