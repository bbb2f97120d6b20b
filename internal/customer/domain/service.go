package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
)

type ListCustomerRequest struct {
	PageToken string
	PageSize  int32
	// Search matches a fragment of the name, email or phone.
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UpdateCustomerRequest changes contact details; nil fields are left as is.
type UpdateCustomerRequest struct {
	ID    string  `json:"-"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type GetCustomerRequest struct {
	ID string
}

type CreateDeviceRequest struct {
	CustomerID   string `json:"-"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	AddDevice(context.Context, CreateDeviceRequest) (Device, error)
	ListDevices(ctx context.Context, customerID string) ([]Device, error)
	GetDevice(ctx context.Context, id string) (Device, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidDevice       = errors.New("invalid_device")
	ErrNotFound            = errors.New("not_found")
)
