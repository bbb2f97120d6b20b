package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	"github.com/smallbiznis/repairdesk/pkg/db/option"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Devices pkgrepository.Repository[domain.Device]
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	devices pkgrepository.Repository[domain.Device]
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("customer.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		devices: p.Devices,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Customer{}, err
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListCustomerResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListCustomerFilter{
		Search:      strings.TrimSpace(req.Search),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}

	pageSize := pagination.NormalizeSize(int(req.PageSize))
	items, err := s.repo.List(ctx, s.db, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(customer *domain.Customer) pagination.Cursor {
		return pagination.NewCursor(customer.ID.String(), customer.CreatedAt)
	})

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	return domain.ListCustomerResponse{Customers: customers, PageInfo: pageInfo}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	customer, err := s.GetByID(ctx, domain.GetCustomerRequest{ID: req.ID})
	if err != nil {
		return domain.Customer{}, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		fields["name"] = name
		customer.Name = name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return domain.Customer{}, err
		}
		fields["email"] = email
		customer.Email = email
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		fields["phone"] = phone
		customer.Phone = phone
	}
	if len(fields) == 0 {
		return customer, nil
	}

	customer.UpdatedAt = s.clock.Now()
	fields["updated_at"] = customer.UpdatedAt
	ok, err := s.repo.Update(ctx, s.db, customer.OrgID, customer.ID, fields)
	if err != nil {
		return domain.Customer{}, err
	}
	if !ok {
		return domain.Customer{}, domain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) AddDevice(ctx context.Context, req domain.CreateDeviceRequest) (domain.Device, error) {
	customer, err := s.GetByID(ctx, domain.GetCustomerRequest{ID: req.CustomerID})
	if err != nil {
		return domain.Device{}, err
	}

	brand := strings.TrimSpace(req.Brand)
	model := strings.TrimSpace(req.Model)
	if brand == "" || model == "" {
		return domain.Device{}, domain.ErrInvalidDevice
	}

	now := s.clock.Now()
	device := domain.Device{
		ID:           s.genID.Generate(),
		OrgID:        customer.OrgID,
		CustomerID:   customer.ID,
		Brand:        brand,
		Model:        model,
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.devices.Create(ctx, &device); err != nil {
		return domain.Device{}, err
	}
	return device, nil
}

func (s *Service) ListDevices(ctx context.Context, customerID string) ([]domain.Device, error) {
	customer, err := s.GetByID(ctx, domain.GetCustomerRequest{ID: customerID})
	if err != nil {
		return nil, err
	}

	items, err := s.devices.Find(ctx,
		&domain.Device{OrgID: customer.OrgID, CustomerID: customer.ID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at"}),
	)
	if err != nil {
		return nil, err
	}

	devices := make([]domain.Device, 0, len(items))
	for _, item := range items {
		devices = append(devices, *item)
	}
	return devices, nil
}

func (s *Service) GetDevice(ctx context.Context, id string) (domain.Device, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Device{}, domain.ErrInvalidOrganization
	}
	deviceID, err := s.parseID(id)
	if err != nil {
		return domain.Device{}, err
	}

	item, err := s.devices.FindOne(ctx, &domain.Device{OrgID: orgID, ID: deviceID})
	if err != nil {
		return domain.Device{}, err
	}
	if item == nil {
		return domain.Device{}, domain.ErrNotFound
	}
	return *item, nil
}

// normalizeEmail lowercases the address; empty is allowed.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", nil
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
