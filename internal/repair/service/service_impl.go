package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/repairdesk/internal/clock"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/repairdesk/internal/inventory/domain"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	techniciandomain "github.com/smallbiznis/repairdesk/internal/technician/domain"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPriority = 3

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        repairdomain.Repository
	Clock       clock.Clock
	Numbers     numbering.Generator
	Customers   customerdomain.Service
	Technicians techniciandomain.Service
	Inventory   inventorydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        repairdomain.Repository
	clock       clock.Clock
	numbers     numbering.Generator
	customers   customerdomain.Service
	technicians techniciandomain.Service
	inventory   inventorydomain.Service
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("repair.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clock:       p.Clock,
		numbers:     p.Numbers,
		customers:   p.Customers,
		technicians: p.Technicians,
		inventory:   p.Inventory,
	}
}

func (s *Service) Create(ctx context.Context, req repairdomain.CreateTicketRequest) (*repairdomain.TicketDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, repairdomain.ErrInvalidOrganization
	}

	customer, err := s.customers.GetByID(ctx, customerdomain.GetCustomerRequest{ID: req.CustomerID})
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, customerdomain.ErrInvalidID) {
			return nil, repairdomain.ErrInvalidCustomer
		}
		return nil, err
	}

	deviceID, err := s.resolveDevice(ctx, customer.ID, req.DeviceID)
	if err != nil {
		return nil, err
	}
	technicianID, err := s.resolveTechnician(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}

	priority := req.PriorityLevel
	if priority == 0 {
		priority = defaultPriority
	}
	if priority < repairdomain.MinPriority || priority > repairdomain.MaxPriority {
		return nil, repairdomain.ErrInvalidPriority
	}

	now := s.clock.Now()
	intake := now
	if req.IntakeDate != nil {
		intake = req.IntakeDate.UTC()
	}

	ticket := repairdomain.Ticket{
		ID:                      s.genID.Generate(),
		OrgID:                   orgID,
		CustomerID:              customer.ID,
		DeviceID:                deviceID,
		TechnicianID:            technicianID,
		Status:                  repairdomain.StatusIntake,
		PriorityLevel:           priority,
		ProblemDescription:      strings.TrimSpace(req.ProblemDescription),
		IntakeDate:              intake,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
		IsUnderWarranty:         req.IsUnderWarranty,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	items := make([]repairdomain.LineItem, 0, len(req.Items))
	for _, input := range req.Items {
		item, err := s.buildItem(ctx, ticket, input, now)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	ticket.TotalCost = decimal.NewNullDecimal(repairdomain.Subtotal(items))

	if err := s.insertWithNumber(ctx, &ticket, items); err != nil {
		return nil, err
	}

	s.log.Info("repair ticket created",
		zap.String("org_id", orgID.String()),
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.Int("items", len(items)),
	)
	return detail(ticket, items), nil
}

// insertWithNumber retries with a fresh ticket number on unique collisions.
func (s *Service) insertWithNumber(ctx context.Context, ticket *repairdomain.Ticket, items []repairdomain.LineItem) error {
	for attempt := 1; attempt <= numbering.MaxAttempts; attempt++ {
		number, err := s.numbers.Next(numbering.TicketTemplate, ticket.CreatedAt)
		if err != nil {
			return err
		}
		ticket.TicketNumber = number

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.InsertTicket(ctx, ticket); err != nil {
				return err
			}
			for i := range items {
				if err := repo.InsertItem(ctx, &items[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			return nil
		}
		if !dbpkg.IsDuplicateKeyErr(err) {
			return err
		}
		s.log.Warn("ticket number collision, retrying",
			zap.String("ticket_number", number),
			zap.Int("attempt", attempt),
		)
	}
	return repairdomain.ErrTicketNumberExhausted
}

func (s *Service) resolveDevice(ctx context.Context, customerID snowflake.ID, raw string) (*snowflake.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	device, err := s.customers.GetDevice(ctx, raw)
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, customerdomain.ErrInvalidID) {
			return nil, repairdomain.ErrInvalidDevice
		}
		return nil, err
	}
	if device.CustomerID != customerID {
		return nil, repairdomain.ErrInvalidDevice
	}
	id := device.ID
	return &id, nil
}

func (s *Service) resolveTechnician(ctx context.Context, raw string) (*snowflake.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	tech, err := s.technicians.Get(ctx, raw)
	if err != nil {
		if errors.Is(err, techniciandomain.ErrNotFound) || errors.Is(err, techniciandomain.ErrInvalidID) {
			return nil, repairdomain.ErrInvalidTechnician
		}
		return nil, err
	}
	if !tech.IsActive {
		return nil, repairdomain.ErrInvalidTechnician
	}
	id := tech.ID
	return &id, nil
}

func (s *Service) buildItem(ctx context.Context, ticket repairdomain.Ticket, input repairdomain.LineItemInput, now time.Time) (repairdomain.LineItem, error) {
	item := repairdomain.LineItem{
		ID:          s.genID.Generate(),
		OrgID:       ticket.OrgID,
		RepairID:    ticket.ID,
		Description: strings.TrimSpace(input.Description),
		Quantity:    input.Quantity,
		ItemType:    repairdomain.ItemType(strings.ToLower(strings.TrimSpace(input.ItemType))),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.UnitPrice != nil {
		item.UnitPrice = *input.UnitPrice
	}

	if raw := strings.TrimSpace(input.InventoryItemID); raw != "" {
		stock, err := s.inventory.Get(ctx, raw)
		if err != nil {
			return repairdomain.LineItem{}, err
		}
		stockID := stock.ID
		item.InventoryItemID = &stockID
		if input.UnitPrice == nil {
			item.UnitPrice = stock.UnitPrice
		}
		if item.Description == "" {
			item.Description = stock.Name
		}
		if item.ItemType == "" {
			item.ItemType = repairdomain.ItemTypePart
		}
	}
	if item.ItemType == "" {
		item.ItemType = repairdomain.ItemTypeService
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}

	if err := item.Validate(); err != nil {
		return repairdomain.LineItem{}, err
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (*repairdomain.TicketDetail, error) {
	orgID, ticketID, err := s.scope(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket, items, err := s.Load(ctx, orgID, ticketID)
	if err != nil {
		return nil, err
	}
	return detail(*ticket, items), nil
}

func (s *Service) List(ctx context.Context, req repairdomain.ListRequest) (*repairdomain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, repairdomain.ErrInvalidOrganization
	}

	filter := repairdomain.ListFilter{ActiveOnly: req.ActiveOnly}
	if strings.TrimSpace(req.Status) != "" {
		status, err := repairdomain.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.TechnicianID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, repairdomain.ErrInvalidTechnician
		}
		filter.TechnicianID = id
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, repairdomain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}

	pageSize := pagination.NormalizeSize(int(req.PageSize))
	items, err := s.repo.ListTickets(ctx, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(t *repairdomain.Ticket) pagination.Cursor {
		return pagination.NewCursor(t.ID.String(), t.CreatedAt)
	})

	resp := &repairdomain.ListResponse{Tickets: make([]repairdomain.TicketView, 0, len(items))}
	for _, item := range items {
		resp.Tickets = append(resp.Tickets, repairdomain.NewTicketView(*item))
	}
	resp.PageInfo = pageInfo
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req repairdomain.UpdateTicketRequest) (*repairdomain.Ticket, error) {
	orgID, ticketID, err := s.scope(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.TechnicianID != nil {
		technicianID, err := s.resolveTechnician(ctx, *req.TechnicianID)
		if err != nil {
			return nil, err
		}
		fields["technician_id"] = technicianID
	}
	if req.PriorityLevel != nil {
		if *req.PriorityLevel < repairdomain.MinPriority || *req.PriorityLevel > repairdomain.MaxPriority {
			return nil, repairdomain.ErrInvalidPriority
		}
		fields["priority_level"] = *req.PriorityLevel
	}
	if req.ProblemDescription != nil {
		fields["problem_description"] = strings.TrimSpace(*req.ProblemDescription)
	}
	if req.EstimatedCompletionDate != nil {
		fields["estimated_completion_date"] = req.EstimatedCompletionDate.UTC()
	}
	if req.IsUnderWarranty != nil {
		fields["is_under_warranty"] = *req.IsUnderWarranty
	}
	if req.CustomerApproval != nil {
		fields["customer_approval"] = *req.CustomerApproval
	}

	return s.updateTicket(ctx, orgID, ticketID, fields)
}

// UpdateStatus writes any known status. Entering completed stamps the actual
// completion date once.
func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (*repairdomain.Ticket, error) {
	orgID, ticketID, err := s.scope(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := repairdomain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	ticket, err := s.findTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"status": next}
	if next == repairdomain.StatusCompleted && ticket.ActualCompletionDate == nil {
		fields["actual_completion_date"] = s.clock.Now()
	}

	updated, err := s.updateTicket(ctx, orgID, ticketID, fields)
	if err != nil {
		return nil, err
	}
	s.log.Info("repair status changed",
		zap.String("ticket_id", ticketID.String()),
		zap.String("from", string(ticket.Status)),
		zap.String("to", string(next)),
	)
	return updated, nil
}

func (s *Service) ListUrgent(ctx context.Context) ([]repairdomain.Ticket, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, repairdomain.ErrInvalidOrganization
	}
	active, err := s.repo.ListActive(ctx, orgID)
	if err != nil {
		return nil, err
	}

	urgent := make([]repairdomain.Ticket, 0, len(active))
	for _, t := range active {
		if repairdomain.IsUrgent(t) {
			urgent = append(urgent, t)
		}
	}
	return urgent, nil
}

func (s *Service) Summary(ctx context.Context) (*repairdomain.Summary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, repairdomain.ErrInvalidOrganization
	}
	counts, err := s.repo.CountByStatus(ctx, orgID)
	if err != nil {
		return nil, err
	}
	urgent, err := s.ListUrgent(ctx)
	if err != nil {
		return nil, err
	}

	summary := &repairdomain.Summary{
		Urgent:   int64(len(urgent)),
		ByStatus: make(map[repairdomain.Status]int64, len(repairdomain.Statuses)),
	}
	for _, status := range repairdomain.Statuses {
		n := counts[status]
		summary.ByStatus[status] = n
		if repairdomain.IsActive(status) {
			summary.Active += n
		}
	}
	return summary, nil
}

// Load implements repairdomain.Reader.
func (s *Service) Load(ctx context.Context, orgID, repairID snowflake.ID) (*repairdomain.Ticket, []repairdomain.LineItem, error) {
	ticket, err := s.findTicket(ctx, orgID, repairID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.ListItems(ctx, orgID, repairID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, items, nil
}

// FinalizeTotal implements repairdomain.Reader. Once set, item edits no
// longer overwrite the ticket total.
func (s *Service) FinalizeTotal(ctx context.Context, orgID, repairID snowflake.ID, total decimal.Decimal) error {
	return s.repo.UpdateTicket(ctx, orgID, repairID, map[string]any{
		"total_cost":     decimal.NewNullDecimal(total),
		"cost_finalized": true,
		"updated_at":     s.clock.Now(),
	})
}

func (s *Service) scope(ctx context.Context, id string) (snowflake.ID, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, 0, repairdomain.ErrInvalidOrganization
	}
	ticketID, err := parseID(id)
	if err != nil {
		return 0, 0, err
	}
	return orgID, ticketID, nil
}

func (s *Service) findTicket(ctx context.Context, orgID, id snowflake.ID) (*repairdomain.Ticket, error) {
	ticket, err := s.repo.FindTicket(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, repairdomain.ErrNotFound
	}
	return ticket, nil
}

func (s *Service) updateTicket(ctx context.Context, orgID, id snowflake.ID, fields map[string]any) (*repairdomain.Ticket, error) {
	if _, err := s.findTicket(ctx, orgID, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.UpdateTicket(ctx, orgID, id, fields); err != nil {
			return nil, err
		}
	}
	return s.findTicket(ctx, orgID, id)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, repairdomain.ErrInvalidID
	}
	return id, nil
}

func detail(ticket repairdomain.Ticket, items []repairdomain.LineItem) *repairdomain.TicketDetail {
	if items == nil {
		items = []repairdomain.LineItem{}
	}
	return &repairdomain.TicketDetail{
		TicketView: repairdomain.NewTicketView(ticket),
		Items:      items,
		Subtotal:   repairdomain.Subtotal(items),
	}
}

var (
	_ repairdomain.Service = (*Service)(nil)
	_ repairdomain.Reader  = (*Service)(nil)
)
