package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/repairdesk/internal/clock"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	customerrepository "github.com/smallbiznis/repairdesk/internal/customer/repository"
	customerservice "github.com/smallbiznis/repairdesk/internal/customer/service"
	inventorydomain "github.com/smallbiznis/repairdesk/internal/inventory/domain"
	inventoryservice "github.com/smallbiznis/repairdesk/internal/inventory/service"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	"github.com/smallbiznis/repairdesk/internal/repair/repository"
	techniciandomain "github.com/smallbiznis/repairdesk/internal/technician/domain"
	technicianservice "github.com/smallbiznis/repairdesk/internal/technician/service"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc         *Service
	customers   customerdomain.Service
	technicians techniciandomain.Service
	inventory   inventorydomain.Service
	clock       *clock.FakeClock
	ctx         context.Context
}

func newFixture(t *testing.T, numbers numbering.Generator) *fixture {
	t.Helper()
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&customerdomain.Customer{},
		&customerdomain.Device{},
		&techniciandomain.Technician{},
		&inventorydomain.Item{},
		&repairdomain.Ticket{},
		&repairdomain.LineItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	if numbers == nil {
		numbers = numbering.NewGenerator()
	}

	f := &fixture{
		clock: clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)),
		ctx:   orgcontext.WithOrgID(context.Background(), 42),
	}
	f.customers = customerservice.New(customerservice.Params{
		DB:      conn,
		Log:     log,
		GenID:   node,
		Clock:   f.clock,
		Repo:    customerrepository.Provide(),
		Devices: pkgrepository.ProvideStore[customerdomain.Device](conn),
	})
	f.technicians = technicianservice.New(technicianservice.Params{
		Log:   log,
		GenID: node,
		Store: pkgrepository.ProvideStore[techniciandomain.Technician](conn),
	})
	f.inventory = inventoryservice.New(inventoryservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Store: pkgrepository.ProvideStore[inventorydomain.Item](conn),
	})
	f.svc = New(Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Repo:        repository.NewRepository(conn),
		Clock:       f.clock,
		Numbers:     numbers,
		Customers:   f.customers,
		Technicians: f.technicians,
		Inventory:   f.inventory,
	})
	return f
}

func (f *fixture) customer(t *testing.T) customerdomain.Customer {
	t.Helper()
	c, err := f.customers.Create(f.ctx, customerdomain.CreateCustomerRequest{Name: "Dana Reyes", Phone: "555-0142"})
	require.NoError(t, err)
	return c
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestCreateTicketWithItems(t *testing.T) {
	f := newFixture(t, nil)
	customer := f.customer(t)
	device, err := f.customers.AddDevice(f.ctx, customerdomain.CreateDeviceRequest{CustomerID: customer.ID.String(), Brand: "Dell", Model: "XPS 13"})
	require.NoError(t, err)
	tech, err := f.technicians.Create(f.ctx, techniciandomain.CreateRequest{Name: "Sam"})
	require.NoError(t, err)
	ssd, err := f.inventory.Create(f.ctx, inventorydomain.CreateRequest{SKU: "SSD-1TB", Name: "SSD 1TB", UnitPrice: decimal.RequireFromString("49.99"), QuantityOnHand: 4})
	require.NoError(t, err)

	got, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{
		CustomerID:         customer.ID.String(),
		DeviceID:           device.ID.String(),
		TechnicianID:       tech.ID.String(),
		ProblemDescription: "  no boot  ",
		Items: []repairdomain.LineItemInput{
			{InventoryItemID: ssd.ID.String(), Quantity: 2},
			{Description: "Labor", Quantity: 1, UnitPrice: price("25.00")},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got.TicketNumber, "RPR-20260304-"))
	assert.Equal(t, repairdomain.StatusIntake, got.Status)
	assert.Equal(t, 3, got.PriorityLevel)
	assert.Equal(t, "no boot", got.ProblemDescription)
	assert.False(t, got.IsUrgent)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "SSD 1TB", got.Items[0].Description)
	assert.Equal(t, repairdomain.ItemTypePart, got.Items[0].ItemType)
	assert.Equal(t, repairdomain.ItemTypeService, got.Items[1].ItemType)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("124.98")))

	loaded, err := f.svc.Get(f.ctx, got.ID.String())
	require.NoError(t, err)
	require.True(t, loaded.TotalCost.Valid)
	assert.True(t, loaded.TotalCost.Decimal.Equal(decimal.RequireFromString("124.98")))
	assert.Len(t, loaded.Items, 2)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.customer(t)
	other := f.customer(t)
	device, err := f.customers.AddDevice(f.ctx, customerdomain.CreateDeviceRequest{CustomerID: other.ID.String(), Brand: "HP", Model: "Envy"})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: owner.ID.String(), DeviceID: device.ID.String()})
	assert.ErrorIs(t, err, repairdomain.ErrInvalidDevice)

	_, err = f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: "123"})
	assert.ErrorIs(t, err, repairdomain.ErrInvalidCustomer)

	_, err = f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: owner.ID.String(), PriorityLevel: 9})
	assert.ErrorIs(t, err, repairdomain.ErrInvalidPriority)

	_, err = f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{
		CustomerID: owner.ID.String(),
		Items:      []repairdomain.LineItemInput{{Description: "Labor", Quantity: 1, UnitPrice: price("-1")}},
	})
	assert.ErrorIs(t, err, repairdomain.ErrInvalidUnitPrice)

	tech, err := f.technicians.Create(f.ctx, techniciandomain.CreateRequest{Name: "Lee"})
	require.NoError(t, err)
	require.NoError(t, f.technicians.Deactivate(f.ctx, tech.ID.String()))
	_, err = f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: owner.ID.String(), TechnicianID: tech.ID.String()})
	assert.ErrorIs(t, err, repairdomain.ErrInvalidTechnician)

	_, err = f.svc.Create(context.Background(), repairdomain.CreateTicketRequest{CustomerID: owner.ID.String()})
	assert.ErrorIs(t, err, repairdomain.ErrInvalidOrganization)
}

func TestUrgencyFollowsStatus(t *testing.T) {
	f := newFixture(t, nil)
	customer := f.customer(t)

	ticket, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String(), PriorityLevel: 1})
	require.NoError(t, err)
	assert.True(t, ticket.IsUrgent)
	_, err = f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String(), PriorityLevel: 4})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(f.ctx, ticket.ID.String(), "in_repair")
	require.NoError(t, err)
	assert.True(t, repairdomain.IsUrgent(*updated))
	assert.Nil(t, updated.ActualCompletionDate)

	urgent, err := f.svc.ListUrgent(f.ctx)
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, ticket.ID, urgent[0].ID)

	f.clock.Advance(48 * time.Hour)
	done, err := f.svc.UpdateStatus(f.ctx, ticket.ID.String(), "completed")
	require.NoError(t, err)
	assert.False(t, repairdomain.IsUrgent(*done))
	require.NotNil(t, done.ActualCompletionDate)
	assert.True(t, done.ActualCompletionDate.Equal(f.clock.Now()))

	urgent, err = f.svc.ListUrgent(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, urgent)

	summary, err := f.svc.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Active)
	assert.Equal(t, int64(0), summary.Urgent)
	assert.Equal(t, int64(1), summary.ByStatus[repairdomain.StatusCompleted])
	assert.Equal(t, int64(1), summary.ByStatus[repairdomain.StatusIntake])

	_, err = f.svc.UpdateStatus(f.ctx, ticket.ID.String(), "shipped")
	assert.ErrorIs(t, err, repairdomain.ErrInvalidStatus)
}

func TestListTicketsFiltersAndPages(t *testing.T) {
	f := newFixture(t, nil)
	customer := f.customer(t)

	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String()})
		require.NoError(t, err)
	}

	first, err := f.svc.List(f.ctx, repairdomain.ListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Tickets, 2)
	assert.True(t, first.HasMore)

	second, err := f.svc.List(f.ctx, repairdomain.ListRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Tickets, 1)
	assert.False(t, second.HasMore)

	byStatus, err := f.svc.List(f.ctx, repairdomain.ListRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Empty(t, byStatus.Tickets)
}

func TestTicketNumberCollisionRetries(t *testing.T) {
	var calls atomic.Int32
	numbers := numbering.GeneratorFunc(func(string, time.Time) (string, error) {
		if calls.Add(1) <= 2 {
			return "RPR-FIXED", nil
		}
		return "RPR-FRESH", nil
	})
	f := newFixture(t, numbers)
	customer := f.customer(t)

	first, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "RPR-FIXED", first.TicketNumber)

	second, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "RPR-FRESH", second.TicketNumber)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTicketNumberExhausted(t *testing.T) {
	numbers := numbering.GeneratorFunc(func(string, time.Time) (string, error) {
		return "RPR-SAME", nil
	})
	f := newFixture(t, numbers)
	customer := f.customer(t)

	_, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String()})
	assert.ErrorIs(t, err, repairdomain.ErrTicketNumberExhausted)
}

func TestLineItemsKeepTotalCurrent(t *testing.T) {
	f := newFixture(t, nil)
	customer := f.customer(t)
	ticket, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String()})
	require.NoError(t, err)
	id := ticket.ID.String()

	total := func() decimal.Decimal {
		got, err := f.svc.Get(f.ctx, id)
		require.NoError(t, err)
		require.True(t, got.TotalCost.Valid)
		return got.TotalCost.Decimal
	}
	assert.True(t, total().IsZero())

	item, err := f.svc.AddItem(f.ctx, id, repairdomain.LineItemInput{Description: "Screen", Quantity: 1, UnitPrice: price("10.50"), ItemType: "part"})
	require.NoError(t, err)
	_, err = f.svc.AddItem(f.ctx, id, repairdomain.LineItemInput{Description: "Labor", Quantity: 1, UnitPrice: price("15.00")})
	require.NoError(t, err)
	assert.True(t, total().Equal(decimal.RequireFromString("25.50")))

	qty := 3
	updated, err := f.svc.UpdateItem(f.ctx, repairdomain.UpdateItemRequest{RepairID: id, ItemID: item.ID.String(), Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.True(t, total().Equal(decimal.RequireFromString("46.50")))

	zero := 0
	_, err = f.svc.UpdateItem(f.ctx, repairdomain.UpdateItemRequest{RepairID: id, ItemID: item.ID.String(), Quantity: &zero})
	assert.ErrorIs(t, err, repairdomain.ErrInvalidQuantity)

	completed, err := f.svc.CompleteItem(f.ctx, id, item.ID.String())
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)

	require.NoError(t, f.svc.RemoveItem(f.ctx, id, item.ID.String()))
	assert.True(t, total().Equal(decimal.RequireFromString("15.00")))

	err = f.svc.RemoveItem(f.ctx, id, item.ID.String())
	assert.ErrorIs(t, err, repairdomain.ErrItemNotFound)
}

func TestFinalizedTotalIsNotRecomputed(t *testing.T) {
	f := newFixture(t, nil)
	customer := f.customer(t)
	ticket, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{
		CustomerID: customer.ID.String(),
		Items:      []repairdomain.LineItemInput{{Description: "Labor", Quantity: 1, UnitPrice: price("25.50")}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.FinalizeTotal(f.ctx, 42, ticket.ID, decimal.RequireFromString("28.05")))

	_, err = f.svc.AddItem(f.ctx, ticket.ID.String(), repairdomain.LineItemInput{Description: "Extra", Quantity: 1, UnitPrice: price("5")})
	require.NoError(t, err)

	loaded, items, err := f.svc.Load(f.ctx, 42, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, loaded.CostFinalized)
	assert.True(t, loaded.TotalCost.Decimal.Equal(decimal.RequireFromString("28.05")))
}

func TestTicketsAreOrgScoped(t *testing.T) {
	f := newFixture(t, nil)
	customer := f.customer(t)
	ticket, err := f.svc.Create(f.ctx, repairdomain.CreateTicketRequest{CustomerID: customer.ID.String()})
	require.NoError(t, err)

	other := orgcontext.WithOrgID(context.Background(), 43)
	_, err = f.svc.Get(other, ticket.ID.String())
	assert.ErrorIs(t, err, repairdomain.ErrNotFound)

	_, err = f.svc.Get(f.ctx, "not-an-id")
	assert.ErrorIs(t, err, repairdomain.ErrInvalidID)
}
