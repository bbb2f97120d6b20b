package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/document/compiler"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
	"github.com/smallbiznis/repairdesk/internal/document/render"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	organizationdomain "github.com/smallbiznis/repairdesk/internal/organization/domain"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const day = 24 * time.Hour

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     config.Config
	Repo       documentdomain.Repository
	Clock      clock.Clock
	Numbers    numbering.Generator
	Repairs    repairdomain.Reader
	Currencies currencydomain.Service
	Taxes      taxdomain.Resolver
	Customers     customerdomain.Service     `optional:"true"`
	Organizations organizationdomain.Service `optional:"true"`
	Renderer      render.Renderer            `optional:"true"`
	Metrics       *obsmetrics.Metrics        `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       documentdomain.Repository
	clock      clock.Clock
	numbers    numbering.Generator
	repairs    repairdomain.Reader
	currencies currencydomain.Service
	taxes      taxdomain.Resolver
	customers  customerdomain.Service
	orgs       organizationdomain.Service
	renderer   render.Renderer
	metrics    *obsmetrics.Metrics

	quoteTerm   time.Duration
	invoiceTerm time.Duration
}

func New(p Params) documentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("document.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clock:       p.Clock,
		numbers:     p.Numbers,
		repairs:     p.Repairs,
		currencies:  p.Currencies,
		taxes:       p.Taxes,
		customers:   p.Customers,
		orgs:        p.Organizations,
		renderer:    p.Renderer,
		metrics:     p.Metrics,
		quoteTerm:   time.Duration(p.Config.Documents.QuoteValidityDays) * day,
		invoiceTerm: time.Duration(p.Config.Documents.InvoiceDueDays) * day,
	}
}

func (s *Service) CreateQuote(ctx context.Context, req documentdomain.CreateRequest) (*documentdomain.View, error) {
	return s.create(ctx, documentdomain.KindQuote, req)
}

// CreateInvoice also fixes the ticket's total cost to the invoice total.
func (s *Service) CreateInvoice(ctx context.Context, req documentdomain.CreateRequest) (*documentdomain.View, error) {
	return s.create(ctx, documentdomain.KindInvoice, req)
}

func (s *Service) create(ctx context.Context, kind documentdomain.Kind, req documentdomain.CreateRequest) (*documentdomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, documentdomain.ErrInvalidOrganization
	}
	repairID, err := parseID(req.RepairID)
	if err != nil {
		return nil, err
	}

	ticket, items, err := s.repairs.Load(ctx, orgID, repairID)
	if err != nil {
		return nil, err
	}

	resolution, err := s.currencies.ResolveForOrg(ctx, orgID, req.CurrencyCode)
	if err != nil {
		return nil, err
	}

	var rate *taxdomain.TaxRate
	if req.Tax == nil {
		rate, err = s.defaultRate(ctx, orgID)
		if err != nil {
			return nil, err
		}
	}

	term := s.quoteTerm
	if kind == documentdomain.KindInvoice {
		term = s.invoiceTerm
	}

	doc, err := compiler.Compile(compiler.Input{
		Kind:        kind,
		Ticket:      *ticket,
		Items:       items,
		Currency:    resolution.Currency,
		TaxRate:     rate,
		ExplicitTax: req.Tax,
		IssuedAt:    s.clock.Now(),
		Term:        term,
		Notes:       strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	doc.ID = s.genID.Generate()
	doc.CreatedAt = doc.IssuedAt
	doc.UpdatedAt = doc.IssuedAt

	if err := s.insertWithNumber(ctx, &doc); err != nil {
		return nil, err
	}
	s.metrics.RecordDocumentCompiled(ctx, string(kind), string(doc.TaxSource))

	if kind == documentdomain.KindInvoice {
		if err := s.repairs.FinalizeTotal(ctx, orgID, ticket.ID, doc.Total); err != nil {
			return nil, err
		}
	}

	s.log.Info("document issued",
		zap.String("org_id", orgID.String()),
		zap.String("kind", string(kind)),
		zap.String("document_number", doc.DocumentNumber),
		zap.String("repair_id", ticket.ID.String()),
		zap.String("currency", doc.CurrencyCode),
		zap.String("currency_source", string(resolution.Source)),
		zap.String("tax_source", string(doc.TaxSource)),
		zap.String("total", doc.Total.String()),
	)

	snapshot := compiler.Snapshot(items)
	view := compiler.NewView(doc, snapshot)
	return &view, nil
}

// defaultRate returns nil when the org has no default rate. Documents are
// still issued in that case, with TaxSource none.
func (s *Service) defaultRate(ctx context.Context, orgID snowflake.ID) (*taxdomain.TaxRate, error) {
	rate, err := s.taxes.ResolveDefault(ctx, orgID)
	if err == nil {
		return rate, nil
	}
	if errors.Is(err, taxdomain.ErrNoDefaultTaxRate) {
		s.log.Warn("no default tax rate, issuing without tax", zap.String("org_id", orgID.String()))
		s.metrics.RecordTaxFallback(ctx, orgID.String())
		return nil, nil
	}
	return nil, err
}

// insertWithNumber deactivates the previous active document of the same kind
// and inserts doc, drawing a fresh number on each unique collision.
func (s *Service) insertWithNumber(ctx context.Context, doc *documentdomain.Document) error {
	template := numbering.QuoteTemplate
	if doc.Kind == documentdomain.KindInvoice {
		template = numbering.InvoiceTemplate
	}

	for attempt := 1; attempt <= numbering.MaxAttempts; attempt++ {
		number, err := s.numbers.Next(template, doc.IssuedAt)
		if err != nil {
			return err
		}
		doc.DocumentNumber = number

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.repo.DeactivateActive(ctx, tx, doc.OrgID, doc.RepairID, doc.Kind); err != nil {
				return err
			}
			return s.repo.Insert(ctx, tx, doc)
		})
		if err == nil {
			return nil
		}
		if !dbpkg.IsDuplicateKeyErr(err) {
			return err
		}
		s.metrics.RecordNumberCollision(ctx, string(doc.Kind))
		s.log.Warn("document number collision, retrying",
			zap.String("document_number", number),
			zap.Int("attempt", attempt),
		)
	}
	return documentdomain.ErrNumberExhausted
}

// Get reads the document through its snapshot. A snapshot that cannot be
// decoded is replaced by the ticket's live items and flagged on the view.
func (s *Service) Get(ctx context.Context, id string) (*documentdomain.View, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, doc)
}

func (s *Service) view(ctx context.Context, doc *documentdomain.Document) (*documentdomain.View, error) {
	items, err := compiler.DecodeSnapshot(doc.ItemsSnapshot)
	if err == nil {
		view := compiler.NewView(*doc, items)
		return &view, nil
	}

	s.log.Warn("items snapshot unreadable, using live items",
		zap.String("document_id", doc.ID.String()),
		zap.Error(err),
	)
	_, live, loadErr := s.repairs.Load(ctx, doc.OrgID, doc.RepairID)
	if loadErr != nil {
		return nil, loadErr
	}
	view := compiler.NewView(*doc, compiler.Snapshot(live))
	view.SnapshotFallback = true
	return &view, nil
}

func (s *Service) ListByRepair(ctx context.Context, repairID string) ([]documentdomain.Document, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, documentdomain.ErrInvalidOrganization
	}
	id, err := parseID(repairID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListByRepair(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []documentdomain.Document{}
	}
	return docs, nil
}

// Regenerate rebuilds an active, untouched document from the ticket's current items,
// keeping its number, dates and currency.
func (s *Service) Regenerate(ctx context.Context, id string) (*documentdomain.View, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !editable(*doc) {
		return nil, documentdomain.ErrStatusTransition
	}

	ticket, items, err := s.repairs.Load(ctx, doc.OrgID, doc.RepairID)
	if err != nil {
		return nil, err
	}

	in := compiler.Input{
		Kind:   doc.Kind,
		Ticket: *ticket,
		Items:  items,
		Currency: currencydomain.Currency{
			Code:          doc.CurrencyCode,
			Symbol:        doc.CurrencySymbol,
			DecimalDigits: doc.DecimalDigits,
		},
		IssuedAt: doc.IssuedAt,
		Notes:    doc.Notes,
	}
	if doc.TaxSource == documentdomain.TaxSourceExplicit {
		tax := doc.Tax
		in.ExplicitTax = &tax
	} else {
		in.TaxRate, err = s.defaultRate(ctx, doc.OrgID)
		if err != nil {
			return nil, err
		}
	}

	rebuilt, err := compiler.Compile(in)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, s.db, doc.OrgID, doc.ID, map[string]any{
		"subtotal":       rebuilt.Subtotal,
		"tax":            rebuilt.Tax,
		"total":          rebuilt.Total,
		"tax_rate":       rebuilt.TaxRate,
		"tax_source":     rebuilt.TaxSource,
		"items_snapshot": rebuilt.ItemsSnapshot,
		"updated_at":     now,
	}); err != nil {
		return nil, err
	}
	if doc.Kind == documentdomain.KindInvoice {
		if err := s.repairs.FinalizeTotal(ctx, doc.OrgID, doc.RepairID, rebuilt.Total); err != nil {
			return nil, err
		}
	}

	doc.Subtotal = rebuilt.Subtotal
	doc.Tax = rebuilt.Tax
	doc.Total = rebuilt.Total
	doc.TaxRate = rebuilt.TaxRate
	doc.TaxSource = rebuilt.TaxSource
	doc.ItemsSnapshot = rebuilt.ItemsSnapshot
	doc.UpdatedAt = now

	s.log.Info("document regenerated",
		zap.String("document_number", doc.DocumentNumber),
		zap.String("total", doc.Total.String()),
	)
	view := compiler.NewView(*doc, compiler.Snapshot(items))
	return &view, nil
}

// editable reports whether doc may still be rebuilt: it is the ticket's active
// document of its kind and nothing has been decided or paid on it.
func editable(doc documentdomain.Document) bool {
	if !doc.IsActive {
		return false
	}
	switch doc.Kind {
	case documentdomain.KindQuote:
		return doc.Status == documentdomain.QuoteStatusPending
	case documentdomain.KindInvoice:
		return doc.Status == documentdomain.InvoiceStatusUnpaid && doc.AmountPaid.IsZero()
	default:
		return false
	}
}

// UpdateQuoteStatus records the customer's decision on a pending quote.
func (s *Service) UpdateQuoteStatus(ctx context.Context, id string, status string) (*documentdomain.View, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Kind != documentdomain.KindQuote {
		return nil, documentdomain.ErrInvalidKind
	}
	next, err := documentdomain.ParseQuoteDecision(strings.ToLower(strings.TrimSpace(status)))
	if err != nil {
		return nil, err
	}
	if doc.Status != documentdomain.QuoteStatusPending {
		return nil, documentdomain.ErrStatusTransition
	}

	doc.Status = next
	doc.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, doc.OrgID, doc.ID, map[string]any{
		"status":     doc.Status,
		"updated_at": doc.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return s.view(ctx, doc)
}

// RecordPayment applies a payment to an invoice. Amounts are compared at the
// currency's precision, so paying the displayed balance settles it. The
// balance is read and written back under a row lock in one transaction.
func (s *Service) RecordPayment(ctx context.Context, req documentdomain.PaymentRequest) (*documentdomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, documentdomain.ErrInvalidOrganization
	}
	docID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, documentdomain.ErrInvalidAmount
	}

	var doc *documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if locked == nil {
			return documentdomain.ErrNotFound
		}
		if err := s.applyPayment(ctx, tx, locked, req); err != nil {
			return err
		}
		doc = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice payment recorded",
		zap.String("document_number", doc.DocumentNumber),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(doc.Status)),
	)
	return s.view(ctx, doc)
}

func (s *Service) applyPayment(ctx context.Context, tx *gorm.DB, doc *documentdomain.Document, req documentdomain.PaymentRequest) error {
	if doc.Kind != documentdomain.KindInvoice {
		return documentdomain.ErrInvalidKind
	}
	if doc.Status == documentdomain.InvoiceStatusPaid {
		return documentdomain.ErrAlreadyPaid
	}

	digits := int32(doc.DecimalDigits)
	if req.Amount.GreaterThan(doc.Balance().Round(digits)) {
		return documentdomain.ErrOverpayment
	}

	now := s.clock.Now()
	paid := doc.AmountPaid.Add(req.Amount)
	fields := map[string]any{
		"amount_paid": paid,
		"updated_at":  now,
	}
	status := documentdomain.InvoiceStatusPartial
	if paid.Round(digits).GreaterThanOrEqual(doc.Total.Round(digits)) {
		status = documentdomain.InvoiceStatusPaid
		fields["paid_at"] = now
		doc.PaidAt = &now
	}
	fields["status"] = status
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		fields["payment_reference"] = ref
		doc.PaymentReference = ref
	}

	if err := s.repo.Update(ctx, tx, doc.OrgID, doc.ID, fields); err != nil {
		return err
	}
	doc.AmountPaid = paid
	doc.Status = status
	doc.UpdatedAt = now
	return nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, error) {
	if s.renderer == nil {
		return nil, documentdomain.ErrRendererUnavailable
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, doc)
	if err != nil {
		return nil, err
	}

	header := render.Header{}
	ticket, _, err := s.repairs.Load(ctx, doc.OrgID, doc.RepairID)
	if err != nil {
		return nil, err
	}
	header.TicketNumber = ticket.TicketNumber
	if s.orgs != nil {
		org, err := s.orgs.GetByID(ctx, doc.OrgID.String())
		switch {
		case err == nil:
			header.OrganizationName = org.Name
		case !errors.Is(err, organizationdomain.ErrNotFound):
			return nil, err
		}
	}
	if s.customers != nil {
		customer, err := s.customers.GetByID(ctx, customerdomain.GetCustomerRequest{ID: ticket.CustomerID.String()})
		switch {
		case err == nil:
			header.CustomerName = customer.Name
		case !errors.Is(err, customerdomain.ErrNotFound):
			return nil, err
		}
	}

	return s.renderer.Render(ctx, *view, header)
}

func (s *Service) find(ctx context.Context, id string) (*documentdomain.Document, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, documentdomain.ErrInvalidOrganization
	}
	docID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, s.db, orgID, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, documentdomain.ErrNotFound
	}
	return doc, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, documentdomain.ErrInvalidID
	}
	return id, nil
}

var _ documentdomain.Service = (*Service)(nil)
