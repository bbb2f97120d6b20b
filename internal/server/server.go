package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/repairdesk/internal/backfill"
	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/currency"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	"github.com/smallbiznis/repairdesk/internal/customer"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/document"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
	"github.com/smallbiznis/repairdesk/internal/inventory"
	inventorydomain "github.com/smallbiznis/repairdesk/internal/inventory/domain"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	"github.com/smallbiznis/repairdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/repairdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/repairdesk/internal/observability/tracing"
	"github.com/smallbiznis/repairdesk/internal/organization"
	organizationdomain "github.com/smallbiznis/repairdesk/internal/organization/domain"
	"github.com/smallbiznis/repairdesk/internal/repair"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	"github.com/smallbiznis/repairdesk/internal/tax"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	"github.com/smallbiznis/repairdesk/internal/technician"
	techniciandomain "github.com/smallbiznis/repairdesk/internal/technician/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	numbering.Module,
	organization.Module,
	currency.Module,
	tax.Module,
	customer.Module,
	technician.Module,
	inventory.Module,
	repair.Module,
	document.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	organizationSvc organizationdomain.Service
	currencySvc     currencydomain.Service
	taxSvc          taxdomain.Service
	customerSvc     customerdomain.Service
	technicianSvc   techniciandomain.Service
	inventorySvc    inventorydomain.Service
	repairSvc       repairdomain.Service
	documentSvc     documentdomain.Service
	backfill        *backfill.Migrator
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	OrganizationSvc organizationdomain.Service
	CurrencySvc     currencydomain.Service
	TaxSvc          taxdomain.Service
	CustomerSvc     customerdomain.Service
	TechnicianSvc   techniciandomain.Service
	InventorySvc    inventorydomain.Service
	RepairSvc       repairdomain.Service
	DocumentSvc     documentdomain.Service
	Backfill        *backfill.Migrator
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		organizationSvc: p.OrganizationSvc,
		currencySvc:     p.CurrencySvc,
		taxSvc:          p.TaxSvc,
		customerSvc:     p.CustomerSvc,
		technicianSvc:   p.TechnicianSvc,
		inventorySvc:    p.InventorySvc,
		repairSvc:       p.RepairSvc,
		documentSvc:     p.DocumentSvc,
		backfill:        p.Backfill,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Organizations --------
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations", s.ListOrganizations)
	api.GET("/organizations/:id", s.GetOrganizationByID)
	api.POST("/organizations/:id/backfill", s.BackfillOrganization)

	org := api.Group("", OrgContext())

	// -------- Currencies --------
	org.GET("/currencies", s.ListCurrencies)
	org.POST("/currencies", s.CreateCurrency)
	org.GET("/currencies/resolve", s.ResolveCurrency)
	org.GET("/currencies/:code/symbol", s.CurrencySymbol)
	org.POST("/currencies/:code/default", s.SetDefaultCurrency)

	// -------- Tax rates --------
	org.GET("/tax-rates", s.ListTaxRates)
	org.POST("/tax-rates", s.CreateTaxRate)
	org.GET("/tax-rates/resolve", s.ResolveTaxRate)
	org.POST("/tax-rates/:id/default", s.SetDefaultTaxRate)

	// -------- Customers --------
	org.GET("/customers", s.ListCustomers)
	org.POST("/customers", s.CreateCustomer)
	org.GET("/customers/:id", s.GetCustomerByID)
	org.PATCH("/customers/:id", s.UpdateCustomer)
	org.GET("/customers/:id/devices", s.ListDevices)
	org.POST("/customers/:id/devices", s.AddDevice)

	// -------- Technicians --------
	org.GET("/technicians", s.ListTechnicians)
	org.POST("/technicians", s.CreateTechnician)
	org.GET("/technicians/:id", s.GetTechnicianByID)
	org.POST("/technicians/:id/deactivate", s.DeactivateTechnician)

	// -------- Inventory --------
	org.GET("/inventory", s.ListInventoryItems)
	org.POST("/inventory", s.CreateInventoryItem)
	org.GET("/inventory/:id", s.GetInventoryItem)
	org.POST("/inventory/:id/adjust", s.AdjustInventoryStock)

	// -------- Repairs --------
	org.GET("/repairs", s.ListRepairs)
	org.POST("/repairs", s.CreateRepair)
	org.GET("/repairs/urgent", s.ListUrgentRepairs)
	org.GET("/repairs/summary", s.RepairSummary)
	org.GET("/repairs/:id", s.GetRepair)
	org.PATCH("/repairs/:id", s.UpdateRepair)
	org.POST("/repairs/:id/status", s.UpdateRepairStatus)
	org.POST("/repairs/:id/items", s.AddRepairItem)
	org.PATCH("/repairs/:id/items/:item_id", s.UpdateRepairItem)
	org.DELETE("/repairs/:id/items/:item_id", s.RemoveRepairItem)
	org.POST("/repairs/:id/items/:item_id/complete", s.CompleteRepairItem)
	org.GET("/repairs/:id/documents", s.ListRepairDocuments)
	org.POST("/repairs/:id/quotes", s.CreateQuote)
	org.POST("/repairs/:id/invoices", s.CreateInvoice)

	// -------- Documents --------
	org.GET("/documents/:id", s.GetDocument)
	org.GET("/documents/:id/pdf", s.DownloadDocumentPDF)
	org.POST("/documents/:id/regenerate", s.RegenerateDocument)
	org.POST("/documents/:id/status", s.UpdateQuoteStatus)
	org.POST("/documents/:id/payments", s.RecordPayment)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")
	admin.POST("/backfill", s.BackfillAll)
}
