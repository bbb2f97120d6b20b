package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/repairdesk/internal/backfill"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/lock"
	"github.com/smallbiznis/repairdesk/internal/migration"
	"github.com/smallbiznis/repairdesk/internal/observability"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorPayload   `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	cfg := config.Config{
		HTTPAddr: "127.0.0.1:0",
		Documents: config.DocumentConfig{
			QuoteValidityDays: 30,
			InvoiceDueDays:    14,
		},
	}

	var engine *gin.Engine
	app := fxtest.New(t,
		fx.Supply(cfg, conn, node, zap.NewNop(), observability.Config{}),
		fx.Supply(config.NewStaticBackfillConfig(config.DefaultBackfillConfig())),
		fx.Provide(
			func() clock.Clock { return clock.NewFakeClock(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)) },
			func() lock.Locker { return lock.NewLocalLocker() },
			func() *obsmetrics.HTTPMetrics { return obsmetrics.NewHTTPMetrics(prometheus.NewRegistry()) },
		),
		backfill.Module,
		Module,
		fx.Populate(&engine),
	)
	require.NoError(t, app.Err())

	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, path, orgID string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if orgID != "" {
		req.Header.Set(HeaderOrg, orgID)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "application/pdf" && w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) decode(env envelope, out any) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(env.Data, out))
}

func (s *testServer) createOrg(name, country string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/organizations", "", gin.H{"name": name, "country_code": country})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var org struct {
		ID string `json:"id"`
	}
	s.decode(env, &org)
	require.NotEmpty(s.t, org.ID)
	return org.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrgScopedRoutesRequireHeader(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/currencies", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Type)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "missing_organization", env.Error.Errors[0].Code)

	w, env = s.do(http.MethodGet, "/api/currencies", "not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_organization", env.Error.Errors[0].Code)
}

func TestCreateOrganizationProvisionsDefaults(t *testing.T) {
	s := newTestServer(t)
	orgID := s.createOrg("Fix It Fast", "US")

	w, env := s.do(http.MethodGet, "/api/currencies/resolve", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Currency struct {
			Code string `json:"code"`
		} `json:"currency"`
		Source string `json:"source"`
	}
	s.decode(env, &res)
	assert.Equal(t, "USD", res.Currency.Code)
	assert.Equal(t, "organization_default", res.Source)

	w, env = s.do(http.MethodGet, "/api/currencies/resolve?code=eur", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.decode(env, &res)
	assert.Equal(t, "EUR", res.Currency.Code)
	assert.Equal(t, "explicit", res.Source)

	w, env = s.do(http.MethodGet, "/api/currencies/GBP/symbol", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sym struct {
		Symbol string `json:"symbol"`
	}
	s.decode(env, &sym)
	assert.Equal(t, "£", sym.Symbol)
}

func TestOrganizationNotFound(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/organizations/123456789", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Type)

	w, env = s.do(http.MethodPost, "/api/organizations/123456789/backfill", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
}

func TestResolveCurrencyWithoutReferenceData(t *testing.T) {
	s := newTestServer(t)
	// An org id with no provisioned reference data and no core rows.
	orgID := snowflake.ID(424242).String()

	w, env := s.do(http.MethodGet, "/api/currencies/resolve", orgID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "configuration_error", env.Error.Type)
}

func TestRepairQuoteInvoicePaymentFlow(t *testing.T) {
	s := newTestServer(t)
	orgID := s.createOrg("Laptop Clinic", "US")

	w, env := s.do(http.MethodPost, "/api/customers", orgID, gin.H{"name": "Dana Reyes", "email": "dana@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var customer struct {
		ID string `json:"id"`
	}
	s.decode(env, &customer)

	w, env = s.do(http.MethodPost, "/api/repairs", orgID, gin.H{
		"customer_id":         customer.ID,
		"priority_level":      2,
		"problem_description": "Cracked screen",
		"items": []gin.H{
			{"description": "Screen panel", "quantity": 1, "unit_price": "80.00", "item_type": "part"},
			{"description": "Labor", "quantity": 1, "unit_price": "20.00", "item_type": "service"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ticket struct {
		ID    string `json:"id"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	s.decode(env, &ticket)
	require.Len(t, ticket.Items, 2)

	w, env = s.do(http.MethodPost, "/api/repairs/"+ticket.ID+"/quotes", orgID, gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote struct {
		Document struct {
			ID        string `json:"id"`
			Kind      string `json:"kind"`
			Status    string `json:"status"`
			TaxSource string `json:"tax_source"`
		} `json:"document"`
		Items    []json.RawMessage `json:"items"`
		Subtotal string            `json:"subtotal"`
		Tax      string            `json:"tax"`
		Total    string            `json:"total"`
	}
	s.decode(env, &quote)
	assert.Equal(t, "quote", quote.Document.Kind)
	assert.Equal(t, "pending", quote.Document.Status)
	assert.Equal(t, "rate", quote.Document.TaxSource)
	assert.Len(t, quote.Items, 2)
	assert.Equal(t, "$100.00", quote.Subtotal)
	assert.Equal(t, "$7.25", quote.Tax)
	assert.Equal(t, "$107.25", quote.Total)

	w, _ = s.do(http.MethodPost, "/api/documents/"+quote.Document.ID+"/status", orgID, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(http.MethodPost, "/api/repairs/"+ticket.ID+"/invoices", orgID, gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var invoice struct {
		Document struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"document"`
		Total   string `json:"total"`
		Balance string `json:"balance"`
	}
	s.decode(env, &invoice)
	assert.Equal(t, "unpaid", invoice.Document.Status)
	assert.Equal(t, "$107.25", invoice.Total)

	w, env = s.do(http.MethodPost, "/api/documents/"+invoice.Document.ID+"/payments", orgID, gin.H{"amount": "500.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "payment_exceeds_balance", env.Error.Errors[0].Code)

	w, env = s.do(http.MethodPost, "/api/documents/"+invoice.Document.ID+"/payments", orgID, gin.H{"amount": "50.00", "reference": "cash-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.decode(env, &invoice)
	assert.Equal(t, "partial", invoice.Document.Status)
	assert.Equal(t, "$57.25", invoice.Balance)

	w, _ = s.do(http.MethodGet, "/api/documents/"+invoice.Document.ID+"/pdf", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".pdf")

	w, env = s.do(http.MethodGet, "/api/repairs/"+ticket.ID+"/documents", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []json.RawMessage
	s.decode(env, &docs)
	assert.Len(t, docs, 2)
}

func TestDocumentsAreScopedToOrganization(t *testing.T) {
	s := newTestServer(t)
	owner := s.createOrg("Owner Shop", "US")
	other := s.createOrg("Other Shop", "US")

	_, env := s.do(http.MethodPost, "/api/customers", owner, gin.H{"name": "Sam"})
	var customer struct {
		ID string `json:"id"`
	}
	s.decode(env, &customer)

	w, env := s.do(http.MethodPost, "/api/repairs", owner, gin.H{
		"customer_id":         customer.ID,
		"priority_level":      3,
		"problem_description": "No power",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ticket struct {
		ID string `json:"id"`
	}
	s.decode(env, &ticket)

	w, env = s.do(http.MethodGet, "/api/repairs/"+ticket.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Type)
}

func TestAdminBackfillReportsSweep(t *testing.T) {
	s := newTestServer(t)
	s.createOrg("Sweep Me", "GB")

	w, env := s.do(http.MethodPost, "/api/admin/backfill", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report backfill.Report
	s.decode(env, &report)
	assert.Len(t, report.Organizations, 1)
	assert.Empty(t, report.Failures)
}
