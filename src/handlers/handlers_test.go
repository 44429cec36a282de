package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/vertex/backend/src/models"
	"github.com/username/vertex/backend/src/security"
	"github.com/username/vertex/backend/src/security/validation"
	"github.com/username/vertex/backend/src/services"
)

const testSecret = "test-secret-with-at-least-32-bytes!!"

type fakeIngester struct {
	lastAccountID int64
	lastPrincipal models.Principal
	lastDate      civil.Date
	err           error
}

func (f *fakeIngester) CreateTransaction(ctx context.Context, rec models.DocumentRecord, accountID int64) (*models.Trx, error) {
	f.lastAccountID = accountID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Trx{TrxID: rec.TrxID, Amount: rec.Amount, Date: rec.Date, Status: models.TrxStatusPending}, nil
}

func (f *fakeIngester) CreateTransactions(ctx context.Context, principal models.Principal, recs []models.DocumentRecord) (*models.BatchResult, error) {
	f.lastPrincipal = principal
	if f.err != nil {
		return nil, f.err
	}
	return &models.BatchResult{Created: len(recs), Duplicates: []string{}}, nil
}

func (f *fakeIngester) ListByDate(ctx context.Context, principal models.Principal, d civil.Date) (*models.DailyTransactions, error) {
	f.lastPrincipal = principal
	f.lastDate = d
	if f.err != nil {
		return nil, f.err
	}
	return &models.DailyTransactions{Transactions: []models.Trx{}, TotalAmount: decimal.Zero}, nil
}

type fakeReconciler struct {
	runErr  error
	last    *models.ReconciliationReport
	lastErr error
}

func (f *fakeReconciler) Run(ctx context.Context, out io.Writer) (*models.ReconciliationReport, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &models.ReconciliationReport{RunID: "run-1", Accounts: []models.AccountReconciliation{}}, nil
}

func (f *fakeReconciler) LastReport(ctx context.Context) (*models.ReconciliationReport, error) {
	return f.last, f.lastErr
}

type testAPI struct {
	router     http.Handler
	auth       *security.AuthService
	ingester   *fakeIngester
	reconciler *fakeReconciler
}

func newTestAPI() *testAPI {
	api := &testAPI{
		auth:       security.NewAuthService(testSecret),
		ingester:   &fakeIngester{},
		reconciler: &fakeReconciler{},
	}
	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	RegisterAPIRoutes(r, api.auth, api.ingester, api.reconciler)
	api.router = r
	return api
}

func (a *testAPI) token(t *testing.T, hierarchy int) string {
	t.Helper()
	tok, err := a.auth.GenerateToken(models.Principal{ID: 7, Email: "ops@acme.com", Hierarchy: hierarchy, EntityID: 3}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

const validRecordJSON = `{
	"amount": "2500.00",
	"trx_id": "OP123456",
	"emisor_name": "Juan Perez",
	"emisor_cuit": "20123456783",
	"receptor_name": "ACME SA",
	"receptor_cuit": "30987654321",
	"date": "2024-03-05"`

func TestAuthMiddleware(t *testing.T) {
	api := newTestAPI()

	rr := api.do(t, http.MethodGet, "/api/trx?date=2024-03-05", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/trx?date=2024-03-05", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/trx?date=2024-03-05", api.token(t, models.HierarchyUsers), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(3), api.ingester.lastPrincipal.EntityID)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 5}, api.ingester.lastDate)
}

func TestHandleCreateTransaction(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"created", validRecordJSON + `, "account_id": 12}`, nil, http.StatusCreated},
		{"malformed json", `{"amount":`, nil, http.StatusBadRequest},
		{"unknown field", validRecordJSON + `, "extra": true}`, nil, http.StatusBadRequest},
		{"validation", validRecordJSON + `}`, fmt.Errorf("%w: amount must be positive", validation.ErrValidationFailed), http.StatusBadRequest},
		{"unknown receiver", validRecordJSON + `}`, fmt.Errorf("%w: no bank account", services.ErrNotFound), http.StatusNotFound},
		{"duplicate", validRecordJSON + `}`, fmt.Errorf("%w: already registered", services.ErrConflict), http.StatusConflict},
		{"unexpected", validRecordJSON + `}`, fmt.Errorf("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI()
			api.ingester.err = tt.err
			rr := api.do(t, http.MethodPost, "/api/trx", api.token(t, models.HierarchyClient), tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}

	t.Run("account id is forwarded", func(t *testing.T) {
		api := newTestAPI()
		rr := api.do(t, http.MethodPost, "/api/trx", api.token(t, models.HierarchyClient), validRecordJSON+`, "account_id": 12}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, int64(12), api.ingester.lastAccountID)

		var trx models.Trx
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trx))
		assert.Equal(t, "OP123456", trx.TrxID)
		assert.True(t, decimal.RequireFromString("2500").Equal(trx.Amount))
	})
}

func TestHandleCreateTransactions(t *testing.T) {
	api := newTestAPI()
	body := `{"transactions":[` + validRecordJSON + `}]}`

	rr := api.do(t, http.MethodPost, "/api/trx/batch", api.token(t, models.HierarchyUsers), body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res models.BatchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, int64(7), api.ingester.lastPrincipal.ID)

	api.ingester.err = fmt.Errorf("%w: all transactions already exist", services.ErrConflict)
	rr = api.do(t, http.MethodPost, "/api/trx/batch", api.token(t, models.HierarchyUsers), body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, errorMessage(t, rr), "already exist")
}

func TestHandleListTransactions_DateParameter(t *testing.T) {
	api := newTestAPI()
	tok := api.token(t, models.HierarchyUsers)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/trx", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/trx?date=05/03/2024", tok, nil).Code)

	rr := api.do(t, http.MethodGet, "/api/trx?date=2024-03-05", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"transactions":[],"total_amount":"0"}`, rr.Body.String())
}

func TestHandleExtractFields(t *testing.T) {
	api := newTestAPI()
	tok := api.token(t, models.HierarchyUsers)

	rr := api.do(t, http.MethodPost, "/api/extractor/fields", tok, ExtractFieldsRequest{Fields: []models.ExtractedField{
		{Key: "Importe", Value: "$ 2.500,00"},
		{Key: "Número de operación", Value: "OP123456"},
	}})
	require.Equal(t, http.StatusOK, rr.Code)

	var result models.DocumentBuildResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.OK)
	assert.Nil(t, result.Document)
	assert.Contains(t, result.Missing, "emisor_cuit")
	assert.NotContains(t, result.Missing, "amount")

	rr = api.do(t, http.MethodPost, "/api/extractor/fields", tok, `{"fields": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReconciliationRoutes(t *testing.T) {
	t.Run("requires admin", func(t *testing.T) {
		api := newTestAPI()
		rr := api.do(t, http.MethodPost, "/api/admin/reconcile", api.token(t, models.HierarchyUsers), nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("runs a pass", func(t *testing.T) {
		api := newTestAPI()
		rr := api.do(t, http.MethodPost, "/api/admin/reconcile", api.token(t, models.HierarchyAdmin), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "run-1")
	})

	t.Run("run in progress", func(t *testing.T) {
		api := newTestAPI()
		api.reconciler.runErr = services.ErrRunInProgress
		rr := api.do(t, http.MethodPost, "/api/admin/reconcile", api.token(t, models.HierarchyAdmin), nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("provider down", func(t *testing.T) {
		api := newTestAPI()
		api.reconciler.runErr = fmt.Errorf("listing bank accounts: %w", services.ErrGateway)
		rr := api.do(t, http.MethodPost, "/api/admin/reconcile", api.token(t, models.HierarchyAdmin), nil)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("last report", func(t *testing.T) {
		api := newTestAPI()
		api.reconciler.lastErr = fmt.Errorf("%w: no reconciliation run recorded", services.ErrNotFound)
		rr := api.do(t, http.MethodGet, "/api/admin/reconcile/last", api.token(t, models.HierarchyAdmin), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		api.reconciler.lastErr = nil
		api.reconciler.last = &models.ReconciliationReport{RunID: "previous", TotalMatched: 4}
		rr = api.do(t, http.MethodGet, "/api/admin/reconcile/last", api.token(t, models.HierarchyAdmin), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"total_reconciled":4`)
	})
}
