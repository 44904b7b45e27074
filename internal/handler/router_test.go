package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/console-bank-go/internal/domain"
	"github.com/boddenberg/console-bank-go/internal/handler"
	"github.com/boddenberg/console-bank-go/internal/infra/memory"
	"github.com/boddenberg/console-bank-go/internal/infra/observability"
	"github.com/boddenberg/console-bank-go/internal/infra/resilience"
	"github.com/boddenberg/console-bank-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestBankRoutesWithoutService(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

// --- API fixtures ---

type apiFixture struct {
	router  http.Handler
	metrics *observability.Metrics
	svc     *service.BankService
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	metrics := observability.NewMetrics()
	svc := service.NewBankService(memory.NewAccountStore(), memory.NewTransactionLog(), metrics, zap.NewNop())
	replay := handler.NewReplayCache(time.Minute)
	t.Cleanup(replay.Close)
	return &apiFixture{
		router:  handler.NewRouter(svc, replay, resilience.NewBulkhead(10), metrics, zap.NewNop()),
		metrics: metrics,
		svc:     svc,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) open(t *testing.T, name, accountType, initial string) string {
	t.Helper()
	body := `{"customer_name":"` + name + `","customer_email":"` + strings.ToLower(name) + `@example.com","account_type":"` + accountType + `"`
	if initial != "" {
		body += `,"initial_deposit":"` + initial + `"`
	}
	body += "}"
	rec := f.do(t, http.MethodPost, "/v1/accounts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp domain.OpenAccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccountNumber
}

func decodeAccount(t *testing.T, rec *httptest.ResponseRecorder) domain.Account {
	t.Helper()
	var acct domain.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	return acct
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

// --- API flow ---

func TestAPI_AccountLifecycle(t *testing.T) {
	api := newAPI(t)

	alice := api.open(t, "Alice", "savings", "100")
	bob := api.open(t, "Bob", "CURRENT", "")
	require.Equal(t, "AC000001", alice)
	require.Equal(t, "AC000002", bob)

	rec := api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/deposit", `{"amount":"50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decodeAccount(t, rec).Balance.Equal(decimal.NewFromInt(150)))

	rec = api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/withdraw", `{"amount":"30","note":"rent"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decodeAccount(t, rec).Balance.Equal(decimal.NewFromInt(120)))

	rec = api.do(t, http.MethodPost, "/v1/transfers",
		`{"from_account_number":"`+alice+`","to_account_number":"`+bob+`","amount":"20"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var transfer domain.TransferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transfer))
	require.True(t, transfer.From.Balance.Equal(decimal.NewFromInt(100)))
	require.True(t, transfer.To.Balance.Equal(decimal.NewFromInt(20)))

	rec = api.do(t, http.MethodGet, "/v1/accounts/"+alice+"/statement", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stmt domain.StatementResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stmt))
	require.Len(t, stmt.Transactions, 4)
	require.Equal(t, domain.TransactionDeposit, stmt.Transactions[0].Type)
	require.Equal(t, "Initial Deposit", stmt.Transactions[0].Note)
	require.Equal(t, "rent", stmt.Transactions[2].Note)
	require.Equal(t, domain.TransactionTransferOut, stmt.Transactions[3].Type)
	require.Equal(t, bob, stmt.Transactions[3].Counterparty)

	rec = api.do(t, http.MethodGet, "/v1/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)
	require.Equal(t, alice, all[0].AccountNumber)

	rec = api.do(t, http.MethodGet, "/v1/accounts/search?name=BO", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found []domain.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	require.Equal(t, bob, found[0].AccountNumber)

	rec = api.do(t, http.MethodGet, "/v1/accounts/"+bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.AccountTypeCurrent, decodeAccount(t, rec).AccountType)
}

func TestAPI_ErrorMapping(t *testing.T) {
	api := newAPI(t)
	alice := api.open(t, "Alice", "SAVINGS", "10")
	bob := api.open(t, "Bob", "SAVINGS", "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown account", http.MethodGet, "/v1/accounts/AC999999", "", http.StatusNotFound},
		{"statement unknown account", http.MethodGet, "/v1/accounts/AC999999/statement", "", http.StatusNotFound},
		{"deposit zero", http.MethodPost, "/v1/accounts/" + alice + "/deposit", `{"amount":"0"}`, http.StatusBadRequest},
		{"withdraw negative", http.MethodPost, "/v1/accounts/" + alice + "/withdraw", `{"amount":"-5"}`, http.StatusBadRequest},
		{"overdraw", http.MethodPost, "/v1/accounts/" + alice + "/withdraw", `{"amount":"10.01"}`, http.StatusUnprocessableEntity},
		{"same account", http.MethodPost, "/v1/transfers",
			`{"from_account_number":"` + alice + `","to_account_number":"` + alice + `","amount":"1"}`, http.StatusBadRequest},
		{"transfer to unknown", http.MethodPost, "/v1/transfers",
			`{"from_account_number":"` + alice + `","to_account_number":"AC999999","amount":"1"}`, http.StatusNotFound},
		{"transfer insufficient", http.MethodPost, "/v1/transfers",
			`{"from_account_number":"` + bob + `","to_account_number":"` + alice + `","amount":"1"}`, http.StatusUnprocessableEntity},
		{"transfer missing accounts", http.MethodPost, "/v1/transfers", `{"amount":"1"}`, http.StatusBadRequest},
		{"bad account type", http.MethodPost, "/v1/accounts",
			`{"customer_name":"Eve","customer_email":"eve@example.com","account_type":"CHECKING"}`, http.StatusBadRequest},
		{"negative initial deposit", http.MethodPost, "/v1/accounts",
			`{"customer_name":"Eve","customer_email":"eve@example.com","account_type":"SAVINGS","initial_deposit":"-1"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/accounts/" + alice + "/deposit", `{"amount":"1","extra":true}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/v1/accounts/" + alice + "/deposit", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			require.NotEmpty(t, errorMessage(t, rec))
		})
	}

	// Rejected requests leave balances untouched and open no accounts.
	accounts, err := api.svc.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.True(t, accounts[0].Balance.Equal(decimal.NewFromInt(10)))
	require.True(t, accounts[1].Balance.IsZero())
}

func TestAPI_IdempotentReplay(t *testing.T) {
	api := newAPI(t)
	alice := api.open(t, "Alice", "SAVINGS", "")

	first := api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/deposit", `{"amount":"25"}`,
		handler.IdempotencyKeyHeader, "dep-1")
	require.Equal(t, http.StatusOK, first.Code)
	require.Empty(t, first.Header().Get(handler.ReplayedHeader))

	second := api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/deposit", `{"amount":"25"}`,
		handler.IdempotencyKeyHeader, "dep-1")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "true", second.Header().Get(handler.ReplayedHeader))
	require.JSONEq(t, first.Body.String(), second.Body.String())

	acct, err := api.svc.GetAccount(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(decimal.NewFromInt(25)), "replayed deposit must not be applied twice")

	// A different key executes again.
	third := api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/deposit", `{"amount":"25"}`,
		handler.IdempotencyKeyHeader, "dep-2")
	require.Equal(t, http.StatusOK, third.Code)
	require.True(t, decodeAccount(t, third).Balance.Equal(decimal.NewFromInt(50)))

	require.EqualValues(t, 1, api.metrics.GetOperationSnapshot().IdempotentReplays)
}

func TestAPI_IdempotentConcurrentRequests(t *testing.T) {
	api := newAPI(t)
	alice := api.open(t, "Alice", "SAVINGS", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/deposit", `{"amount":"5"}`,
				handler.IdempotencyKeyHeader, "same-key")
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
		}()
	}
	wg.Wait()

	acct, err := api.svc.GetAccount(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(decimal.NewFromInt(5)), "got balance %s", acct.Balance)
}

func TestAPI_RejectedRequestIsReplayedToo(t *testing.T) {
	api := newAPI(t)
	alice := api.open(t, "Alice", "SAVINGS", "")

	first := api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/withdraw", `{"amount":"5"}`,
		handler.IdempotencyKeyHeader, "w-1")
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)

	// Funding the account does not change the stored outcome for the key.
	api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/deposit", `{"amount":"10"}`)

	second := api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/withdraw", `{"amount":"5"}`,
		handler.IdempotencyKeyHeader, "w-1")
	require.Equal(t, http.StatusUnprocessableEntity, second.Code)
	require.Equal(t, "true", second.Header().Get(handler.ReplayedHeader))
}

func TestAPI_StatementBalanceMatchesTransactions(t *testing.T) {
	api := newAPI(t)
	alice := api.open(t, "Alice", "SAVINGS", "")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = api.svc.Deposit(context.Background(), alice, decimal.NewFromInt(1), "")
			}
		}
	}()

	for i := 0; i < 200; i++ {
		rec := api.do(t, http.MethodGet, "/v1/accounts/"+alice+"/statement", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var stmt domain.StatementResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stmt))
		sum := decimal.Zero
		for _, tx := range stmt.Transactions {
			sum = sum.Add(tx.Amount)
		}
		if !sum.Equal(stmt.Balance) {
			close(stop)
			wg.Wait()
			t.Fatalf("balance %s but %d deposits sum to %s", stmt.Balance, len(stmt.Transactions), sum)
		}
	}
	close(stop)
	wg.Wait()
}

func TestAPI_OperationMetrics(t *testing.T) {
	api := newAPI(t)
	alice := api.open(t, "Alice", "SAVINGS", "")
	api.do(t, http.MethodPost, "/v1/accounts/"+alice+"/withdraw", `{"amount":"1"}`)

	rec := api.do(t, http.MethodGet, "/v1/metrics/operations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.OperationMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.EqualValues(t, 1, snap.AccountsOpened)
	require.EqualValues(t, 1, snap.Operations["open_account"].Success)
	require.EqualValues(t, 1, snap.Operations["withdraw"].Rejected)
}

func TestHealthzWithService(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health domain.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "healthy", health.Status)
	require.Len(t, health.Services, 2)
}
