package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/console-bank-go/internal/domain"
	"github.com/boddenberg/console-bank-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Accounts Handlers
// ============================================================

func openAccountHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts")
		defer span.End()

		var req domain.OpenAccountRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.InitialDeposit != nil && req.InitialDeposit.IsNegative() {
			handleServiceError(w, &domain.ErrInvalidAmount{Amount: *req.InitialDeposit}, logger)
			return
		}

		accountNumber, err := svc.OpenAccount(ctx, req.CustomerName, req.CustomerEmail, req.AccountType)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("account.number", accountNumber))

		if req.InitialDeposit != nil && req.InitialDeposit.IsPositive() {
			if err := svc.Deposit(ctx, accountNumber, *req.InitialDeposit, "Initial Deposit"); err != nil {
				handleServiceError(w, err, logger)
				return
			}
		}

		account, err := svc.GetAccount(ctx, accountNumber)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.OpenAccountResponse{
			AccountNumber: account.AccountNumber,
			Balance:       account.Balance,
		})
	}
}

func listAccountsHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := svc.ListAccounts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func searchAccountsHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/search")
		defer span.End()

		accounts, err := svc.SearchAccountsByCustomerName(ctx, r.URL.Query().Get("name"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func getAccountHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountNumber}")
		defer span.End()

		account, err := svc.GetAccount(ctx, chi.URLParam(r, "accountNumber"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func statementHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountNumber}/statement")
		defer span.End()

		account, txs, err := svc.AccountStatement(ctx, chi.URLParam(r, "accountNumber"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.StatementResponse{
			AccountNumber: account.AccountNumber,
			Balance:       account.Balance,
			Transactions:  txs,
		})
	}
}

// ============================================================
// Movements
// ============================================================

func depositHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return movementHandler("POST /v1/accounts/{accountNumber}/deposit", "Deposit", svc.Deposit, svc, logger)
}

func withdrawHandler(svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return movementHandler("POST /v1/accounts/{accountNumber}/withdraw", "Withdraw", svc.Withdraw, svc, logger)
}

type movementFunc func(ctx context.Context, accountNumber string, amount decimal.Decimal, note string) error

func movementHandler(spanName, defaultNote string, move movementFunc, svc *service.BankService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), spanName)
		defer span.End()

		accountNumber := chi.URLParam(r, "accountNumber")
		span.SetAttributes(attribute.String("account.number", accountNumber))

		var req domain.MovementRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Note == "" {
			req.Note = defaultNote
		}

		if err := move(ctx, accountNumber, req.Amount, req.Note); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		account, err := svc.GetAccount(ctx, accountNumber)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}
