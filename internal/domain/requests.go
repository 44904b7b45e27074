package domain

import "github.com/shopspring/decimal"

// ============================================================
// HTTP API request / response bodies
// ============================================================

// OpenAccountRequest is the body of POST /v1/accounts.
type OpenAccountRequest struct {
	CustomerName   string           `json:"customer_name"`
	CustomerEmail  string           `json:"customer_email"`
	AccountType    string           `json:"account_type"`
	InitialDeposit *decimal.Decimal `json:"initial_deposit,omitempty"`
}

// OpenAccountResponse is returned after an account is opened.
type OpenAccountResponse struct {
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

// MovementRequest is the body of deposit and withdraw calls.
type MovementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

// TransferRequest is the body of POST /v1/transfers.
type TransferRequest struct {
	FromAccountNumber string          `json:"from_account_number"`
	ToAccountNumber   string          `json:"to_account_number"`
	Amount            decimal.Decimal `json:"amount"`
	Note              string          `json:"note,omitempty"`
}

// StatementResponse is returned by GET /v1/accounts/{accountNumber}/statement.
type StatementResponse struct {
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Transactions  []Transaction   `json:"transactions"`
}

// TransferResponse is returned by POST /v1/transfers with both accounts
// as they stand after the transfer.
type TransferResponse struct {
	From Account `json:"from"`
	To   Account `json:"to"`
}
