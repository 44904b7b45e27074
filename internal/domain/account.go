package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

// AccountType is the product an account was opened as.
type AccountType string

const (
	AccountTypeSavings AccountType = "SAVINGS"
	AccountTypeCurrent AccountType = "CURRENT"
)

// ParseAccountType matches s case-insensitively against the known account
// types and returns the canonical value.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(strings.ToUpper(strings.TrimSpace(s))); t {
	case AccountTypeSavings, AccountTypeCurrent:
		return t, nil
	}
	return "", &ErrInvalidAccountType{AccountType: s}
}

// AccountNumberPrefix is prepended to the zero-padded account sequence.
const AccountNumberPrefix = "AC"

// FormatAccountNumber renders the n-th account number, e.g. 1 -> AC000001.
func FormatAccountNumber(n int) string {
	return fmt.Sprintf("%s%06d", AccountNumberPrefix, n)
}

// Account represents a customer bank account.
type Account struct {
	AccountNumber string          `json:"account_number"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	AccountType   AccountType     `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BalanceUpdate sets one account's balance as part of a batch.
type BalanceUpdate struct {
	AccountNumber string
	Balance       decimal.Decimal
}

// ============================================================
// Transactions (account statement)
// ============================================================

// TransactionType classifies a balance-affecting event.
type TransactionType string

const (
	TransactionDeposit     TransactionType = "DEPOSIT"
	TransactionWithdraw    TransactionType = "WITHDRAW"
	TransactionTransferOut TransactionType = "TRANSFER_OUT"
	TransactionTransferIn  TransactionType = "TRANSFER_IN"
)

// Transaction is an immutable record of one balance change.
type Transaction struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"account_number"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
	Note          string          `json:"note,omitempty"`
	Counterparty  string          `json:"counterparty,omitempty"` // other leg of a transfer
}
