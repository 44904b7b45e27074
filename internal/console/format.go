package console

import (
	"fmt"
	"time"

	"github.com/boddenberg/console-bank-go/internal/domain"

	"github.com/shopspring/decimal"
)

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatAccount renders "accountNumber | accountType | balance".
func formatAccount(a domain.Account) string {
	return fmt.Sprintf("%s | %s | %s", a.AccountNumber, a.AccountType, formatAmount(a.Balance))
}

func formatTransaction(tx domain.Transaction) string {
	line := fmt.Sprintf("%s | %s | %s", tx.Type, formatAmount(tx.Amount), tx.Timestamp.Format(time.RFC3339))
	if tx.Counterparty != "" {
		line += " | " + tx.Counterparty
	}
	if tx.Note != "" {
		line += " | " + tx.Note
	}
	return line
}
