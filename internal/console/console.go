// Package console implements the interactive menu loop over the bank
// service: prompting, input parsing and output formatting.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/boddenberg/console-bank-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Bank is the subset of the bank service the console drives.
type Bank interface {
	OpenAccount(ctx context.Context, name, email, accountType string) (string, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, note string) error
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, note string) error
	Transfer(ctx context.Context, fromAccountNumber, toAccountNumber string, amount decimal.Decimal, note string) error
	Statement(ctx context.Context, accountNumber string) ([]domain.Transaction, error)
	SearchAccountsByCustomerName(ctx context.Context, fragment string) ([]domain.Account, error)
}

const menu = `
1) Open Account
2) Deposit
3) Withdraw
4) Transfer
5) Account Statement
6) List Accounts
7) Search Accounts by Customer Name
8) Exit
`

// Console runs the menu loop.
type Console struct {
	bank   Bank
	out    io.Writer
	logger *zap.Logger

	lines      <-chan string
	readerDone <-chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// New creates a console reading commands from in and writing to out.
func New(bank Bank, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	c := &Console{
		bank:   bank,
		out:    out,
		logger: logger,
		done:   make(chan struct{}),
	}
	c.lines, c.readerDone = scanLines(in, c.done)
	return c
}

// scanLines feeds input lines to a channel that is closed at end of input,
// so a pending prompt can be abandoned when the context is cancelled. The
// reader goroutine exits once done is closed and its current read returns;
// stopped is closed when it has.
func scanLines(in io.Reader, done <-chan struct{}) (lines <-chan string, stopped <-chan struct{}) {
	ch := make(chan string)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer close(ch)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return ch, exited
}

func (c *Console) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// errExit ends the loop without an error.
var errExit = errors.New("exit")

// Run shows the menu until the user picks an unknown option, input ends or
// ctx is cancelled. Rule violations are printed and the loop continues; only
// a duplicate account number, which signals a broken invariant, is returned.
func (c *Console) Run(ctx context.Context) error {
	defer c.stop()

	c.printf("\nWelcome to our Console based Banking Application\n")

	for {
		c.printf("%s", menu)
		choice, err := c.prompt(ctx, "CHOOSE: ")
		if err != nil {
			return nil
		}
		c.logger.Debug("menu choice", zap.String("choice", choice))

		var action func(context.Context) error
		switch choice {
		case "1":
			action = c.openAccount
		case "2":
			action = c.deposit
		case "3":
			action = c.withdraw
		case "4":
			action = c.transfer
		case "5":
			action = c.statement
		case "6":
			action = c.listAccounts
		case "7":
			action = c.searchAccounts
		default:
			c.printf("Goodbye!\n")
			return nil
		}

		if err := action(ctx); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			var dup *domain.ErrDuplicateAccount
			if errors.As(err, &dup) {
				return err
			}
			c.printf("error: %v\n", err)
		}
	}
}

// ============================================================
// Menu actions
// ============================================================

func (c *Console) openAccount(ctx context.Context) error {
	name, err := c.prompt(ctx, "Customer name: ")
	if err != nil {
		return err
	}
	email, err := c.prompt(ctx, "Customer email: ")
	if err != nil {
		return err
	}
	accountType, err := c.prompt(ctx, "Account Type (SAVINGS/CURRENT): ")
	if err != nil {
		return err
	}
	raw, err := c.prompt(ctx, "Initial Deposit (optional, blank for 0): ")
	if err != nil {
		return err
	}

	initial := decimal.Zero
	if raw != "" {
		if initial, err = parseAmount(raw); err != nil {
			return err
		}
		if initial.IsNegative() {
			return &domain.ErrInvalidAmount{Amount: initial}
		}
	}

	accountNumber, err := c.bank.OpenAccount(ctx, name, email, accountType)
	if err != nil {
		return err
	}
	if initial.IsPositive() {
		if err := c.bank.Deposit(ctx, accountNumber, initial, "Initial Deposit"); err != nil {
			c.printf("Account created successfully: %s\n", accountNumber)
			return fmt.Errorf("initial deposit: %w", err)
		}
	}

	c.printf("Account created successfully: %s\n", accountNumber)
	return nil
}

func (c *Console) deposit(ctx context.Context) error {
	accountNumber, amount, err := c.promptMovement(ctx)
	if err != nil {
		return err
	}
	if err := c.bank.Deposit(ctx, accountNumber, amount, "Deposit"); err != nil {
		return err
	}
	c.printf("Deposited %s to %s\n", formatAmount(amount), accountNumber)
	return nil
}

func (c *Console) withdraw(ctx context.Context) error {
	accountNumber, amount, err := c.promptMovement(ctx)
	if err != nil {
		return err
	}
	if err := c.bank.Withdraw(ctx, accountNumber, amount, "Withdraw"); err != nil {
		return err
	}
	c.printf("Amount Withdrawn: %s from %s\n", formatAmount(amount), accountNumber)
	return nil
}

func (c *Console) transfer(ctx context.Context) error {
	from, err := c.prompt(ctx, "From Account Number: ")
	if err != nil {
		return err
	}
	to, err := c.prompt(ctx, "To Account Number: ")
	if err != nil {
		return err
	}
	amount, err := c.promptAmount(ctx)
	if err != nil {
		return err
	}

	if err := c.bank.Transfer(ctx, from, to, amount, "Transfer"); err != nil {
		return err
	}
	c.printf("Transferred %s from %s to %s\n", formatAmount(amount), from, to)
	return nil
}

func (c *Console) statement(ctx context.Context) error {
	accountNumber, err := c.prompt(ctx, "Account Number: ")
	if err != nil {
		return err
	}
	txs, err := c.bank.Statement(ctx, accountNumber)
	if err != nil {
		return err
	}

	c.printf("Statement for %s\n", accountNumber)
	if len(txs) == 0 {
		c.printf("No transactions\n")
		return nil
	}
	for _, tx := range txs {
		c.printf("%s\n", formatTransaction(tx))
	}
	return nil
}

func (c *Console) listAccounts(ctx context.Context) error {
	accounts, err := c.bank.ListAccounts(ctx)
	if err != nil {
		return err
	}
	c.printAccounts(accounts)
	return nil
}

func (c *Console) searchAccounts(ctx context.Context) error {
	fragment, err := c.prompt(ctx, "Customer name: ")
	if err != nil {
		return err
	}
	accounts, err := c.bank.SearchAccountsByCustomerName(ctx, fragment)
	if err != nil {
		return err
	}
	c.printAccounts(accounts)
	return nil
}

// ============================================================
// Input / output helpers
// ============================================================

// prompt prints label and waits for the next trimmed input line.
// End of input and cancellation both surface as errExit.
func (c *Console) prompt(ctx context.Context, label string) (string, error) {
	c.printf("%s", label)
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", errExit
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		return "", errExit
	}
}

func (c *Console) promptAmount(ctx context.Context) (decimal.Decimal, error) {
	raw, err := c.prompt(ctx, "Amount: ")
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(raw)
}

func (c *Console) promptMovement(ctx context.Context) (string, decimal.Decimal, error) {
	accountNumber, err := c.prompt(ctx, "Account Number: ")
	if err != nil {
		return "", decimal.Zero, err
	}
	amount, err := c.promptAmount(ctx)
	if err != nil {
		return "", decimal.Zero, err
	}
	return accountNumber, amount, nil
}

func (c *Console) printAccounts(accounts []domain.Account) {
	if len(accounts) == 0 {
		c.printf("No accounts found\n")
		return
	}
	for _, a := range accounts {
		c.printf("%s\n", formatAccount(a))
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
