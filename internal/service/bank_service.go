// Package service provides the business logic layer (use cases).
// BankService is the only component allowed to change balances or append
// to the transaction log; it enforces every account invariant.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/console-bank-go/internal/domain"
	"github.com/boddenberg/console-bank-go/internal/infra/observability"
	"github.com/boddenberg/console-bank-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var bankTracer = otel.Tracer("service/bank")

// BankService orchestrates account and transaction operations.
type BankService struct {
	accounts port.AccountStore
	ledger   port.TransactionLog
	metrics  *observability.Metrics
	logger   *zap.Logger

	locks *accountLocks
	now   func() time.Time
	newID func() string

	// commit is held exclusively while balances and their records are
	// written, and shared by reads, so readers never see half a movement.
	commit sync.RWMutex
}

// Option customises a BankService.
type Option func(*BankService)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BankService) { s.now = now }
}

// WithIDGenerator overrides how customer and transaction ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *BankService) { s.newID = newID }
}

// NewBankService creates a bank service over the given stores.
func NewBankService(accounts port.AccountStore, ledger port.TransactionLog, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *BankService {
	s := &BankService{
		accounts: accounts,
		ledger:   ledger,
		metrics:  metrics,
		logger:   logger,
		locks:    newAccountLocks(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================
// Accounts
// ============================================================

// OpenAccount creates an account with a zero balance and returns its number.
// No transaction is recorded; an initial deposit is a separate Deposit call.
func (s *BankService) OpenAccount(ctx context.Context, name, email, accountType string) (accountNumber string, err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.OpenAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.type", accountType))

	start := time.Now()
	defer func() { s.record(span, "open_account", start, err) }()

	acctType, err := domain.ParseAccountType(accountType)
	if err != nil {
		return "", err
	}

	created, err := s.accounts.Create(ctx, domain.Account{
		CustomerID:    s.newID(),
		CustomerName:  strings.TrimSpace(name),
		CustomerEmail: strings.TrimSpace(email),
		AccountType:   acctType,
		Balance:       decimal.Zero,
		CreatedAt:     s.now(),
	})
	if err != nil {
		var dup *domain.ErrDuplicateAccount
		if errors.As(err, &dup) {
			s.logger.Error("account number generator produced a taken number",
				zap.String("account_number", dup.AccountNumber))
			return "", err
		}
		return "", fmt.Errorf("create account: %w", err)
	}

	s.metrics.IncrAccountsOpened()
	span.SetAttributes(attribute.String("account.number", created.AccountNumber))
	s.logger.Info("account opened",
		zap.String("account_number", created.AccountNumber),
		zap.String("customer_id", created.CustomerID),
		zap.String("account_type", string(created.AccountType)),
	)

	return created.AccountNumber, nil
}

// ListAccounts returns every account sorted by account number.
func (s *BankService) ListAccounts(ctx context.Context) (accounts []domain.Account, err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.ListAccounts")
	defer span.End()

	start := time.Now()
	defer func() { s.record(span, "list_accounts", start, err) }()

	s.commit.RLock()
	defer s.commit.RUnlock()

	accounts, err = s.accounts.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	sortByNumber(accounts)
	return accounts, nil
}

// GetAccount returns a single account.
func (s *BankService) GetAccount(ctx context.Context, accountNumber string) (acct domain.Account, err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber))

	start := time.Now()
	defer func() { s.record(span, "get_account", start, err) }()

	s.commit.RLock()
	defer s.commit.RUnlock()

	return s.mustFind(ctx, accountNumber)
}

// SearchAccountsByCustomerName returns accounts whose customer name contains
// fragment, ignoring case, sorted by account number. A blank fragment
// matches every account.
func (s *BankService) SearchAccountsByCustomerName(ctx context.Context, fragment string) (matches []domain.Account, err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.SearchAccountsByCustomerName")
	defer span.End()

	start := time.Now()
	defer func() { s.record(span, "search_accounts", start, err) }()

	s.commit.RLock()
	all, err := s.accounts.FindAll(ctx)
	s.commit.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(fragment))
	matches = make([]domain.Account, 0)
	for _, a := range all {
		if strings.Contains(strings.ToLower(a.CustomerName), needle) {
			matches = append(matches, a)
		}
	}
	sortByNumber(matches)
	span.SetAttributes(attribute.Int("results", len(matches)))
	return matches, nil
}

// Statement returns an account's transactions in the order they were recorded.
func (s *BankService) Statement(ctx context.Context, accountNumber string) (txs []domain.Transaction, err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.Statement")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber))

	start := time.Now()
	defer func() { s.record(span, "statement", start, err) }()

	_, txs, err = s.snapshot(ctx, accountNumber)
	return txs, err
}

// AccountStatement returns an account together with its transactions, both
// read at the same instant, so the balance always matches the records.
func (s *BankService) AccountStatement(ctx context.Context, accountNumber string) (acct domain.Account, txs []domain.Transaction, err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.AccountStatement")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber))

	start := time.Now()
	defer func() { s.record(span, "statement", start, err) }()

	return s.snapshot(ctx, accountNumber)
}

func (s *BankService) snapshot(ctx context.Context, accountNumber string) (domain.Account, []domain.Transaction, error) {
	s.commit.RLock()
	defer s.commit.RUnlock()

	acct, err := s.mustFind(ctx, accountNumber)
	if err != nil {
		return domain.Account{}, nil, err
	}
	txs, err := s.ledger.FindByAccount(ctx, accountNumber)
	if err != nil {
		return domain.Account{}, nil, fmt.Errorf("load statement: %w", err)
	}
	return acct, txs, nil
}

// ============================================================
// Helpers
// ============================================================

func (s *BankService) mustFind(ctx context.Context, accountNumber string) (domain.Account, error) {
	acct, ok, err := s.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return domain.Account{}, fmt.Errorf("find account %s: %w", accountNumber, err)
	}
	if !ok {
		return domain.Account{}, &domain.ErrAccountNotFound{AccountNumber: accountNumber}
	}
	return acct, nil
}

// record closes out an operation: metrics, span status and a debug log
// for business rejections.
func (s *BankService) record(span trace.Span, operation string, start time.Time, err error) {
	status := outcome(err)
	s.metrics.RecordOperation(operation, status, time.Since(start))

	switch status {
	case observability.StatusRejected:
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("operation rejected", zap.String("operation", operation), zap.String("reason", err.Error()))
	case observability.StatusError:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	}
}

func outcome(err error) string {
	if err == nil {
		return observability.StatusSuccess
	}
	if IsBusinessError(err) {
		return observability.StatusRejected
	}
	return observability.StatusError
}

// IsBusinessError reports whether err is a recoverable rule violation the
// caller should show to the user, as opposed to an infrastructure failure
// or an invariant violation.
func IsBusinessError(err error) bool {
	var (
		notFound     *domain.ErrAccountNotFound
		insufficient *domain.ErrInsufficientBalance
		same         *domain.ErrSameAccountTransfer
		amount       *domain.ErrInvalidAmount
		accountType  *domain.ErrInvalidAccountType
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &same) ||
		errors.As(err, &amount) ||
		errors.As(err, &accountType)
}

func sortByNumber(accounts []domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountNumber < accounts[j].AccountNumber
	})
}
