package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/console-bank-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Deposits, withdrawals and transfers
// ============================================================

// Deposit credits amount to an account and records a DEPOSIT.
func (s *BankService) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, note string) (err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.Deposit")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber), attribute.String("amount", amount.String()))

	start := time.Now()
	defer func() { s.record(span, "deposit", start, err) }()

	if err := validateAmount(amount); err != nil {
		return err
	}
	// Accounts are never deleted, so existence can be checked before locking.
	if _, err := s.mustFind(ctx, accountNumber); err != nil {
		return err
	}

	unlock := s.locks.lock(accountNumber)
	defer unlock()

	acct, err := s.mustFind(ctx, accountNumber)
	if err != nil {
		return err
	}

	balance := acct.Balance.Add(amount)
	tx := s.newTransaction(accountNumber, domain.TransactionDeposit, amount, note, "", s.now())
	if err := s.apply(ctx, []balanceChange{{accountNumber, acct.Balance, balance}}, tx); err != nil {
		return fmt.Errorf("deposit to %s: %w", accountNumber, err)
	}

	s.logger.Info("deposit completed",
		zap.String("account_number", accountNumber),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()),
		zap.String("transaction_id", tx.ID),
	)
	return nil
}

// Withdraw debits amount from an account and records a WITHDRAW.
func (s *BankService) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, note string) (err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.Withdraw")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber), attribute.String("amount", amount.String()))

	start := time.Now()
	defer func() { s.record(span, "withdraw", start, err) }()

	if err := validateAmount(amount); err != nil {
		return err
	}
	if _, err := s.mustFind(ctx, accountNumber); err != nil {
		return err
	}

	unlock := s.locks.lock(accountNumber)
	defer unlock()

	acct, err := s.mustFind(ctx, accountNumber)
	if err != nil {
		return err
	}
	if acct.Balance.LessThan(amount) {
		return &domain.ErrInsufficientBalance{AccountNumber: accountNumber, Available: acct.Balance, Required: amount}
	}

	balance := acct.Balance.Sub(amount)
	tx := s.newTransaction(accountNumber, domain.TransactionWithdraw, amount, note, "", s.now())
	if err := s.apply(ctx, []balanceChange{{accountNumber, acct.Balance, balance}}, tx); err != nil {
		return fmt.Errorf("withdraw from %s: %w", accountNumber, err)
	}

	s.logger.Info("withdrawal completed",
		zap.String("account_number", accountNumber),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()),
		zap.String("transaction_id", tx.ID),
	)
	return nil
}

// Transfer moves amount between two accounts, recording a TRANSFER_OUT on
// the source and a TRANSFER_IN on the destination. Either both balances
// and both records change, or nothing does.
func (s *BankService) Transfer(ctx context.Context, fromAccountNumber, toAccountNumber string, amount decimal.Decimal, note string) (err error) {
	ctx, span := bankTracer.Start(ctx, "BankService.Transfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.from", fromAccountNumber),
		attribute.String("account.to", toAccountNumber),
		attribute.String("amount", amount.String()),
	)

	start := time.Now()
	defer func() { s.record(span, "transfer", start, err) }()

	if fromAccountNumber == toAccountNumber {
		return &domain.ErrSameAccountTransfer{AccountNumber: fromAccountNumber}
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	// Source first: when both are missing, the source is reported.
	if _, err := s.mustFind(ctx, fromAccountNumber); err != nil {
		return err
	}
	if _, err := s.mustFind(ctx, toAccountNumber); err != nil {
		return err
	}

	unlock := s.locks.lock(fromAccountNumber, toAccountNumber)
	defer unlock()

	src, err := s.mustFind(ctx, fromAccountNumber)
	if err != nil {
		return err
	}
	dst, err := s.mustFind(ctx, toAccountNumber)
	if err != nil {
		return err
	}
	if src.Balance.LessThan(amount) {
		return &domain.ErrInsufficientBalance{AccountNumber: fromAccountNumber, Available: src.Balance, Required: amount}
	}

	now := s.now()
	out := s.newTransaction(fromAccountNumber, domain.TransactionTransferOut, amount, note, toAccountNumber, now)
	in := s.newTransaction(toAccountNumber, domain.TransactionTransferIn, amount, note, fromAccountNumber, now)

	changes := []balanceChange{
		{fromAccountNumber, src.Balance, src.Balance.Sub(amount)},
		{toAccountNumber, dst.Balance, dst.Balance.Add(amount)},
	}
	if err := s.apply(ctx, changes, out, in); err != nil {
		return fmt.Errorf("transfer %s -> %s: %w", fromAccountNumber, toAccountNumber, err)
	}

	s.logger.Info("transfer completed",
		zap.String("from", fromAccountNumber),
		zap.String("to", toAccountNumber),
		zap.String("amount", amount.String()),
		zap.String("transfer_out_id", out.ID),
		zap.String("transfer_in_id", in.ID),
	)
	return nil
}

// ============================================================
// Unit of work
// ============================================================

type balanceChange struct {
	accountNumber string
	before        decimal.Decimal
	after         decimal.Decimal
}

// apply commits every balance change and appends txs as one step under the
// commit lock. If the append fails the balances are restored before the
// lock is released. Callers must hold the locks of every account in changes.
func (s *BankService) apply(ctx context.Context, changes []balanceChange, txs ...domain.Transaction) error {
	after := make([]domain.BalanceUpdate, 0, len(changes))
	for _, c := range changes {
		after = append(after, domain.BalanceUpdate{AccountNumber: c.accountNumber, Balance: c.after})
	}

	s.commit.Lock()
	defer s.commit.Unlock()

	if err := s.accounts.UpdateBalances(ctx, after...); err != nil {
		return fmt.Errorf("update balances: %w", err)
	}
	if err := s.ledger.Add(ctx, txs...); err != nil {
		s.rollback(ctx, changes)
		return fmt.Errorf("record transactions: %w", err)
	}
	return nil
}

func (s *BankService) rollback(ctx context.Context, changes []balanceChange) {
	before := make([]domain.BalanceUpdate, 0, len(changes))
	for _, c := range changes {
		before = append(before, domain.BalanceUpdate{AccountNumber: c.accountNumber, Balance: c.before})
	}
	if err := s.accounts.UpdateBalances(ctx, before...); err != nil {
		s.logger.Error("balance rollback failed", zap.Int("accounts", len(before)), zap.Error(err))
		return
	}
	for _, b := range before {
		s.logger.Warn("balance rolled back",
			zap.String("account_number", b.AccountNumber),
			zap.String("balance", b.Balance.String()),
		)
	}
}

func (s *BankService) newTransaction(accountNumber string, txType domain.TransactionType, amount decimal.Decimal, note, counterparty string, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:            s.newID(),
		AccountNumber: accountNumber,
		Type:          txType,
		Amount:        amount,
		Timestamp:     at,
		Note:          note,
		Counterparty:  counterparty,
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &domain.ErrInvalidAmount{Amount: amount}
	}
	return nil
}
