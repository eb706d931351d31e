package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmart/martd/internal/core/domain"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(config ...interface{}) (domain.AccountRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open account repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &accountRepository{db}, nil
}

func (r *accountRepository) Close() {
	// nolint:all
	r.db.Close()
}

func (r *accountRepository) Credit(ctx context.Context, account string, amount uint64) error {
	// the addition runs in SQL where an overflow degrades silently, bound it
	// here before writing
	balance, err := r.GetBalance(ctx, account)
	if err != nil {
		return err
	}
	acc := domain.Account{Id: account, Balance: balance}
	if err := acc.Credit(amount); err != nil {
		return fmt.Errorf("failed to credit account %s: %w", account, err)
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO account (id, balance) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + excluded.balance`,
		account, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to credit account %s: %w", account, err)
	}
	return nil
}

func (r *accountRepository) Debit(ctx context.Context, account string, amount uint64) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE account SET balance = balance - ? WHERE id = ? AND balance >= ?`,
		amount, account, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to debit account %s: %w", account, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		balance, err := r.GetBalance(ctx, account)
		if err != nil {
			return err
		}
		return fmt.Errorf(
			"%w: account %s holds %d, need %d",
			domain.ErrInsufficientFunds, account, balance, amount,
		)
	}
	return nil
}

func (r *accountRepository) GetBalance(ctx context.Context, account string) (uint64, error) {
	var balance uint64
	err := r.db.QueryRowContext(
		ctx, `SELECT balance FROM account WHERE id = ?`, account,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", account, err)
	}
	return balance, nil
}
