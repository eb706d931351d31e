package pgdb

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

func (r *accountRepository) Credit(ctx context.Context, accountId string, amount uint64) error {
	// bound the addition before handing it to SQL, bigint cannot carry the
	// full uint64 range
	balance, err := r.GetBalance(ctx, accountId)
	if err != nil {
		return err
	}
	acc := domain.Account{Id: accountId, Balance: balance}
	if err := acc.Credit(amount); err != nil {
		return fmt.Errorf("failed to credit account %s: %w", accountId, err)
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO account (id, balance) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = account.balance + excluded.balance`,
		accountId, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to credit account %s: %w", accountId, err)
	}
	return nil
}

func (r *accountRepository) Debit(ctx context.Context, accountId string, amount uint64) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE account SET balance = balance - $1 WHERE id = $2 AND balance >= $1`,
		amount, accountId,
	)
	if err != nil {
		return fmt.Errorf("failed to debit account %s: %w", accountId, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		balance, err := r.GetBalance(ctx, accountId)
		if err != nil {
			return err
		}
		return fmt.Errorf(
			"%w: account %s holds %d, needs %d",
			domain.ErrInsufficientFunds, accountId, balance, amount,
		)
	}
	return nil
}

func (r *accountRepository) GetBalance(ctx context.Context, accountId string) (uint64, error) {
	var balance uint64
	if err := r.db.QueryRowContext(
		ctx, `SELECT balance FROM account WHERE id = $1`, accountId,
	).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance of account %s: %w", accountId, err)
	}
	return balance, nil
}
