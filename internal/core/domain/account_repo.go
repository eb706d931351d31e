package domain

import "context"

type AccountRepository interface {
	// Credit adds amount to the account balance, creating the account if
	// it does not exist yet.
	Credit(ctx context.Context, account string, amount uint64) error
	// Debit subtracts amount from the account balance. It fails with
	// ErrInsufficientFunds if the balance does not cover the amount.
	Debit(ctx context.Context, account string, amount uint64) error
	GetBalance(ctx context.Context, account string) (uint64, error)
	Close()
}
