package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/openmart/martd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const accountStoreDir = "accounts"

type accountRepository struct {
	store *badgerhold.Store
}

func NewAccountRepository(config ...interface{}) (domain.AccountRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, accountStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open account store: %s", err)
	}

	return &accountRepository{store}, nil
}

func (r *accountRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *accountRepository) Credit(ctx context.Context, account string, amount uint64) error {
	return r.updateBalance(account, func(acc *domain.Account) error {
		return acc.Credit(amount)
	})
}

func (r *accountRepository) Debit(ctx context.Context, account string, amount uint64) error {
	return r.updateBalance(account, func(acc *domain.Account) error {
		if acc.Balance < amount {
			return fmt.Errorf(
				"%w: account %s holds %d, need %d",
				domain.ErrInsufficientFunds, acc.Id, acc.Balance, amount,
			)
		}
		acc.Balance -= amount
		return nil
	})
}

func (r *accountRepository) GetBalance(ctx context.Context, account string) (uint64, error) {
	var acc domain.Account
	if err := r.store.Get(account, &acc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return acc.Balance, nil
}

func (r *accountRepository) updateBalance(
	account string, apply func(acc *domain.Account) error,
) error {
	updateFn := func() error {
		acc := domain.Account{Id: account}
		if err := r.store.Get(account, &acc); err != nil {
			if !errors.Is(err, badgerhold.ErrNotFound) {
				return err
			}
		}
		if err := apply(&acc); err != nil {
			return err
		}
		return r.store.Upsert(account, acc)
	}

	err := updateFn()
	if errors.Is(err, badger.ErrConflict) {
		attempts := 1
		for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
			time.Sleep(100 * time.Millisecond)
			err = updateFn()
			attempts++
		}
	}
	return err
}
