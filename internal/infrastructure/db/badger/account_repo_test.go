package badgerdb

import (
	"context"
	"math"
	"testing"

	"github.com/openmart/martd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewAccountRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	balance, err := repo.GetBalance(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, repo.Credit(ctx, "alice", 1000))
	require.NoError(t, repo.Credit(ctx, "alice", 500))

	balance, err = repo.GetBalance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(1500), balance)

	require.NoError(t, repo.Debit(ctx, "alice", 700))
	balance, err = repo.GetBalance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(800), balance)

	err = repo.Debit(ctx, "alice", 801)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// a failed debit leaves the balance untouched
	balance, err = repo.GetBalance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(800), balance)

	err = repo.Debit(ctx, "nobody", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// a credit that would wrap the 64-bit balance is rejected
	require.NoError(t, repo.Credit(ctx, "bob", math.MaxUint64-10))
	err = repo.Credit(ctx, "bob", 11)
	require.Error(t, err)

	balance, err = repo.GetBalance(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64-10), balance)
}
