package badgerdb

import (
	"context"
	"testing"

	"github.com/openmart/martd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func newTestItemRepo(t *testing.T) domain.ItemRepository {
	t.Helper()
	repo, err := NewItemRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func TestItemRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestItemRepo(t)

	count, err := repo.GetItemCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	item := domain.Item{
		ItemId:    1,
		Asset:     domain.Asset{Collection: "punks", TokenId: "7"},
		Price:     500,
		Seller:    "alice",
		CreatedAt: 1000,
	}
	require.NoError(t, repo.AddItem(ctx, item))

	count, err = repo.GetItemCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	got, err := repo.GetItem(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, item, *got)
	require.False(t, got.Sold)

	_, err = repo.GetItem(ctx, 2)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
	_, err = repo.GetItem(ctx, 0)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestItemRepositoryMarkItemSold(t *testing.T) {
	ctx := context.Background()
	repo := newTestItemRepo(t)

	item := domain.Item{
		ItemId: 1,
		Asset:  domain.Asset{Collection: "punks", TokenId: "7"},
		Price:  500,
		Seller: "alice",
	}
	require.NoError(t, repo.AddItem(ctx, item))

	require.NoError(t, repo.MarkItemSold(ctx, 1, "bob", 2000))

	got, err := repo.GetItem(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.Sold)
	require.Equal(t, "bob", got.Buyer)
	require.Equal(t, int64(2000), got.SoldAt)

	// the sold flip is one-way
	err = repo.MarkItemSold(ctx, 1, "carol", 3000)
	require.ErrorIs(t, err, domain.ErrItemAlreadySold)

	err = repo.MarkItemSold(ctx, 42, "bob", 2000)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestItemRepositoryGetAllItems(t *testing.T) {
	ctx := context.Background()
	repo := newTestItemRepo(t)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, repo.AddItem(ctx, domain.Item{
			ItemId: i,
			Asset:  domain.Asset{Collection: "punks", TokenId: "7"},
			Price:  100 * i,
			Seller: "alice",
		}))
	}

	items, err := repo.GetAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		require.Equal(t, uint64(i+1), item.ItemId)
	}

	count, err := repo.GetItemCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
}
