package livestore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/openmart/martd/internal/core/domain"
	inmemory "github.com/openmart/martd/internal/infrastructure/live-store/inmemory"
	"github.com/stretchr/testify/require"
)

func TestListingStore(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewLiveStore()
	defer store.Close()

	count, err := store.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	items := []domain.Item{
		{
			ItemId: 1, Asset: domain.Asset{Collection: "punks", TokenId: "7804"},
			Price: 200, Seller: "alice",
		},
		{
			ItemId: 2, Asset: domain.Asset{Collection: "punks", TokenId: "5822"},
			Price: 450, Seller: "bob",
		},
		{
			ItemId: 3, Asset: domain.Asset{Collection: "rocks", TokenId: "42"},
			Price: 100, Seller: "alice",
		},
	}
	for _, item := range items {
		require.NoError(t, store.AddListing(ctx, item))
	}

	count, err = store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	listings, err := store.GetListings(ctx)
	require.NoError(t, err)
	require.Equal(t, items, listings)

	require.NoError(t, store.RemoveListing(ctx, 2))

	listings, err = store.GetListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	require.Equal(t, uint64(1), listings[0].ItemId)
	require.Equal(t, uint64(3), listings[1].ItemId)

	// removing a missing listing is a no-op
	require.NoError(t, store.RemoveListing(ctx, 42))

	count, err = store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestListingStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewLiveStore()
	defer store.Close()

	wg := sync.WaitGroup{}
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			item := domain.Item{
				ItemId: id, Asset: domain.Asset{Collection: "punks", TokenId: "1"},
				Price: 100, Seller: "alice",
			}
			require.NoError(t, store.AddListing(ctx, item))
		}(uint64(i))
	}
	wg.Wait()

	count, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(50), count)

	listings, err := store.GetListings(ctx)
	require.NoError(t, err)
	for i, listing := range listings {
		require.Equal(t, uint64(i+1), listing.ItemId)
	}
}
