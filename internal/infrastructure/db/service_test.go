package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openmart/martd/internal/core/domain"
	"github.com/openmart/martd/internal/core/ports"
	"github.com/openmart/martd/internal/infrastructure/db"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestService(t *testing.T) {
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "repo_manager_with_badger_stores",
			config: db.ServiceConfig{
				EventStoreType:   "badger",
				DataStoreType:    "badger",
				EventStoreConfig: []interface{}{"", nil},
				DataStoreConfig:  []interface{}{"", nil},
			},
		},
		{
			name: "repo_manager_with_sqlite_stores",
			config: db.ServiceConfig{
				EventStoreType:   "badger",
				DataStoreType:    "sqlite",
				EventStoreConfig: []interface{}{"", nil},
				DataStoreConfig:  []interface{}{t.TempDir()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			require.NotNil(t, svc)
			defer svc.Close()

			testItemRepository(t, svc)
			testAccountRepository(t, svc)
			testEventRepository(t, svc)
		})
	}

	t.Run("invalid store types", func(t *testing.T) {
		_, err := db.NewService(db.ServiceConfig{
			EventStoreType: "badger",
			DataStoreType:  "unknown",
		})
		require.Error(t, err)

		_, err = db.NewService(db.ServiceConfig{
			EventStoreType: "unknown",
			DataStoreType:  "badger",
		})
		require.Error(t, err)
	})
}

func testItemRepository(t *testing.T, svc ports.RepoManager) {
	count, err := svc.Items().GetItemCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = svc.Items().GetItem(ctx, 1)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	item := domain.Item{
		ItemId:    1,
		Asset:     domain.Asset{Collection: "punks", TokenId: "7804"},
		Price:     200,
		Seller:    "alice",
		CreatedAt: time.Now().Unix(),
	}
	require.NoError(t, svc.Items().AddItem(ctx, item))

	count, err = svc.Items().GetItemCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	got, err := svc.Items().GetItem(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, item.Asset, got.Asset)
	require.Equal(t, item.Price, got.Price)
	require.False(t, got.Sold)

	soldAt := time.Now().Unix()
	require.NoError(t, svc.Items().MarkItemSold(ctx, 1, "bob", soldAt))

	got, err = svc.Items().GetItem(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.Sold)
	require.Equal(t, "bob", got.Buyer)

	err = svc.Items().MarkItemSold(ctx, 1, "carol", soldAt)
	require.ErrorIs(t, err, domain.ErrItemAlreadySold)

	err = svc.Items().MarkItemSold(ctx, 42, "carol", soldAt)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	items, err := svc.Items().GetAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func testAccountRepository(t *testing.T, svc ports.RepoManager) {
	balance, err := svc.Accounts().GetBalance(ctx, "bob")
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, svc.Accounts().Credit(ctx, "bob", 500))
	require.NoError(t, svc.Accounts().Debit(ctx, "bob", 200))

	balance, err = svc.Accounts().GetBalance(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(300), balance)

	err = svc.Accounts().Debit(ctx, "bob", 400)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err = svc.Accounts().GetBalance(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(300), balance)
}

func testEventRepository(t *testing.T, svc ports.RepoManager) {
	wg := sync.WaitGroup{}
	wg.Add(1)

	var handled []domain.Event
	svc.Events().RegisterEventsHandler(domain.ItemTopic, func(events []domain.Event) {
		handled = events
		wg.Done()
	})
	defer svc.Events().ClearRegisteredHandlers(domain.ItemTopic)

	item := domain.Item{
		ItemId: 1,
		Asset:  domain.Asset{Collection: "punks", TokenId: "7804"},
		Price:  200,
		Seller: "alice",
	}
	events := []domain.Event{domain.NewItemForSale(item)}
	require.NoError(t, svc.Events().Save(ctx, domain.ItemTopic, "1", events))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "events handler not invoked")
	}

	require.Len(t, handled, 1)
	require.Equal(t, domain.EventTypeItemForSale, handled[0].GetType())
	require.Equal(t, uint64(1), handled[0].GetItemId())
}
