package inmemorylivestore

import (
	"context"
	"sort"
	"sync"

	"github.com/openmart/martd/internal/core/domain"
	"github.com/openmart/martd/internal/core/ports"
)

type listingStore struct {
	lock     sync.RWMutex
	listings map[uint64]domain.Item
}

func NewLiveStore() ports.LiveStore {
	return &listingStore{
		listings: make(map[uint64]domain.Item),
	}
}

func (m *listingStore) AddListing(_ context.Context, item domain.Item) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.listings[item.ItemId] = item
	return nil
}

func (m *listingStore) RemoveListing(_ context.Context, itemId uint64) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.listings, itemId)
	return nil
}

func (m *listingStore) GetListings(_ context.Context) ([]domain.Item, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	listings := make([]domain.Item, 0, len(m.listings))
	for _, item := range m.listings {
		listings = append(listings, item)
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].ItemId < listings[j].ItemId
	})
	return listings, nil
}

func (m *listingStore) Len(_ context.Context) (int64, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return int64(len(m.listings)), nil
}

func (m *listingStore) Close() {}
