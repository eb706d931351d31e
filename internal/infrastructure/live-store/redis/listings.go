package redislivestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/openmart/martd/internal/core/domain"
	"github.com/openmart/martd/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const (
	listingsKey         = "martd:open_listings"
	defaultNumOfRetries = 10
)

type listingStore struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewLiveStore(rdb *redis.Client, numOfRetries int) ports.LiveStore {
	// a non-positive retry count would skip the write loops entirely
	if numOfRetries <= 0 {
		numOfRetries = defaultNumOfRetries
	}
	return &listingStore{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (s *listingStore) AddListing(ctx context.Context, item domain.Item) error {
	buf, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to serialize listing: %w", err)
	}

	field := fmt.Sprintf("%d", item.ItemId)
	for i := 0; i < s.numOfRetries; i++ {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, listingsKey, field, buf)
				return nil
			})
			return err
		}, listingsKey); err == nil {
			return nil
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf("failed to add listing after max number of retries: %v", err)
}

func (s *listingStore) RemoveListing(ctx context.Context, itemId uint64) error {
	var err error
	field := fmt.Sprintf("%d", itemId)
	for i := 0; i < s.numOfRetries; i++ {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HDel(ctx, listingsKey, field)
				return nil
			})
			return err
		}, listingsKey); err == nil {
			return nil
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf("failed to remove listing after max number of retries: %v", err)
}

func (s *listingStore) GetListings(ctx context.Context) ([]domain.Item, error) {
	records, err := s.rdb.HGetAll(ctx, listingsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}

	listings := make([]domain.Item, 0, len(records))
	for _, record := range records {
		var item domain.Item
		if err := json.Unmarshal([]byte(record), &item); err != nil {
			return nil, fmt.Errorf("failed to deserialize listing: %w", err)
		}
		listings = append(listings, item)
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].ItemId < listings[j].ItemId
	})
	return listings, nil
}

func (s *listingStore) Len(ctx context.Context) (int64, error) {
	count, err := s.rdb.HLen(ctx, listingsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

func (s *listingStore) Close() {
	// nolint:all
	s.rdb.Close()
}
