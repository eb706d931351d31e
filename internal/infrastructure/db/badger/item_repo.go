package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/openmart/martd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	itemStoreDir = "items"
	itemCountKey = "item_count"
)

type itemRepository struct {
	store *badgerhold.Store
}

type itemDTO struct {
	domain.Item
	UpdatedAt int64
}

type itemCounter struct {
	Count uint64
}

func NewItemRepository(config ...interface{}) (domain.ItemRepository, error) {
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
		dir = filepath.Join(baseDir, itemStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open item store: %s", err)
	}

	return &itemRepository{store}, nil
}

func (r *itemRepository) Close() {
	// nolint:all
	r.store.Close()
}

// AddItem inserts the item and bumps the listed-items counter in a single
// badger transaction so the two can never diverge.
func (r *itemRepository) AddItem(ctx context.Context, item domain.Item) error {
	insertFn := func() error {
		tx := r.store.Badger().NewTransaction(true)
		defer tx.Discard()

		dto := itemDTO{Item: item, UpdatedAt: time.Now().UnixMilli()}
		if err := r.store.TxInsert(tx, item.ItemId, dto); err != nil {
			return err
		}

		counter := itemCounter{}
		if err := r.store.TxGet(tx, itemCountKey, &counter); err != nil {
			if !errors.Is(err, badgerhold.ErrNotFound) {
				return err
			}
		}
		counter.Count++
		if err := r.store.TxUpsert(tx, itemCountKey, counter); err != nil {
			return err
		}

		return tx.Commit()
	}

	err := insertFn()
	if errors.Is(err, badger.ErrConflict) {
		attempts := 1
		for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
			time.Sleep(100 * time.Millisecond)
			err = insertFn()
			attempts++
		}
	}
	return err
}

func (r *itemRepository) GetItem(ctx context.Context, itemId uint64) (*domain.Item, error) {
	var dto itemDTO
	if err := r.store.Get(itemId, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrItemNotFound, itemId)
		}
		return nil, err
	}
	item := dto.Item
	return &item, nil
}

func (r *itemRepository) GetAllItems(ctx context.Context) ([]domain.Item, error) {
	dtos := make([]itemDTO, 0)
	if err := r.store.Find(&dtos, &badgerhold.Query{}); err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(dtos))
	for _, dto := range dtos {
		items = append(items, dto.Item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ItemId < items[j].ItemId
	})
	return items, nil
}

func (r *itemRepository) GetItemCount(ctx context.Context) (uint64, error) {
	counter := itemCounter{}
	if err := r.store.Get(itemCountKey, &counter); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Count, nil
}

func (r *itemRepository) MarkItemSold(
	ctx context.Context, itemId uint64, buyer string, soldAt int64,
) error {
	updateFn := func() error {
		var dto itemDTO
		if err := r.store.Get(itemId, &dto); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, itemId)
			}
			return err
		}
		if err := dto.Sell(buyer, soldAt); err != nil {
			return err
		}
		dto.UpdatedAt = time.Now().UnixMilli()
		return r.store.Update(itemId, dto)
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
