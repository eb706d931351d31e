package domain

import "context"

type ItemRepository interface {
	AddItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, itemId uint64) (*Item, error)
	GetAllItems(ctx context.Context) ([]Item, error)
	// GetItemCount returns the number of items ever listed. Item ids are
	// dense, so the count is also the highest allocated id.
	GetItemCount(ctx context.Context) (uint64, error)
	MarkItemSold(ctx context.Context, itemId uint64, buyer string, soldAt int64) error
	Close()
}
