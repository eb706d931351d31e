package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmart/martd/internal/core/domain"
)

type itemRepository struct {
	db *sql.DB
}

func NewItemRepository(config ...interface{}) (domain.ItemRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open item repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &itemRepository{db}, nil
}

func (r *itemRepository) Close() {
	// nolint:all
	r.db.Close()
}

func (r *itemRepository) AddItem(ctx context.Context, item domain.Item) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO item (
			item_id, asset_collection, asset_token_id, price, seller, buyer,
			sold, created_at, sold_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ItemId, item.Collection, item.TokenId, item.Price, item.Seller,
		item.Buyer, item.Sold, item.CreatedAt, item.SoldAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

func (r *itemRepository) GetItem(ctx context.Context, itemId uint64) (*domain.Item, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT item_id, asset_collection, asset_token_id, price, seller, buyer,
			sold, created_at, sold_at
		FROM item WHERE item_id = $1`,
		itemId,
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrItemNotFound, itemId)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *itemRepository) GetAllItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT item_id, asset_collection, asset_token_id, price, seller, buyer,
			sold, created_at, sold_at
		FROM item ORDER BY item_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	// nolint
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) GetItemCount(ctx context.Context) (uint64, error) {
	// items are append-only, the row count is also the highest id
	var count uint64
	if err := r.db.QueryRowContext(
		ctx, `SELECT COUNT(*) FROM item`,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func (r *itemRepository) MarkItemSold(
	ctx context.Context, itemId uint64, buyer string, soldAt int64,
) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE item SET sold = true, buyer = $1, sold_at = $2
		WHERE item_id = $3 AND sold = false`,
		buyer, soldAt, itemId,
	)
	if err != nil {
		return fmt.Errorf("failed to mark item sold: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		item, err := r.GetItem(ctx, itemId)
		if err != nil {
			return err
		}
		if item.Sold {
			return domain.ErrItemAlreadySold
		}
		return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, itemId)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	if err := row.Scan(
		&item.ItemId, &item.Collection, &item.TokenId, &item.Price, &item.Seller,
		&item.Buyer, &item.Sold, &item.CreatedAt, &item.SoldAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
