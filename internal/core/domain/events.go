package domain

const (
	ItemTopic = "item_events"
)

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeItemForSale
	EventTypeItemBought
)

func (t EventType) String() string {
	switch t {
	case EventTypeItemForSale:
		return "item_for_sale"
	case EventTypeItemBought:
		return "item_bought"
	default:
		return "undefined"
	}
}

type Event interface {
	GetType() EventType
	GetItemId() uint64
}

// ItemForSale is emitted once per successful listing.
type ItemForSale struct {
	Type            EventType
	ItemId          uint64
	AssetCollection string
	AssetTokenId    string
	Price           uint64
	Seller          string
	Timestamp       int64
}

func (e ItemForSale) GetType() EventType { return e.Type }
func (e ItemForSale) GetItemId() uint64  { return e.ItemId }

// ItemBought is emitted once per successful purchase.
type ItemBought struct {
	Type            EventType
	ItemId          uint64
	AssetCollection string
	AssetTokenId    string
	Price           uint64
	Fee             uint64
	Seller          string
	Buyer           string
	Timestamp       int64
}

func (e ItemBought) GetType() EventType { return e.Type }
func (e ItemBought) GetItemId() uint64  { return e.ItemId }

func NewItemForSale(item Item) ItemForSale {
	return ItemForSale{
		Type:            EventTypeItemForSale,
		ItemId:          item.ItemId,
		AssetCollection: item.Collection,
		AssetTokenId:    item.TokenId,
		Price:           item.Price,
		Seller:          item.Seller,
		Timestamp:       item.CreatedAt,
	}
}

func NewItemBought(item Item, fee uint64) ItemBought {
	return ItemBought{
		Type:            EventTypeItemBought,
		ItemId:          item.ItemId,
		AssetCollection: item.Collection,
		AssetTokenId:    item.TokenId,
		Price:           item.Price,
		Fee:             fee,
		Seller:          item.Seller,
		Buyer:           item.Buyer,
		Timestamp:       item.SoldAt,
	}
}
