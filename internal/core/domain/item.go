package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Asset identifies a non-fungible asset held by the external registry:
// the collection it belongs to and the token id within that collection.
type Asset struct {
	Collection string
	TokenId    string
}

func (a *Asset) FromString(s string) error {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid asset string: %s", s)
	}
	a.Collection = parts[0]
	a.TokenId = parts[1]
	return nil
}

func (a Asset) String() string {
	return fmt.Sprintf("%s/%s", a.Collection, a.TokenId)
}

// Item is a listing record pairing an asset with a fixed price and a seller.
// Item ids are dense, start at 1 and are never reused. Price and Seller are
// fixed at listing time, the only mutation an item ever sees is the one-way
// Sold flip performed by a successful purchase.
type Item struct {
	ItemId uint64
	Asset
	Price     uint64
	Seller    string
	Buyer     string
	Sold      bool
	CreatedAt int64
	SoldAt    int64
}

func (i Item) String() string {
	// nolint
	b, _ := json.MarshalIndent(i, "", "  ")
	return string(b)
}

// ValidPrice reports whether a listing price is accepted at the given fee
// percentage. Besides rejecting zero, it bounds the price so that
// price*(100+feePercent) fits in 64 bits, which guarantees Fee and
// TotalPrice cannot wrap for any stored item.
func ValidPrice(price, feePercent uint64) bool {
	if price == 0 {
		return false
	}
	hi, _ := bits.Mul64(price, 100+feePercent)
	return hi == 0
}

// Fee returns the platform cut for this item at the given fee percentage,
// truncated toward zero. The product is carried in 128 bits so prices near
// the 64-bit ceiling do not wrap; a fee that does not fit saturates.
func (i Item) Fee(feePercent uint64) uint64 {
	hi, lo := bits.Mul64(i.Price, feePercent)
	if hi >= 100 {
		return math.MaxUint64
	}
	fee, _ := bits.Div64(hi, lo, 100)
	return fee
}

// TotalPrice returns the amount a buyer must tender: the listing price plus
// the platform fee on top of it.
func (i Item) TotalPrice(feePercent uint64) uint64 {
	fee := i.Fee(feePercent)
	if total := i.Price + fee; total >= i.Price {
		return total
	}
	return math.MaxUint64
}

func (i *Item) Sell(buyer string, soldAt int64) error {
	if i.Sold {
		return ErrItemAlreadySold
	}
	i.Sold = true
	i.Buyer = buyer
	i.SoldAt = soldAt
	return nil
}
