package application

// MarketInfo is the read-only configuration and counters surface of the
// marketplace.
type MarketInfo struct {
	FeeAccount    string
	FeePercent    uint64
	EscrowAccount string
	ItemCount     uint64
	OpenItemCount int64
}
