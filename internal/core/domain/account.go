package domain

import (
	"fmt"
	"math"
)

// Account tracks the currency balance of an identity, in the smallest
// currency unit. The fee account and the escrow account are regular
// accounts, only their ids are reserved by configuration.
type Account struct {
	Id      string
	Balance uint64
}

// Credit adds amount to the balance, failing when the 64-bit balance
// would wrap around.
func (a *Account) Credit(amount uint64) error {
	if a.Balance > math.MaxUint64-amount {
		return fmt.Errorf(
			"crediting %d to account %s overflows its balance", amount, a.Id,
		)
	}
	a.Balance += amount
	return nil
}
