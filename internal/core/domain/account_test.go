package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountCredit(t *testing.T) {
	acc := Account{Id: "alice"}
	require.NoError(t, acc.Credit(100))
	require.NoError(t, acc.Credit(math.MaxUint64 - 100))
	require.Equal(t, uint64(math.MaxUint64), acc.Balance)

	// the balance saturated, any further credit would wrap
	err := acc.Credit(1)
	require.Error(t, err)
	require.Equal(t, uint64(math.MaxUint64), acc.Balance)
}
