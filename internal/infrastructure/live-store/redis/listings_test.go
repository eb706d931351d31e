package redislivestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLiveStoreRetryCount(t *testing.T) {
	store, ok := NewLiveStore(nil, 0).(*listingStore)
	require.True(t, ok)
	require.Equal(t, defaultNumOfRetries, store.numOfRetries)

	store, ok = NewLiveStore(nil, -3).(*listingStore)
	require.True(t, ok)
	require.Equal(t, defaultNumOfRetries, store.numOfRetries)

	store, ok = NewLiveStore(nil, 5).(*listingStore)
	require.True(t, ok)
	require.Equal(t, 5, store.numOfRetries)
}
