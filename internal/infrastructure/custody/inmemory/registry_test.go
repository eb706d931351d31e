package inmemorycustody_test

import (
	"context"
	"testing"

	"github.com/openmart/martd/internal/core/domain"
	inmemorycustody "github.com/openmart/martd/internal/infrastructure/custody/inmemory"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	asset := domain.Asset{Collection: "punks", TokenId: "7804"}

	t.Run("mint", func(t *testing.T) {
		registry := inmemorycustody.NewRegistry("marketplace")
		require.NoError(t, registry.Mint(asset, "alice"))

		holder, err := registry.CurrentHolder(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, "alice", holder)

		err = registry.Mint(asset, "bob")
		require.Error(t, err)
		require.Contains(t, err.Error(), "already minted")
	})

	t.Run("transfer requires approval", func(t *testing.T) {
		registry := inmemorycustody.NewRegistry("marketplace")
		require.NoError(t, registry.Mint(asset, "alice"))

		err := registry.TransferCustody(ctx, asset, "alice", "marketplace")
		require.Error(t, err)

		registry.SetApprovalForAll("alice", "marketplace", true)
		require.NoError(t, registry.TransferCustody(ctx, asset, "alice", "marketplace"))

		holder, err := registry.CurrentHolder(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, "marketplace", holder)
	})

	t.Run("operator moves out of escrow without approval", func(t *testing.T) {
		registry := inmemorycustody.NewRegistry("marketplace")
		require.NoError(t, registry.Mint(asset, "marketplace"))

		require.NoError(t, registry.TransferCustody(ctx, asset, "marketplace", "bob"))

		holder, err := registry.CurrentHolder(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, "bob", holder)
	})

	t.Run("transfer from non holder", func(t *testing.T) {
		registry := inmemorycustody.NewRegistry("marketplace")
		require.NoError(t, registry.Mint(asset, "alice"))
		registry.SetApprovalForAll("bob", "marketplace", true)

		err := registry.TransferCustody(ctx, asset, "bob", "marketplace")
		require.Error(t, err)

		holder, err := registry.CurrentHolder(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, "alice", holder)
	})

	t.Run("revoked approval", func(t *testing.T) {
		registry := inmemorycustody.NewRegistry("marketplace")
		require.NoError(t, registry.Mint(asset, "alice"))
		registry.SetApprovalForAll("alice", "marketplace", true)
		registry.SetApprovalForAll("alice", "marketplace", false)

		err := registry.TransferCustody(ctx, asset, "alice", "marketplace")
		require.Error(t, err)
	})

	t.Run("unknown asset", func(t *testing.T) {
		registry := inmemorycustody.NewRegistry("marketplace")

		_, err := registry.CurrentHolder(ctx, asset)
		require.Error(t, err)

		err = registry.TransferCustody(ctx, asset, "alice", "bob")
		require.Error(t, err)
	})
}
