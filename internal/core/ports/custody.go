package ports

import (
	"context"

	"github.com/openmart/martd/internal/core/domain"
)

// CustodyService is the gateway to the external asset registry holding
// ownership records. TransferCustody fails if from does not currently hold
// the asset or has not granted transfer capability to the marketplace; on
// success custody is reassigned atomically on the registry side.
type CustodyService interface {
	TransferCustody(ctx context.Context, asset domain.Asset, from, to string) error
	CurrentHolder(ctx context.Context, asset domain.Asset) (string, error)
}
