package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openmart/martd/internal/core/domain"
	"github.com/openmart/martd/internal/core/ports"
	"github.com/openmart/martd/internal/telemetry"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	ListItem(ctx context.Context, seller string, asset domain.Asset, price uint64) (uint64, error)
	Purchase(ctx context.Context, buyer string, itemId uint64, payment uint64) error
	GetTotalPrice(ctx context.Context, itemId uint64) (uint64, error)
	GetItem(ctx context.Context, itemId uint64) (*domain.Item, error)
	GetAllItems(ctx context.Context) ([]domain.Item, error)
	GetOpenItems(ctx context.Context) ([]domain.Item, error)
	GetItemCount(ctx context.Context) (uint64, error)
	GetMarketInfo(ctx context.Context) (*MarketInfo, error)
	Deposit(ctx context.Context, account string, amount uint64) error
	GetBalance(ctx context.Context, account string) (uint64, error)
	GetEventsChannel(ctx context.Context) <-chan domain.Event
	Stop()
}

type service struct {
	repoManager ports.RepoManager
	custody     ports.CustodyService
	liveStore   ports.LiveStore

	feeAccount    string
	feePercent    uint64
	escrowAccount string

	// serializes all ledger transitions so that every list and purchase
	// executes as an indivisible unit with respect to all others
	lock sync.Mutex

	eventsCh chan domain.Event
}

func NewService(
	repoManager ports.RepoManager,
	custody ports.CustodyService,
	liveStore ports.LiveStore,
	feeAccount string, feePercent uint64, escrowAccount string,
) (Service, error) {
	if feeAccount == "" {
		return nil, fmt.Errorf("missing fee account")
	}
	if escrowAccount == "" {
		return nil, fmt.Errorf("missing escrow account")
	}
	if escrowAccount == feeAccount {
		return nil, fmt.Errorf("escrow account must be distinct from fee account")
	}

	svc := &service{
		repoManager:   repoManager,
		custody:       custody,
		liveStore:     liveStore,
		feeAccount:    feeAccount,
		feePercent:    feePercent,
		escrowAccount: escrowAccount,
		eventsCh:      make(chan domain.Event, 100),
	}

	if err := svc.restoreLiveStore(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to restore open listings: %s", err)
	}

	return svc, nil
}

func (s *service) ListItem(
	ctx context.Context, seller string, asset domain.Asset, price uint64,
) (uint64, error) {
	if seller == "" {
		return 0, fmt.Errorf("missing seller")
	}
	if asset.Collection == "" || asset.TokenId == "" {
		return 0, fmt.Errorf("missing asset identifiers")
	}
	if !domain.ValidPrice(price, s.feePercent) {
		return 0, domain.ErrInvalidPrice
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	count, err := s.repoManager.Items().GetItemCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %s", err)
	}

	if err := s.custody.TransferCustody(ctx, asset, seller, s.escrowAccount); err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrCustodyTransfer, err)
	}

	item := domain.Item{
		ItemId:    count + 1,
		Asset:     asset,
		Price:     price,
		Seller:    seller,
		CreatedAt: time.Now().Unix(),
	}

	if err := s.repoManager.Items().AddItem(ctx, item); err != nil {
		// the listing is void without a record, hand the asset back
		if txErr := s.custody.TransferCustody(
			ctx, asset, s.escrowAccount, seller,
		); txErr != nil {
			log.WithError(txErr).Errorf(
				"failed to return asset %s to seller %s after aborted listing",
				asset, seller,
			)
		}
		return 0, fmt.Errorf("failed to add item: %s", err)
	}

	if err := s.liveStore.AddListing(ctx, item); err != nil {
		log.WithError(err).Warnf("failed to index open listing %d", item.ItemId)
	}

	event := domain.NewItemForSale(item)
	s.saveEvents(ctx, item.ItemId, event)

	telemetry.ItemsListed.Inc()
	telemetry.OpenListings.Inc()

	log.Debugf(
		"listed item %d (asset %s, price %d) by %s", item.ItemId, asset, price, seller,
	)
	return item.ItemId, nil
}

func (s *service) Purchase(
	ctx context.Context, buyer string, itemId uint64, payment uint64,
) error {
	if buyer == "" {
		return fmt.Errorf("missing buyer")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	item, err := s.repoManager.Items().GetItem(ctx, itemId)
	if err != nil {
		return err
	}
	if item.Sold {
		return domain.ErrItemAlreadySold
	}

	fee := item.Fee(s.feePercent)
	totalPrice := item.TotalPrice(s.feePercent)
	if payment < totalPrice {
		return domain.ErrInsufficientPayment
	}

	// the escrow must hold the asset before any funds move, otherwise the
	// custody transfer below could fail after disbursement
	holder, err := s.custody.CurrentHolder(ctx, item.Asset)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrCustodyTransfer, err)
	}
	if holder != s.escrowAccount {
		return fmt.Errorf(
			"%w: asset %s not held in escrow", domain.ErrCustodyTransfer, item.Asset,
		)
	}

	// only the total price is ever drawn, excess payment stays with the buyer
	accounts := s.repoManager.Accounts()
	if err := accounts.Debit(ctx, buyer, totalPrice); err != nil {
		return err
	}
	if err := accounts.Credit(ctx, item.Seller, item.Price); err != nil {
		s.refund(ctx, buyer, totalPrice)
		return fmt.Errorf("failed to pay seller: %s", err)
	}
	if err := accounts.Credit(ctx, s.feeAccount, fee); err != nil {
		s.revert(ctx, item.Seller, item.Price)
		s.refund(ctx, buyer, totalPrice)
		return fmt.Errorf("failed to pay fee account: %s", err)
	}

	soldAt := time.Now().Unix()
	if err := s.repoManager.Items().MarkItemSold(ctx, itemId, buyer, soldAt); err != nil {
		s.revert(ctx, s.feeAccount, fee)
		s.revert(ctx, item.Seller, item.Price)
		s.refund(ctx, buyer, totalPrice)
		return fmt.Errorf("failed to mark item %d sold: %s", itemId, err)
	}

	if err := s.custody.TransferCustody(ctx, item.Asset, s.escrowAccount, buyer); err != nil {
		// should not happen, escrow holdership was verified above
		log.WithError(err).Errorf(
			"failed to release asset %s to buyer %s, unwinding sale of item %d",
			item.Asset, buyer, itemId,
		)
		s.revert(ctx, s.feeAccount, fee)
		s.revert(ctx, item.Seller, item.Price)
		s.refund(ctx, buyer, totalPrice)
		return fmt.Errorf("%w: %s", domain.ErrCustodyTransfer, err)
	}

	if err := s.liveStore.RemoveListing(ctx, itemId); err != nil {
		log.WithError(err).Warnf("failed to drop open listing %d", itemId)
	}

	// nolint:errcheck // the unsold check above holds the service lock
	item.Sell(buyer, soldAt)
	event := domain.NewItemBought(*item, fee)
	s.saveEvents(ctx, itemId, event)

	telemetry.ItemsSold.Inc()
	telemetry.OpenListings.Dec()
	telemetry.FeeVolume.Add(float64(fee))

	log.Debugf(
		"item %d sold to %s for %d (fee %d, seller %s)",
		itemId, buyer, totalPrice, fee, item.Seller,
	)
	return nil
}

func (s *service) GetTotalPrice(ctx context.Context, itemId uint64) (uint64, error) {
	item, err := s.repoManager.Items().GetItem(ctx, itemId)
	if err != nil {
		return 0, err
	}
	return item.TotalPrice(s.feePercent), nil
}

func (s *service) GetItem(ctx context.Context, itemId uint64) (*domain.Item, error) {
	return s.repoManager.Items().GetItem(ctx, itemId)
}

func (s *service) GetAllItems(ctx context.Context) ([]domain.Item, error) {
	return s.repoManager.Items().GetAllItems(ctx)
}

func (s *service) GetOpenItems(ctx context.Context) ([]domain.Item, error) {
	return s.liveStore.GetListings(ctx)
}

func (s *service) GetItemCount(ctx context.Context) (uint64, error) {
	return s.repoManager.Items().GetItemCount(ctx)
}

func (s *service) GetMarketInfo(ctx context.Context) (*MarketInfo, error) {
	count, err := s.repoManager.Items().GetItemCount(ctx)
	if err != nil {
		return nil, err
	}
	openCount, err := s.liveStore.Len(ctx)
	if err != nil {
		return nil, err
	}
	return &MarketInfo{
		FeeAccount:    s.feeAccount,
		FeePercent:    s.feePercent,
		EscrowAccount: s.escrowAccount,
		ItemCount:     count,
		OpenItemCount: openCount,
	}, nil
}

func (s *service) Deposit(ctx context.Context, account string, amount uint64) error {
	if account == "" {
		return fmt.Errorf("missing account")
	}
	if amount == 0 {
		return fmt.Errorf("missing amount")
	}
	return s.repoManager.Accounts().Credit(ctx, account, amount)
}

func (s *service) GetBalance(ctx context.Context, account string) (uint64, error) {
	return s.repoManager.Accounts().GetBalance(ctx, account)
}

func (s *service) GetEventsChannel(ctx context.Context) <-chan domain.Event {
	return s.eventsCh
}

func (s *service) Stop() {
	s.liveStore.Close()
	s.repoManager.Close()
	close(s.eventsCh)
	log.Debug("stopped marketplace service")
}

// restoreLiveStore rebuilds the open-listings index from the item store.
// The live store may be volatile across restarts.
func (s *service) restoreLiveStore(ctx context.Context) error {
	items, err := s.repoManager.Items().GetAllItems(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Sold {
			continue
		}
		if err := s.liveStore.AddListing(ctx, item); err != nil {
			return err
		}
		telemetry.OpenListings.Inc()
	}
	return nil
}

func (s *service) saveEvents(ctx context.Context, itemId uint64, events ...domain.Event) {
	if err := s.repoManager.Events().Save(
		ctx, domain.ItemTopic, fmt.Sprintf("%d", itemId), events,
	); err != nil {
		log.WithError(err).Warnf("failed to save events for item %d", itemId)
	}

	for _, event := range events {
		select {
		case s.eventsCh <- event:
		default:
			log.Warnf("events channel full, dropping %s event", event.GetType())
		}
	}
}

func (s *service) refund(ctx context.Context, account string, amount uint64) {
	if err := s.repoManager.Accounts().Credit(ctx, account, amount); err != nil {
		log.WithError(err).Errorf("failed to refund %d to %s", amount, account)
	}
}

func (s *service) revert(ctx context.Context, account string, amount uint64) {
	if err := s.repoManager.Accounts().Debit(ctx, account, amount); err != nil {
		log.WithError(err).Errorf("failed to revert credit of %d to %s", amount, account)
	}
}
