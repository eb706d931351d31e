package restservice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/openmart/martd/internal/core/application"
	"github.com/openmart/martd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

type handler struct {
	svc      application.Service
	broker   *broker[domain.Event]
	upgrader websocket.Upgrader
}

func newHandler(svc application.Service) *handler {
	return &handler{
		svc:    svc,
		broker: newBroker[domain.Event](),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type listItemRequest struct {
	Seller     string `json:"seller"`
	Collection string `json:"collection"`
	TokenId    string `json:"tokenId"`
	Price      uint64 `json:"price"`
}

type listItemResponse struct {
	ItemId uint64 `json:"itemId"`
}

type purchaseRequest struct {
	Buyer   string `json:"buyer"`
	Payment uint64 `json:"payment"`
}

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type balanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

type totalPriceResponse struct {
	ItemId     uint64 `json:"itemId"`
	TotalPrice uint64 `json:"totalPrice"`
}

type itemView struct {
	ItemId     uint64 `json:"itemId"`
	Collection string `json:"collection"`
	TokenId    string `json:"tokenId"`
	Price      uint64 `json:"price"`
	Seller     string `json:"seller"`
	Buyer      string `json:"buyer,omitempty"`
	Sold       bool   `json:"sold"`
	CreatedAt  int64  `json:"createdAt"`
	SoldAt     int64  `json:"soldAt,omitempty"`
}

type infoView struct {
	FeeAccount    string `json:"feeAccount"`
	FeePercent    uint64 `json:"feePercent"`
	EscrowAccount string `json:"escrowAccount"`
	ItemCount     uint64 `json:"itemCount"`
	OpenItemCount int64  `json:"openItemCount"`
}

type eventView struct {
	Type       string `json:"type"`
	ItemId     uint64 `json:"itemId"`
	Collection string `json:"collection"`
	TokenId    string `json:"tokenId"`
	Price      uint64 `json:"price"`
	Fee        uint64 `json:"fee,omitempty"`
	Seller     string `json:"seller"`
	Buyer      string `json:"buyer,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type errorView struct {
	Message string `json:"message"`
}

func newItemView(item domain.Item) itemView {
	return itemView{
		ItemId:     item.ItemId,
		Collection: item.Collection,
		TokenId:    item.TokenId,
		Price:      item.Price,
		Seller:     item.Seller,
		Buyer:      item.Buyer,
		Sold:       item.Sold,
		CreatedAt:  item.CreatedAt,
		SoldAt:     item.SoldAt,
	}
}

func newEventView(event domain.Event) eventView {
	switch e := event.(type) {
	case domain.ItemForSale:
		return eventView{
			Type:       e.Type.String(),
			ItemId:     e.ItemId,
			Collection: e.AssetCollection,
			TokenId:    e.AssetTokenId,
			Price:      e.Price,
			Seller:     e.Seller,
			Timestamp:  e.Timestamp,
		}
	case domain.ItemBought:
		return eventView{
			Type:       e.Type.String(),
			ItemId:     e.ItemId,
			Collection: e.AssetCollection,
			TokenId:    e.AssetTokenId,
			Price:      e.Price,
			Fee:        e.Fee,
			Seller:     e.Seller,
			Buyer:      e.Buyer,
			Timestamp:  e.Timestamp,
		}
	default:
		return eventView{Type: event.GetType().String(), ItemId: event.GetItemId()}
	}
}

func (h *handler) listItem(w http.ResponseWriter, r *http.Request) {
	var req listItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	asset := domain.Asset{Collection: req.Collection, TokenId: req.TokenId}
	itemId, err := h.svc.ListItem(r.Context(), req.Seller, asset, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, listItemResponse{ItemId: itemId})
}

func (h *handler) getItems(w http.ResponseWriter, r *http.Request) {
	var items []domain.Item
	var err error
	if r.URL.Query().Get("open") == "true" {
		items, err = h.svc.GetOpenItems(r.Context())
	} else {
		items, err = h.svc.GetAllItems(r.Context())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	writeJSON(w, http.StatusOK, map[string][]itemView{"items": views})
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	itemId, err := getItemId(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.svc.GetItem(r.Context(), itemId)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(*item))
}

func (h *handler) getTotalPrice(w http.ResponseWriter, r *http.Request) {
	itemId, err := getItemId(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	totalPrice, err := h.svc.GetTotalPrice(r.Context(), itemId)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalPriceResponse{ItemId: itemId, TotalPrice: totalPrice})
}

func (h *handler) purchase(w http.ResponseWriter, r *http.Request) {
	itemId, err := getItemId(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if err := h.svc.Purchase(r.Context(), req.Buyer, itemId, req.Payment); err != nil {
		writeDomainError(w, err)
		return
	}

	item, err := h.svc.GetItem(r.Context(), itemId)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(*item))
}

func (h *handler) getInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetMarketInfo(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infoView{
		FeeAccount:    info.FeeAccount,
		FeePercent:    info.FeePercent,
		EscrowAccount: info.EscrowAccount,
		ItemCount:     info.ItemCount,
		OpenItemCount: info.OpenItemCount,
	})
}

func (h *handler) deposit(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if err := h.svc.Deposit(r.Context(), account, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Account: account, Balance: balance})
}

func (h *handler) getBalance(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	balance, err := h.svc.GetBalance(r.Context(), account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Account: account, Balance: balance})
}

// subscribeEvents upgrades the connection to a websocket and streams market
// events until the client goes away. An optional topics query parameter
// restricts delivery to the named event types.
func (h *handler) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade events subscription")
		return
	}

	topics := r.URL.Query()["topics"]
	listener := newListener[domain.Event](uuid.NewString(), topics)
	h.broker.pushListener(listener)

	defer func() {
		h.broker.removeListener(listener.id)
		// nolint
		conn.Close()
	}()

	// drain the client side so closes are noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-listener.done:
			return
		case event := <-listener.ch:
			if err := conn.WriteJSON(newEventView(event)); err != nil {
				log.WithError(err).Debug("dropping events subscription")
				return
			}
		}
	}
}

// pumpEvents forwards the application event channel to the broker until the
// channel is closed.
func (h *handler) pumpEvents(events <-chan domain.Event) {
	for event := range events {
		h.broker.fanout(event, event.GetType().String())
	}
}

func getItemId(r *http.Request) (uint64, error) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		return 0, errors.New("missing item id")
	}
	itemId, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, errors.New("invalid item id")
	}
	return itemId, nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrItemAlreadySold):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInsufficientPayment),
		errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, domain.ErrCustodyTransfer):
		writeError(w, http.StatusConflict, err)
	default:
		log.WithError(err).Error("unexpected error")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorView{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}
