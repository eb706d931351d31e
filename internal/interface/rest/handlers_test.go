package restservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openmart/martd/internal/core/application"
	"github.com/openmart/martd/internal/core/domain"
	inmemorycustody "github.com/openmart/martd/internal/infrastructure/custody/inmemory"
	"github.com/openmart/martd/internal/infrastructure/db"
	inmemorylivestore "github.com/openmart/martd/internal/infrastructure/live-store/inmemory"
	"github.com/stretchr/testify/require"
)

const (
	feeAccount    = "marketplace-operator"
	escrowAccount = "marketplace-escrow"
)

func newTestServer(t *testing.T) (*httptest.Server, *inmemorycustody.Registry) {
	repo, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)

	registry := inmemorycustody.NewRegistry(escrowAccount)
	svc, err := application.NewService(
		repo, registry, inmemorylivestore.NewLiveStore(),
		feeAccount, 1, escrowAccount,
	)
	require.NoError(t, err)

	server := httptest.NewServer(newRouter(newHandler(svc)))
	t.Cleanup(func() {
		server.Close()
		svc.Stop()
	})
	return server, registry
}

func postJSON(
	t *testing.T, url string, body interface{},
) (*http.Response, map[string]interface{}) {
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	// nolint
	resp.Body.Close()
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	resp, err := http.Get(url)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	// nolint
	resp.Body.Close()
	return resp, decoded
}

func listTestItem(
	t *testing.T, server *httptest.Server, registry *inmemorycustody.Registry,
	tokenId string, price uint64,
) uint64 {
	asset := domain.Asset{Collection: "punks", TokenId: tokenId}
	require.NoError(t, registry.Mint(asset, "alice"))
	registry.SetApprovalForAll("alice", escrowAccount, true)

	resp, body := postJSON(t, server.URL+"/v1/items", map[string]interface{}{
		"seller":     "alice",
		"collection": asset.Collection,
		"tokenId":    asset.TokenId,
		"price":      price,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return uint64(body["itemId"].(float64))
}

func TestHandlers(t *testing.T) {
	t.Run("info", func(t *testing.T) {
		server, _ := newTestServer(t)

		resp, body := getJSON(t, server.URL+"/v1/info")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, feeAccount, body["feeAccount"])
		require.Equal(t, float64(1), body["feePercent"])
		require.Equal(t, escrowAccount, body["escrowAccount"])
	})

	t.Run("list item", func(t *testing.T) {
		server, registry := newTestServer(t)

		itemId := listTestItem(t, server, registry, "7804", 200)
		require.Equal(t, uint64(1), itemId)

		resp, body := getJSON(t, fmt.Sprintf("%s/v1/items/%d", server.URL, itemId))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "punks", body["collection"])
		require.Equal(t, "7804", body["tokenId"])
		require.Equal(t, float64(200), body["price"])
		require.Equal(t, false, body["sold"])
	})

	t.Run("list item with invalid price", func(t *testing.T) {
		server, registry := newTestServer(t)
		asset := domain.Asset{Collection: "punks", TokenId: "7804"}
		require.NoError(t, registry.Mint(asset, "alice"))
		registry.SetApprovalForAll("alice", escrowAccount, true)

		resp, _ := postJSON(t, server.URL+"/v1/items", map[string]interface{}{
			"seller":     "alice",
			"collection": asset.Collection,
			"tokenId":    asset.TokenId,
			"price":      0,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list item without approval", func(t *testing.T) {
		server, registry := newTestServer(t)
		asset := domain.Asset{Collection: "punks", TokenId: "7804"}
		require.NoError(t, registry.Mint(asset, "alice"))

		resp, _ := postJSON(t, server.URL+"/v1/items", map[string]interface{}{
			"seller":     "alice",
			"collection": asset.Collection,
			"tokenId":    asset.TokenId,
			"price":      200,
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("total price", func(t *testing.T) {
		server, registry := newTestServer(t)
		itemId := listTestItem(t, server, registry, "7804", 200)

		resp, body := getJSON(t, fmt.Sprintf("%s/v1/items/%d/total-price", server.URL, itemId))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, float64(202), body["totalPrice"])

		resp, _ = getJSON(t, server.URL+"/v1/items/42/total-price")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = getJSON(t, server.URL+"/v1/items/abc/total-price")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("purchase", func(t *testing.T) {
		server, registry := newTestServer(t)
		itemId := listTestItem(t, server, registry, "7804", 200)

		resp, body := postJSON(
			t, server.URL+"/v1/accounts/bob/deposit",
			map[string]interface{}{"amount": 500},
		)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, float64(500), body["balance"])

		resp, body = postJSON(
			t, fmt.Sprintf("%s/v1/items/%d/purchase", server.URL, itemId),
			map[string]interface{}{"buyer": "bob", "payment": 202},
		)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, true, body["sold"])
		require.Equal(t, "bob", body["buyer"])

		resp, body = getJSON(t, server.URL+"/v1/accounts/bob/balance")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, float64(298), body["balance"])

		// open listings no longer include the sold item
		resp, itemsBody := getJSON(t, server.URL+"/v1/items?open=true")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Empty(t, itemsBody["items"])

		// a resale attempt conflicts
		resp, _ = postJSON(
			t, fmt.Sprintf("%s/v1/items/%d/purchase", server.URL, itemId),
			map[string]interface{}{"buyer": "carol", "payment": 202},
		)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("purchase with insufficient payment", func(t *testing.T) {
		server, registry := newTestServer(t)
		itemId := listTestItem(t, server, registry, "7804", 200)

		resp, _ := postJSON(
			t, server.URL+"/v1/accounts/bob/deposit",
			map[string]interface{}{"amount": 500},
		)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = postJSON(
			t, fmt.Sprintf("%s/v1/items/%d/purchase", server.URL, itemId),
			map[string]interface{}{"buyer": "bob", "payment": 201},
		)
		require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	})

	t.Run("purchase unknown item", func(t *testing.T) {
		server, _ := newTestServer(t)

		resp, _ := postJSON(
			t, server.URL+"/v1/items/42/purchase",
			map[string]interface{}{"buyer": "bob", "payment": 202},
		)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		server, _ := newTestServer(t)

		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		// nolint
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
