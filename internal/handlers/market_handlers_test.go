package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulips/tulips-api/internal/fees"
	"github.com/tulips/tulips-api/internal/ledger"
	"github.com/tulips/tulips-api/internal/market"
	"github.com/tulips/tulips-api/internal/models"
	"github.com/tulips/tulips-api/internal/registry"
	"github.com/tulips/tulips-api/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	policy := fees.New(fees.Params{}, nil)
	engine := market.New(ledger.New(policy, "treasury"), registry.New(), policy, nil)
	svc := services.NewMarketService(engine, nil, nil, nil)

	hub := NewHub(nil)
	go hub.Run()

	srv := httptest.NewServer(NewRouter(svc, hub))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, principal string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if principal != "" {
		req.Header.Set(PrincipalHeader, principal)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMissingPrincipalRejected(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/bank/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPayoutAndBalance(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/bank/payout", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payout := decode[models.PayoutResponse](t, resp)
	assert.Equal(t, uint64(1000), payout.Amount)
	assert.NotEmpty(t, payout.TxID)

	resp = do(t, srv, http.MethodPost, "/api/bank/payout", "alice", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "second claim rejected")

	resp = do(t, srv, http.MethodGet, "/api/bank/balance", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balance := decode[models.BalanceResponse](t, resp)
	assert.Equal(t, uint64(1000), balance.Balance)
	assert.Equal(t, uint64(1000), balance.Available)
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/bank/payout", "alice", nil)

	resp := do(t, srv, http.MethodPost, "/api/bank/transfer", "alice",
		models.TransferRequest{To: "bob", Amount: 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	transfer := decode[models.TransferResponse](t, resp)
	assert.Equal(t, uint64(3), transfer.Fee)

	resp = do(t, srv, http.MethodPost, "/api/bank/transfer", "alice",
		models.TransferRequest{To: "bob", Amount: 10000})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/api/bank/transfer", "alice",
		models.TransferRequest{Amount: 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "destination required")
}

func TestMintAndQueryNFTs(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/bank/payout", "alice", nil)

	resp := do(t, srv, http.MethodPost, "/api/nfts", "alice",
		models.MintRequest{Name: "Tulip", Image: "ipfs://x", DesiredPrice: 1000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	mint := decode[models.MintResponse](t, resp)
	assert.GreaterOrEqual(t, mint.Fee, uint64(400))
	assert.LessOrEqual(t, mint.Fee, uint64(600))
	assert.Equal(t, uint64(1000)-mint.Fee, mint.Price)

	resp = do(t, srv, http.MethodGet, "/api/nfts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[models.NFTListResponse](t, resp)
	require.Equal(t, 1, all.TotalCount)
	assert.Equal(t, "alice", all.NFTs[0].Owner)

	resp = do(t, srv, http.MethodGet, "/api/nfts/owned", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	owned := decode[models.NFTListResponse](t, resp)
	assert.Equal(t, 1, owned.TotalCount)

	resp = do(t, srv, http.MethodGet, "/api/nfts/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/nfts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/api/nfts", "pauper",
		models.MintRequest{Name: "Tulip", DesiredPrice: 1000})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestAuctionFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/bank/payout", "seller", nil)
	do(t, srv, http.MethodPost, "/api/bank/payout", "bidder", nil)

	resp := do(t, srv, http.MethodPost, "/api/nfts", "seller",
		models.MintRequest{Name: "Tulip", DesiredPrice: 200})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	mint := decode[models.MintResponse](t, resp)

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/auction", "seller",
		models.ListForAuctionRequest{StartPrice: 100, Duration: 3600})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Listing again is a state conflict.
	resp = do(t, srv, http.MethodPost, "/api/nfts/1/auction", "seller",
		models.ListForAuctionRequest{StartPrice: 100, Duration: 3600})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/bid", "bidder",
		models.PlaceBidRequest{Amount: 50})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "below start price")

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/bid", "seller",
		models.PlaceBidRequest{Amount: 100})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "self bid")

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/bid", "bidder",
		models.PlaceBidRequest{Amount: 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bid := decode[models.BidResponse](t, resp)
	assert.Equal(t, uint64(105), bid.MinNextBid)

	resp = do(t, srv, http.MethodGet, "/api/nfts/1/auction", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	auction := decode[models.Auction](t, resp)
	assert.Equal(t, "bidder", auction.HighestBidder)
	assert.Equal(t, mint.NFTID, auction.NFTID)

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/finalize", "anyone", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "not yet expired")

	resp = do(t, srv, http.MethodDelete, "/api/nfts/1/listing", "seller", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	withdraw := decode[models.WithdrawResponse](t, resp)
	assert.Equal(t, uint64(100), withdraw.Refunded)
	assert.Equal(t, "bidder", withdraw.RefundTo)
}

func TestDirectSaleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/bank/payout", "seller", nil)
	do(t, srv, http.MethodPost, "/api/bank/payout", "buyer", nil)
	do(t, srv, http.MethodPost, "/api/nfts", "seller",
		models.MintRequest{Name: "Tulip", DesiredPrice: 200})

	resp := do(t, srv, http.MethodPost, "/api/nfts/1/list", "seller",
		models.ListForSaleRequest{Price: 300})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/list", "buyer",
		models.ListForSaleRequest{Price: 300})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "not the owner")

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/buy", "buyer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buy := decode[models.BuyResponse](t, resp)
	assert.Equal(t, uint64(300), buy.Price)
	assert.Equal(t, "buyer", buy.NewOwner)

	resp = do(t, srv, http.MethodPost, "/api/nfts/1/buy", "buyer", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no longer for sale")
}
