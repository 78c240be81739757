package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tulips/tulips-api/internal/errs"
	"github.com/tulips/tulips-api/internal/models"
	"github.com/tulips/tulips-api/internal/services"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to HTTP status codes. Business errors are the
// caller's to recover from; only broken invariants become a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, errs.ErrInvalidState),
		errors.Is(err, errs.ErrNotForSale),
		errors.Is(err, errs.ErrAuctionExpired),
		errors.Is(err, errs.ErrNotYetExpired),
		errors.Is(err, errs.ErrAlreadyClaimed):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrBidTooLow),
		errors.Is(err, errs.ErrBidTooHigh),
		errors.Is(err, errs.ErrSelfBid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrInternal):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// nftID parses the NFT id path parameter.
func nftID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// GetBalance handles the balance query for the calling principal.
func GetBalance(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, svc.BalanceOf(principal))
	}
}

// ClaimPayout handles the one-time payout claim.
func ClaimPayout(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		resp, err := svc.ClaimPayout(principal)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Transfer handles a token transfer from the caller.
func Transfer(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		var req models.TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.To == "" {
			http.Error(w, "Destination is required", http.StatusBadRequest)
			return
		}
		resp, err := svc.Transfer(principal, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// MintNFT handles minting a new NFT.
func MintNFT(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		var req models.MintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "Name is required", http.StatusBadRequest)
			return
		}
		resp, err := svc.Mint(principal, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// GetAllNFTs handles retrieving every NFT.
func GetAllNFTs(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetAllAssets())
	}
}

// GetOwnedNFTs handles retrieving the caller's NFTs.
func GetOwnedNFTs(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, svc.GetAssetsByOwner(principal))
	}
}

// GetNFT handles retrieving a single NFT.
func GetNFT(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		nft, err := svc.GetAsset(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nft)
	}
}

// GetAuction handles retrieving the auction attached to an NFT.
func GetAuction(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		auction, err := svc.GetAuctionInfo(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, auction)
	}
}

// ListForSale handles listing an NFT for direct sale.
func ListForSale(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		var req models.ListForSaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		nft, err := svc.ListForSale(principal, id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nft)
	}
}

// ListForAuction handles putting an NFT up for auction.
func ListForAuction(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		var req models.ListForAuctionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		auction, err := svc.ListForAuction(principal, id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, auction)
	}
}

// BuyNFT handles a direct purchase.
func BuyNFT(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		resp, err := svc.BuyNFT(principal, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// PlaceBid handles placing a bid on an auction.
func PlaceBid(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		var req models.PlaceBidRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		resp, err := svc.PlaceBid(principal, id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// FinalizeAuction handles settling an ended auction. Anyone may trigger it;
// expiry is what authorizes the settlement, not the caller.
func FinalizeAuction(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		resp, err := svc.FinalizeAuction(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// WithdrawNFT handles taking a listed NFT off the market.
func WithdrawNFT(svc *services.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		id, ok := nftID(r)
		if !ok {
			http.Error(w, "Invalid NFT ID", http.StatusBadRequest)
			return
		}
		resp, err := svc.WithdrawNFT(principal, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
