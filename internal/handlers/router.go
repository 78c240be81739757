package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tulips/tulips-api/internal/services"
)

// NewRouter wires the complete HTTP surface of the marketplace engine.
func NewRouter(svc *services.MarketService, hub *Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", PrincipalHeader},
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public reads
	r.Get("/api/nfts", GetAllNFTs(svc))
	r.Get("/api/nfts/{id}", GetNFT(svc))
	r.Get("/api/nfts/{id}/auction", GetAuction(svc))

	// Websocket event stream
	r.Get("/ws", ServeWs(hub))

	// Everything below needs a caller identity
	r.Group(func(r chi.Router) {
		r.Use(RequirePrincipal)

		r.Get("/api/bank/balance", GetBalance(svc))
		r.Post("/api/bank/payout", ClaimPayout(svc))
		r.Post("/api/bank/transfer", Transfer(svc))

		r.Get("/api/nfts/owned", GetOwnedNFTs(svc))
		r.Post("/api/nfts", MintNFT(svc))
		r.Post("/api/nfts/{id}/list", ListForSale(svc))
		r.Post("/api/nfts/{id}/auction", ListForAuction(svc))
		r.Post("/api/nfts/{id}/buy", BuyNFT(svc))
		r.Post("/api/nfts/{id}/bid", PlaceBid(svc))
		r.Post("/api/nfts/{id}/finalize", FinalizeAuction(svc))
		r.Delete("/api/nfts/{id}/listing", WithdrawNFT(svc))
	})

	return r
}
