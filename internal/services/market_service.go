package services

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tulips/tulips-api/internal/market"
	"github.com/tulips/tulips-api/internal/models"
)

// SnapshotStore persists engine snapshots after committed mutations.
type SnapshotStore interface {
	Save(state models.State) error
}

// EventPublisher pushes marketplace events to subscribed clients.
type EventPublisher interface {
	Publish(event string, payload any)
	PublishNFT(nftID uint64, event string, payload any)
}

// MarketService is the surface the HTTP layer talks to. It runs operations on
// the engine and, after a successful mutation, persists a snapshot and
// publishes an event. Snapshot failures are logged, not surfaced: the in-memory
// state is authoritative and the caller's operation has already committed.
type MarketService struct {
	engine *market.Engine
	store  SnapshotStore
	events EventPublisher
	logger *zap.Logger
}

// NewMarketService creates a new MarketService. store and events may be nil.
func NewMarketService(engine *market.Engine, store SnapshotStore, events EventPublisher, logger *zap.Logger) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketService{
		engine: engine,
		store:  store,
		events: events,
		logger: logger,
	}
}

// committed runs the post-mutation bookkeeping: persist a snapshot, announce
// the event (empty event means a private operation that is not broadcast), and
// hand back a transaction reference.
func (s *MarketService) committed(event string, payload any) string {
	txID := uuid.New().String()
	if s.store != nil {
		if err := s.store.Save(s.engine.Snapshot()); err != nil {
			s.logger.Error("snapshot save failed", zap.String("event", event), zap.Error(err))
		}
	}
	if s.events != nil && event != "" {
		s.events.Publish(event, payload)
	}
	return txID
}

// Mint mints a new NFT for the caller.
func (s *MarketService) Mint(caller string, req models.MintRequest) (*models.MintResponse, error) {
	result, err := s.engine.Mint(caller, req.Name, req.Image, req.DesiredPrice)
	if err != nil {
		return nil, err
	}
	resp := &models.MintResponse{
		NFTID: result.NFTID,
		Fee:   result.Fee,
		Price: result.Price,
	}
	resp.TxID = s.committed("nft_minted", resp)
	s.logger.Info("nft minted",
		zap.Uint64("nft_id", result.NFTID),
		zap.String("owner", caller),
		zap.Uint64("fee", result.Fee),
	)
	return resp, nil
}

// ListForSale lists an NFT for direct sale.
func (s *MarketService) ListForSale(caller string, id uint64, req models.ListForSaleRequest) (*models.NFT, error) {
	if err := s.engine.ListForSale(caller, id, req.Price); err != nil {
		return nil, err
	}
	nft, err := s.engine.GetAsset(id)
	if err != nil {
		return nil, err
	}
	s.committed("nft_listed", nft)
	return &nft, nil
}

// ListForAuction puts an NFT up for auction.
func (s *MarketService) ListForAuction(caller string, id uint64, req models.ListForAuctionRequest) (*models.Auction, error) {
	auction, err := s.engine.ListForAuction(caller, id, req.StartPrice, time.Duration(req.Duration)*time.Second)
	if err != nil {
		return nil, err
	}
	s.committed("auction_started", auction)
	s.logger.Info("auction started",
		zap.Uint64("nft_id", id),
		zap.Uint64("start_price", req.StartPrice),
		zap.Time("end_time", auction.EndTime),
	)
	return &auction, nil
}

// BuyNFT executes a direct sale.
func (s *MarketService) BuyNFT(caller string, id uint64) (*models.BuyResponse, error) {
	result, err := s.engine.BuyNFT(caller, id)
	if err != nil {
		return nil, err
	}
	resp := &models.BuyResponse{
		NFTID:    result.NFTID,
		NewOwner: caller,
		Price:    result.Price,
		Fee:      result.Fee,
	}
	resp.TxID = s.committed("nft_sold", resp)
	s.logger.Info("nft sold",
		zap.Uint64("nft_id", id),
		zap.String("buyer", caller),
		zap.Uint64("price", result.Price),
	)
	return resp, nil
}

// PlaceBid places a bid on an auction.
func (s *MarketService) PlaceBid(caller string, id uint64, req models.PlaceBidRequest) (*models.BidResponse, error) {
	auction, err := s.engine.PlaceBid(caller, id, req.Amount)
	if err != nil {
		return nil, err
	}
	resp := &models.BidResponse{
		NFTID:      id,
		Bidder:     caller,
		Amount:     req.Amount,
		MinNextBid: s.engine.Policy().MinNextBid(auction.StartPrice, auction.HighestBid),
		EndTime:    auction.EndTime,
	}
	resp.TxID = s.committed("bid_placed", resp)
	if s.events != nil {
		s.events.PublishNFT(id, "auction_update", auction)
	}
	s.logger.Info("bid placed",
		zap.Uint64("nft_id", id),
		zap.String("bidder", caller),
		zap.Uint64("amount", req.Amount),
	)
	return resp, nil
}

// FinalizeAuction settles an ended auction.
func (s *MarketService) FinalizeAuction(id uint64) (*models.FinalizeResponse, error) {
	result, err := s.engine.FinalizeAuction(id)
	if err != nil {
		return nil, err
	}
	resp := &models.FinalizeResponse{
		NFTID:  result.NFTID,
		Sold:   result.Sold,
		Winner: result.Winner,
		Price:  result.Price,
		Fee:    result.Fee,
	}
	resp.TxID = s.committed("auction_finalized", resp)
	if s.events != nil {
		s.events.PublishNFT(id, "auction_update", resp)
	}
	s.logger.Info("auction finalized",
		zap.Uint64("nft_id", id),
		zap.Bool("sold", result.Sold),
		zap.String("winner", result.Winner),
	)
	return resp, nil
}

// WithdrawNFT takes a listed NFT off the market.
func (s *MarketService) WithdrawNFT(caller string, id uint64) (*models.WithdrawResponse, error) {
	result, err := s.engine.WithdrawNFT(caller, id)
	if err != nil {
		return nil, err
	}
	resp := &models.WithdrawResponse{
		NFTID:    result.NFTID,
		Refunded: result.Refunded,
		RefundTo: result.RefundTo,
	}
	resp.TxID = s.committed("nft_withdrawn", resp)
	return resp, nil
}

// Transfer moves tokens from the caller to another account.
func (s *MarketService) Transfer(caller string, req models.TransferRequest) (*models.TransferResponse, error) {
	fee, err := s.engine.Transfer(caller, req.To, req.Amount)
	if err != nil {
		return nil, err
	}
	resp := &models.TransferResponse{
		From:   caller,
		To:     req.To,
		Amount: req.Amount,
		Fee:    fee,
	}
	resp.TxID = s.committed("", nil)
	return resp, nil
}

// ClaimPayout grants the one-time payout to the caller.
func (s *MarketService) ClaimPayout(caller string) (*models.PayoutResponse, error) {
	amount, err := s.engine.ClaimPayout(caller)
	if err != nil {
		return nil, err
	}
	balance, _ := s.engine.BalanceOf(caller)
	resp := &models.PayoutResponse{
		Amount:  amount,
		Balance: balance,
	}
	resp.TxID = s.committed("", nil)
	return resp, nil
}

// BalanceOf returns the caller's balance breakdown.
func (s *MarketService) BalanceOf(principal string) *models.BalanceResponse {
	balance, frozen := s.engine.BalanceOf(principal)
	return &models.BalanceResponse{
		Principal: principal,
		Balance:   balance,
		Frozen:    frozen,
		Available: balance - frozen,
	}
}

// GetAsset returns a single NFT.
func (s *MarketService) GetAsset(id uint64) (*models.NFT, error) {
	nft, err := s.engine.GetAsset(id)
	if err != nil {
		return nil, err
	}
	return &nft, nil
}

// GetAssetsByOwner returns all NFTs owned by a principal.
func (s *MarketService) GetAssetsByOwner(owner string) *models.NFTListResponse {
	nfts := s.engine.GetAssetsByOwner(owner)
	return &models.NFTListResponse{NFTs: nfts, TotalCount: len(nfts)}
}

// GetAllAssets returns every NFT.
func (s *MarketService) GetAllAssets() *models.NFTListResponse {
	nfts := s.engine.GetAllAssets()
	return &models.NFTListResponse{NFTs: nfts, TotalCount: len(nfts)}
}

// GetAuctionInfo returns the auction attached to an NFT.
func (s *MarketService) GetAuctionInfo(id uint64) (*models.Auction, error) {
	auction, err := s.engine.GetAuctionInfo(id)
	if err != nil {
		return nil, err
	}
	return &auction, nil
}
