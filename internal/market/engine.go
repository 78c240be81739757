// Package market implements the auction/listing engine: the single writer that
// orchestrates minting, direct sale, auctions, escrow and settlement across the
// token ledger and the asset registry.
//
// Every mutating operation validates against current state first and only then
// applies its effects, so a returned business error implies no state change.
// A single mutex serializes mutations; read-only queries take a read lock and
// observe a consistent snapshot. There is no blocking primitive: auction expiry
// is evaluated lazily at PlaceBid and FinalizeAuction, and callers are expected
// to invoke FinalizeAuction after the deadline.
package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/tulips/tulips-api/internal/errs"
	"github.com/tulips/tulips-api/internal/fees"
	"github.com/tulips/tulips-api/internal/ledger"
	"github.com/tulips/tulips-api/internal/models"
	"github.com/tulips/tulips-api/internal/registry"
)

// Engine owns all mutable marketplace state. Auctions live in a side table
// keyed by NFT id rather than as back-references inside NFT records.
type Engine struct {
	mu       sync.RWMutex
	ledger   *ledger.Ledger
	registry *registry.Registry
	policy   *fees.Policy
	auctions map[uint64]*models.Auction
	now      func() time.Time
}

// New constructs an engine over the given components. A nil clock defaults to
// time.Now; tests inject a fixed clock.
func New(l *ledger.Ledger, r *registry.Registry, p *fees.Policy, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		ledger:   l,
		registry: r,
		policy:   p,
		auctions: make(map[uint64]*models.Auction),
		now:      clock,
	}
}

// Policy returns the fee policy in effect.
func (e *Engine) Policy() *fees.Policy {
	return e.policy
}

// MintResult reports a completed mint.
type MintResult struct {
	NFTID uint64
	Fee   uint64
	Price uint64
}

// Mint charges the randomized mint fee and registers a new NFT owned by the
// caller. The NFT's initial price is the desired price minus the fee; the fee
// is charged exactly once.
func (e *Engine) Mint(caller, name, image string, desiredPrice uint64) (MintResult, error) {
	if desiredPrice == 0 {
		return MintResult{}, fmt.Errorf("mint: zero desired price: %w", errs.ErrInvalidState)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fee := e.policy.MintFee(desiredPrice)
	if err := e.ledger.Charge(caller, fee); err != nil {
		return MintResult{}, fmt.Errorf("mint: %w", err)
	}
	id := e.registry.Mint(caller, name, image, desiredPrice-fee)
	return MintResult{NFTID: id, Fee: fee, Price: desiredPrice - fee}, nil
}

// ListForSale puts an owned NFT up for direct sale at the given price.
func (e *Engine) ListForSale(caller string, id, price uint64) error {
	if price == 0 {
		return fmt.Errorf("list for sale: zero price: %w", errs.ErrInvalidState)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	nft, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if nft.Owner != caller {
		return fmt.Errorf("list for sale nft %d: %w", id, errs.ErrNotOwner)
	}
	if nft.Status != models.NFTStatusOwned {
		return fmt.Errorf("list for sale nft %d in status %s: %w", id, nft.Status, errs.ErrInvalidState)
	}
	if err := e.registry.SetStatus(id, models.NFTStatusListedForSale); err != nil {
		return err
	}
	return e.registry.SetPrice(id, price)
}

// ListForAuction puts an owned NFT up for auction, starting now and ending
// after duration.
func (e *Engine) ListForAuction(caller string, id, startPrice uint64, duration time.Duration) (models.Auction, error) {
	if startPrice == 0 || duration <= 0 {
		return models.Auction{}, fmt.Errorf("list for auction: invalid start price or duration: %w", errs.ErrInvalidState)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	nft, err := e.registry.Get(id)
	if err != nil {
		return models.Auction{}, err
	}
	if nft.Owner != caller {
		return models.Auction{}, fmt.Errorf("list for auction nft %d: %w", id, errs.ErrNotOwner)
	}
	if nft.Status != models.NFTStatusOwned {
		return models.Auction{}, fmt.Errorf("list for auction nft %d in status %s: %w", id, nft.Status, errs.ErrInvalidState)
	}

	auction := &models.Auction{
		NFTID:      id,
		Seller:     caller,
		StartPrice: startPrice,
		EndTime:    e.now().Add(duration),
	}
	if err := e.registry.SetStatus(id, models.NFTStatusListedForAuction); err != nil {
		return models.Auction{}, err
	}
	if err := e.registry.SetPrice(id, startPrice); err != nil {
		return models.Auction{}, err
	}
	e.auctions[id] = auction
	return *auction, nil
}

// BuyResult reports a completed direct sale.
type BuyResult struct {
	NFTID uint64
	Price uint64
	Fee   uint64
}

// BuyNFT buys a directly listed NFT at its ask price. The buyer pays the price
// plus the transfer fee; the seller receives the price.
func (e *Engine) BuyNFT(caller string, id uint64) (BuyResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nft, err := e.registry.Get(id)
	if err != nil {
		return BuyResult{}, err
	}
	if nft.Status != models.NFTStatusListedForSale {
		return BuyResult{}, fmt.Errorf("buy nft %d in status %s: %w", id, nft.Status, errs.ErrNotForSale)
	}
	if nft.Owner == caller {
		return BuyResult{}, fmt.Errorf("buy own nft %d: %w", id, errs.ErrInvalidState)
	}

	fee, err := e.ledger.Transfer(caller, nft.Owner, nft.Price)
	if err != nil {
		return BuyResult{}, fmt.Errorf("buy nft %d: %w", id, err)
	}
	if err := e.registry.SetOwner(id, caller); err != nil {
		return BuyResult{}, err
	}
	if err := e.registry.SetStatus(id, models.NFTStatusOwned); err != nil {
		return BuyResult{}, err
	}
	return BuyResult{NFTID: id, Price: nft.Price, Fee: fee}, nil
}

// PlaceBid places a bid on a live auction. The bid amount is escrowed; the
// previous highest bidder's escrow is released the instant the new bid is
// accepted, so at most one non-refunded escrow exists per auction. A bidder
// raising their own bid only needs the difference available.
func (e *Engine) PlaceBid(caller string, id, amount uint64) (models.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nft, err := e.registry.Get(id)
	if err != nil {
		return models.Auction{}, err
	}
	if nft.Status != models.NFTStatusListedForAuction {
		return models.Auction{}, fmt.Errorf("bid on nft %d in status %s: %w", id, nft.Status, errs.ErrInvalidState)
	}
	auction, ok := e.auctions[id]
	if !ok {
		return models.Auction{}, fmt.Errorf("nft %d listed for auction without auction record: %w", id, errs.ErrInternal)
	}
	if auction.Ended(e.now()) {
		return models.Auction{}, fmt.Errorf("bid on nft %d: %w", id, errs.ErrAuctionExpired)
	}
	if caller == auction.Seller {
		return models.Auction{}, fmt.Errorf("bid on nft %d: %w", id, errs.ErrSelfBid)
	}
	if min := e.policy.MinNextBid(auction.StartPrice, auction.HighestBid); amount < min {
		return models.Auction{}, fmt.Errorf("bid %d on nft %d below minimum %d: %w", amount, id, min, errs.ErrBidTooLow)
	}
	if max := e.policy.MaxBid(auction.StartPrice); amount > max {
		return models.Auction{}, fmt.Errorf("bid %d on nft %d above ceiling %d: %w", amount, id, max, errs.ErrBidTooHigh)
	}

	// Funds check counts the caller's own escrow on this auction as spendable,
	// since it is released before the new escrow is taken.
	available := e.ledger.Available(caller)
	if auction.HighestBidder == caller {
		available += auction.HighestBid
	}
	if available < amount {
		return models.Auction{}, fmt.Errorf("bid %d on nft %d: %w", amount, id, errs.ErrInsufficientFunds)
	}

	// All preconditions hold; apply effects.
	if auction.HighestBidder != "" {
		if err := e.ledger.ReleaseEscrow(auction.HighestBidder, auction.HighestBid); err != nil {
			return models.Auction{}, err
		}
	}
	if err := e.ledger.Escrow(caller, amount); err != nil {
		// Unreachable given the availability check above.
		return models.Auction{}, fmt.Errorf("bid %d on nft %d: %w", amount, id, err)
	}
	auction.HighestBid = amount
	auction.HighestBidder = caller
	if err := e.registry.SetPrice(id, amount); err != nil {
		return models.Auction{}, err
	}
	return *auction, nil
}

// FinalizeResult reports an auction settlement. Sold is false when the auction
// expired without bids.
type FinalizeResult struct {
	NFTID  uint64
	Sold   bool
	Winner string
	Price  uint64
	Fee    uint64
}

// FinalizeAuction settles an ended auction: the winner's escrow moves to the
// seller minus the transfer fee and ownership transfers, or with no bids the
// NFT simply reverts to Owned. Finalizing twice fails with ErrInvalidState;
// funds and ownership are never transferred again.
func (e *Engine) FinalizeAuction(id uint64) (FinalizeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nft, err := e.registry.Get(id)
	if err != nil {
		return FinalizeResult{}, err
	}
	if nft.Status != models.NFTStatusListedForAuction {
		return FinalizeResult{}, fmt.Errorf("finalize nft %d in status %s: %w", id, nft.Status, errs.ErrInvalidState)
	}
	auction, ok := e.auctions[id]
	if !ok {
		return FinalizeResult{}, fmt.Errorf("nft %d listed for auction without auction record: %w", id, errs.ErrInternal)
	}
	if !auction.Ended(e.now()) {
		return FinalizeResult{}, fmt.Errorf("finalize nft %d before end time: %w", id, errs.ErrNotYetExpired)
	}

	result := FinalizeResult{NFTID: id}
	if auction.HighestBid > 0 {
		fee, err := e.ledger.SettleEscrow(auction.HighestBidder, auction.HighestBid, nft.Owner)
		if err != nil {
			return FinalizeResult{}, err
		}
		if err := e.registry.SetOwner(id, auction.HighestBidder); err != nil {
			return FinalizeResult{}, err
		}
		if err := e.registry.SetPrice(id, auction.HighestBid); err != nil {
			return FinalizeResult{}, err
		}
		result.Sold = true
		result.Winner = auction.HighestBidder
		result.Price = auction.HighestBid
		result.Fee = fee
	}
	if err := e.registry.SetStatus(id, models.NFTStatusOwned); err != nil {
		return FinalizeResult{}, err
	}
	delete(e.auctions, id)
	return result, nil
}

// WithdrawResult reports a delisting and any escrow refund it triggered.
type WithdrawResult struct {
	NFTID    uint64
	Refunded uint64
	RefundTo string
}

// WithdrawNFT takes a listed NFT off the market. An outstanding highest bid is
// refunded from escrow. The NFT reverts to Owned with no residual auction or
// listing record.
func (e *Engine) WithdrawNFT(caller string, id uint64) (WithdrawResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nft, err := e.registry.Get(id)
	if err != nil {
		return WithdrawResult{}, err
	}
	if nft.Owner != caller {
		return WithdrawResult{}, fmt.Errorf("withdraw nft %d: %w", id, errs.ErrNotOwner)
	}
	if nft.Status != models.NFTStatusListedForSale && nft.Status != models.NFTStatusListedForAuction {
		return WithdrawResult{}, fmt.Errorf("withdraw nft %d in status %s: %w", id, nft.Status, errs.ErrInvalidState)
	}

	result := WithdrawResult{NFTID: id}
	if auction, ok := e.auctions[id]; ok {
		if auction.HighestBidder != "" {
			if err := e.ledger.ReleaseEscrow(auction.HighestBidder, auction.HighestBid); err != nil {
				return WithdrawResult{}, err
			}
			result.Refunded = auction.HighestBid
			result.RefundTo = auction.HighestBidder
		}
		delete(e.auctions, id)
	}
	if err := e.registry.SetStatus(id, models.NFTStatusOwned); err != nil {
		return WithdrawResult{}, err
	}
	return result, nil
}

// Transfer moves tokens between accounts, charging the transfer fee.
func (e *Engine) Transfer(caller, to string, amount uint64) (fee uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Transfer(caller, to, amount)
}

// ClaimPayout grants the one-time payout to the caller.
func (e *Engine) ClaimPayout(caller string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.ClaimPayout(caller)
}

// BalanceOf returns the caller's total, frozen and available balance.
func (e *Engine) BalanceOf(principal string) (balance, frozen uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.BalanceOf(principal), e.ledger.FrozenOf(principal)
}

// GetAsset returns a single NFT record.
func (e *Engine) GetAsset(id uint64) (models.NFT, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Get(id)
}

// GetAssetsByOwner returns all NFTs owned by the principal.
func (e *Engine) GetAssetsByOwner(owner string) []models.NFT {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.ByOwner(owner)
}

// GetAllAssets returns every NFT, ordered by id.
func (e *Engine) GetAllAssets() []models.NFT {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.All()
}

// GetAuctionInfo returns the auction attached to the NFT, if any.
func (e *Engine) GetAuctionInfo(id uint64) (models.Auction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.registry.Get(id); err != nil {
		return models.Auction{}, err
	}
	auction, ok := e.auctions[id]
	if !ok {
		return models.Auction{}, fmt.Errorf("auction for nft %d: %w", id, errs.ErrNotFound)
	}
	return *auction, nil
}

// Snapshot returns a consistent copy of the whole engine state.
func (e *Engine) Snapshot() models.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	nfts, nextID := e.registry.Snapshot()
	auctions := make([]models.Auction, 0, len(e.auctions))
	for _, a := range e.auctions {
		auctions = append(auctions, *a)
	}
	return models.State{
		Accounts:  e.ledger.Snapshot(),
		NFTs:      nfts,
		Auctions:  auctions,
		NextNFTID: nextID,
	}
}

// Restore replaces the engine state with a previously captured snapshot.
func (e *Engine) Restore(state models.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Restore(state.Accounts)
	e.registry.Restore(state.NFTs, state.NextNFTID)
	e.auctions = make(map[uint64]*models.Auction, len(state.Auctions))
	for _, a := range state.Auctions {
		auction := a
		e.auctions[a.NFTID] = &auction
	}
}
