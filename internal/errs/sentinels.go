// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Business errors. All are recoverable by the caller: no operation applies a
// partial mutation before returning one of these.
var (
	// ErrInsufficientFunds indicates the available (non-escrowed) balance is
	// below the required amount plus fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotOwner indicates the caller does not own the NFT.
	ErrNotOwner = errors.New("not owner")

	// ErrInvalidState indicates the NFT is not in the status required for the
	// requested transition.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotForSale indicates the NFT is not listed for direct sale.
	ErrNotForSale = errors.New("not for sale")

	// ErrAuctionExpired indicates a bid arrived at or after the auction end time.
	ErrAuctionExpired = errors.New("auction expired")

	// ErrNotYetExpired indicates finalization was requested before the auction end time.
	ErrNotYetExpired = errors.New("auction not yet expired")

	// ErrBidTooLow indicates a bid below the minimum raise over the highest bid.
	ErrBidTooLow = errors.New("bid too low")

	// ErrBidTooHigh indicates a bid above the ceiling derived from the start price.
	ErrBidTooHigh = errors.New("bid too high")

	// ErrSelfBid indicates the seller tried to bid on their own auction.
	ErrSelfBid = errors.New("self bid")

	// ErrAlreadyClaimed indicates the one-time payout was requested twice.
	ErrAlreadyClaimed = errors.New("payout already claimed")

	// ErrNotFound indicates the referenced NFT or auction does not exist.
	ErrNotFound = errors.New("not found")
)

// ErrInternal indicates a broken engine invariant (e.g. escrow bookkeeping out
// of sync). It is deliberately distinct from the business errors above so a bug
// is never masked as a business rule.
var ErrInternal = errors.New("internal error")
