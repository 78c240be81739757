package models

import (
	"time"
)

// Auction represents an active auction attached 1:1 to an NFT while its status
// is ListedForAuction. It is kept in a side table keyed by NFT id rather than
// embedded in the NFT record. HighestBid is 0 while no bid has been accepted,
// in which case HighestBidder is empty. While HighestBid > 0, the highest
// bidder holds exactly that amount in ledger escrow.
type Auction struct {
	NFTID         uint64    `json:"nft_id" db:"nft_id"`
	Seller        string    `json:"seller" db:"seller"`
	StartPrice    uint64    `json:"start_price" db:"start_price"`
	HighestBid    uint64    `json:"highest_bid" db:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty" db:"highest_bidder"`
	EndTime       time.Time `json:"end_time" db:"end_time"`
}

// Ended reports whether the auction deadline has passed at the given instant.
func (a Auction) Ended(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// ListForAuctionRequest represents a request to put an owned NFT up for auction.
// Duration is in seconds.
type ListForAuctionRequest struct {
	StartPrice uint64 `json:"start_price"`
	Duration   int64  `json:"duration"`
}

// PlaceBidRequest represents a request to place a bid on an auction.
type PlaceBidRequest struct {
	Amount uint64 `json:"amount"`
}

// BidResponse reports an accepted bid.
type BidResponse struct {
	TxID       string    `json:"tx_id"`
	NFTID      uint64    `json:"nft_id"`
	Bidder     string    `json:"bidder"`
	Amount     uint64    `json:"amount"`
	MinNextBid uint64    `json:"min_next_bid"`
	EndTime    time.Time `json:"end_time"`
}

// FinalizeResponse reports the outcome of an auction finalization. Sold is
// false when the auction expired without bids and the NFT reverted to its
// seller.
type FinalizeResponse struct {
	TxID   string `json:"tx_id"`
	NFTID  uint64 `json:"nft_id"`
	Sold   bool   `json:"sold"`
	Winner string `json:"winner,omitempty"`
	Price  uint64 `json:"price,omitempty"`
	Fee    uint64 `json:"fee,omitempty"`
}

// WithdrawResponse reports a delisting, including any escrow refunded to an
// outstanding bidder.
type WithdrawResponse struct {
	TxID     string `json:"tx_id"`
	NFTID    uint64 `json:"nft_id"`
	Refunded uint64 `json:"refunded,omitempty"`
	RefundTo string `json:"refund_to,omitempty"`
}
