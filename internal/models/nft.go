package models

// NFTStatus represents the lifecycle status of an NFT. The status determines
// which marketplace operations are legal (Owned -> ListedForSale/ListedForAuction
// -> Owned).
type NFTStatus string

const (
	NFTStatusOwned            NFTStatus = "owned"
	NFTStatusListedForSale    NFTStatus = "for_sale"
	NFTStatusListedForAuction NFTStatus = "on_auction"
)

// NFT represents a registered asset. IDs are assigned monotonically by the
// registry starting at 1. Image is an opaque reference (URL or data URI) that
// the engine never interprets. Price is the current ask while listed for sale,
// the start price or highest bid while on auction, and the last settled price
// otherwise.
type NFT struct {
	ID     uint64    `json:"id" db:"id"`
	Owner  string    `json:"owner" db:"owner"`
	Name   string    `json:"name" db:"name"`
	Image  string    `json:"image" db:"image"`
	Price  uint64    `json:"price" db:"price"`
	Status NFTStatus `json:"status" db:"status"`
}

// MintRequest represents a request to mint a new NFT. The mint fee is deducted
// from DesiredPrice; the remainder becomes the NFT's initial price.
type MintRequest struct {
	Name         string `json:"name"`
	Image        string `json:"image"`
	DesiredPrice uint64 `json:"desired_price"`
}

// MintResponse reports a completed mint.
type MintResponse struct {
	TxID  string `json:"tx_id"`
	NFTID uint64 `json:"nft_id"`
	Fee   uint64 `json:"fee"`
	Price uint64 `json:"price"`
}

// ListForSaleRequest represents a request to list an owned NFT at a fixed price.
type ListForSaleRequest struct {
	Price uint64 `json:"price"`
}

// BuyResponse reports a completed direct sale.
type BuyResponse struct {
	TxID     string `json:"tx_id"`
	NFTID    uint64 `json:"nft_id"`
	NewOwner string `json:"new_owner"`
	Price    uint64 `json:"price"`
	Fee      uint64 `json:"fee"`
}

// NFTListResponse represents the response for listing NFTs.
type NFTListResponse struct {
	NFTs       []NFT `json:"nfts"`
	TotalCount int   `json:"total_count"`
}
