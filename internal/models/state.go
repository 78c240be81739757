package models

// State is a consistent snapshot of the whole engine: every account, NFT and
// open auction, plus the next NFT id to assign. It is what the snapshot store
// persists after a committed mutation and what the engine restores at boot.
type State struct {
	Accounts  []Account `json:"accounts"`
	NFTs      []NFT     `json:"nfts"`
	Auctions  []Auction `json:"auctions"`
	NextNFTID uint64    `json:"next_nft_id"`
}
