// Package registry implements the asset registry: NFT records keyed by a
// monotonically increasing id. The registry enforces no cross-entity rules
// (escrow, listing legality); that is the market engine's job, and only the
// engine mutates it.
package registry

import (
	"fmt"
	"sort"

	"github.com/tulips/tulips-api/internal/errs"
	"github.com/tulips/tulips-api/internal/models"
)

// Registry holds all NFT records. Not self-synchronizing; the market engine
// serializes access.
type Registry struct {
	nfts   map[uint64]*models.NFT
	nextID uint64
}

// New constructs an empty registry. The first minted NFT gets id 1.
func New() *Registry {
	return &Registry{nfts: make(map[uint64]*models.NFT), nextID: 1}
}

// Mint creates a new NFT owned by owner with status Owned and returns its id.
func (r *Registry) Mint(owner, name, image string, price uint64) uint64 {
	id := r.nextID
	r.nextID++
	r.nfts[id] = &models.NFT{
		ID:     id,
		Owner:  owner,
		Name:   name,
		Image:  image,
		Price:  price,
		Status: models.NFTStatusOwned,
	}
	return id
}

// Get returns a copy of the NFT record.
func (r *Registry) Get(id uint64) (models.NFT, error) {
	nft, ok := r.nfts[id]
	if !ok {
		return models.NFT{}, fmt.Errorf("nft %d: %w", id, errs.ErrNotFound)
	}
	return *nft, nil
}

// ByOwner returns copies of all NFTs owned by the principal, ordered by id.
func (r *Registry) ByOwner(owner string) []models.NFT {
	var out []models.NFT
	for _, nft := range r.nfts {
		if nft.Owner == owner {
			out = append(out, *nft)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns copies of every NFT, ordered by id.
func (r *Registry) All() []models.NFT {
	out := make([]models.NFT, 0, len(r.nfts))
	for _, nft := range r.nfts {
		out = append(out, *nft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetOwner reassigns ownership of an NFT.
func (r *Registry) SetOwner(id uint64, owner string) error {
	nft, ok := r.nfts[id]
	if !ok {
		return fmt.Errorf("nft %d: %w", id, errs.ErrNotFound)
	}
	nft.Owner = owner
	return nil
}

// SetStatus updates the lifecycle status of an NFT.
func (r *Registry) SetStatus(id uint64, status models.NFTStatus) error {
	nft, ok := r.nfts[id]
	if !ok {
		return fmt.Errorf("nft %d: %w", id, errs.ErrNotFound)
	}
	nft.Status = status
	return nil
}

// SetPrice updates the display price of an NFT.
func (r *Registry) SetPrice(id uint64, price uint64) error {
	nft, ok := r.nfts[id]
	if !ok {
		return fmt.Errorf("nft %d: %w", id, errs.ErrNotFound)
	}
	nft.Price = price
	return nil
}

// Snapshot returns copies of all NFTs plus the next id to assign.
func (r *Registry) Snapshot() ([]models.NFT, uint64) {
	return r.All(), r.nextID
}

// Restore replaces the registry contents. nextID must be greater than every
// restored id; Restore raises it if the given value is too low.
func (r *Registry) Restore(nfts []models.NFT, nextID uint64) {
	r.nfts = make(map[uint64]*models.NFT, len(nfts))
	max := uint64(0)
	for _, nft := range nfts {
		n := nft
		r.nfts[n.ID] = &n
		if n.ID > max {
			max = n.ID
		}
	}
	r.nextID = nextID
	if r.nextID <= max {
		r.nextID = max + 1
	}
}
