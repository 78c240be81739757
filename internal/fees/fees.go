// Package fees centralizes every pricing rule of the marketplace: mint fee,
// minimum raise, bid ceiling, transfer fee and the one-time payout amount.
// Keeping them in one place means engine-side validation can never diverge
// from whatever a client precomputed; the engine re-validates everything.
package fees

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"math/bits"
)

// Default policy parameters. All percentages are integer percent values.
const (
	DefaultMintFeeMinPct  = 40
	DefaultMintFeeMaxPct  = 60
	DefaultMinRaisePct    = 5
	DefaultBidCeilingPct  = 220
	DefaultTransferFeePct = 3
	DefaultPayoutAmount   = 1000
)

// Params holds the named policy constants. Zero values are replaced with the
// stated defaults by Normalize.
type Params struct {
	// MintFeeMinPct and MintFeeMaxPct bound the randomized mint fee as a
	// percentage of the declared desired price.
	MintFeeMinPct uint64 `json:"mint_fee_min_pct"`
	MintFeeMaxPct uint64 `json:"mint_fee_max_pct"`
	// MinRaisePct is the minimum percentage a bid must exceed the current
	// highest bid by.
	MinRaisePct uint64 `json:"min_raise_pct"`
	// BidCeilingPct caps bids as a percentage of the auction start price.
	BidCeilingPct uint64 `json:"bid_ceiling_pct"`
	// TransferFeePct is charged on transfers and auction settlements.
	TransferFeePct uint64 `json:"transfer_fee_pct"`
	// PayoutAmount is the one-time grant credited to a new account.
	PayoutAmount uint64 `json:"payout_amount"`
}

// Normalize fills unset fields with defaults and returns the result.
func (p Params) Normalize() Params {
	if p.MintFeeMinPct == 0 {
		p.MintFeeMinPct = DefaultMintFeeMinPct
	}
	if p.MintFeeMaxPct == 0 {
		p.MintFeeMaxPct = DefaultMintFeeMaxPct
	}
	if p.MintFeeMaxPct < p.MintFeeMinPct {
		p.MintFeeMaxPct = p.MintFeeMinPct
	}
	if p.MinRaisePct == 0 {
		p.MinRaisePct = DefaultMinRaisePct
	}
	if p.BidCeilingPct == 0 {
		p.BidCeilingPct = DefaultBidCeilingPct
	}
	if p.TransferFeePct == 0 {
		p.TransferFeePct = DefaultTransferFeePct
	}
	if p.PayoutAmount == 0 {
		p.PayoutAmount = DefaultPayoutAmount
	}
	return p
}

// Source yields unbiased random integers. The mint fee percentage must not be
// predictable or choosable by the caller, so the production source reads the
// platform CSPRNG; tests inject a deterministic source.
type Source interface {
	// Uint64n returns a uniform random value in [0, n). n must be > 0.
	Uint64n(n uint64) uint64
}

type cryptoSource struct{}

// Uint64n draws from crypto/rand with rejection sampling to avoid modulo bias.
func (cryptoSource) Uint64n(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	limit := math.MaxUint64 - math.MaxUint64%n
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand failing means the platform is broken; there is
			// no meaningful fallback for an unbiased draw.
			panic(err)
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return v % n
		}
	}
}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

// mulPctFloor returns floor(v * pct / 100) in full 128-bit arithmetic, so huge
// inputs can never wrap to a smaller fee. A quotient that does not fit in
// uint64 saturates to MaxUint64.
func mulPctFloor(v, pct uint64) uint64 {
	hi, lo := bits.Mul64(v, pct)
	if hi >= 100 {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, 100)
	return q
}

// mulPctCeil is mulPctFloor with ceiling rounding.
func mulPctCeil(v, pct uint64) uint64 {
	hi, lo := bits.Mul64(v, pct)
	lo, carry := bits.Add64(lo, 99, 0)
	hi += carry
	if hi >= 100 {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, 100)
	return q
}

// Policy computes fees and bid bounds from Params. Methods are pure except for
// MintFee, which draws from the injected Source.
type Policy struct {
	params Params
	src    Source
}

// New constructs a Policy. A nil src falls back to the crypto source.
func New(params Params, src Source) *Policy {
	if src == nil {
		src = NewCryptoSource()
	}
	return &Policy{params: params.Normalize(), src: src}
}

// Params returns the normalized parameters in effect.
func (p *Policy) Params() Params {
	return p.params
}

// MintFee draws the fee for minting an NFT with the given desired price:
// a uniform percentage in [MintFeeMinPct, MintFeeMaxPct], floor-rounded.
func (p *Policy) MintFee(desiredPrice uint64) uint64 {
	pct := p.params.MintFeeMinPct + p.src.Uint64n(p.params.MintFeeMaxPct-p.params.MintFeeMinPct+1)
	return mulPctFloor(desiredPrice, pct)
}

// MinNextBid returns the lowest acceptable bid: the start price while no bid
// exists, otherwise the highest bid raised by MinRaisePct, ceiling-rounded.
// A bid equal to the current highest bid is therefore always rejected.
func (p *Policy) MinNextBid(startPrice, highestBid uint64) uint64 {
	if highestBid == 0 {
		return startPrice
	}
	return mulPctCeil(highestBid, 100+p.params.MinRaisePct)
}

// MaxBid returns the hard bid ceiling: BidCeilingPct of the auction start
// price, floor-rounded. The ceiling is relative to the start price, not the
// rolling highest bid.
func (p *Policy) MaxBid(startPrice uint64) uint64 {
	return mulPctFloor(startPrice, p.params.BidCeilingPct)
}

// TransferFee returns the fee charged on top of a transfer or settlement
// amount, floor-rounded.
func (p *Policy) TransferFee(amount uint64) uint64 {
	return mulPctFloor(amount, p.params.TransferFeePct)
}

// PayoutAmount returns the one-time grant for new accounts.
func (p *Policy) PayoutAmount() uint64 {
	return p.params.PayoutAmount
}
