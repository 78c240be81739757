// Package ledger implements the fungible token ledger: per-account balances,
// escrow bookkeeping for auction bids, fee deduction and the one-time payout.
package ledger

import (
	"fmt"
	"math/bits"

	"github.com/tulips/tulips-api/internal/errs"
	"github.com/tulips/tulips-api/internal/fees"
	"github.com/tulips/tulips-api/internal/models"
)

// Ledger holds every account, keyed by principal. Accounts are created lazily
// on first reference. Fees are not burned: they are credited to the treasury
// principal, so total supply is conserved across transfers and settlements.
//
// The ledger is not self-synchronizing; the market engine serializes all
// access under its own lock.
type Ledger struct {
	accounts map[string]*models.Account
	policy   *fees.Policy
	treasury string
}

// New constructs an empty ledger. treasury receives all fees.
func New(policy *fees.Policy, treasury string) *Ledger {
	return &Ledger{
		accounts: make(map[string]*models.Account),
		policy:   policy,
		treasury: treasury,
	}
}

func (l *Ledger) account(principal string) *models.Account {
	acc, ok := l.accounts[principal]
	if !ok {
		acc = &models.Account{Principal: principal}
		l.accounts[principal] = acc
	}
	return acc
}

// BalanceOf returns the total balance (including escrowed funds). It never fails.
func (l *Ledger) BalanceOf(principal string) uint64 {
	if acc, ok := l.accounts[principal]; ok {
		return acc.Balance
	}
	return 0
}

// FrozenOf returns the amount currently held in escrow for the account.
func (l *Ledger) FrozenOf(principal string) uint64 {
	if acc, ok := l.accounts[principal]; ok {
		return acc.Frozen
	}
	return 0
}

// Available returns the spendable balance, excluding escrowed funds.
func (l *Ledger) Available(principal string) uint64 {
	if acc, ok := l.accounts[principal]; ok {
		return acc.Available()
	}
	return 0
}

// Transfer moves amount from one account to another, charging the transfer fee
// on top of the debit. The fee goes to the treasury. Both mutations happen
// together or not at all: the availability check precedes any change.
func (l *Ledger) Transfer(from, to string, amount uint64) (fee uint64, err error) {
	fee = l.policy.TransferFee(amount)
	src := l.account(from)
	// The debit is computed with an explicit carry: a caller-supplied amount
	// near MaxUint64 must not wrap amount+fee below the available balance.
	need, carry := bits.Add64(amount, fee, 0)
	if carry != 0 || src.Available() < need {
		return 0, fmt.Errorf("transfer %d (+%d fee) from %s: %w", amount, fee, from, errs.ErrInsufficientFunds)
	}
	src.Balance -= need
	l.account(to).Balance += amount
	l.account(l.treasury).Balance += fee
	return fee, nil
}

// Charge debits amount from the account and credits it to the treasury. Used
// for the mint fee.
func (l *Ledger) Charge(from string, amount uint64) error {
	src := l.account(from)
	if src.Available() < amount {
		return fmt.Errorf("charge %d from %s: %w", amount, from, errs.ErrInsufficientFunds)
	}
	src.Balance -= amount
	l.account(l.treasury).Balance += amount
	return nil
}

// ClaimPayout credits the fixed payout amount exactly once per account. The
// claimed flag and the credit are set together; there is no window where one
// applies without the other.
func (l *Ledger) ClaimPayout(principal string) (uint64, error) {
	acc := l.account(principal)
	if acc.PayoutClaimed {
		return 0, fmt.Errorf("payout for %s: %w", principal, errs.ErrAlreadyClaimed)
	}
	amount := l.policy.PayoutAmount()
	acc.Balance += amount
	acc.PayoutClaimed = true
	return amount, nil
}

// Escrow freezes amount of the account's available balance against a pending
// bid. Frozen funds are excluded from what Transfer, Charge and further Escrow
// calls may spend.
func (l *Ledger) Escrow(principal string, amount uint64) error {
	acc := l.account(principal)
	if acc.Available() < amount {
		return fmt.Errorf("escrow %d for %s: %w", amount, principal, errs.ErrInsufficientFunds)
	}
	acc.Frozen += amount
	return nil
}

// ReleaseEscrow unfreezes previously escrowed funds (outbid refund or auction
// withdrawal). Releasing more than is frozen means the engine's escrow
// bookkeeping is out of sync, which is an internal error, not a business one.
func (l *Ledger) ReleaseEscrow(principal string, amount uint64) error {
	acc := l.account(principal)
	if acc.Frozen < amount {
		return fmt.Errorf("release %d for %s (frozen %d): %w", amount, principal, acc.Frozen, errs.ErrInternal)
	}
	acc.Frozen -= amount
	return nil
}

// SettleEscrow removes the escrowed amount from the bidder and credits the
// seller minus the transfer fee. The escrow was verified present when the bid
// was accepted, so a shortfall here is an invariant violation.
func (l *Ledger) SettleEscrow(from string, amount uint64, to string) (fee uint64, err error) {
	src := l.account(from)
	if src.Frozen < amount || src.Balance < amount {
		return 0, fmt.Errorf("settle %d from %s (frozen %d, balance %d): %w",
			amount, from, src.Frozen, src.Balance, errs.ErrInternal)
	}
	fee = l.policy.TransferFee(amount)
	src.Frozen -= amount
	src.Balance -= amount
	l.account(to).Balance += amount - fee
	l.account(l.treasury).Balance += fee
	return fee, nil
}

// Snapshot returns a copy of every account with a non-zero footprint.
func (l *Ledger) Snapshot() []models.Account {
	out := make([]models.Account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, *acc)
	}
	return out
}

// Restore replaces the ledger contents with the given accounts.
func (l *Ledger) Restore(accounts []models.Account) {
	l.accounts = make(map[string]*models.Account, len(accounts))
	for _, acc := range accounts {
		a := acc
		l.accounts[a.Principal] = &a
	}
}
