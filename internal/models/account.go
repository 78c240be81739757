package models

// Account represents a token ledger account. Accounts are created implicitly on
// first reference and never destroyed. Balance and Frozen are in the token's
// smallest unit; Frozen is always <= Balance.
type Account struct {
	Principal     string `json:"principal" db:"principal"`
	Balance       uint64 `json:"balance" db:"balance"`
	Frozen        uint64 `json:"frozen" db:"frozen"`
	PayoutClaimed bool   `json:"payout_claimed" db:"payout_claimed"`
}

// Available returns the spendable part of the balance, excluding escrowed funds.
func (a Account) Available() uint64 {
	return a.Balance - a.Frozen
}

// BalanceResponse is the payload for the balance query.
type BalanceResponse struct {
	Principal string `json:"principal"`
	Balance   uint64 `json:"balance"`
	Frozen    uint64 `json:"frozen"`
	Available uint64 `json:"available"`
}

// TransferRequest represents a request to transfer tokens to another account.
type TransferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// TransferResponse reports a completed transfer, including the fee charged on
// top of the transferred amount.
type TransferResponse struct {
	TxID   string `json:"tx_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Fee    uint64 `json:"fee"`
}

// PayoutResponse reports the one-time payout grant.
type PayoutResponse struct {
	TxID    string `json:"tx_id"`
	Amount  uint64 `json:"amount"`
	Balance uint64 `json:"balance"`
}
