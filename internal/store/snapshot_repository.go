package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/tulips/tulips-api/internal/models"
)

// SnapshotRepository persists full engine snapshots. The engine is the single
// writer over in-memory state; the database only provides durability across
// restarts. Each Save replaces the previous snapshot in one transaction, so a
// crash leaves the state frozen at the last committed mutation.
type SnapshotRepository struct {
	db *Database
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *Database) *SnapshotRepository {
	return &SnapshotRepository{
		db: db,
	}
}

// EnsureSchema creates the snapshot tables if they do not exist.
func (r *SnapshotRepository) EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		principal      TEXT PRIMARY KEY,
		balance        BIGINT NOT NULL,
		frozen         BIGINT NOT NULL,
		payout_claimed BOOLEAN NOT NULL
	);
	CREATE TABLE IF NOT EXISTS nfts (
		id     BIGINT PRIMARY KEY,
		owner  TEXT NOT NULL,
		name   TEXT NOT NULL,
		image  TEXT NOT NULL,
		price  BIGINT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS auctions (
		nft_id         BIGINT PRIMARY KEY,
		seller         TEXT NOT NULL,
		start_price    BIGINT NOT NULL,
		highest_bid    BIGINT NOT NULL,
		highest_bidder TEXT NOT NULL,
		end_time       TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS engine_meta (
		key   TEXT PRIMARY KEY,
		value BIGINT NOT NULL
	);`

	_, err := r.db.DB().Exec(schema)
	return err
}

// Save replaces the stored snapshot with the given state atomically.
func (r *SnapshotRepository) Save(state models.State) error {
	return r.db.Transaction(func(tx *sqlx.Tx) error {
		for _, table := range []string{"accounts", "nfts", "auctions", "engine_meta"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return err
			}
		}

		for _, acc := range state.Accounts {
			_, err := tx.Exec(
				`INSERT INTO accounts (principal, balance, frozen, payout_claimed) VALUES ($1, $2, $3, $4)`,
				acc.Principal, int64(acc.Balance), int64(acc.Frozen), acc.PayoutClaimed)
			if err != nil {
				return err
			}
		}

		for _, nft := range state.NFTs {
			_, err := tx.Exec(
				`INSERT INTO nfts (id, owner, name, image, price, status) VALUES ($1, $2, $3, $4, $5, $6)`,
				int64(nft.ID), nft.Owner, nft.Name, nft.Image, int64(nft.Price), string(nft.Status))
			if err != nil {
				return err
			}
		}

		for _, a := range state.Auctions {
			_, err := tx.Exec(
				`INSERT INTO auctions (nft_id, seller, start_price, highest_bid, highest_bidder, end_time)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				int64(a.NFTID), a.Seller, int64(a.StartPrice), int64(a.HighestBid), a.HighestBidder, a.EndTime)
			if err != nil {
				return err
			}
		}

		_, err := tx.Exec(
			`INSERT INTO engine_meta (key, value) VALUES ('next_nft_id', $1)`,
			int64(state.NextNFTID))
		return err
	})
}

// Load reads the stored snapshot. A database without a snapshot yields an
// empty state and no error.
func (r *SnapshotRepository) Load() (models.State, error) {
	state := models.State{NextNFTID: 1}
	db := r.db.DB()

	if err := db.Select(&state.Accounts,
		`SELECT principal, balance, frozen, payout_claimed FROM accounts`); err != nil {
		return models.State{}, err
	}

	if err := db.Select(&state.NFTs,
		`SELECT id, owner, name, image, price, status FROM nfts ORDER BY id`); err != nil {
		return models.State{}, err
	}

	if err := db.Select(&state.Auctions,
		`SELECT nft_id, seller, start_price, highest_bid, highest_bidder, end_time FROM auctions`); err != nil {
		return models.State{}, err
	}

	var nextID int64
	err := db.Get(&nextID, `SELECT value FROM engine_meta WHERE key = 'next_nft_id'`)
	if err != nil {
		if err == sql.ErrNoRows {
			return state, nil
		}
		return models.State{}, err
	}
	state.NextNFTID = uint64(nextID)

	return state, nil
}
