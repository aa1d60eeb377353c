package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityVault/internal/model"
)

// Store provides Postgres persistence for vault snapshots and journals.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveSnapshot replaces the stored state for a vault with the snapshot:
// the vault row is upserted, holders and positions are rewritten.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.VaultSnapshot) error {
	if snap.Vault == "" {
		return fmt.Errorf("snapshot vault address required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO vaults (vault_address, total_shares, taken_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (vault_address) DO UPDATE SET
			total_shares = EXCLUDED.total_shares,
			taken_at = EXCLUDED.taken_at,
			updated_at = now()
	`, snap.Vault, snap.TotalShares, snap.TakenAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM vault_holders WHERE vault_address=$1`, snap.Vault); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM vault_positions WHERE vault_address=$1`, snap.Vault); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, holder := range snap.Holders {
		batch.Queue(`
			INSERT INTO vault_holders (vault_address, holder, shares)
			VALUES ($1, $2, $3)
		`, snap.Vault, holder.Holder, holder.Shares)
	}
	for _, pos := range snap.Positions {
		batch.Queue(`
			INSERT INTO vault_positions (
				vault_address, position_id, tick_lower, tick_upper,
				liquidity, owed0, owed1, depositor, minted_shares
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			snap.Vault,
			int64(pos.ID),
			pos.TickLower,
			pos.TickUpper,
			pos.Liquidity,
			pos.Owed0,
			pos.Owed1,
			pos.Depositor,
			pos.MintedShares,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < len(snap.Holders)+len(snap.Positions); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// InsertOperations appends journal records for a vault. Records already
// present are left untouched, so re-running a journal import is safe.
func (s *Store) InsertOperations(ctx context.Context, vault string, records []model.OperationRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO vault_operations (
				vault_address, seq, kind, caller, counterparty, holder,
				position_id, shares, liquidity, amount0, amount1, recorded_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (vault_address, seq) DO NOTHING
		`,
			vault,
			int64(r.Seq),
			r.Kind,
			r.Caller,
			r.Counterparty,
			r.Holder,
			int64(r.PositionID),
			r.Shares,
			r.Liquidity,
			r.Amount0,
			r.Amount1,
			r.RecordedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
