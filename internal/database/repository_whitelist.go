// Copyright 2025 Certen Protocol
//
// Token whitelist, owner cache, and last-key-block repositories. These are
// supplemented features grounded on original_source/src/models/{key,
// owners_cache,last_key_blocks}.rs: the gateway only ever speaks to jetton
// roots it has been explicitly told about. The token_owners pair
// (GetTokenOwner/PutTokenOwner) stores a jetton wallet's owner; nothing in
// the gateway calls it. The last-key-block pair stores the id of the latest
// masterchain key block seen; at startup that id is only read and logged,
// and chain polling does not resume from it.

package database

import (
	"context"
	"database/sql"
	"fmt"
)

type WhitelistRepository struct {
	client *Client
}

func NewWhitelistRepository(client *Client) *WhitelistRepository {
	return &WhitelistRepository{client: client}
}

func (r *WhitelistRepository) UpsertTokenWhitelist(ctx context.Context, tw *TokenWhitelist) error {
	query := `INSERT INTO token_whitelist (root_address, name, version, cached_contract_state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (root_address) DO UPDATE SET name = EXCLUDED.name, version = EXCLUDED.version`
	if _, err := r.client.ExecContext(ctx, query, tw.RootAddress, tw.Name, tw.Version, tw.CachedContractState); err != nil {
		return fmt.Errorf("upsert token whitelist: %w", err)
	}
	return nil
}

func (r *WhitelistRepository) GetTokenWhitelist(ctx context.Context, rootAddress string) (*TokenWhitelist, error) {
	tw := &TokenWhitelist{RootAddress: rootAddress}
	query := `SELECT name, version, cached_contract_state FROM token_whitelist WHERE root_address = $1`
	err := r.client.QueryRowContext(ctx, query, rootAddress).Scan(&tw.Name, &tw.Version, &tw.CachedContractState)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotWhitelisted
	}
	if err != nil {
		return nil, fmt.Errorf("get token whitelist: %w", err)
	}
	return tw, nil
}

func (r *WhitelistRepository) ListTokenWhitelist(ctx context.Context) ([]*TokenWhitelist, error) {
	query := `SELECT root_address, name, version, cached_contract_state FROM token_whitelist ORDER BY root_address`
	rows, err := r.client.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list token whitelist: %w", err)
	}
	defer rows.Close()

	var out []*TokenWhitelist
	for rows.Next() {
		tw := &TokenWhitelist{}
		if err := rows.Scan(&tw.RootAddress, &tw.Name, &tw.Version, &tw.CachedContractState); err != nil {
			return nil, fmt.Errorf("scan token whitelist: %w", err)
		}
		out = append(out, tw)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Token owner cache
// ---------------------------------------------------------------------------

// GetTokenOwner returns the cached owner of a jetton wallet contract, if
// previously resolved via a get_wallet_data chain call.
func (r *WhitelistRepository) GetTokenOwner(ctx context.Context, tokenWalletAddress string) (*TokenOwner, error) {
	o := &TokenOwner{TokenWalletAddress: tokenWalletAddress}
	query := `SELECT owner_workchain_id, owner_hex, root_address, code_hash, created_at
		FROM token_owners WHERE token_wallet_address = $1`
	err := r.client.QueryRowContext(ctx, query, tokenWalletAddress).Scan(
		&o.OwnerWorkchain, &o.OwnerHex, &o.RootAddress, &o.CodeHash, &o.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token owner: %w", err)
	}
	return o, nil
}

func (r *WhitelistRepository) PutTokenOwner(ctx context.Context, o *TokenOwner) error {
	query := `INSERT INTO token_owners (token_wallet_address, owner_workchain_id, owner_hex, root_address, code_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (token_wallet_address) DO NOTHING`
	if _, err := r.client.ExecContext(ctx, query, o.TokenWalletAddress, o.OwnerWorkchain, o.OwnerHex, o.RootAddress, o.CodeHash); err != nil {
		return fmt.Errorf("put token owner: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Last key block (subscriber resume anchor)
// ---------------------------------------------------------------------------

func (r *WhitelistRepository) GetLastKeyBlock(ctx context.Context) (*LastKeyBlock, error) {
	kb := &LastKeyBlock{}
	query := `SELECT block_id FROM last_key_block WHERE id = true`
	err := r.client.QueryRowContext(ctx, query).Scan(&kb.BlockID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last key block: %w", err)
	}
	return kb, nil
}

func (r *WhitelistRepository) SetLastKeyBlock(ctx context.Context, blockID string) error {
	query := `INSERT INTO last_key_block (id, block_id) VALUES (true, $1)
		ON CONFLICT (id) DO UPDATE SET block_id = EXCLUDED.block_id`
	if _, err := r.client.ExecContext(ctx, query, blockID); err != nil {
		return fmt.Errorf("set last key block: %w", err)
	}
	return nil
}
