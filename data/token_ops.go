package data

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken blacklists a token id until it would have expired anyway.
func (db *DB) RevokeToken(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) error {
	_, err := db.Auth.ExecContext(ctx,
		`INSERT OR REPLACE INTO RevokedTokens (TokenId, UserId, ExpiresAt) VALUES (?, ?, ?)`,
		tokenID, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("RevokeToken: failed to store token %s: %w", tokenID, err)
	}
	return nil
}

// IsTokenRevoked reports whether the token id was revoked by a logout.
func (db *DB) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int
	if err := db.Auth.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM RevokedTokens WHERE TokenId = ?`, tokenID); err != nil {
		return false, fmt.Errorf("IsTokenRevoked: failed to check token %s: %w", tokenID, err)
	}
	return count > 0, nil
}

// PurgeExpiredRevocations drops entries whose tokens have expired by now.
func (db *DB) PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.Auth.ExecContext(ctx, `DELETE FROM RevokedTokens WHERE ExpiresAt < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("PurgeExpiredRevocations: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
