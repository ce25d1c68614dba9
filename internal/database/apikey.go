package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned by ValidateAPIKey for a wrong or unset key.
var ErrInvalidAPIKey = errors.New("invalid api key")

// MinAPIKeyLength is the shortest key SetAPIKey accepts.
const MinAPIKeyLength = 16

// HasAPIKey reports whether an API key is configured.
func (d *Database) HasAPIKey(ctx context.Context) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_keys").Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// SetAPIKey stores key, replacing any previous one.
func (d *Database) SetAPIKey(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { recordQuery("set_api_key", start, err) }()

	if len(key) < MinAPIKeyLength {
		return fmt.Errorf("api key must be at least %d characters", MinAPIKeyLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash api key: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET key_hash = excluded.key_hash, created_at = strftime('%s', 'now')
	`, string(hash))
	if err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}

	d.forgetValidatedKeys()
	return nil
}

// ValidateAPIKey checks key against the stored hash. Keys that passed once
// are remembered by their SHA-256 so bcrypt does not run on every request.
func (d *Database) ValidateAPIKey(ctx context.Context, key string) (err error) {
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])

	d.keyMu.Lock()
	_, ok := d.validKeys[digest]
	d.keyMu.Unlock()
	if ok {
		return nil
	}

	start := time.Now()
	defer func() { recordQuery("validate_api_key", start, err) }()

	d.mu.RLock()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	var hash string
	err = d.db.QueryRowContext(ctx, "SELECT key_hash FROM api_keys WHERE id = 1").Scan(&hash)
	cancel()
	d.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidAPIKey
	}
	if err != nil {
		return fmt.Errorf("failed to load api key: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
		return ErrInvalidAPIKey
	}

	d.keyMu.Lock()
	d.validKeys[digest] = struct{}{}
	d.keyMu.Unlock()
	return nil
}

// ClearAPIKey removes the stored key, disabling authentication.
func (d *Database) ClearAPIKey(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("clear_api_key", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx, "DELETE FROM api_keys"); err != nil {
		return fmt.Errorf("failed to clear api key: %w", err)
	}

	d.forgetValidatedKeys()
	return nil
}

func (d *Database) forgetValidatedKeys() {
	d.keyMu.Lock()
	clear(d.validKeys)
	d.keyMu.Unlock()
}
