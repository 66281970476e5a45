package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// GetMeta returns the metadata value for key, or "" when the key (or the
// table) is absent.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM graph_metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows || isMissingTable(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMeta inserts or updates a metadata key.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO graph_metadata(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("upserting metadata %s: %w", key, err)
	}
	return nil
}
