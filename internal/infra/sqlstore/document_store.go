package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// DocumentStore keeps JSON documents in the documents table.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Load(ctx context.Context, key string, dst any) (bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE doc_key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *DocumentStore) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`REPLACE INTO documents (doc_key, data) VALUES (?, ?)`, key, string(data),
	); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}
