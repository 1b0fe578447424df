package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/storage"
)

// DefaultJournalKey is the list holding serialized command records.
const DefaultJournalKey = "armctl:journal"

// JournalRepo implements storage.JournalRepository as a capped Redis list,
// newest entry at the head.
type JournalRepo struct {
	client     *Client
	key        string
	maxEntries int
}

// NewJournalRepo creates a Redis-backed journal. An empty key uses
// DefaultJournalKey; maxEntries <= 0 uses storage.DefaultMaxEntries.
func NewJournalRepo(client *Client, key string, maxEntries int) *JournalRepo {
	if key == "" {
		key = DefaultJournalKey
	}
	if maxEntries <= 0 {
		maxEntries = storage.DefaultMaxEntries
	}
	return &JournalRepo{client: client, key: key, maxEntries: maxEntries}
}

// Record pushes rec and trims the list in one round trip.
func (r *JournalRepo) Record(ctx context.Context, rec *domain.CommandRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal command record: %w", err)
	}

	pipe := r.client.rdb.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, int64(r.maxEntries-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push command record: %w", err)
	}
	return nil
}

func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]*domain.CommandRecord, error) {
	if limit <= 0 || limit > r.maxEntries {
		limit = r.maxEntries
	}

	items, err := r.client.rdb.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	out := make([]*domain.CommandRecord, 0, len(items))
	for _, item := range items {
		var rec domain.CommandRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal command record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (r *JournalRepo) Driver() string {
	return "redis"
}

func (r *JournalRepo) Close() error {
	return r.client.Close()
}
