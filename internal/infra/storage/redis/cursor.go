package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

// cursorKeyPrefix defines the base key prefix used for storing monitoring
// cursors in Redis.
const cursorKeyPrefix = "poolwatch"

// cursorKey returns the Redis key under which the cursor for the given pool
// contract is stored.
//
// Format: "poolwatch:cursor:{contract}"
func cursorKey(contract string) string {
	return fmt.Sprintf("%s:cursor:%s", cursorKeyPrefix, contract)
}

var _ poolwatch.CursorStorage = (*cursorStore)(nil)

type cursorStore struct {
	client   *client
	contract string
}

// CursorStore scopes cursor persistence to one pool contract, so multiple
// monitors can share a Redis instance.
func (c *client) CursorStore(contract string) *cursorStore {
	return &cursorStore{client: c, contract: contract}
}

// Load reads the last committed cursor for the contract. A missing key
// means no cursor has ever been saved.
func (s *cursorStore) Load(ctx context.Context) (poolwatch.StateCursor, error) {
	data, err := s.client.conn.Get(ctx, cursorKey(s.contract)).Bytes()
	if errors.Is(err, redis.Nil) {
		return poolwatch.StateCursor{}, poolwatch.ErrNoCursorFound
	}
	if err != nil {
		return poolwatch.StateCursor{}, fmt.Errorf("reading cursor key: %w", err)
	}

	var cursor poolwatch.StateCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return poolwatch.StateCursor{}, fmt.Errorf("decoding cursor value: %w", err)
	}
	if cursor.Baselines == nil {
		cursor.Baselines = make(map[string]string)
	}
	return cursor, nil
}

// Save replaces the stored cursor. A single SET keeps the update atomic.
func (s *cursorStore) Save(ctx context.Context, cursor poolwatch.StateCursor) error {
	data, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}

	if err := s.client.conn.Set(ctx, cursorKey(s.contract), data, 0).Err(); err != nil {
		return fmt.Errorf("writing cursor key: %w", err)
	}
	return nil
}
