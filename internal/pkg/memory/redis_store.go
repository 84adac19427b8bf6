package memory

import (
	"context"
	stderrors "errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/persona-assistant/pkg/utils/json"
)

// DefaultRedisKey is the key holding the session document.
const DefaultRedisKey = "assistant:sessions"

// RedisStore keeps the whole session document under a single Redis key.
type RedisStore struct {
	client *goredis.Client
	key    string
}

// NewRedisStore creates a RedisStore. An empty key uses DefaultRedisKey.
func NewRedisStore(client *goredis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Load reads the document. A missing key is an empty document.
func (s *RedisStore) Load(ctx context.Context) (Document, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			return make(Document), nil
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	doc := make(Document)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode session document: %w", err)
	}
	return doc, nil
}

// Save overwrites the document.
func (s *RedisStore) Save(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session document: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
