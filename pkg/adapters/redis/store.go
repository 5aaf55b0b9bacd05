package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/turnstile/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "turnstile:stack:"

// farFuture is the index score of stacks without TTL (2100-01-01).
const farFuture = 4102444800

// saveScript stores the stack only if the stored version matches ARGV[1].
// KEYS[1] stack hash, KEYS[2] index zset.
// ARGV: expected version, new version, payload, ttl ms, index score, member.
var saveScript = backend.NewScript(`
local current = redis.call("HGET", KEYS[1], "version")
if (current or "0") ~= ARGV[1] then
	return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[2], "data", ARGV[3])
if tonumber(ARGV[4]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[4])
end
redis.call("ZADD", KEYS[2], ARGV[5], ARGV[6])
return 1
`)

// Store implements ports.StateStore using Redis.
// Each stack is a hash {version, data}; a sorted set indexes live identities.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for stored stacks.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

func (s *Store) key(member string) string {
	return s.prefix + member
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the stack with a compare-and-set on its version.
func (s *Store) Save(ctx context.Context, id domain.Identity, stack *domain.DialogStack) error {
	stored := *stack
	stored.Version = stack.Version + 1
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal stack: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	member := id.Key()
	ok, err := saveScript.Run(ctx, s.client,
		[]string{s.key(member), s.indexKey()},
		strconv.FormatInt(stack.Version, 10),
		strconv.FormatInt(stored.Version, 10),
		data,
		s.ttl.Milliseconds(),
		score,
		member,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if ok == 0 {
		return domain.ErrConflict
	}

	stack.Version = stored.Version
	return nil
}

// Load retrieves the stack from Redis.
func (s *Store) Load(ctx context.Context, id domain.Identity) (*domain.DialogStack, error) {
	vals, err := s.client.HMGet(ctx, s.key(id.Key()), "version", "data").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, domain.ErrStackNotFound
	}

	var stack domain.DialogStack
	if err := json.Unmarshal([]byte(raw), &stack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stack: %w", err)
	}
	if v, ok := vals[0].(string); ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			stack.Version = parsed
		}
	}
	if stack.Frames == nil {
		stack.Frames = []domain.Frame{}
	}
	return &stack, nil
}

// Delete removes the stack and its index entry.
func (s *Store) Delete(ctx context.Context, id domain.Identity) error {
	member := id.Key()
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(member))
	pipe.ZRem(ctx, s.indexKey(), member)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns identities from the index, pruning entries whose stack expired.
func (s *Store) List(ctx context.Context) ([]domain.Identity, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired stacks: %w", err)
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}
	if len(members) == 0 {
		return []domain.Identity{}, nil
	}

	// Keys can expire before their index score catches up
	pipe := s.client.Pipeline()
	exists := make([]*backend.IntCmd, len(members))
	for i, m := range members {
		exists[i] = pipe.Exists(ctx, s.key(m))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check stack keys: %w", err)
	}

	ids := make([]domain.Identity, 0, len(members))
	var gone []any
	for i, m := range members {
		if exists[i].Val() == 0 {
			gone = append(gone, m)
			continue
		}
		id, err := domain.ParseKey(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(gone) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), gone...).Err()
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
