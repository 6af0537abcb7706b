package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis stores rooms in a shared Redis so several clients see each other's
// writes. Each room is a hash of documents by key, a sorted set ordering
// the keys by timestamp and a pub/sub channel announcing changes.
type Redis struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{rdb: rdb, logger: logger}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(rdb, logger), nil
}

func docsKey(room string) string   { return "murmur:room:" + room + ":docs" }
func orderKey(room string) string  { return "murmur:room:" + room + ":order" }
func eventsKey(room string) string { return "murmur:room:" + room + ":events" }

func (r *Redis) Watch(ctx context.Context, room string) (<-chan Event, error) {
	pubsub := r.rdb.Subscribe(ctx, eventsKey(room))
	// Wait for the subscription so no change after Watch returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close() //nolint:errcheck
		return nil, fmt.Errorf("store.Redis.Watch: %w", mapRedisErr(err))
	}
	msgs := pubsub.Channel()
	wait := func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-msgs:
			if !ok {
				return ErrClosed
			}
			return nil
		}
	}
	out := make(chan Event, 1)
	go runWatch(ctx, func(ctx context.Context) ([]Document, error) {
		return r.List(ctx, room)
	}, wait, out, func() {
		if err := pubsub.Close(); err != nil {
			r.logger.Debug("redis_unsubscribe_failed", zap.String("room", room), zap.Error(err))
		}
	})
	return out, nil
}

func (r *Redis) List(ctx context.Context, room string) ([]Document, error) {
	keys, err := r.rdb.ZRange(ctx, orderKey(room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store.Redis.List: %w", mapRedisErr(err))
	}
	if len(keys) == 0 {
		return []Document{}, nil
	}
	vals, err := r.rdb.HMGet(ctx, docsKey(room), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("store.Redis.List: %w", mapRedisErr(err))
	}
	docs := make([]Document, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Order entry without a document: a delete in progress.
			continue
		}
		var d Document
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			r.logger.Warn("redis_bad_document", zap.String("room", room), zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		docs = append(docs, d)
	}
	sortDocs(docs)
	return docs, nil
}

// addScript stores a document, orders it and announces it in one step.
// An existing key is left untouched.
var addScript = redis.NewScript(`
if redis.call("HSETNX", KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[1])
redis.call("PUBLISH", KEYS[3], "add:" .. ARGV[1])
return 1
`)

func (r *Redis) Add(ctx context.Context, room string, doc Document) error {
	doc, err := prepare(doc)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store.Redis.Add: marshal: %w", err)
	}
	created, err := addScript.Run(ctx, r.rdb,
		[]string{docsKey(room), orderKey(room), eventsKey(room)},
		doc.Key, data, doc.Timestamp.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("store.Redis.Add: %w", mapRedisErr(err))
	}
	if created == 0 {
		return nil
	}
	r.logger.Debug("redis_doc_added", zap.String("room", room), zap.String("key", doc.Key))
	return nil
}

func (r *Redis) Delete(ctx context.Context, room, key string) error {
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, docsKey(room), key)
		p.ZRem(ctx, orderKey(room), key)
		p.Publish(ctx, eventsKey(room), "del:"+key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store.Redis.Delete: %w", mapRedisErr(err))
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func mapRedisErr(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}
