package rdx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vogue/localstore"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps an idle session's storage around for a month.
const DefaultTTL = 30 * 24 * time.Hour

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return conn, nil
}

// Store is a localstore.Store whose keys live under a per-session prefix.
type Store struct {
	Conn   *redis.Client
	Prefix string
	TTL    time.Duration
}

var _ localstore.Store = (*Store)(nil)

// SessionStore namespaces keys as session:<id>:<key>.
func SessionStore(conn *redis.Client, sessionID string) *Store {
	return &Store{Conn: conn, Prefix: "session:" + sessionID + ":", TTL: DefaultTTL}
}

func (s *Store) key(k string) string { return s.Prefix + k }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Conn.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", localstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.Conn.Set(ctx, s.key(key), value, s.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.Conn.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Keys walks the namespace with SCAN.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.Conn.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), s.Prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return out, nil
}

// DropSession removes every key of a session.
func DropSession(ctx context.Context, conn *redis.Client, sessionID string) error {
	return localstore.Clear(ctx, SessionStore(conn, sessionID), "")
}
