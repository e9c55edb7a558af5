// Package sessionstore persists browser sessions in Redis, keyed by an opaque session id.
package sessionstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

var nowFunc = time.Now // mockable

// Open connects to the configured Redis server.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

type Store struct {
	rdb    *redis.Client
	prefix string
}

func NewStore(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(sid string) string {
	return s.prefix + ":session:" + sid
}

// Create saves rec under a new session id, expiring with the record token.
func (s *Store) Create(ctx context.Context, rec session.Record) (string, error) {
	if rec.Token == "" {
		return "", session.ErrEmptyToken
	}
	ttl := rec.ExpiresAt.Sub(nowFunc())
	if rec.ExpiresAt.IsZero() {
		ttl = 0 // no expiry
	} else if ttl <= 0 {
		return "", errors.New("session already expired")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", errors.Wrap(err, "encoding session")
	}
	sid := uuid.New().String()
	if err := s.rdb.Set(ctx, s.key(sid), data, ttl).Err(); err != nil {
		return "", errors.Wrap(err, "saving session")
	}
	return sid, nil
}

// Load returns the record of session sid, or session.ErrNoSession.
func (s *Store) Load(ctx context.Context, sid string) (session.Record, error) {
	if sid == "" {
		return session.Record{}, session.ErrNoSession
	}
	data, err := s.rdb.Get(ctx, s.key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Record{}, session.ErrNoSession
		}
		return session.Record{}, errors.Wrap(err, "loading session")
	}

	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return session.Record{}, errors.Wrap(err, "decoding session")
	}
	return rec, nil
}

// Delete removes session sid; deleting a missing session is not an error.
// A closed client is a shutdown error: logouts can no longer be honored.
func (s *Store) Delete(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	err := s.rdb.Del(ctx, s.key(sid)).Err()
	if errors.Is(err, redis.ErrClosed) {
		return core.NewShutdownError("session storage is closed")
	}
	return errors.Wrap(err, "deleting session")
}

// Persistence binds session sid to the session.Persistence read by session.Hydrate.
func (s *Store) Persistence(sid string) session.Persistence {
	return session.PersistenceFunc(func(ctx context.Context) (session.Record, error) {
		return s.Load(ctx, sid)
	})
}
