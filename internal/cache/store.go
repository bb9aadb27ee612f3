// Package cache implements throp's state store: redis-backed when a
// connection string is configured and reachable, an in-process map otherwise.
// Operations never return errors — correctness elsewhere (dedup, rate
// limiting) must not depend on this store being durable.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgredis "throp/pkg/redis"

	"throp/pkg/logging"
)

const (
	keyPrefix        = "throp"
	connectTimeout   = 3 * time.Second
	connectRetries   = 1
	maxRecentEntries = 1000
)

// Key builds a namespaced store key: throp:<category>:<id>.
func Key(category, id string) string {
	return keyPrefix + ":" + category + ":" + id
}

type memEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

type scoredEntry struct {
	member string
	score  float64
}

// Store is a key/value + counter store with a recency-list primitive. When
// the redis backing is unavailable at startup it permanently falls back to
// process memory for the lifetime of the process.
type Store struct {
	client *goredis.Client
	logger logging.Logger

	connected bool

	mu       sync.RWMutex
	entries  map[string]memEntry
	counters map[string]int64
	recents  map[string][]scoredEntry
}

// New connects to redis with a short timeout and a single retry. Any failure
// (including an empty URL, which is not an error) selects the in-process
// fallback; no reconnect is attempted afterwards.
func New(ctx context.Context, redisURL string, logger logging.Logger) *Store {
	s := &Store{
		logger:   logger,
		entries:  make(map[string]memEntry),
		counters: make(map[string]int64),
		recents:  make(map[string][]scoredEntry),
	}

	if redisURL == "" {
		logger.Info("No redis URL configured, using in-process store")
		return s
	}

	for attempt := 0; attempt <= connectRetries; attempt++ {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		client, err := pkgredis.NewClientFromURL(connectCtx, redisURL)
		cancel()
		if err == nil {
			s.client = client
			s.connected = true
			logger.Info("Cache store connected to redis")
			return s
		}
		if attempt == connectRetries {
			logger.WithError(err).Warn("Cache store falling back to in-process memory for this run")
		}
	}
	return s
}

// Connected reports whether the durable backing store is in use.
func (s *Store) Connected() bool {
	return s.connected
}

// Close releases the redis connection if one exists.
func (s *Store) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

// Get returns the value for key, or ok=false for missing/expired keys.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	if s.connected {
		val, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if err != goredis.Nil {
				s.logger.WithError(err).WithField("key", key).Debug("Cache get failed")
			}
			return "", false
		}
		return val, true
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false
	}
	return e.value, true
}

// Set stores value under key. ttl <= 0 means no expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if s.connected {
		if ttl <= 0 {
			ttl = 0
		}
		if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
			s.logger.WithError(err).WithField("key", key).Debug("Cache set failed")
		}
		return
	}

	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

func (s *Store) Delete(ctx context.Context, key string) {
	if s.connected {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.WithError(err).WithField("key", key).Debug("Cache delete failed")
		}
		return
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// IncrementCounter increments the named counter and returns the new value.
func (s *Store) IncrementCounter(ctx context.Context, name string) int64 {
	key := Key("counters", name)
	if s.connected {
		val, err := s.client.Incr(ctx, key).Result()
		if err != nil {
			s.logger.WithError(err).WithField("counter", name).Debug("Counter increment failed")
			return 0
		}
		return val
	}
	s.mu.Lock()
	s.counters[key]++
	val := s.counters[key]
	s.mu.Unlock()
	return val
}

// GetCounter returns the current value of the named counter.
func (s *Store) GetCounter(ctx context.Context, name string) int64 {
	key := Key("counters", name)
	if s.connected {
		val, err := s.client.Get(ctx, key).Result()
		if err != nil {
			return 0
		}
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key]
}

// AppendRecent appends member to a score-ordered list under key, scored by
// insertion time. The list is trimmed to the newest 1000 entries.
func (s *Store) AppendRecent(ctx context.Context, key, member string) {
	score := float64(time.Now().UnixNano())
	if s.connected {
		pipe := s.client.TxPipeline()
		pipe.ZAdd(ctx, key, goredis.Z{Score: score, Member: member})
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-maxRecentEntries-1))
		if _, err := pipe.Exec(ctx); err != nil {
			s.logger.WithError(err).WithField("key", key).Debug("Recent append failed")
		}
		return
	}

	s.mu.Lock()
	list := append(s.recents[key], scoredEntry{member: member, score: score})
	if len(list) > maxRecentEntries {
		list = list[len(list)-maxRecentEntries:]
	}
	s.recents[key] = list
	s.mu.Unlock()
}

// RecentByScore returns the most recent limit entries under key, newest first.
func (s *Store) RecentByScore(ctx context.Context, key string, limit int) []string {
	if limit <= 0 {
		limit = maxRecentEntries
	}
	if s.connected {
		members, err := s.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Debug("Recent read failed")
			return nil
		}
		return members
	}

	s.mu.RLock()
	list := s.recents[key]
	s.mu.RUnlock()
	out := make([]string, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i].member)
	}
	return out
}

// ClearNamespace removes every key under the throp namespace.
func (s *Store) ClearNamespace(ctx context.Context) {
	if s.connected {
		iter := s.client.Scan(ctx, 0, keyPrefix+":*", 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.logger.WithError(err).Debug("Namespace scan failed")
			return
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				s.logger.WithError(err).Debug("Namespace clear failed")
			}
		}
		return
	}

	s.mu.Lock()
	s.entries = make(map[string]memEntry)
	s.counters = make(map[string]int64)
	s.recents = make(map[string][]scoredEntry)
	s.mu.Unlock()
}
