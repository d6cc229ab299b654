package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout under prefix, wrapped in a hash tag:
//
//	{<prefix>}:s:<sid>    HASH  uid, created, last (unix millis)
//	{<prefix>}:u:<uid>    SET   session IDs owned by uid
//	{<prefix>}:activity   ZSET  sid scored by last activity
//
// The tag puts every key in one Redis Cluster slot, so scripts that derive
// session or user keys from ARGV stay on the node that owns KEYS.
//
// Keys carry no Redis TTL. Idle rows are removed by DeleteIdleBefore.

const createSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "uid", ARGV[2], "created", ARGV[3], "last", ARGV[4])
redis.call("SADD", KEYS[2], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[1])
return 1
`

var createSessionLua = redis.NewScript(createSessionScript)

const touchSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "last", ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[1])
return 1
`

var touchSessionLua = redis.NewScript(touchSessionScript)

const deleteSessionScript = `
local uid = redis.call("HGET", KEYS[1], "uid")
redis.call("ZREM", KEYS[2], ARGV[1])
if not uid then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. uid, ARGV[1])
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

const deleteUserSessionsScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, sid in ipairs(ids) do
  removed = removed + redis.call("DEL", ARGV[1] .. sid)
  redis.call("ZREM", KEYS[2], sid)
end
redis.call("DEL", KEYS[1])
return removed
`

var deleteUserSessionsLua = redis.NewScript(deleteUserSessionsScript)

const sweepIdleScript = `
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
local removed = 0
for _, sid in ipairs(ids) do
  local key = ARGV[2] .. sid
  local uid = redis.call("HGET", key, "uid")
  if uid then
    redis.call("DEL", key)
    redis.call("SREM", ARGV[3] .. uid, sid)
    removed = removed + 1
  end
  redis.call("ZREM", KEYS[1], sid)
end
return removed
`

var sweepIdleLua = redis.NewScript(sweepIdleScript)

// RedisStore is a Redis-backed session table for multi-instance deployments.
// Each mutation is a single Lua script and therefore atomic on the server.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore. An empty prefix defaults to "fsa". A
// prefix that already carries a hash tag is used unchanged.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "fsa"
	}
	if !strings.Contains(prefix, "{") {
		prefix = "{" + prefix + "}"
	}
	return &RedisStore{redis: rdb, prefix: prefix}
}

func (s *RedisStore) sessionPrefix() string { return s.prefix + ":s:" }
func (s *RedisStore) userPrefix() string    { return s.prefix + ":u:" }

func (s *RedisStore) key(sessionID string) string  { return s.sessionPrefix() + sessionID }
func (s *RedisStore) userKey(userID string) string { return s.userPrefix() + userID }
func (s *RedisStore) activityKey() string          { return s.prefix + ":activity" }

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, sess Session) error {
	if err := validate(sess); err != nil {
		return err
	}

	created, err := createSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sess.SessionID), s.userKey(sess.UserID), s.activityKey()},
		sess.SessionID,
		sess.UserID,
		sess.CreatedAt.UnixMilli(),
		sess.LastActivity.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeFields(sessionID, fields)
}

// Touch implements Store.
func (s *RedisStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	ok, err := touchSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID), s.activityKey()},
		sessionID,
		at.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	existed, err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID), s.activityKey()},
		sessionID,
		s.userPrefix(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// DeleteAllForUser implements Store.
func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	removed, err := deleteUserSessionsLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID), s.activityKey()},
		s.sessionPrefix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(removed), nil
}

// DeleteIdleBefore implements Store.
func (s *RedisStore) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	removed, err := sweepIdleLua.Run(
		ctx,
		s.redis,
		[]string{s.activityKey()},
		cutoff.UnixMilli(),
		s.sessionPrefix(),
		s.userPrefix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(removed), nil
}

// CountForUser implements Store.
func (s *RedisStore) CountForUser(ctx context.Context, userID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// ListForUser implements Store.
func (s *RedisStore) ListForUser(ctx context.Context, userID string) ([]Session, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, sid := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key(sid))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]Session, 0, len(ids))
	for i, cmd := range cmds {
		sess, err := decodeFields(ids[i], cmd.Val())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, sess)
	}
	sortByCreated(out)
	return out, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeFields(sessionID string, fields map[string]string) (Session, error) {
	uid, ok := fields["uid"]
	if !ok || uid == "" {
		return Session{}, ErrNotFound
	}
	created, err := strconv.ParseInt(fields["created"], 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: corrupt created field: %w", sessionID, err)
	}
	last, err := strconv.ParseInt(fields["last"], 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: corrupt last field: %w", sessionID, err)
	}
	return Session{
		SessionID:    sessionID,
		UserID:       uid,
		CreatedAt:    time.UnixMilli(created),
		LastActivity: time.UnixMilli(last),
	}, nil
}
