// Package stores owns the persisted lifecycle of one-time codes: email
// verification tokens and password reset tokens, both Redis-backed.
//
// Two invariants are enforced here, not merely documented:
//
//   - At most one valid token exists per email. The record key is the
//     email itself, so issuing is an atomic overwrite — the
//     delete-unused-then-insert sequence collapses into a single SET and
//     concurrent issuances can never leave two valid tokens behind.
//   - Redemption is exactly-once. The read-validate-mark-used sequence
//     runs inside one Lua script, so concurrent redemptions of the same
//     code see at most one success.
//
// Every issuance is also appended to a per-key history sorted set scored
// by created_at. Rate limiting is derived by counting that history; there
// is no separate event log.
package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable indicates the token store backend is unreachable or
// returned something unintelligible.
var ErrRedisUnavailable = errors.New("token store backend unavailable")

// Record is one persisted one-time token. Timestamps are unix seconds.
type Record struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
	UsedAt    int64  `json:"used_at,omitempty"`
	IsUsed    bool   `json:"is_used"`
	Attempts  int    `json:"attempts,omitempty"`
	Origin    string `json:"origin,omitempty"`
}

// Valid reports the validity predicate: unused and unexpired.
func (r Record) Valid(now time.Time) bool {
	return !r.IsUsed && now.Unix() < r.ExpiresAt
}

// issueLua atomically replaces the record for an email and appends to the
// issuance history. KEYS[1]=record, KEYS[2]=expiry index, KEYS[3]=email
// history, KEYS[4] (optional)=origin history.
// ARGV: record json, index member, expiresAt, createdAt, history member,
// window start, history TTL seconds.
var issueLua = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[2])
redis.call('ZADD', KEYS[3], ARGV[4], ARGV[5])
redis.call('ZREMRANGEBYSCORE', KEYS[3], '-inf', '(' .. ARGV[6])
redis.call('EXPIRE', KEYS[3], ARGV[7])
if #KEYS >= 4 then
  redis.call('ZADD', KEYS[4], ARGV[4], ARGV[5])
  redis.call('ZREMRANGEBYSCORE', KEYS[4], '-inf', '(' .. ARGV[6])
  redis.call('EXPIRE', KEYS[4], ARGV[7])
end
return 1
`)

// redeemLua atomically performs GET -> validate -> mark used.
// KEYS[1]=record. ARGV[1]=provided code, ARGV[2]=now unix,
// ARGV[3]='1' to count failed attempts on the record.
//
// Error replies: "not_found", "expired", "mismatch".
var redeemLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
local rec = cjson.decode(data)
if rec.is_used then
  return {err='not_found'}
end
local now = tonumber(ARGV[2])
if now >= tonumber(rec.expires_at) then
  return {err='expired'}
end
if tostring(rec.code) ~= ARGV[1] then
  if ARGV[3] == '1' then
    rec.attempts = (rec.attempts or 0) + 1
    redis.call('SET', KEYS[1], cjson.encode(rec))
  end
  return {err='mismatch'}
end
rec.is_used = true
rec.used_at = now
redis.call('SET', KEYS[1], cjson.encode(rec))
return cjson.encode(rec)
`)

// purgeLua deletes every record whose expires_at has passed, used or not.
// KEYS[1]=expiry index. ARGV[1]=now unix, ARGV[2]=record key prefix.
// Idempotent delete-by-predicate: safe under concurrent sweepers.
var purgeLua = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, member in ipairs(expired) do
  redis.call('DEL', ARGV[2] .. member)
end
if #expired > 0 then
  redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
end
return #expired
`)

func issueArgs(rec Record, window time.Duration) ([]interface{}, error) {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	// Nanosecond history members keep same-second issuances distinct.
	historyMember := strconv.FormatInt(time.Now().UnixNano(), 10) + ":" + rec.Code

	return []interface{}{
		string(encoded),
		rec.Email,
		rec.ExpiresAt,
		rec.CreatedAt,
		historyMember,
		rec.CreatedAt - int64(window/time.Second),
		int64((2 * window) / time.Second),
	}, nil
}

func runRedeem(ctx context.Context, rdb redis.UniversalClient, recordKey, code string, now time.Time, countAttempts bool) (bool, error) {
	flag := "0"
	if countAttempts {
		flag = "1"
	}

	result, err := redeemLua.Run(ctx, rdb, []string{recordKey}, code, now.Unix(), flag).Result()
	if err != nil {
		switch err.Error() {
		case "not_found", "expired", "mismatch":
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if _, ok := result.(string); !ok {
		return false, fmt.Errorf("%w: unexpected redeem script result", ErrRedisUnavailable)
	}
	return true, nil
}

func runPurge(ctx context.Context, rdb redis.UniversalClient, indexKey, recordPrefix string, now time.Time) (int, error) {
	removed, err := purgeLua.Run(ctx, rdb, []string{indexKey}, now.Unix(), recordPrefix).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return removed, nil
}

func countHistorySince(ctx context.Context, rdb redis.UniversalClient, historyKey string, since time.Time) (int, error) {
	n, err := rdb.ZCount(ctx, historyKey, strconv.FormatInt(since.Unix(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}
