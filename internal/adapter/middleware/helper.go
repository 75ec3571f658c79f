package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func nowUTC() time.Time { return time.Now().UTC() }

// buildKey scopes an idempotency record to method + route + farmer + request
// id, so the same request id on a different route cannot collide.
func buildKey(method, path, farmerID, requestID string) string {
	return "idemp:mz:" + strings.ToLower(method) + ":" + path + ":" + farmerID + ":" + requestID
}

var (
	reUUID  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)
)

func validReqID(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	return reUUID.MatchString(id) || reHex32.MatchString(id)
}

// parseMzRequestAt accepts epoch seconds, epoch milliseconds, or RFC3339 with
// an explicit timezone. Naive local timestamps are rejected: without a zone
// the skew check below would be meaningless.
func parseMzRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing Mz-Request-At")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("Mz-Request-At must be epoch (s/ms) or RFC3339 with timezone")
}

// replayStore is the redis-backed record of requests seen and, once finished,
// their stored responses.
type replayStore struct {
	rdb *redis.Client
}

// reserve takes the provisional in-progress lock. Returns false when the key
// already exists, meaning a previous attempt got there first.
func (s replayStore) reserve(ctx context.Context, key string, e idempEntry) (bool, error) {
	payload, _ := json.Marshal(e)
	return s.rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func (s replayStore) load(ctx context.Context, key string) (idempEntry, error) {
	var e idempEntry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	_ = json.Unmarshal(v, &e)
	return e, nil
}

// finish overwrites the provisional lock with the final response and extends
// the key to the replay window.
func (s replayStore) finish(ctx context.Context, key string, e idempEntry, ttl time.Duration) error {
	payload, _ := json.Marshal(e)
	return s.rdb.Set(ctx, key, payload, ttl).Err()
}
