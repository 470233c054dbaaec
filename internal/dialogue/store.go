package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type SessionStore interface {
	// Load returns nil without error when the user has no session.
	Load(ctx context.Context, userID uuid.UUID) (*Session, error)
	// Lock serializes turns per user. It fails with apperr.ErrTurnInProgress
	// while another turn holds the lock.
	Lock(ctx context.Context, userID uuid.UUID) (Lease, error)
}

// Lease is a held turn lock. Writes go through the lease so a turn whose
// lock expired cannot overwrite the session of the turn that took over.
type Lease interface {
	// Save fails with apperr.ErrTurnInProgress once the lock is no longer held.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context) error
	Release()
}

// RedisSessionStore keeps each session as one JSON value at
// chat:history:{userId}.
type RedisSessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisSessionStore creates a store. A zero ttl keeps sessions forever;
// lockTTL bounds how long a crashed turn can block the user.
func NewRedisSessionStore(client *redis.Client, ttl, lockTTL time.Duration) *RedisSessionStore {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &RedisSessionStore{client: client, ttl: ttl, lockTTL: lockTTL}
}

func historyKey(userID uuid.UUID) string { return "chat:history:" + userID.String() }
func lockKey(userID uuid.UUID) string    { return "chat:lock:" + userID.String() }

func (r *RedisSessionStore) Load(ctx context.Context, userID uuid.UUID) (*Session, error) {
	data, err := r.client.Get(ctx, historyKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("load session", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.Store("decode session", err)
	}
	return &s, nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KEYS: lock, history. ARGV: token, session json, ttl in ms (0 keeps it).
var saveScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[2], ARGV[2])
end
return 1
`)

var deleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[2])
return 1
`)

func (r *RedisSessionStore) Lock(ctx context.Context, userID uuid.UUID) (Lease, error) {
	key, token := lockKey(userID), uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
	if err != nil {
		return nil, apperr.Store("lock session", err)
	}
	if !ok {
		return nil, apperr.ErrTurnInProgress
	}
	return &redisLease{store: r, userID: userID, key: key, token: token}, nil
}

type redisLease struct {
	store  *RedisSessionStore
	userID uuid.UUID
	key    string
	token  string
}

var errLeaseLost = fmt.Errorf("%w: turn lock expired before the session was written", apperr.ErrTurnInProgress)

func (l *redisLease) Save(ctx context.Context, s *Session) error {
	if s.UserID != l.userID {
		return fmt.Errorf("lease for %s cannot save session of %s", l.userID, s.UserID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return apperr.Store("encode session", err)
	}
	keys := []string{l.key, historyKey(l.userID)}
	n, err := saveScript.Run(ctx, l.store.client, keys, l.token, data, l.store.ttl.Milliseconds()).Int()
	if err != nil {
		return apperr.Store("save session", err)
	}
	if n == 0 {
		return errLeaseLost
	}
	return nil
}

func (l *redisLease) Delete(ctx context.Context) error {
	keys := []string{l.key, historyKey(l.userID)}
	n, err := deleteScript.Run(ctx, l.store.client, keys, l.token).Int()
	if err != nil {
		return apperr.Store("delete session", err)
	}
	if n == 0 {
		return errLeaseLost
	}
	return nil
}

func (l *redisLease) Release() {
	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = unlockScript.Run(ctx, l.store.client, []string{l.key}, l.token).Err()
}
