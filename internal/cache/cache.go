package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

// ViewCache holds read views of loan requests keyed by id, plus a pointer from
// each applicant's mobile to their active request id. Set never replaces a
// cached view with an older version of it. Failures never block the caller.
type ViewCache interface {
	GetByID(ctx context.Context, id string) (*domain.LoanRequest, bool)
	GetActive(ctx context.Context, mobile string) (*domain.LoanRequest, bool)
	Set(ctx context.Context, req *domain.LoanRequest)
}

// redisClient is the subset of go-redis the cache needs
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// setIfNewer writes ARGV[1] unless the stored view already has a version at
// least ARGV[2]. ARGV[3] is the ttl in milliseconds.
const setIfNewer = `
local current = redis.call('GET', KEYS[1])
if current then
	local ok, stored = pcall(cjson.decode, current)
	if ok and type(stored) == 'table' and tonumber(stored['version']) and tonumber(stored['version']) >= tonumber(ARGV[2]) then
		return 0
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`

func idKey(id string) string {
	return fmt.Sprintf("loan_request:id:%s", id)
}

func activeKey(mobile string) string {
	return fmt.Sprintf("loan_request:active:%s", mobile)
}

type redisViewCache struct {
	client redisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisViewCache(client redisClient, ttl time.Duration, logger *zap.Logger) ViewCache {
	return &redisViewCache{client: client, ttl: ttl, logger: logger}
}

func (c *redisViewCache) GetByID(ctx context.Context, id string) (*domain.LoanRequest, bool) {
	raw, err := c.client.Get(ctx, idKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.warn("read cached loan request", id, err)
		return nil, false
	}

	var req domain.LoanRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.warn("decode cached loan request", id, err)
		return nil, false
	}
	return &req, true
}

// GetActive follows the mobile's pointer. A pointer left behind by a racing
// fill resolves to a request that no longer holds the slot and counts as a miss.
func (c *redisViewCache) GetActive(ctx context.Context, mobile string) (*domain.LoanRequest, bool) {
	id, err := c.client.Get(ctx, activeKey(mobile)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.warn("read active loan request pointer", mobile, err)
		return nil, false
	}

	req, ok := c.GetByID(ctx, id)
	if !ok || req.Mobile != mobile || !req.Status.HoldsActiveSlot() {
		return nil, false
	}
	return req, true
}

func (c *redisViewCache) Set(ctx context.Context, req *domain.LoanRequest) {
	payload, err := json.Marshal(req)
	if err != nil {
		c.warn("encode cached loan request", req.ID, err)
		c.drop(ctx, req)
		return
	}

	err = c.client.Eval(ctx, setIfNewer, []string{idKey(req.ID)}, payload, req.Version, c.ttl.Milliseconds()).Err()
	if err != nil {
		c.warn("cache loan request by id", req.ID, err)
		c.drop(ctx, req)
		return
	}

	if req.Status.HoldsActiveSlot() {
		if err := c.client.Set(ctx, activeKey(req.Mobile), req.ID, c.ttl).Err(); err != nil {
			c.warn("cache active loan request pointer", req.ID, err)
		}
		return
	}
	if err := c.client.Del(ctx, activeKey(req.Mobile)).Err(); err != nil {
		c.warn("clear active loan request pointer", req.ID, err)
	}
}

// drop removes both views when a newer version could not be written
func (c *redisViewCache) drop(ctx context.Context, req *domain.LoanRequest) {
	if err := c.client.Del(ctx, idKey(req.ID), activeKey(req.Mobile)).Err(); err != nil {
		c.warn("invalidate loan request views", req.ID, err)
	}
}

func (c *redisViewCache) warn(msg, key string, err error) {
	c.logger.Warn(msg, zap.String("key", key), zap.Error(customError.WrapCacheError(err)))
}

// noopViewCache is used when Redis is not configured
type noopViewCache struct{}

func NewNoopViewCache() ViewCache {
	return noopViewCache{}
}

func (noopViewCache) GetByID(context.Context, string) (*domain.LoanRequest, bool)   { return nil, false }
func (noopViewCache) GetActive(context.Context, string) (*domain.LoanRequest, bool) { return nil, false }
func (noopViewCache) Set(context.Context, *domain.LoanRequest)                      {}
