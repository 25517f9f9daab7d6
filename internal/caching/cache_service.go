package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "warnengine"

type CacheService interface {
	// Definition caching. A miss returns (nil, nil).
	GetDefinition(ctx context.Context, code string) (*models.WarningDefinition, error)
	SetDefinition(ctx context.Context, def *models.WarningDefinition, ttl time.Duration) error
	DeleteDefinition(ctx context.Context, code string) error

	// Best-effort job locks. Correctness never depends on holding one.
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
	owner  string
	logger *zap.Logger
}

// releaseScript deletes the lock only if this process still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	}

	return &redisCacheService{client: client, owner: uuid.NewString(), logger: logger}
}

func definitionKey(code string) string {
	return fmt.Sprintf("%s:definition:%s", keyPrefix, code)
}

func lockKey(name string) string {
	return fmt.Sprintf("%s:lock:%s", keyPrefix, name)
}

func (r *redisCacheService) GetDefinition(ctx context.Context, code string) (*models.WarningDefinition, error) {
	data, err := r.client.Get(ctx, definitionKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var def models.WarningDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *redisCacheService) SetDefinition(ctx context.Context, def *models.WarningDefinition, ttl time.Duration) error {
	data, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, definitionKey(def.Code), data, ttl).Err()
}

func (r *redisCacheService) DeleteDefinition(ctx context.Context, code string) error {
	return r.client.Del(ctx, definitionKey(code)).Err()
}

func (r *redisCacheService) AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := lockKey(name)
	ok, err := r.client.SetNX(ctx, key, r.owner, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	release := func() {
		if err := releaseScript.Run(context.Background(), r.client, []string{key}, r.owner).Err(); err != nil {
			r.logger.Warn("failed to release lock", zap.String("lock", name), zap.Error(err))
		}
	}
	return release, true, nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
