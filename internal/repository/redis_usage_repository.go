package repository

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Hash fields of a usage key.
const (
	fieldDailyUsage    = "daily_usage"
	fieldIsPremium     = "is_premium"
	fieldLastResetDate = "last_reset_date"
	fieldUpdatedAt     = "updated_at"
)

// incrementIfBelowScript increments the counter only while it is below the limit.
// KEYS[1] = usage hash
// ARGV[1] = limit
// ARGV[2] = today
// ARGV[3] = now (unix seconds)
//
// Returns 1 when incremented, 0 when the limit is reached.
var incrementIfBelowScript = goredis.NewScript(`
local used = tonumber(redis.call("HGET", KEYS[1], "daily_usage") or "0")
if used >= tonumber(ARGV[1]) then
    return 0
end
redis.call("HINCRBY", KEYS[1], "daily_usage", 1)
redis.call("HSETNX", KEYS[1], "last_reset_date", ARGV[2])
redis.call("HSET", KEYS[1], "updated_at", ARGV[3])
return 1
`)

// decrementScript gives one message back without going below zero.
// KEYS[1] = usage hash
// ARGV[1] = now (unix seconds)
var decrementScript = goredis.NewScript(`
local used = tonumber(redis.call("HGET", KEYS[1], "daily_usage") or "0")
if used <= 0 then
    return 0
end
redis.call("HINCRBY", KEYS[1], "daily_usage", -1)
redis.call("HSET", KEYS[1], "updated_at", ARGV[1])
return 1
`)

// resetScript zeroes every given hash not yet reset today.
// KEYS = usage hashes from one SCAN page
// ARGV[1] = today
// ARGV[2] = now (unix seconds)
//
// Returns the number of hashes reset.
var resetScript = goredis.NewScript(`
local n = 0
for _, key in ipairs(KEYS) do
    if redis.call("HGET", key, "last_reset_date") ~= ARGV[1] then
        redis.call("HSET", key, "daily_usage", "0", "last_reset_date", ARGV[1], "updated_at", ARGV[2])
        n = n + 1
    end
end
return n
`)

type redisUsageRepository struct {
	client goredis.Cmdable
	opts   usageOptions
}

// NewRedisUsageRepository stores one hash per user. The reset sweep passes a
// whole SCAN page to one script call, so on Redis Cluster the key prefix must
// carry a hash tag.
func NewRedisUsageRepository(client goredis.Cmdable, opts ...UsageOption) UsageRepository {
	return &redisUsageRepository{
		client: client,
		opts:   newUsageOptions(opts),
	}
}

func (r *redisUsageRepository) key(userID string) string {
	return r.opts.keyPrefix + userID
}

func (r *redisUsageRepository) GetUsage(ctx context.Context, userID string) (*models.UsageRecord, error) {
	fields, err := r.client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, errors.Unavailable(err, "failed to get usage")
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec := &models.UsageRecord{
		UserID:        userID,
		IsPremium:     fields[fieldIsPremium] == "1",
		LastResetDate: fields[fieldLastResetDate],
	}
	if v, ok := fields[fieldDailyUsage]; ok {
		if rec.DailyUsage, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, errors.Wrap(err, "failed to decode usage")
		}
	}
	if v, ok := fields[fieldUpdatedAt]; ok {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.UpdatedAt = time.Unix(sec, 0).UTC()
		}
	}
	return rec, nil
}

func (r *redisUsageRepository) IncrementUsage(ctx context.Context, userID string) error {
	now := r.opts.clock()
	key := r.key(userID)

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldDailyUsage, 1)
		pipe.HSetNX(ctx, key, fieldLastResetDate, models.UsageDay(now))
		pipe.HSet(ctx, key, fieldUpdatedAt, now.Unix())
		return nil
	})
	if err != nil {
		return errors.Unavailable(err, "failed to increment usage")
	}
	return nil
}

func (r *redisUsageRepository) IncrementUsageIfBelow(ctx context.Context, userID string, limit int64) (bool, error) {
	now := r.opts.clock()

	res, err := incrementIfBelowScript.Run(ctx, r.client,
		[]string{r.key(userID)},
		limit, models.UsageDay(now), now.Unix(),
	).Int64()
	if err != nil {
		return false, errors.Unavailable(err, "failed to reserve usage")
	}
	return res == 1, nil
}

func (r *redisUsageRepository) DecrementUsage(ctx context.Context, userID string) error {
	err := decrementScript.Run(ctx, r.client,
		[]string{r.key(userID)},
		r.opts.clock().Unix(),
	).Err()
	if err != nil {
		return errors.Unavailable(err, "failed to refund usage")
	}
	return nil
}

func (r *redisUsageRepository) ResetAllUsage(ctx context.Context) (int, error) {
	now := r.opts.clock()
	today := models.UsageDay(now)
	match := r.opts.keyPrefix + "*"

	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, int64(r.opts.batchSize)).Result()
		if err != nil {
			return total, errors.Unavailable(err, "failed to scan usage keys")
		}

		if len(keys) > 0 {
			n, err := resetScript.Run(ctx, r.client, keys, today, now.Unix()).Int64()
			if err != nil {
				return total, errors.Unavailable(err, "failed to reset usage")
			}
			total += int(n)
		}

		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func (r *redisUsageRepository) SetPremium(ctx context.Context, userID string, isPremium bool) error {
	now := r.opts.clock()
	key := r.key(userID)
	flag := "0"
	if isPremium {
		flag = "1"
	}

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldIsPremium, flag, fieldUpdatedAt, now.Unix())
		pipe.HSetNX(ctx, key, fieldDailyUsage, 0)
		pipe.HSetNX(ctx, key, fieldLastResetDate, models.UsageDay(now))
		return nil
	})
	if err != nil {
		return errors.Unavailable(err, "failed to set tier")
	}
	return nil
}

// NewRedisClient connects and pings, so a misconfigured address fails at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Unavailable(err, "failed to connect to Redis")
	}
	return client, nil
}
