package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/crowdfund/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const RateLimitMessage = "Too many requests, please try again later."

// RateLimitMiddleware allows limit requests per client IP in any sliding
// window. Served hits are kept in a sorted set scored by arrival time; a
// rejected hit is removed again so it does not use up the quota. If Redis is
// unavailable requests are let through.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "rl:" + c.IP()
		now := time.Now()
		nowMs := now.UnixMilli()
		windowStart := nowMs - window.Milliseconds()

		ctx := c.UserContext()
		member := uuid.NewString()
		pipe := rdb.TxPipeline()
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
		card := pipe.ZCard(ctx, key)
		oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)
		pipe.PExpire(ctx, key, window)

		if _, err := pipe.Exec(ctx); err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}

		count := card.Val()
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}

		resetAt := now.Add(window)
		if zs := oldest.Val(); len(zs) > 0 {
			resetAt = time.UnixMilli(int64(zs[0].Score)).Add(window)
		}
		reset := int64(math.Ceil(time.Until(resetAt).Seconds()))
		if reset < 0 {
			reset = 0
		}

		c.Set("RateLimit-Limit", strconv.Itoa(limit))
		c.Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("RateLimit-Reset", strconv.FormatInt(reset, 10))

		if count > int64(limit) {
			if err := rdb.ZRem(ctx, key, member).Err(); err != nil {
				log.Warn("rate limiter cleanup failed", zap.Error(err))
			}
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(reset, 10))
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:     RateLimitMessage,
				RequestID: GetRequestID(c),
			})
		}

		return c.Next()
	}
}
