package redis

import (
	"context"
	"errors"
	"fmt"

	"trivia-duel/internal/domain"

	"github.com/redis/go-redis/v9"
)

const couponsKey = "trivia:coupons"

// CouponLedger keeps coupon values in a single hash.
type CouponLedger struct {
	client *redis.Client
}

func NewCouponLedger(client *redis.Client) *CouponLedger {
	return &CouponLedger{client: client}
}

func (l *CouponLedger) Lookup(ctx context.Context, code string) (int, error) {
	value, err := l.client.HGet(ctx, couponsKey, code).Int()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrCouponNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis coupon %s: %w", code, err)
	}
	return value, nil
}

// SeedIfEmpty writes coupons only when the hash does not exist yet.
func (l *CouponLedger) SeedIfEmpty(ctx context.Context, coupons []domain.Coupon) (bool, error) {
	n, err := l.client.Exists(ctx, couponsKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis coupons exists: %w", err)
	}
	if n > 0 || len(coupons) == 0 {
		return false, nil
	}
	pipe := l.client.TxPipeline()
	for _, c := range coupons {
		pipe.HSetNX(ctx, couponsKey, c.Code, c.Value)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis seed coupons: %w", err)
	}
	return true, nil
}
