package memory

import (
	"context"
	"sync"

	"trivia-duel/internal/domain"
)

// CouponLedger is an in-memory coupon table.
type CouponLedger struct {
	mu      sync.RWMutex
	coupons map[string]int
}

func NewCouponLedger(coupons ...domain.Coupon) *CouponLedger {
	l := &CouponLedger{coupons: make(map[string]int, len(coupons))}
	for _, c := range coupons {
		l.coupons[c.Code] = c.Value
	}
	return l
}

func (l *CouponLedger) Lookup(_ context.Context, code string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	value, ok := l.coupons[code]
	if !ok {
		return 0, domain.ErrCouponNotFound
	}
	return value, nil
}

// SeedIfEmpty installs coupons only when the ledger holds none.
func (l *CouponLedger) SeedIfEmpty(_ context.Context, coupons []domain.Coupon) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.coupons) > 0 {
		return false, nil
	}
	for _, c := range coupons {
		l.coupons[c.Code] = c.Value
	}
	return true, nil
}
