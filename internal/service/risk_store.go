package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RiskUsageStore is the in-process UsageRepo used when no redis or database
// is configured. Usage resets at UTC midnight.
type RiskUsageStore struct {
	mu     sync.Mutex
	now    func() time.Time
	volume map[string]float64
	orders map[string]int
}

func NewRiskUsageStore() *RiskUsageStore {
	return &RiskUsageStore{
		now:    time.Now,
		volume: make(map[string]float64),
		orders: make(map[string]int),
	}
}

func (s *RiskUsageStore) GetDailyUsage(_ context.Context, accountID string) (int, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(accountID)
	return s.orders[key], s.volume[key], nil
}

func (s *RiskUsageStore) AddDailyUsage(_ context.Context, accountID string, orders int, notional float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	key := s.key(accountID)
	s.volume[key] += notional
	s.orders[key] += orders
	return nil
}

// prune drops buckets from previous days.
func (s *RiskUsageStore) prune() {
	today := ":" + s.now().UTC().Format(time.DateOnly)
	for k := range s.orders {
		if !strings.HasSuffix(k, today) {
			delete(s.orders, k)
		}
	}
	for k := range s.volume {
		if !strings.HasSuffix(k, today) {
			delete(s.volume, k)
		}
	}
}

func (s *RiskUsageStore) key(accountID string) string {
	return accountID + ":" + s.now().UTC().Format(time.DateOnly)
}
