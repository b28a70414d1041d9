package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthStatus is the latest snapshot of the service's dependencies.
type HealthStatus struct {
	Redis     *bool     `json:"redis,omitempty"` // nil when Redis is not configured
	Upstream  bool      `json:"upstream"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Healthy is false when a configured dependency failed its last check.
func (h HealthStatus) Healthy() bool {
	return h.Upstream && (h.Redis == nil || *h.Redis)
}

// UpstreamCheck reports whether the booking provider answered.
type UpstreamCheck func(ctx context.Context) error

// HealthMonitor refreshes a HealthStatus on a ticker.
type HealthMonitor struct {
	redis    *redis.Client
	upstream UpstreamCheck

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(redisClient *redis.Client, upstream UpstreamCheck) *HealthMonitor {
	return &HealthMonitor{redis: redisClient, upstream: upstream}
}

// Status returns the latest stored snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Check runs every probe once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st := HealthStatus{Upstream: true, CheckedAt: time.Now()}
	if m.redis != nil {
		ok := m.redis.Ping(ctx).Err() == nil
		st.Redis = &ok
	}
	if m.upstream != nil {
		st.Upstream = m.upstream(ctx) == nil
	}

	m.mu.Lock()
	m.current = st
	m.mu.Unlock()
	return st
}

// Start checks immediately and then every interval until ctx is done.
func (m *HealthMonitor) Start(ctx context.Context, interval time.Duration) {
	m.Check(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}
