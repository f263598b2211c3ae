package health

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

const defaultCheckTimeout = 2 * time.Second

// SimpleChecker простая проверка с функцией
type SimpleChecker struct {
	name    string
	checkFn func(ctx context.Context) error
}

// NewSimpleChecker создаёт простую проверку
func NewSimpleChecker(name string, checkFn func(ctx context.Context) error) *SimpleChecker {
	return &SimpleChecker{
		name:    name,
		checkFn: checkFn,
	}
}

// Check выполняет проверку
func (c *SimpleChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.checkFn(ctx)
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:       c.name,
			Status:     StatusUnhealthy,
			Message:    err.Error(),
			DurationMs: duration.Milliseconds(),
		}
	}

	return Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
}

// Pinger — хранилище, умеющее проверять соединение (postgres.Store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewStorageChecker проверяет доступность хранилища с таймаутом.
func NewStorageChecker(name string, pinger Pinger) *SimpleChecker {
	return NewSimpleChecker(name, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, defaultCheckTimeout)
		defer cancel()
		return pinger.Ping(ctx)
	})
}

// OutboxStatsProvider отдаёт размер backlog outbox.
type OutboxStatsProvider interface {
	Stats() (domain.OutboxStats, error)
}

// OutboxBacklogChecker переводит сервис в degraded, когда backlog outbox растёт.
type OutboxBacklogChecker struct {
	name       string
	stats      OutboxStatsProvider
	maxPending int
	maxAge     time.Duration
	now        func() time.Time
}

// NewOutboxBacklogChecker создаёт проверку backlog. Нулевые пороги не проверяются.
func NewOutboxBacklogChecker(name string, stats OutboxStatsProvider, maxPending int, maxAge time.Duration) *OutboxBacklogChecker {
	return &OutboxBacklogChecker{
		name:       name,
		stats:      stats,
		maxPending: maxPending,
		maxAge:     maxAge,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Check возвращает unhealthy при ошибке чтения статистики и degraded при превышении порогов.
func (c *OutboxBacklogChecker) Check(_ context.Context) Check {
	start := time.Now()
	check := Check{Name: c.name, Status: StatusHealthy}

	stats, err := c.stats.Stats()
	switch {
	case err != nil:
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	case c.maxPending > 0 && stats.PendingCount > c.maxPending:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%d pending outbox messages (max %d)", stats.PendingCount, c.maxPending)
	case c.maxAge > 0 && stats.PendingCount > 0 && c.now().Sub(stats.OldestPendingAt) > c.maxAge:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("oldest pending outbox message is older than %s", c.maxAge)
	}

	check.DurationMs = time.Since(start).Milliseconds()
	return check
}
