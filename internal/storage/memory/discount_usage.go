package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// discountUsageInMemory считает применения кодов скидки.
type discountUsageInMemory struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewDiscountUsageCounter создаёт in-memory счётчик применений скидок.
func NewDiscountUsageCounter() domain.DiscountUsageCounter {
	return &discountUsageInMemory{counts: make(map[string]int)}
}

func (c *discountUsageInMemory) Usage(code string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[code], nil
}

func (c *discountUsageInMemory) Increment(code string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[code]++
	return c.counts[code], nil
}

var _ domain.DiscountUsageCounter = (*discountUsageInMemory)(nil)
