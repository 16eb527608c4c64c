package services

import (
	"strconv"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

// Caches holds the per-user read caches shared by the services. A nil
// *Caches disables caching.
type Caches struct {
	Summaries *cache.LRUCache[core.DashboardSummary]
	Cards     *cache.LRUCache[[]core.Card]
}

func NewCaches(maxUsers int, ttl time.Duration) *Caches {
	return &Caches{
		Summaries: cache.NewLRUCache[core.DashboardSummary](maxUsers, ttl),
		Cards:     cache.NewLRUCache[[]core.Card](maxUsers, ttl),
	}
}

// Register adds the caches to the cleanup manager.
func (c *Caches) Register(m *cache.Manager) {
	if c == nil || m == nil {
		return
	}
	m.Register("summaries", c.Summaries)
	m.Register("cards", c.Cards)
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (c *Caches) invalidateSummary(userID int64) {
	if c == nil {
		return
	}
	c.Summaries.Delete(userKey(userID))
}

func (c *Caches) invalidateCards(userID int64) {
	if c == nil {
		return
	}
	c.Cards.Delete(userKey(userID))
	// total balance is part of the summary
	c.Summaries.Delete(userKey(userID))
}
