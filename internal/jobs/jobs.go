// Package jobs runs the server's periodic housekeeping.
package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"

	applog "cartscout/internal/log"
	"cartscout/internal/metrics"
)

// PruneSchedule is when expired refresh tokens are swept.
const PruneSchedule = "@hourly"

type TokenPruner interface {
	PruneExpired() (int64, error)
}

// PruneTokens sweeps expired refresh tokens once.
func PruneTokens(p TokenPruner) {
	n, err := p.PruneExpired()
	if err != nil {
		applog.Error(nil, "tokens.prune.fail", err, nil)
		return
	}
	metrics.TokensPruned(n)
	if n > 0 {
		applog.Info(nil, "tokens.prune", map[string]any{"removed": n})
	}
}

// Start prunes once right away, then on schedule. Stop the returned cron on
// shutdown.
func Start(p TokenPruner, schedule string) (*cron.Cron, error) {
	PruneTokens(p)
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { PruneTokens(p) }); err != nil {
		return nil, fmt.Errorf("schedule token pruning %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
