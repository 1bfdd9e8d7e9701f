package videos

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepTimeout bounds one scheduled sweep.
const SweepTimeout = 10 * time.Minute

// ScheduleSweeper registers the sweeper on c under a standard five-field cron spec.
func ScheduleSweeper(ctx context.Context, c *cron.Cron, spec string, s *Sweeper) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() { s.Run(ctx, SweepTimeout) })
	if err != nil {
		return 0, fmt.Errorf("schedule sweeper %q: %w", spec, err)
	}
	return id, nil
}
