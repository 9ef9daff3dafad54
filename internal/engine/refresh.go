package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "iuhsched/internal/log"
)

// StartRefresh schedules a fetch of the current week according to the
// standard five-field cron spec. The caller stops the returned scheduler.
func (e *Engine) StartRefresh(ctx context.Context, spec string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		res, err := e.FetchWeek(ctx, 0)
		if err != nil {
			// FetchWeek already logged the failure; there is no retry.
			return
		}
		appLog.Info("scheduled refresh done", "extracted", res.Extracted, "added", res.Added)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("scheduled refresh enabled", "cron", spec, "timezone", loc.String())
	return c, nil
}
