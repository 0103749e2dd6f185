package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/notifications"
)

type Notifier interface {
	Notify(ctx context.Context, notices ...notifications.Notice)
}

// Runner holds the periodic maintenance jobs.
type Runner struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewRunner(db *gorm.DB, notifier Notifier, log *zap.Logger) *Runner {
	return &Runner{db: db, notifier: notifier, log: log, now: time.Now}
}

// Schedule registers every job on c to run every five minutes.
func (r *Runner) Schedule(c *cron.Cron) error {
	if _, err := c.AddFunc("*/5 * * * *", func() { r.ExpireOpenRequests(context.Background()) }); err != nil {
		return err
	}
	if _, err := c.AddFunc("*/5 * * * *", func() { r.SendSessionReminders(context.Background()) }); err != nil {
		return err
	}
	return nil
}
