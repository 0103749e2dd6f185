package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
)

// ExpireOpenRequests cancels open requests whose expiry has passed and
// returns how many it cancelled.
func (r *Runner) ExpireOpenRequests(ctx context.Context) int {
	now := r.now()
	var expired []models.SessionRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.SessionOpen, now).
		Find(&expired).Error
	if err != nil {
		r.log.Error("expire open requests: query failed", zap.Error(err))
		return 0
	}

	cancelled := 0
	for _, req := range expired {
		res := r.db.WithContext(ctx).Model(&models.SessionRequest{}).
			Where("id = ? AND status = ?", req.ID, models.SessionOpen).
			Updates(map[string]interface{}{"status": models.SessionCancelled, "updated_at": now})
		if res.Error != nil {
			r.log.Warn("expire open requests: update failed", zap.Stringer("id", req.ID), zap.Error(res.Error))
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		cancelled++
		r.notifier.Notify(ctx, notifications.Notice{
			UserID: req.StudentID,
			Kind:   notifications.KindRequestExpired,
			Params: map[string]string{"title": req.Title},
		})
	}

	if cancelled > 0 {
		r.log.Info("expired open requests", zap.Int("count", cancelled))
	}
	return cancelled
}
