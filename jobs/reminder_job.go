package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
)

const reminderWindow = time.Hour

// SendSessionReminders notifies both parties of accepted sessions starting
// within the next hour. Each session is reminded once.
func (r *Runner) SendSessionReminders(ctx context.Context) int {
	now := r.now().UTC()
	days := []string{now.Format("2006-01-02"), now.Add(reminderWindow).Format("2006-01-02")}

	var upcoming []models.SessionRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND session_date IN ?", models.SessionAccepted, days).
		Find(&upcoming).Error
	if err != nil {
		r.log.Error("session reminders: query failed", zap.Error(err))
		return 0
	}

	sent := 0
	for _, req := range upcoming {
		startsAt, err := req.StartsAt(time.UTC)
		if err != nil || !startsAt.After(now) || startsAt.After(now.Add(reminderWindow)) || req.TutorID == nil {
			continue
		}

		res := r.db.WithContext(ctx).Model(&models.SessionRequest{}).
			Where("id = ? AND reminder_sent_at IS NULL", req.ID).
			Update("reminder_sent_at", now)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}
		sent++

		link := ""
		if req.MeetingLink != nil {
			link = *req.MeetingLink
		}
		params := map[string]string{"title": req.Title, "time": req.SessionTime + " UTC", "link": link}
		r.notifier.Notify(ctx,
			notifications.Notice{UserID: req.StudentID, Kind: notifications.KindSessionReminder, Params: params},
			notifications.Notice{UserID: *req.TutorID, Kind: notifications.KindSessionReminder, Params: params},
		)
	}
	return sent
}
