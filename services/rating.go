package services

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
)

type RatingResult struct {
	RatedUserID uuid.UUID `json:"rated_user_id"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
}

// Rate records raterID's stars for a completed session and recomputes the
// other participant's average from all of their rated completed sessions.
// Each side may rate once; a second attempt returns ErrAlreadyRated.
func (s *SessionService) Rate(ctx context.Context, id, raterID uuid.UUID, stars int) (*RatingResult, error) {
	if stars < 1 || stars > 5 {
		return nil, ErrInvalidRating
	}

	var (
		req    models.SessionRequest
		result RatingResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
			return lookupErr(err, "session request")
		}
		if !req.IsParticipant(raterID) {
			return ErrForbidden
		}
		if req.Status != models.SessionCompleted {
			return errors.Wrapf(ErrInvalidState, "session is %s", req.Status)
		}

		// student_rating is what the student gave the tutor, tutor_rating the reverse.
		column, ratedID, aggregateBy := "student_rating", *req.TutorID, "tutor_id"
		if raterID == *req.TutorID {
			column, ratedID, aggregateBy = "tutor_rating", req.StudentID, "student_id"
		}

		res := tx.Model(&models.SessionRequest{}).
			Where("id = ? AND "+column+" IS NULL", req.ID).
			Update(column, stars)
		if res.Error != nil {
			return errors.Wrap(res.Error, "store rating")
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyRated
		}

		var agg struct {
			Avg   *float64
			Count int
		}
		err := tx.Model(&models.SessionRequest{}).
			Select("AVG("+column+") AS avg, COUNT("+column+") AS count").
			Where(aggregateBy+" = ? AND status = ? AND "+column+" IS NOT NULL", ratedID, models.SessionCompleted).
			Scan(&agg).Error
		if err != nil {
			return errors.Wrap(err, "aggregate ratings")
		}
		if agg.Avg == nil {
			return errors.New("aggregate ratings: no rows after rating")
		}

		err = tx.Model(&models.User{}).Where("id = ?", ratedID).
			Updates(map[string]interface{}{"rating": *agg.Avg, "rating_count": agg.Count}).Error
		if err != nil {
			return errors.Wrap(err, "update user rating")
		}
		result = RatingResult{RatedUserID: ratedID, Rating: *agg.Avg, RatingCount: agg.Count}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notifications.Notice{
		UserID: result.RatedUserID,
		Kind:   notifications.KindSessionRated,
		Params: map[string]string{"title": req.Title, "stars": strconv.Itoa(stars)},
	})
	return &result, nil
}
