package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/dairyforms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository keeps WorkflowSession values between HTTP requests.
type SessionRepository struct {
	database *gorm.DB
}

func NewSessionRepository(database *gorm.DB) *SessionRepository {
	return &SessionRepository{database: database}
}

func (repo *SessionRepository) Find(sessionID string, form string) (models.WorkflowSession, bool, error) {
	var session models.WorkflowSession
	err := repo.database.
		Where("session_id = ? AND form = ?", sessionID, form).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WorkflowSession{}, false, nil
	}
	if err != nil {
		return models.WorkflowSession{}, false, err
	}
	return session, true, nil
}

// Save inserts the session or overwrites the stored row with the same id and form.
func (repo *SessionRepository) Save(session *models.WorkflowSession) error {
	return repo.database.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "form"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "buffer", "snapshot", "photos", "warnings", "last_saved_at", "updated_at"}),
		}).
		Create(session).Error
}

func (repo *SessionRepository) Delete(sessionID string, form string) error {
	return repo.database.
		Where("session_id = ? AND form = ?", sessionID, form).
		Delete(&models.WorkflowSession{}).Error
}

// PurgeOlderThan removes sessions not touched since cutoff and reports how
// many were removed.
func (repo *SessionRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result := repo.database.
		Where("updated_at < ?", cutoff).
		Delete(&models.WorkflowSession{})
	return result.RowsAffected, result.Error
}
