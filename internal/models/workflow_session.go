package models

import "time"

type WorkflowState string

const (
	StateFormEntry WorkflowState = "form_entry"
	StateReview    WorkflowState = "review"
	StateSubmitted WorkflowState = "submitted"
)

// WorkflowSession is the per-user state of one form workflow. It is passed
// explicitly to every workflow action.
type WorkflowSession struct {
	ID          string        `gorm:"primaryKey;column:session_id"`
	Form        string        `gorm:"primaryKey;column:form"`
	State       WorkflowState `gorm:"not null;default:form_entry"`
	Buffer      FormBuffer    `gorm:"serializer:json"`
	Snapshot    FormBuffer    `gorm:"serializer:json"`
	Photos      []string      `gorm:"serializer:json"`
	Warnings    []string      `gorm:"serializer:json"`
	LastSavedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (WorkflowSession) TableName() string {
	return "workflow_sessions"
}

func (session *WorkflowSession) HasPhoto(path string) bool {
	for _, existing := range session.Photos {
		if existing == path {
			return true
		}
	}
	return false
}

func (session *WorkflowSession) AddWarning(message string) {
	session.Warnings = append(session.Warnings, message)
}

// TakeWarnings returns pending warnings and clears them.
func (session *WorkflowSession) TakeWarnings() []string {
	warnings := session.Warnings
	session.Warnings = nil
	return warnings
}
