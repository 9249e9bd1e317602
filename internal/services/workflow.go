package services

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/terraincognita07/dairyforms/internal/models"
	"github.com/terraincognita07/dairyforms/internal/schema"
	"github.com/terraincognita07/dairyforms/internal/storage"
	"go.uber.org/zap"
)

const photoPathSeparator = ","

type DraftStore interface {
	Save(buffer models.FormBuffer) error
	Load() (models.FormBuffer, bool, error)
	Delete() error
}

type SubmissionLog interface {
	Append(row models.SubmissionRow) error
	LoadAll() models.SubmissionTable
}

type PhotoStore interface {
	StagePath(sessionID string, filename string) (string, error)
	Write(path string, content io.Reader) error
	Remove(path string) error
	Promote(paths []string) ([]string, []string, error)
	Sweep(sessionID string) error
}

type ConfirmResult struct {
	Row        models.SubmissionRow
	PhotoPaths []string
	Warnings   []string
}

// Workflow drives the form_entry -> review -> submitted sequence for one form
// schema. Sessions are owned by the caller and passed to every action.
type Workflow struct {
	form   *schema.Form
	drafts DraftStore
	log    SubmissionLog
	photos PhotoStore
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	submissions models.SubmissionTable
}

func NewWorkflow(form *schema.Form, drafts DraftStore, log SubmissionLog, photos PhotoStore, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	workflow := &Workflow{
		form:   form,
		drafts: drafts,
		log:    log,
		photos: photos,
		logger: logger.With(zap.String("form", form.Name)),
		now:    time.Now,
	}
	workflow.submissions = log.LoadAll()
	return workflow
}

func (workflow *Workflow) Form() *schema.Form {
	return workflow.form
}

func (workflow *Workflow) NewSession(id string) *models.WorkflowSession {
	return &models.WorkflowSession{
		ID:     id,
		Form:   workflow.form.Name,
		State:  models.StateFormEntry,
		Buffer: workflow.form.Defaults(),
		Photos: []string{},
	}
}

// Submissions returns a copy of the in-memory submission table.
func (workflow *Workflow) Submissions() models.SubmissionTable {
	workflow.mu.RLock()
	defer workflow.mu.RUnlock()
	return workflow.submissions.Clone()
}

// SetFields applies host-supplied raw values to the live buffer. Values that
// do not parse are reported together in one ValidationError; the rest are
// still applied.
func (workflow *Workflow) SetFields(session *models.WorkflowSession, values map[string]string) error {
	if err := workflow.require(session, "edit fields", models.StateFormEntry); err != nil {
		return err
	}
	if session.Buffer == nil {
		session.Buffer = workflow.form.Defaults()
	}

	invalid := map[string]string{}
	for name, raw := range values {
		value, err := workflow.form.ParseValue(name, raw)
		if err != nil {
			invalid[name] = err.Error()
			continue
		}
		session.Buffer[name] = value
	}
	if len(invalid) > 0 {
		return &ValidationError{Invalid: invalid}
	}
	return nil
}

func (workflow *Workflow) SubmitForReview(session *models.WorkflowSession) error {
	if err := workflow.require(session, "submit for review", models.StateFormEntry); err != nil {
		return err
	}

	if missing := workflow.form.MissingRequired(session.Buffer); len(missing) > 0 {
		return &ValidationError{Missing: missing, MissingLabels: workflow.form.Labels(missing)}
	}

	session.Snapshot = session.Buffer.Clone()
	session.State = models.StateReview
	return nil
}

func (workflow *Workflow) Edit(session *models.WorkflowSession) error {
	if err := workflow.require(session, "edit", models.StateReview); err != nil {
		return err
	}
	session.State = models.StateFormEntry
	return nil
}

// Confirm promotes the staged photos, appends the reviewed snapshot to the
// submission log and clears the session's staging area and the draft. When the
// append fails the session stays in review; photos already promoted stay in
// the final directory.
func (workflow *Workflow) Confirm(session *models.WorkflowSession) (ConfirmResult, error) {
	if err := workflow.require(session, "confirm", models.StateReview); err != nil {
		return ConfirmResult{}, err
	}

	promoted, missing, err := workflow.photos.Promote(session.Photos)
	result := ConfirmResult{PhotoPaths: promoted}
	for _, path := range missing {
		warning := PartialPromotionWarning{Path: path}
		workflow.logger.Warn("staged photo missing at confirmation", zap.String("session", session.ID), zap.String("path", path))
		result.Warnings = append(result.Warnings, warning.Error())
		session.AddWarning(warning.Error())
	}
	if err != nil {
		return result, &PersistenceError{Op: "promote photos", Err: err}
	}

	row := workflow.buildRow(session.Snapshot, promoted)
	if err := workflow.appendSubmission(row); err != nil {
		workflow.logger.Error("append submission failed", zap.String("session", session.ID), zap.Error(err))
		return result, &PersistenceError{Op: "append submission", Err: err}
	}
	result.Row = row

	if err := workflow.photos.Sweep(session.ID); err != nil {
		workflow.logger.Warn("staging sweep incomplete", zap.String("session", session.ID), zap.Error(err))
	}
	session.Photos = []string{}
	if err := workflow.drafts.Delete(); err != nil {
		workflow.logger.Warn("draft cleanup failed", zap.Error(err))
	}

	session.State = models.StateSubmitted
	workflow.logger.Info("submission recorded",
		zap.String("session", session.ID),
		zap.Int("photos", len(promoted)),
		zap.Int("missing_photos", len(missing)))
	return result, nil
}

// appendSubmission writes row to the log and the cache under one lock so both
// keep the same order.
func (workflow *Workflow) appendSubmission(row models.SubmissionRow) error {
	workflow.mu.Lock()
	defer workflow.mu.Unlock()

	if err := workflow.log.Append(row); err != nil {
		return err
	}
	workflow.submissions.Append(row)
	return nil
}

func (workflow *Workflow) StartNew(session *models.WorkflowSession) error {
	if err := workflow.require(session, "start new", models.StateSubmitted); err != nil {
		return err
	}
	session.Buffer = workflow.form.Defaults()
	session.Snapshot = nil
	session.Photos = []string{}
	session.State = models.StateFormEntry
	return nil
}

func (workflow *Workflow) SaveDraft(session *models.WorkflowSession) error {
	if err := workflow.require(session, "save draft", models.StateFormEntry); err != nil {
		return err
	}
	if err := workflow.drafts.Save(session.Buffer); err != nil {
		workflow.logger.Error("save draft failed", zap.String("session", session.ID), zap.Error(err))
		return &PersistenceError{Op: "save draft", Err: err}
	}

	savedAt := workflow.now()
	session.LastSavedAt = &savedAt
	return nil
}

// LoadDraft replaces the live buffer with the stored draft. It reports false
// when there is no usable draft; a corrupt draft file counts as none.
func (workflow *Workflow) LoadDraft(session *models.WorkflowSession) (bool, error) {
	if err := workflow.require(session, "load draft", models.StateFormEntry); err != nil {
		return false, err
	}

	buffer, found, err := workflow.drafts.Load()
	if errors.Is(err, storage.ErrCorruptDraft) {
		parseErr := &ParseError{Source: "draft", Err: err}
		workflow.logger.Warn("ignoring unreadable draft", zap.Error(parseErr))
		return false, nil
	}
	if err != nil {
		return false, &PersistenceError{Op: "load draft", Err: err}
	}
	if !found {
		return false, nil
	}

	session.Buffer = buffer
	return true, nil
}

// ResetForm restores defaults and discards staged photos. The stored draft is
// left alone.
func (workflow *Workflow) ResetForm(session *models.WorkflowSession) error {
	if err := workflow.require(session, "reset form", models.StateFormEntry); err != nil {
		return err
	}
	if err := workflow.photos.Sweep(session.ID); err != nil {
		workflow.logger.Warn("staging sweep incomplete", zap.String("session", session.ID), zap.Error(err))
	}
	session.Buffer = workflow.form.Defaults()
	session.Photos = []string{}
	return nil
}

// StagePhoto stores an upload in the session's staging area. A destination
// already in the session is returned as-is without writing again.
func (workflow *Workflow) StagePhoto(session *models.WorkflowSession, filename string, content io.Reader) (string, error) {
	if err := workflow.require(session, "stage photo", models.StateFormEntry); err != nil {
		return "", err
	}

	path, err := workflow.photos.StagePath(session.ID, filename)
	if err != nil {
		return "", &ValidationError{Invalid: map[string]string{"photo": err.Error()}}
	}
	if session.HasPhoto(path) {
		return path, nil
	}

	if err := workflow.photos.Write(path, content); err != nil {
		return "", &PersistenceError{Op: "stage photo", Err: err}
	}
	session.Photos = append(session.Photos, path)
	return path, nil
}

// UnstagePhoto deletes the staged file at index and then drops it from the
// session. When the delete fails the entry is kept.
func (workflow *Workflow) UnstagePhoto(session *models.WorkflowSession, index int) error {
	if err := workflow.require(session, "remove photo", models.StateFormEntry); err != nil {
		return err
	}
	if index < 0 || index >= len(session.Photos) {
		return ErrPhotoIndex
	}

	if err := workflow.photos.Remove(session.Photos[index]); err != nil {
		workflow.logger.Warn("remove staged photo failed", zap.String("path", session.Photos[index]), zap.Error(err))
		return &PersistenceError{Op: "remove photo", Err: err}
	}
	session.Photos = append(session.Photos[:index:index], session.Photos[index+1:]...)
	return nil
}

func (workflow *Workflow) require(session *models.WorkflowSession, action string, state models.WorkflowState) error {
	if session.Form != "" && session.Form != workflow.form.Name {
		return ErrFormMismatch
	}
	if session.State == "" {
		session.State = models.StateFormEntry
	}
	if session.State != state {
		return transitionError(action, session.State)
	}
	return nil
}

func (workflow *Workflow) buildRow(snapshot models.FormBuffer, photoPaths []string) models.SubmissionRow {
	columns := workflow.form.Columns(snapshot)
	values := make(map[string]string, len(columns))
	for _, column := range columns {
		values[column] = snapshot.Value(column).String()
	}
	values[models.PhotoPathsColumn] = strings.Join(photoPaths, photoPathSeparator)
	return models.SubmissionRow{Columns: columns, Values: values}
}

// SplitPhotoPaths is the inverse of the Photo Paths column encoding.
func SplitPhotoPaths(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, photoPathSeparator)
	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths
}
