package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dairyforms/internal/models"
	"github.com/terraincognita07/dairyforms/internal/schema"
	"github.com/terraincognita07/dairyforms/internal/services"
	"go.uber.org/zap"
)

type formFieldView struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

type formView struct {
	Name     string          `json:"name"`
	Title    string          `json:"title"`
	Location string          `json:"location,omitempty"`
	Fields   []formFieldView `json:"fields"`
}

type sessionView struct {
	Form        string            `json:"form"`
	State       string            `json:"state"`
	Fields      map[string]string `json:"fields"`
	Snapshot    map[string]string `json:"snapshot,omitempty"`
	Photos      []string          `json:"photos"`
	Missing     []string          `json:"missing"`
	LastSavedAt *time.Time        `json:"last_saved_at,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

type sessionAction func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error)

func buildFormView(form *schema.Form) formView {
	required := make(map[string]bool, len(form.Required))
	for _, name := range form.Required {
		required[name] = true
	}
	fields := make([]formFieldView, 0, len(form.Fields))
	for _, field := range form.Fields {
		fields = append(fields, formFieldView{
			Name:     field.Name,
			Label:    field.Label,
			Kind:     string(field.Kind),
			Options:  field.Options,
			Required: required[field.Name],
		})
	}
	return formView{Name: form.Name, Title: form.Title, Location: form.Location, Fields: fields}
}

func buildSessionView(form *schema.Form, session *models.WorkflowSession) sessionView {
	view := sessionView{
		Form:        session.Form,
		State:       string(session.State),
		Fields:      session.Buffer.Strings(),
		Photos:      session.Photos,
		Missing:     form.MissingRequired(session.Buffer),
		LastSavedAt: session.LastSavedAt,
		Warnings:    session.Warnings,
	}
	if session.Snapshot != nil {
		view.Snapshot = session.Snapshot.Strings()
	}
	if view.Photos == nil {
		view.Photos = []string{}
	}
	return view
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) ListForms(c *fiber.Ctx) error {
	forms := handler.workflows.Registry().Forms()
	views := make([]formView, 0, len(forms))
	for _, form := range forms {
		views = append(views, buildFormView(form))
	}
	return c.JSON(fiber.Map{"forms": views})
}

// ShowForm returns the schema and the caller's session. Pending warnings are
// delivered once and then cleared.
func (handler *Handler) ShowForm(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return fiber.Map{
			"schema":   buildFormView(workflow.Form()),
			"warnings": session.TakeWarnings(),
		}, nil
	})
}

func (handler *Handler) SetFields(c *fiber.Ctx) error {
	values := map[string]string{}
	if err := c.BodyParser(&values); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid field payload")
	}
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return nil, workflow.SetFields(session, values)
	})
}

func (handler *Handler) SubmitForReview(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return nil, workflow.SubmitForReview(session)
	})
}

func (handler *Handler) Edit(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return nil, workflow.Edit(session)
	})
}

func (handler *Handler) Confirm(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		result, err := workflow.Confirm(session)
		if err != nil {
			return nil, err
		}
		return fiber.Map{
			"submission":  result.Row.Values,
			"photo_paths": result.PhotoPaths,
			"warnings":    session.TakeWarnings(),
		}, nil
	})
}

func (handler *Handler) StartNew(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return nil, workflow.StartNew(session)
	})
}

func (handler *Handler) ResetForm(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return nil, workflow.ResetForm(session)
	})
}

func (handler *Handler) SaveDraft(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return nil, workflow.SaveDraft(session)
	})
}

func (handler *Handler) LoadDraft(c *fiber.Ctx) error {
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		found, err := workflow.LoadDraft(session)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"found": found}, nil
	})
}

func (handler *Handler) StagePhoto(c *fiber.Ctx) error {
	header, err := c.FormFile("photo")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "photo file is required")
	}
	file, err := header.Open()
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "photo file is unreadable")
	}
	defer file.Close()

	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		path, err := workflow.StagePhoto(session, header.Filename, file)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"path": path}, nil
	})
}

func (handler *Handler) UnstagePhoto(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid photo index")
	}
	return handler.withSession(c, func(workflow *services.Workflow, session *models.WorkflowSession) (fiber.Map, error) {
		return nil, workflow.UnstagePhoto(session, index)
	})
}

// withSession loads the caller's session for the :form route parameter, runs
// action and stores the session again even when the action failed. Requests
// for the same session run one at a time.
func (handler *Handler) withSession(c *fiber.Ctx, action sessionAction) error {
	workflow, err := handler.workflows.Workflow(c.Params("form"))
	if err != nil {
		return handler.workflowError(c, err)
	}

	sessionID := currentSessionID(c)
	unlock := handler.sessionLocks.lock(sessionID, workflow.Form().Name)
	defer unlock()

	stored, found, err := handler.sessions.Find(sessionID, workflow.Form().Name)
	if err != nil {
		handler.logger.Error("load session failed", zap.String("session", sessionID), zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "failed to load session")
	}
	session := &stored
	if !found {
		session = workflow.NewSession(sessionID)
	}

	extra, actionErr := action(workflow, session)
	if err := handler.sessions.Save(session); err != nil {
		handler.logger.Error("save session failed", zap.String("session", sessionID), zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "failed to save session")
	}
	if actionErr != nil {
		return handler.workflowError(c, actionErr)
	}

	body := fiber.Map{"session": buildSessionView(workflow.Form(), session)}
	for key, value := range extra {
		body[key] = value
	}
	return c.JSON(body)
}
