package services

import (
	"github.com/terraincognita07/dairyforms/internal/schema"
	"github.com/terraincognita07/dairyforms/internal/storage"
	"go.uber.org/zap"
)

// WorkflowSet holds one Workflow and its report service per registered form.
type WorkflowSet struct {
	registry  *schema.Registry
	workflows map[string]*Workflow
	reports   map[string]*ReportService
}

// OpenWorkflows wires the file stores of every form in registry under layout.
func OpenWorkflows(registry *schema.Registry, layout storage.Layout, logger *zap.Logger) *WorkflowSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := &WorkflowSet{
		registry:  registry,
		workflows: map[string]*Workflow{},
		reports:   map[string]*ReportService{},
	}
	for _, form := range registry.Forms() {
		drafts := storage.NewDraftStore(layout.DraftPath(form.Name), form, logger)
		log := storage.NewSubmissionLog(layout.SubmissionsPath(form.Name), logger)
		photos := storage.NewPhotoStore(layout.StagingRoot(form.Name), layout.PhotosDir(form.Name))

		workflow := NewWorkflow(form, drafts, log, photos, logger)
		set.workflows[form.Name] = workflow
		set.reports[form.Name] = NewReportService(workflow)
	}
	return set
}

func (set *WorkflowSet) Registry() *schema.Registry {
	return set.registry
}

func (set *WorkflowSet) Workflow(form string) (*Workflow, error) {
	workflow, ok := set.workflows[form]
	if !ok {
		return nil, ErrUnknownForm
	}
	return workflow, nil
}

func (set *WorkflowSet) Reports(form string) (*ReportService, error) {
	reports, ok := set.reports[form]
	if !ok {
		return nil, ErrUnknownForm
	}
	return reports, nil
}
