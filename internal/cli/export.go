package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/terraincognita07/dairyforms/internal/schema"
	"github.com/terraincognita07/dairyforms/internal/services"
	"github.com/terraincognita07/dairyforms/internal/storage"
	"go.uber.org/zap"
)

type ExportOptions struct {
	DataDir string
	Form    string
	Format  string
	From    string
	To      string
	Logger  *zap.Logger
}

// RunExportCommand writes the form's submissions in the requested format
// ("csv" or "json") to out, optionally limited to a from/to date range.
func RunExportCommand(out io.Writer, options ExportOptions) error {
	format := strings.ToLower(strings.TrimSpace(options.Format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported export format %q", options.Format)
	}

	registry, err := schema.LoadBuiltin()
	if err != nil {
		return fmt.Errorf("load form schemas: %w", err)
	}
	workflows := services.OpenWorkflows(registry, storage.NewLayout(options.DataDir), options.Logger)
	reports, err := workflows.Reports(strings.TrimSpace(options.Form))
	if err != nil {
		return fmt.Errorf("form %q: %w", options.Form, err)
	}

	from, to, err := services.ParseReportRange(options.From, options.To)
	if err != nil {
		return err
	}

	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(reports.BuildJSON(from, to))
	}

	content, err := reports.BuildCSV(from, to)
	if err != nil {
		return err
	}
	_, err = out.Write(content)
	return err
}
