package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/terraincognita07/dairyforms/internal/services"
	"github.com/terraincognita07/dairyforms/internal/storage"
)

const surveyLog = `Surveyor,Farmer Code,Village Code,Date,Photo Paths
Asha,F-1,V-12,2024-03-01,
Guru,F-2,V-14,2024-03-09,"data/photos/snf_survey/a.jpg,data/photos/snf_survey/b.jpg"
`

func writeSurveyLog(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := storage.NewLayout(root).SubmissionsPath("snf_survey")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(surveyLog), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return root
}

func TestRunExportCommandCSVRange(t *testing.T) {
	root := writeSurveyLog(t)

	var out bytes.Buffer
	err := RunExportCommand(&out, ExportOptions{DataDir: root, Form: "snf_survey", From: "2024-03-05"})
	if err != nil {
		t.Fatalf("RunExportCommand() unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out.String())
	}
	if lines[0] != "Surveyor,Farmer Code,Village Code,Date,Photo Paths" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Guru,F-2,V-14,2024-03-09,") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestRunExportCommandJSON(t *testing.T) {
	root := writeSurveyLog(t)

	var out bytes.Buffer
	err := RunExportCommand(&out, ExportOptions{DataDir: root, Form: "snf_survey", Format: "JSON"})
	if err != nil {
		t.Fatalf("RunExportCommand() unexpected error: %v", err)
	}

	var entries []services.ReportEntry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	want := []string{"data/photos/snf_survey/a.jpg", "data/photos/snf_survey/b.jpg"}
	if diff := cmp.Diff(want, entries[1].Photos); diff != "" {
		t.Fatalf("photos mismatch (-want +got):\n%s", diff)
	}
	if entries[1].Fields["Surveyor"] != "Guru" {
		t.Fatalf("expected Guru, got %#v", entries[1].Fields)
	}
}

func TestRunExportCommandRejectsUnknownForm(t *testing.T) {
	err := RunExportCommand(&bytes.Buffer{}, ExportOptions{DataDir: t.TempDir(), Form: "goat_census"})
	if !errors.Is(err, services.ErrUnknownForm) {
		t.Fatalf("expected ErrUnknownForm, got %v", err)
	}
}

func TestRunExportCommandRejectsBadInput(t *testing.T) {
	root := t.TempDir()
	if err := RunExportCommand(&bytes.Buffer{}, ExportOptions{DataDir: root, Form: "snf_survey", Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
	err := RunExportCommand(&bytes.Buffer{}, ExportOptions{DataDir: root, Form: "snf_survey", From: "09/03/2024"})
	if !errors.Is(err, services.ErrReportFromDateInvalid) {
		t.Fatalf("expected ErrReportFromDateInvalid, got %v", err)
	}
}

func TestRunPurgeSessionsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dairyforms.db")

	var out bytes.Buffer
	if err := RunPurgeSessionsCommand(&out, path, 0, nil); err == nil {
		t.Fatal("expected non-positive duration to fail")
	}
	if err := RunPurgeSessionsCommand(&out, path, 24*time.Hour, nil); err != nil {
		t.Fatalf("RunPurgeSessionsCommand() unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Removed 0 stale sessions") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
