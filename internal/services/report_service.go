package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/dairyforms/internal/models"
	"github.com/terraincognita07/dairyforms/internal/schema"
)

var (
	ErrReportFromDateInvalid = errors.New("report invalid from date")
	ErrReportToDateInvalid   = errors.New("report invalid to date")
	ErrReportRangeInvalid    = errors.New("report invalid range")
)

const unknownLocation = "unknown"

// SubmissionSource is the read side of a Workflow.
type SubmissionSource interface {
	Form() *schema.Form
	Submissions() models.SubmissionTable
}

type ReportService struct {
	source SubmissionSource
}

type ReportSummary struct {
	Form         string         `json:"form"`
	TotalEntries int            `json:"total_entries"`
	HasData      bool           `json:"has_data"`
	DateFrom     string         `json:"date_from"`
	DateTo       string         `json:"date_to"`
	PhotoCount   int            `json:"photo_count"`
	ByLocation   map[string]int `json:"by_location"`
}

type ReportEntry struct {
	Fields map[string]string `json:"fields"`
	Photos []string          `json:"photos"`
}

func NewReportService(source SubmissionSource) *ReportService {
	return &ReportService{source: source}
}

// ParseReportRange parses optional YYYY-MM-DD bounds. Both bounds are inclusive.
func ParseReportRange(rawFrom string, rawTo string) (*time.Time, *time.Time, error) {
	from, err := parseReportDate(rawFrom)
	if err != nil {
		return nil, nil, ErrReportFromDateInvalid
	}
	to, err := parseReportDate(rawTo)
	if err != nil {
		return nil, nil, ErrReportToDateInvalid
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, ErrReportRangeInvalid
	}
	return from, to, nil
}

func parseReportDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(models.DateLayout, trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (service *ReportService) BuildSummary(from *time.Time, to *time.Time) ReportSummary {
	form := service.source.Form()
	table, dates := service.rowsInRange(from, to)

	summary := ReportSummary{
		Form:       form.Name,
		ByLocation: map[string]int{},
	}
	if table.Len() == 0 {
		return summary
	}
	summary.TotalEntries = table.Len()
	summary.HasData = true

	var first, last time.Time
	for _, date := range dates {
		if date.IsZero() {
			continue
		}
		if first.IsZero() || date.Before(first) {
			first = date
		}
		if last.IsZero() || date.After(last) {
			last = date
		}
	}
	if !first.IsZero() {
		summary.DateFrom = first.Format(models.DateLayout)
		summary.DateTo = last.Format(models.DateLayout)
	}

	locations := table.Column(form.Location)
	for index := 0; index < table.Len(); index++ {
		location := unknownLocation
		if locations != nil && strings.TrimSpace(locations[index]) != "" {
			location = strings.TrimSpace(locations[index])
		}
		summary.ByLocation[location]++
	}
	for _, raw := range table.Column(models.PhotoPathsColumn) {
		summary.PhotoCount += len(SplitPhotoPaths(raw))
	}
	return summary
}

// BuildCSV renders the submissions in range with the log's own header.
func (service *ReportService) BuildCSV(from *time.Time, to *time.Time) ([]byte, error) {
	table, _ := service.rowsInRange(from, to)

	var output bytes.Buffer
	writer := csv.NewWriter(&output)
	if len(table.Header) > 0 {
		if err := writer.Write(table.Header); err != nil {
			return nil, fmt.Errorf("write report header: %w", err)
		}
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return nil, fmt.Errorf("write report rows: %w", err)
	}
	return output.Bytes(), nil
}

func (service *ReportService) BuildJSON(from *time.Time, to *time.Time) []ReportEntry {
	table, _ := service.rowsInRange(from, to)

	entries := make([]ReportEntry, 0, table.Len())
	for _, record := range table.Records() {
		photos := SplitPhotoPaths(record[models.PhotoPathsColumn])
		delete(record, models.PhotoPathsColumn)
		entries = append(entries, ReportEntry{Fields: record, Photos: photos})
	}
	return entries
}

// rowsInRange filters the cached table by the form's date field. Rows whose
// date does not parse are kept only when no bound is set.
func (service *ReportService) rowsInRange(from *time.Time, to *time.Time) (models.SubmissionTable, []time.Time) {
	table := service.source.Submissions()
	dateFields := service.source.Form().DateFields()
	var rawDates []string
	if len(dateFields) > 0 {
		rawDates = table.Column(dateFields[0])
	}

	filtered := models.SubmissionTable{Header: table.Header, Rows: make([][]string, 0, table.Len())}
	dates := make([]time.Time, 0, table.Len())
	for index, row := range table.Rows {
		var date time.Time
		if rawDates != nil {
			if parsed, err := time.Parse(models.DateLayout, strings.TrimSpace(rawDates[index])); err == nil {
				date = parsed
			}
		}
		if from != nil || to != nil {
			if date.IsZero() {
				continue
			}
			if from != nil && date.Before(*from) {
				continue
			}
			if to != nil && date.After(*to) {
				continue
			}
		}
		filtered.Rows = append(filtered.Rows, row)
		dates = append(dates, date)
	}
	return filtered, dates
}
