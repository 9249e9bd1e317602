package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/terraincognita07/dairyforms/internal/models"
	"go.uber.org/zap"
)

var ErrHeaderMismatch = errors.New("submission row has columns missing from the log header")

// SubmissionLog is an append-only CSV file with one row per confirmed
// submission. The first row is the header.
type SubmissionLog struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewSubmissionLog(path string, logger *zap.Logger) *SubmissionLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionLog{path: path, logger: logger}
}

func (log *SubmissionLog) Path() string {
	return log.path
}

// Append writes row at the end of the log. A new or empty log gets the row's
// columns as its header; otherwise the row is laid out along the existing
// header, and a row carrying a column the header lacks is rejected.
func (log *SubmissionLog) Append(row models.SubmissionRow) error {
	log.mu.Lock()
	defer log.mu.Unlock()

	header, err := log.readHeader()
	if err != nil {
		return err
	}

	records := make([][]string, 0, 2)
	if len(header) == 0 {
		header = row.Columns
		records = append(records, header)
	} else if unknown := columnsOutside(row.Columns, header); len(unknown) > 0 {
		return fmt.Errorf("%w: %v", ErrHeaderMismatch, unknown)
	}
	records = append(records, models.SubmissionRow{Columns: header, Values: row.Values}.Record())

	if err := os.MkdirAll(filepath.Dir(log.path), 0o755); err != nil {
		return fmt.Errorf("create submission log directory: %w", err)
	}
	file, err := os.OpenFile(log.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open submission log: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		file.Close()
		return fmt.Errorf("append submission row: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close submission log: %w", err)
	}
	return nil
}

// LoadAll returns the whole log. A missing, empty or unreadable log reads as
// an empty table.
func (log *SubmissionLog) LoadAll() models.SubmissionTable {
	log.mu.Lock()
	defer log.mu.Unlock()

	content, err := os.ReadFile(log.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.SubmissionTable{}
	}
	if err != nil {
		log.logger.Warn("submission log unreadable, treating as empty", zap.String("path", log.path), zap.Error(err))
		return models.SubmissionTable{}
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		log.logger.Warn("submission log unparsable, treating as empty", zap.String("path", log.path), zap.Error(err))
		return models.SubmissionTable{}
	}
	if len(records) == 0 {
		return models.SubmissionTable{}
	}

	table := models.SubmissionTable{
		Header: records[0],
		Rows:   make([][]string, 0, len(records)-1),
	}
	for _, record := range records[1:] {
		row := make([]string, len(table.Header))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}
	return table
}

func (log *SubmissionLog) readHeader() ([]string, error) {
	file, err := os.Open(log.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open submission log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read submission log header: %w", err)
	}
	return header, nil
}

func columnsOutside(columns []string, header []string) []string {
	known := make(map[string]struct{}, len(header))
	for _, column := range header {
		known[column] = struct{}{}
	}
	outside := make([]string, 0)
	for _, column := range columns {
		if _, ok := known[column]; !ok {
			outside = append(outside, column)
		}
	}
	return outside
}
