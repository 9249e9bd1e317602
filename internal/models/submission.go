package models

const PhotoPathsColumn = "Photo Paths"

// SubmissionRow is one finalized submission, already rendered to strings.
type SubmissionRow struct {
	Columns []string
	Values  map[string]string
}

func (row SubmissionRow) Value(column string) string {
	return row.Values[column]
}

// Record returns the row values in Columns order.
func (row SubmissionRow) Record() []string {
	record := make([]string, len(row.Columns))
	for index, column := range row.Columns {
		record[index] = row.Values[column]
	}
	return record
}

// SubmissionTable is the full submission log held in memory.
type SubmissionTable struct {
	Header []string
	Rows   [][]string
}

func (table SubmissionTable) Len() int {
	return len(table.Rows)
}

func (table SubmissionTable) ColumnIndex(column string) int {
	for index, name := range table.Header {
		if name == column {
			return index
		}
	}
	return -1
}

// Column returns every value of the named column, or nil when the column is unknown.
func (table SubmissionTable) Column(column string) []string {
	index := table.ColumnIndex(column)
	if index < 0 {
		return nil
	}
	values := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if index < len(row) {
			values = append(values, row[index])
			continue
		}
		values = append(values, "")
	}
	return values
}

func (table SubmissionTable) Records() []map[string]string {
	records := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make(map[string]string, len(table.Header))
		for index, column := range table.Header {
			if index < len(row) {
				record[column] = row[index]
			} else {
				record[column] = ""
			}
		}
		records = append(records, record)
	}
	return records
}

// Append adds row to the table. Columns the header does not know yet widen the
// header; earlier rows read them as empty.
func (table *SubmissionTable) Append(row SubmissionRow) {
	for _, column := range row.Columns {
		if table.ColumnIndex(column) < 0 {
			table.Header = append(table.Header, column)
		}
	}
	record := make([]string, len(table.Header))
	for index, column := range table.Header {
		record[index] = row.Values[column]
	}
	table.Rows = append(table.Rows, record)
}

func (table SubmissionTable) Clone() SubmissionTable {
	cloned := SubmissionTable{
		Header: append([]string(nil), table.Header...),
		Rows:   make([][]string, len(table.Rows)),
	}
	for index, row := range table.Rows {
		cloned.Rows[index] = append([]string(nil), row...)
	}
	return cloned
}
