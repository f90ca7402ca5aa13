package db2cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zosbridge/commongo/pkg/manager"
)

// parseDelimitedResults reads an exported DEL file. The first record names
// the columns; every following record becomes a ResultRow with values decoded
// to int64, float64, or string. Short records are padded with nil so every
// row carries the full column set.
func parseDelimitedResults(path string) ([]manager.ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	if len(records) == 0 {
		return []manager.ResultRow{}, nil
	}

	columns := make([]string, len(records[0]))
	for i, name := range records[0] {
		columns[i] = strings.TrimSpace(name)
	}

	rows := make([]manager.ResultRow, 0, len(records)-1)
	for _, record := range records[1:] {
		values := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if i < len(record) {
				values[col] = decodeValue(record[i])
			} else {
				values[col] = nil
			}
		}
		rows = append(rows, manager.ResultRow{Columns: columns, Values: values})
	}
	return rows, nil
}

func decodeValue(raw string) interface{} {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
