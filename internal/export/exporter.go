package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rowanharker/tabgrid/internal/models"
)

// ExportToCSV writes a result set to a CSV file, one record per row with a
// header row of column names
func ExportToCSV(rs *models.ResultSet, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := rs.FieldNames()
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rs.Rows {
		record := make([]string, len(header))
		for i, name := range header {
			record[i] = formatValue(row[name])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

// ExportToJSON writes a result set to a JSON file as an array of objects
// keyed by column name
func ExportToJSON(rs *models.ResultSet, path string) error {
	rows := rs.Rows
	if rows == nil {
		rows = []models.Row{}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

// formatValue converts a database value to its CSV cell text, handling JSONB
// values properly
func formatValue(val interface{}) string {
	if val == nil {
		return "NULL"
	}

	switch v := val.(type) {
	case map[string]interface{}, []interface{}:
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(jsonBytes)
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", val)
	}
}
