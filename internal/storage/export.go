package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run     RunMetadata `json:"run"`
	Steps   int         `json:"steps"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Export loads a stored run as a single JSON document.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	table, err := s.LoadTable(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Run: *meta, Steps: len(table.Rows), Columns: table.Columns, Rows: table.Rows}, nil
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}
