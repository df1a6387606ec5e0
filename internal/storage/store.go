// Package storage keeps finished runs on disk, one directory per run with
// a metadata.json and a states.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/kinsim/internal/ode"
)

// ErrNotFound indicates a run ID with no stored run.
var ErrNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Method      string             `json:"method"`
	Start       float64            `json:"start"`
	Duration    float64            `json:"duration"`
	Temperature float64            `json:"temperature"`
	Pressure    float64            `json:"pressure"`
	Kinetic     []string           `json:"kinetic_species"`
	Columns     []string           `json:"columns"`
	Stats       ode.Statistics     `json:"stats"`
	Final       map[string]float64 `json:"final"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Table is the tabulated output of a run; Rows[i] lines up with Columns.
type Table struct {
	Columns []string
	Rows    [][]float64
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	for j, c := range t.Columns {
		if c == name {
			out := make([]float64, len(t.Rows))
			for i, row := range t.Rows {
				if j < len(row) {
					out[i] = row[j]
				}
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("storage: no column %q", name)
}

// NewRunID returns "<name>_<first eight hex digits of a random UUID>".
func NewRunID(name string) string {
	return fmt.Sprintf("%s_%s", name, uuid.New().String()[:8])
}

// Save writes meta and table under a new run directory and returns its ID.
// meta.ID, meta.Timestamp and meta.Columns are filled in when empty.
func (s *Store) Save(meta RunMetadata, table Table) (string, error) {
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Name)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.Columns == nil {
		meta.Columns = table.Columns
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if len(table.Columns) > 0 {
		if err := w.Write(table.Columns); err != nil {
			return "", err
		}
	}
	for _, values := range table.Rows {
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTable reads the states.csv of a run. Unparseable cells read as zero.
func (s *Store) LoadTable(runID string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	table := &Table{Columns: records[0], Rows: make([][]float64, 0, len(records)-1)}
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		row := make([]float64, len(record))
		for j, cell := range record {
			row[j], _ = strconv.ParseFloat(cell, 64)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
