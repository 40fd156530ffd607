// Package sheet persists extracted records as an Excel workbook.
package sheet

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spherical/catalog-extractor/internal/domain"
	"github.com/spherical/catalog-extractor/internal/observability"
)

const (
	// Extension is the only accepted output file extension.
	Extension = ".xlsx"
	// SheetName is the name of the single worksheet written.
	SheetName = "Sheet1"
)

// Writer writes records to an .xlsx workbook, one row per record.
type Writer struct {
	logger *observability.Logger
}

// NewWriter creates a workbook writer. A nil logger disables logging.
func NewWriter(logger *observability.Logger) *Writer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Writer{logger: logger.WithOperation("sheet")}
}

// CheckPath rejects any target whose extension is not .xlsx.
// It does not touch the filesystem.
func (w *Writer) CheckPath(path string) error {
	if path == "" {
		return domain.PersistenceError("output path cannot be empty", nil)
	}
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		return domain.PersistenceError(
			fmt.Sprintf("output file must have the %s extension: %s", Extension, path), nil)
	}
	return nil
}

// Columns returns the union of record keys in first-seen order.
func Columns(records []domain.Record) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, rec := range records {
		for _, key := range rec.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// Write saves records to path and returns the header columns. The workbook is
// written to a temporary file in the same directory and renamed into place, so
// a failed write never leaves a partial file at path.
func (w *Writer) Write(records []domain.Record, path string) ([]string, error) {
	if err := w.CheckPath(path); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.PersistenceError("no records to write", nil)
	}

	columns := Columns(records)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	if err := fillSheet(f, columns, records); err != nil {
		return nil, domain.PersistenceError("failed to build workbook", err)
	}

	if err := saveAtomically(f, path); err != nil {
		return nil, domain.PersistenceError(fmt.Sprintf("failed to save workbook to %s", path), err)
	}

	w.logger.Info().
		Str("path", path).
		Int("rows", len(records)).
		Strs("columns", columns).
		Msg("Workbook saved")

	return columns, nil
}

func fillSheet(f *excelize.File, columns []string, records []domain.Record) error {
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("header row: %w", err)
	}

	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for j, c := range columns {
			if v, ok := rec.Get(c); ok {
				row[j] = cellValue(v)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return sw.Flush()
}

// cellValue writes non-finite floats as text; the file format has no numeric
// representation for them.
func cellValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}

func saveAtomically(f *excelize.File, path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = f.Write(tmp); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return os.Rename(tmpName, path)
}
