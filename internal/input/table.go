package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rpa/runner/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var ErrNoHeader = errors.New("table has no header row")

// ReadOrders loads order rows from a CSV or XLSX file. The first row is the header.
func ReadOrders(path string) ([]domain.OrderRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
}

// ReadCSV parses CSV data with a header row
func ReadCSV(r io.Reader) ([]domain.OrderRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	return toRows(records)
}

func readXLSX(path string) ([]domain.OrderRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	return toRows(records)
}

func toRows(records [][]string) ([]domain.OrderRow, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}

	rows := make([]domain.OrderRow, 0, len(records)-1)
	for n, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		if len(record) > len(header) {
			log.Warnf("⚠️ Row %d has %d cells but the header has %d, extra cells ignored", n+1, len(record), len(header))
		}

		row := make(domain.OrderRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			// excelize drops trailing empty cells, those columns stay absent
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}

	log.Debugf("Read %d order rows with columns %v", len(rows), header)
	return rows, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
