package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ignite/lead-finder/internal/domain"
)

var (
	ErrUnsupportedFile = errors.New("ingest: unsupported file type")
	ErrEmptyFile       = errors.New("ingest: file is empty")
	ErrParse           = errors.New("ingest: parse failed")
)

// Table is a parsed upload: the header as written in the file and one
// record per data row.
type Table struct {
	Header  []string
	Records []domain.CandidateRecord
}

// MissingColumns returns the required columns absent from the header, in
// their canonical order.
func (t Table) MissingColumns() []string {
	return MissingColumns(t.Header)
}

// Supported reports whether the file name carries an accepted extension.
func Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Parse dispatches on the file extension.
func Parse(fileName string, data []byte) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		t, err = ParseCSV(bytes.NewReader(data))
	case ".xlsx":
		t, err = ParseXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, fileName)
	}
	if err != nil {
		return nil, err
	}
	if len(t.Records) == 0 {
		return nil, ErrEmptyFile
	}
	return t, nil
}

// ParseCSV reads a header row followed by data rows. Rows shorter than the
// header leave the trailing columns empty; extra cells are dropped.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	header = cleanHeader(header)

	t := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if blank(row) {
			continue
		}
		t.Records = append(t.Records, toRecord(header, row))
	}
	return t, nil
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	header := cleanHeader(rows[0])
	t := &Table{Header: header}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t.Records = append(t.Records, toRecord(header, row))
	}
	return t, nil
}

// MissingColumns returns the required columns absent from header.
func MissingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, f := range domain.RequiredFields {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return canonicalHeader(out)
}

func toRecord(header, row []string) domain.CandidateRecord {
	fields := make(map[string]string, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		if i < len(row) {
			fields[col] = strings.TrimSpace(row[i])
		} else {
			fields[col] = ""
		}
	}
	return domain.RecordFromStrings(fields)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
