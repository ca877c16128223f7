// Package seed loads company meta sheets, statement cells and report text
// from CSV or XLSX exports into the store.
package seed

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Record is one data row keyed by lower-cased header name.
type Record map[string]string

// Get returns the trimmed value of col. Pandas-style null markers read as
// blank.
func (r Record) Get(col string) string {
	v := strings.TrimSpace(r[col])
	switch v {
	case "nan", "NaN", "None", "<NA>", "null", "NULL":
		return ""
	}
	return v
}

// Has reports whether the sheet carried col at all.
func (r Record) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// ReadTable reads a .csv or .xlsx file whose first row is a header.
func ReadTable(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		return toRecords(rows)
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "seed: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	}
	return nil, eris.Errorf("seed: unsupported table format %q", filepath.Ext(path))
}

// ReadCSV reads CSV records from r. A UTF-8 BOM on the header is ignored.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "seed: read csv row")
		}
		rows = append(rows, rec)
	}
	return toRecords(rows)
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("seed: xlsx has no sheets")
	}
	sheet := f.Sheets[0]

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func toRecords(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, eris.New("seed: table has no header row")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(Record, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func requireColumns(recs []Record, cols ...string) error {
	if len(recs) == 0 {
		return nil
	}
	var missing []string
	for _, c := range cols {
		if !recs[0].Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("seed: missing required columns %s", strings.Join(missing, ", "))
	}
	return nil
}
