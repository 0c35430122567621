package imports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrUnsupportedFormat is returned for extensions other than xlsx and csv.
var ErrUnsupportedFormat = errors.New("unsupported file format, use .xlsx or .csv")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads the whole upload and returns its data rows keyed by the
// header row. Only the first sheet of a workbook is read.
func Parse(filename string, data []byte) ([]Row, error) {
	var (
		table [][]string
		lines []int
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		table, lines, err = readWorkbook(data)
	case ".csv", ".txt":
		table, lines, err = readCSV(data)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return toRows(table, lines), nil
}

// readWorkbook returns the first sheet and the 1-based sheet row of each
// record. Blank rows between data rows come back as empty records.
func readWorkbook(data []byte) ([][]string, []int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return rows, lines, nil
}

// readCSV returns the records and the file line each one starts on. The
// csv reader drops empty lines, so positions come from FieldPos.
func readCSV(data []byte) ([][]string, []int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// Spreadsheets saved as CSV on Windows default to cp1252.
		src = transform.NewReader(src, charmap.Windows1252.NewDecoder())
	}

	r := csv.NewReader(src)
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func detectDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func toRows(table [][]string, lines []int) []Row {
	if len(table) == 0 {
		return nil
	}
	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(table)-1)
	for n, record := range table[1:] {
		row := Row{Line: n + 2, Cells: make([]Cell, 0, len(header))}
		if n+1 < len(lines) {
			row.Line = lines[n+1]
		}
		blank := true
		for i, key := range header {
			if key == "" {
				continue
			}
			var value string
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value != "" {
				blank = false
			}
			row.Cells = append(row.Cells, Cell{Header: key, Value: value})
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
