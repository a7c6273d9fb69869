package ingestion

import (
	"encoding/csv"
	"errors"
	"io"
	"log"
	"os"
)

// newRecordReader configures a CSV reader for the extract layout:
// semicolon-separated, no header, ragged rows tolerated.
func newRecordReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

// readWindow reads up to limit rows from the reader. A clean EOF is not an
// error; the returned slice is simply shorter than limit (possibly empty).
// Rows the CSV parser rejects are skipped and logged, never fatal.
func readWindow(reader *csv.Reader, limit int) ([][]string, error) {
	rows := make([][]string, 0, limit)
	for len(rows) < limit {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				log.Printf("WARN: skipping malformed row %d: %v", parseErr.Line, err)
				continue
			}
			return rows, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// readAllRows loads every row of a file, used by the whole-file path.
func readAllRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := newRecordReader(file)
	var rows [][]string
	for {
		window, err := readWindow(reader, 65536)
		if err != nil {
			return nil, err
		}
		if len(window) == 0 {
			return rows, nil
		}
		rows = append(rows, window...)
	}
}
