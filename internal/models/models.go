package models

import "fmt"

// Batch is a set of transformed rows ready for storage. Columns holds the
// destination column names in positional order; each row has exactly
// len(Columns) values, with nil marking SQL NULL.
type Batch struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (b *Batch) ColumnIndex(name string) int {
	for i, col := range b.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// FileInfo identifies one candidate input file inside a scanned directory.
type FileInfo struct {
	Directory string
	Name      string
	Path      string
	SizeBytes int64
}

// FileError wraps a failure scoped to a single input file.
type FileError struct {
	File    string
	Message string
	Err     error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file %s: %s: %v", e.File, e.Message, e.Err)
	}
	return fmt.Sprintf("file %s: %s", e.File, e.Message)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// RunSummary is reported at the end of a directory ingestion run.
type RunSummary struct {
	Processed int
	Skipped   int
	Failed    int
}

func (s RunSummary) String() string {
	return fmt.Sprintf("%d processed, %d skipped, %d failed", s.Processed, s.Skipped, s.Failed)
}
