package ingestion

import (
	"fmt"
	"log"
	"os"

	"github.com/thiago-r-goveia/cnpj-loader/internal/catalog"
	"github.com/thiago-r-goveia/cnpj-loader/internal/database"
	"github.com/thiago-r-goveia/cnpj-loader/internal/transform"
	"github.com/thiago-r-goveia/cnpj-loader/pkg/memdiag"
)

// LoaderState tracks the chunked loader through one file.
type LoaderState int

const (
	StateSampling LoaderState = iota
	StateStreaming
	StateDraining
	StateDone
	StateFailed
)

func (s LoaderState) String() string {
	switch s {
	case StateSampling:
		return "sampling"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// sampleRows is the prefix read during Sampling to report the expected
	// output shape. Diagnostics only; it gates nothing.
	sampleRows = 100
	// reclaimEvery triggers a memory reclamation pass after this many
	// committed windows.
	reclaimEvery = 3
)

// ChunkedLoader streams a normalized file into storage in fixed-size row
// windows. Each window is transformed and upserted before the next is read,
// so peak memory is bounded by the window size regardless of file size.
type ChunkedLoader struct {
	db         database.DBManager
	windowRows int
	debug      bool
	state      LoaderState
}

func NewChunkedLoader(db database.DBManager, windowRows int, debug bool) *ChunkedLoader {
	return &ChunkedLoader{
		db:         db,
		windowRows: windowRows,
		debug:      debug,
		state:      StateSampling,
	}
}

// State returns the loader's current state.
func (l *ChunkedLoader) State() LoaderState {
	return l.state
}

// Load streams the file at path into the spec's table. It returns the total
// number of rows upserted. On any read, transform, or storage error the
// loader enters Failed and the error propagates; windows already committed
// remain in place, which is safe because upserts are idempotent.
func (l *ChunkedLoader) Load(path string, spec *catalog.Spec) (int64, error) {
	l.state = StateSampling
	if err := l.sample(path, spec); err != nil {
		l.state = StateFailed
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		l.state = StateFailed
		return 0, fmt.Errorf("failed to open %s for streaming: %w", path, err)
	}
	defer file.Close()

	reader := newRecordReader(file)
	l.state = StateStreaming

	var total int64
	windowNum := 0
	for {
		rows, err := readWindow(reader, l.windowRows)
		if err != nil {
			l.state = StateFailed
			return total, fmt.Errorf("failed to read window %d of %s: %w", windowNum+1, path, err)
		}
		// Explicit zero-row termination. A file whose row count is an exact
		// multiple of the window size ends here on one extra empty read
		// instead of being inferred from a short window.
		if len(rows) == 0 {
			l.state = StateDone
			break
		}

		windowNum++
		if len(rows) < l.windowRows {
			l.state = StateDraining
		}

		batch := transform.Apply(spec, rows)
		if err := l.db.BulkUpsert(spec.Table, batch.Columns, spec.ConflictColumns, batch.Rows); err != nil {
			l.state = StateFailed
			return total, fmt.Errorf("failed to upsert window %d into %s: %w", windowNum, spec.Table, err)
		}
		total += int64(len(rows))
		log.Printf("Committed window %d (%d rows, %d total) into %s", windowNum, len(rows), total, spec.Table)

		if l.state == StateDraining {
			// The file is exhausted after a short window; no further read.
			l.state = StateDone
			break
		}

		if windowNum%reclaimEvery == 0 {
			memdiag.Reclaim()
			if l.debug {
				memdiag.LogUsage(fmt.Sprintf("after window %d", windowNum))
			}
		}
	}

	log.Printf("Chunked load of %s complete: %d rows", path, total)
	return total, nil
}

// sample reads a small prefix and reports the expected output shape.
func (l *ChunkedLoader) sample(path string, spec *catalog.Spec) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for sampling: %w", path, err)
	}
	defer file.Close()

	rows, err := readWindow(newRecordReader(file), sampleRows)
	if err != nil {
		return fmt.Errorf("failed to sample %s: %w", path, err)
	}

	batch := transform.Apply(spec, rows)
	if l.debug {
		log.Printf("Sampled %d rows from %s, expected columns: %v", len(rows), path, batch.Columns)
	}
	return nil
}
