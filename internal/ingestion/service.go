package ingestion

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/thiago-r-goveia/cnpj-loader/internal/catalog"
	"github.com/thiago-r-goveia/cnpj-loader/internal/config"
	"github.com/thiago-r-goveia/cnpj-loader/internal/database"
	"github.com/thiago-r-goveia/cnpj-loader/internal/encoding"
	"github.com/thiago-r-goveia/cnpj-loader/internal/models"
	"github.com/thiago-r-goveia/cnpj-loader/internal/reference"
	"github.com/thiago-r-goveia/cnpj-loader/internal/transform"
	"github.com/thiago-r-goveia/cnpj-loader/pkg/checksum"
	"github.com/thiago-r-goveia/cnpj-loader/pkg/memdiag"
)

// Service runs the ingestion pipeline over a directory of extract files,
// one file at a time: ledger check, encoding normalization, strategy
// selection, load, reconciliation, ledger mark.
type Service struct {
	db      database.DBManager
	catalog *catalog.Catalog
	cfg     *config.Config
}

func NewService(db database.DBManager, cat *catalog.Catalog, cfg *config.Config) *Service {
	return &Service{db: db, catalog: cat, cfg: cfg}
}

// Run ingests every resolvable file in the directory and returns a summary.
// Per-file failures are logged and counted, never fatal for the run.
func (s *Service) Run(ctx context.Context, dir string) (models.RunSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []models.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Printf("WARN: could not stat %s: %v. Skipping file.", entry.Name(), err)
			continue
		}
		files = append(files, models.FileInfo{
			Directory: dir,
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			SizeBytes: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	log.Printf("Found %d files in %s", len(files), dir)

	var summary models.RunSummary
	for _, file := range files {
		spec, ok := s.catalog.Resolve(file.Name)
		if !ok {
			log.Printf("WARN: unknown file category for %s. Skipping file.", file.Name)
			summary.Skipped++
			continue
		}

		processed, err := s.db.IsProcessed(file.Directory, file.Name)
		if err != nil {
			log.Printf("ERROR: failed to check ledger for %s: %v. Skipping file.", file.Name, err)
			summary.Failed++
			continue
		}
		if processed {
			log.Printf("File %s already processed. Skipping.", file.Name)
			summary.Skipped++
			continue
		}

		if err := s.processFile(ctx, file, spec); err != nil {
			log.Printf("ERROR: failed to process %s: %v", file.Name, err)
			summary.Failed++
			continue
		}
		summary.Processed++
	}

	log.Printf("Ingestion run finished: %s", summary)
	return summary, nil
}

// processFile runs the full pipeline for one file. The ledger is marked
// only after the load and reconciliation have committed; a failure partway
// leaves the ledger untouched so the next run retries the whole file.
func (s *Service) processFile(ctx context.Context, file models.FileInfo, spec *catalog.Spec) error {
	log.Printf("Processing %s (%.2fMB) into %s", file.Name, float64(file.SizeBytes)/(1024*1024), spec.Table)
	if s.cfg.Debug {
		memdiag.LogUsage("before " + file.Name)
	}

	digest, err := checksum.GetFileChecksum(file.Path)
	if err != nil {
		log.Printf("WARN: could not checksum %s: %v", file.Name, err)
		digest = ""
	}

	utf8Path, cleanup, err := encoding.Normalize(file.Path, s.cfg.EncodingBufferBytes)
	if err != nil {
		return &models.FileError{File: file.Name, Message: "encoding conversion failed", Err: err}
	}
	defer cleanup()

	info, err := os.Stat(utf8Path)
	if err != nil {
		return &models.FileError{File: file.Name, Message: "could not stat converted file", Err: err}
	}

	strategy := ChooseStrategy(info.Size(), s.cfg.MaxInMemoryBytes)
	log.Printf("Converted size %.2fMB, using %s load", float64(info.Size())/(1024*1024), strategy)

	switch strategy {
	case StrategyChunked:
		loader := NewChunkedLoader(s.db, s.cfg.ChunkSizeRows, s.cfg.Debug)
		total, err := loader.Load(utf8Path, spec)
		if err != nil {
			return &models.FileError{File: file.Name, Message: "chunked load failed", Err: err}
		}
		if total > 0 {
			s.reconcileTable(ctx, spec)
		}
	default:
		rows, err := readAllRows(utf8Path)
		if err != nil {
			return &models.FileError{File: file.Name, Message: "failed to read converted file", Err: err}
		}
		batch := transform.Apply(spec, rows)
		s.reconcileBatch(ctx, spec, batch)
		if err := s.db.BulkUpsert(spec.Table, batch.Columns, spec.ConflictColumns, batch.Rows); err != nil {
			return &models.FileError{File: file.Name, Message: "bulk upsert failed", Err: err}
		}
		log.Printf("Upserted %d rows into %s", batch.Len(), spec.Table)
	}

	if err := s.db.MarkProcessed(file.Directory, file.Name, digest); err != nil {
		return &models.FileError{File: file.Name, Message: "failed to mark file processed", Err: err}
	}

	if s.cfg.Debug {
		memdiag.LogUsage("after " + file.Name)
	}
	return nil
}

// reconcileBatch appends codes missing from the in-memory batch before the
// single whole-file upsert. Best-effort: a source failure logs and leaves
// the batch as-is.
func (s *Service) reconcileBatch(ctx context.Context, spec *catalog.Spec, batch *models.Batch) {
	source := reference.ForSpec(spec, s.cfg.SerproMotivosURL)
	if source == nil {
		return
	}

	codes, err := source.Codes(ctx)
	if err != nil {
		log.Printf("WARN: reference source unavailable for %s, using official data only: %v", spec.Table, err)
		return
	}

	missing := reference.Missing(reference.ExistingCodes(batch), codes)
	if len(missing) == 0 {
		log.Printf("No additional %s codes needed from reference source", spec.Table)
		return
	}

	reference.AppendMissing(batch, missing)
	log.Printf("Appended %d missing %s codes from reference source", len(missing), spec.Table)
}

// reconcileTable patches gaps after a chunked load by diffing the source
// against the table's current code set and upserting only the difference.
func (s *Service) reconcileTable(ctx context.Context, spec *catalog.Spec) {
	source := reference.ForSpec(spec, s.cfg.SerproMotivosURL)
	if source == nil {
		return
	}

	codes, err := source.Codes(ctx)
	if err != nil {
		log.Printf("WARN: reference source unavailable for %s, using official data only: %v", spec.Table, err)
		return
	}

	existing, err := s.db.SelectCodes(spec.Table)
	if err != nil {
		log.Printf("WARN: could not read existing %s codes, skipping reconciliation: %v", spec.Table, err)
		return
	}

	missing := reference.Missing(existing, codes)
	if len(missing) == 0 {
		log.Printf("No additional %s codes needed from reference source", spec.Table)
		return
	}

	batch := reference.ToBatch(missing)
	if err := s.db.BulkUpsert(spec.Table, batch.Columns, spec.ConflictColumns, batch.Rows); err != nil {
		log.Printf("WARN: failed to upsert %d reference codes into %s: %v", len(missing), spec.Table, err)
		return
	}

	if count, err := s.db.CountRows(spec.Table); err == nil {
		log.Printf("Total %s codes after reconciliation: %d", spec.Table, count)
	}
}
