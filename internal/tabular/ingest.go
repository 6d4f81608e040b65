package tabular

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultMaxEntryBytes caps how much of a single archive entry is inflated.
const DefaultMaxEntryBytes = 256 << 20

// Ingestor turns uploaded exports into datasets. Read failures are recorded
// per key as error entries and never returned.
type Ingestor struct {
	MaxEntryBytes int64
}

func NewIngestor() *Ingestor {
	return &Ingestor{MaxEntryBytes: DefaultMaxEntryBytes}
}

func hasExt(name string, exts ...string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

func isCSV(name string) bool         { return hasExt(name, ".csv") }
func isSpreadsheet(name string) bool { return hasExt(name, ".xlsx", ".xls") }
func isArchive(name string) bool     { return hasExt(name, ".zip") }

// Ingest reads f into a dataset keyed by file (and sheet) name. A nil file
// yields an empty dataset.
func (in *Ingestor) Ingest(ctx context.Context, f File) *Dataset {
	ds := NewDataset()
	if f == nil {
		return ds
	}
	name := f.Name()
	logCtx := slog.With("file", name)

	data, err := ReadAll(f)
	if err != nil {
		logCtx.Warn("Failed to read upload.", "error", err)
		ds.SetError(name, fmt.Errorf("failed to read file: %w", err))
		return ds
	}

	switch {
	case isArchive(name):
		in.ingestArchive(ctx, logCtx, ds, name, data)
	case isCSV(name):
		addCSV(logCtx, ds, name, data)
	default:
		addWorkbook(logCtx, ds, name, data)
	}
	return ds
}

func addCSV(logCtx *slog.Logger, ds *Dataset, key string, data []byte) {
	rows, err := ParseCSV(data)
	if err != nil {
		logCtx.Warn("Could not parse CSV; recording error entry.", "key", key, "error", err)
		ds.SetError(key, err)
		return
	}
	ds.Set(key, rows)
}

func addWorkbook(logCtx *slog.Logger, ds *Dataset, name string, data []byte) {
	sheets, err := ParseWorkbook(data)
	if err != nil {
		logCtx.Warn("Could not open workbook; recording error entry.", "key", name, "error", err)
		ds.SetError(name, err)
		return
	}
	for _, s := range sheets {
		key := name + "::" + s.Name
		if s.Err != nil {
			logCtx.Warn("Could not parse sheet; recording error entry.", "key", key, "error", s.Err)
			ds.SetError(key, s.Err)
			continue
		}
		ds.Set(key, s.Rows)
	}
}

func (in *Ingestor) ingestArchive(ctx context.Context, logCtx *slog.Logger, ds *Dataset, name string, data []byte) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logCtx.Warn("Could not open archive; recording error entry.", "error", err)
		ds.SetError(name, fmt.Errorf("failed to open archive: %w", err))
		return
	}

	for i, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			logCtx.Debug("Archive ingestion cancelled; dataset is partial.", "entriesRead", i, "entriesTotal", len(zr.File), "error", err)
			return
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		csvEntry, sheetEntry := isCSV(entry.Name), isSpreadsheet(entry.Name)
		if !csvEntry && !sheetEntry {
			continue
		}
		content, err := in.readEntry(entry)
		if err != nil {
			logCtx.Warn("Could not read archive entry; recording error entry.", "entry", entry.Name, "error", err)
			ds.SetError(entry.Name, err)
			continue
		}
		if csvEntry {
			addCSV(logCtx, ds, entry.Name, content)
		} else {
			addWorkbook(logCtx, ds, entry.Name, content)
		}
	}
}

func (in *Ingestor) readEntry(entry *zip.File) ([]byte, error) {
	limit := in.MaxEntryBytes
	if limit <= 0 {
		limit = DefaultMaxEntryBytes
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive entry: %w", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to inflate archive entry: %w", err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("archive entry exceeds %d bytes", limit)
	}
	return content, nil
}
