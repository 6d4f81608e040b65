package tabular

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildZip creates an archive in memory from name/content pairs.
func buildZip(t *testing.T, entries map[string][]byte, order []string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, name := range order {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildWorkbook creates an xlsx with one sheet per name, each holding a
// header row and rows data rows.
func buildWorkbook(t *testing.T, sheets []string, rows int) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		require.NoError(t, f.SetCellValue(name, "A1", "Address"))
		require.NoError(t, f.SetCellValue(name, "B1", "Word Count"))
		for r := 0; r < rows; r++ {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(name, cell, "https://example.dk/side"))
			cell, err = excelize.CoordinatesToCellName(2, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(name, cell, 100+r))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestIngest_NilFile(t *testing.T) {
	ds := NewIngestor().Ingest(context.Background(), nil)
	require.NotNil(t, ds)
	assert.Equal(t, 0, ds.Len())
}

func TestIngest_CSV(t *testing.T) {
	f := NewBytesFile("organic_keywords_client.csv", "text/csv", []byte("Keyword;Volume;Position\nsko;1200;3\nstøvler;800;11\n"))
	ds := NewIngestor().Ingest(context.Background(), f)

	require.Equal(t, []string{"organic_keywords_client.csv"}, ds.Keys())
	e, ok := ds.Get("organic_keywords_client.csv")
	require.True(t, ok)
	require.False(t, e.Failed())
	require.Len(t, e.Rows, 2)

	v, ok := e.Rows[1].Get("Keyword")
	require.True(t, ok)
	assert.Equal(t, "støvler", v.Text())
	v, _ = e.Rows[1].Get("Volume")
	assert.Equal(t, Number, v.Kind())
	assert.Equal(t, 800.0, v.Number())
}

func TestIngest_Workbook(t *testing.T) {
	data := buildWorkbook(t, []string{"Internal", "Titles"}, 3)
	ds := NewIngestor().Ingest(context.Background(), NewBytesFile("crawl.xlsx", "", data))

	assert.Equal(t, []string{"crawl.xlsx::Internal", "crawl.xlsx::Titles"}, ds.Keys())
	for _, e := range ds.Entries() {
		assert.False(t, e.Failed())
		assert.Len(t, e.Rows, 3)
	}
	e, _ := ds.Get("crawl.xlsx::Titles")
	v, _ := e.Rows[2].Get("Word Count")
	assert.Equal(t, 102.0, v.Number())
}

func TestIngest_ArchiveCancelled(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	data := buildZip(t, map[string][]byte{
		"a.csv": []byte("Address\nhttps://a.dk/\n"),
		"b.csv": []byte("Address\nhttps://b.dk/\n"),
	}, []string{"a.csv", "b.csv"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds := NewIngestor().Ingest(ctx, NewBytesFile("crawl.zip", "", data))

	assert.Zero(t, ds.Len())
	assert.Contains(t, logs.String(), "Archive ingestion cancelled")
	assert.Contains(t, logs.String(), "entriesTotal=2")
}

func TestIngest_Archive(t *testing.T) {
	entries := map[string][]byte{
		"internal_all.csv":  []byte("Address,Status Code\nhttps://a.dk/,200\nhttps://a.dk/b,404\n"),
		"page_titles.CSV":   []byte("Address\tTitle 1\nhttps://a.dk/\tForside\n"),
		"export/wc.xlsx":    buildWorkbook(t, []string{"One", "Two", "Three"}, 2),
		"readme.txt":        []byte("ignored"),
		"images/":           nil,
		"broken.xlsx":       []byte("not a workbook"),
		"titles_short.xlsx": buildWorkbook(t, []string{"Only"}, 1),
	}
	order := []string{"internal_all.csv", "page_titles.CSV", "export/wc.xlsx", "readme.txt", "images/", "broken.xlsx", "titles_short.xlsx"}
	data := buildZip(t, entries, order)

	ds := NewIngestor().Ingest(context.Background(), NewBytesFile("crawl.zip", "application/zip", data))

	// 2 CSV entries + 3 + 1 sheets + 1 unreadable workbook
	assert.Equal(t, []string{
		"internal_all.csv",
		"page_titles.CSV",
		"export/wc.xlsx::One",
		"export/wc.xlsx::Two",
		"export/wc.xlsx::Three",
		"broken.xlsx",
		"titles_short.xlsx::Only",
	}, ds.Keys())

	e, _ := ds.Get("internal_all.csv")
	assert.Len(t, e.Rows, 2)
	e, _ = ds.Get("page_titles.CSV")
	assert.Len(t, e.Rows, 1)
	e, _ = ds.Get("export/wc.xlsx::Two")
	assert.Len(t, e.Rows, 2)

	broken, _ := ds.Get("broken.xlsx")
	assert.True(t, broken.Failed())
	assert.Len(t, ds.Errors(), 1)
}

func TestIngest_FailureIsContained(t *testing.T) {
	tests := []struct {
		name string
		file File
		key  string
	}{
		{"corrupt workbook", NewBytesFile("gsc.xlsx", "", []byte("garbage")), "gsc.xlsx"},
		{"legacy xls", NewBytesFile("gsc.xls", "", []byte{0xD0, 0xCF, 0x11, 0xE0}), "gsc.xls"},
		{"empty csv", NewBytesFile("empty.csv", "", nil), "empty.csv"},
		{"corrupt archive", NewBytesFile("crawl.zip", "", []byte("PK nope")), "crawl.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := NewIngestor().Ingest(context.Background(), tt.file)
			require.Equal(t, []string{tt.key}, ds.Keys())
			e, _ := ds.Get(tt.key)
			assert.True(t, e.Failed())

			out, err := json.Marshal(ds)
			require.NoError(t, err)
			var decoded map[string]map[string]string
			require.NoError(t, json.Unmarshal(out, &decoded))
			assert.NotEmpty(t, decoded[tt.key]["error"])
			assert.Len(t, decoded[tt.key], 1)
		})
	}
}

func TestIngest_ArchiveEntryLimit(t *testing.T) {
	data := buildZip(t, map[string][]byte{"big.csv": bytes.Repeat([]byte("a,b\n"), 100)}, []string{"big.csv"})
	in := &Ingestor{MaxEntryBytes: 16}
	ds := in.Ingest(context.Background(), NewBytesFile("crawl.zip", "", data))
	e, ok := ds.Get("big.csv")
	require.True(t, ok)
	assert.True(t, e.Failed())
}
