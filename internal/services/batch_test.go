package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/Lllllllleong/seoanalyser/internal/document"
	"github.com/Lllllllleong/seoanalyser/internal/report"
	"github.com/Lllllllleong/seoanalyser/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	objects map[string][]byte
	reads   []string
}

func (s *fakeSource) File(name string) tabular.File {
	return tabular.NewBytesFile(name, "", s.objects[name])
}

func (s *fakeSource) Read(_ context.Context, name string) ([]byte, error) {
	s.reads = append(s.reads, name)
	data, ok := s.objects[name]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func TestIsManifest(t *testing.T) {
	assert.True(t, IsManifest("uploads/kunde/manifest.json"))
	assert.True(t, IsManifest("MANIFEST.JSON"))
	assert.False(t, IsManifest("uploads/kunde/perf.csv"))
	assert.False(t, IsManifest("json"))
}

func TestDecodeManifest(t *testing.T) {
	m, err := DecodeManifest([]byte(`{
		"customerName": "Sko Huset",
		"customerUrl": "https://skohuset.dk",
		"ahrefsFiles": ["perf.csv", "organic_keywords.csv"],
		"crawlFile": "crawl.csv",
		"modelProfile": "hurtig",
		"format": "pdf",
		"selectedTopics": ["Fokus"],
		"topicNotes": {"Fokus": "Kort"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Sko Huset", m.CustomerName)
	assert.Equal(t, []string{"perf.csv", "organic_keywords.csv"}, m.AhrefsFiles)
	assert.Equal(t, "hurtig", m.ModelProfile)
	assert.Equal(t, map[string]string{"Fokus": "Kort"}, m.TopicNotes)

	tests := map[string]string{
		"malformed":       `{"ahrefsFiles": [`,
		"unknown profile": `{"ahrefsFiles": ["a.csv"], "modelProfile": "turbo"}`,
		"unknown format":  `{"ahrefsFiles": ["a.csv"], "format": "odt"}`,
		"blank file name": `{"ahrefsFiles": [""]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeManifest([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestManifestHash(t *testing.T) {
	a := manifestHash([]byte(`{"ahrefsFiles":["a.csv"]}`))
	assert.Len(t, a, 64)
	assert.Equal(t, a, manifestHash([]byte(`{"ahrefsFiles":["a.csv"]}`)))
	assert.NotEqual(t, a, manifestHash([]byte(`{"ahrefsFiles":["b.csv"]}`)))
}

func TestResolveObject(t *testing.T) {
	assert.Equal(t, "uploads/kunde/perf.csv", resolveObject("uploads/kunde/manifest.json", "perf.csv"))
	assert.Equal(t, "uploads/shared/gsc.csv", resolveObject("uploads/kunde/manifest.json", "../shared/gsc.csv"))
	assert.Equal(t, "shared/gsc.csv", resolveObject("uploads/kunde/manifest.json", "/shared/gsc.csv"))
	assert.Equal(t, "perf.csv", resolveObject("manifest.json", "perf.csv"))
}

func TestOrderedKeys(t *testing.T) {
	keys := orderedKeys(map[string]string{
		"Fokus":      "",
		"Nyhedsbrev": "",
		"Pagetitles": "",
	})
	assert.Equal(t, []string{"Pagetitles", "Fokus", "Nyhedsbrev"}, keys)
	assert.Empty(t, orderedKeys(nil))
}

func TestBuildInput(t *testing.T) {
	src := &fakeSource{objects: map[string][]byte{
		"in/perf.csv":  []byte("Date,Traffic\n2024-01,100\n"),
		"in/crawl.csv": []byte("Address\nhttps://a.dk/\n"),
		"gsc/q.csv":    []byte("Query,Clicks\nsko,3\n"),
		"in/fokus.png": []byte("\x89PNG\r\n\x1a\n"),
	}}
	m, err := DecodeManifest([]byte(`{
		"customerName": "A",
		"ahrefsFiles": ["perf.csv"],
		"crawlFile": "crawl.csv",
		"gscFiles": ["/gsc/q.csv"],
		"modelProfile": "grundig",
		"format": "docx",
		"topicImages": {"Fokus": "fokus.png", "Pagetitles": "missing.png"}
	}`))
	require.NoError(t, err)

	in := buildInput(context.Background(), slog.Default(), "run-1", "in/manifest.json", m, src)

	assert.Equal(t, "run-1", in.RunID)
	assert.Equal(t, "A", in.CustomerName)
	assert.Equal(t, report.ProfileThorough, in.Profile)
	assert.Equal(t, document.FormatDOCX, in.Format)
	require.Len(t, in.Ahrefs, 1)
	assert.Equal(t, "in/perf.csv", in.Ahrefs[0].Name())
	require.NotNil(t, in.Crawl)
	assert.Equal(t, "in/crawl.csv", in.Crawl.Name())
	require.Len(t, in.GSC, 1)
	assert.Equal(t, "gsc/q.csv", in.GSC[0].Name())

	assert.Equal(t, []string{"in/missing.png", "in/fokus.png"}, src.reads, "images are read in catalog order")
	require.Len(t, in.Images, 1, "unreadable images are skipped")
	assert.Equal(t, "Fokus", in.Images[0].Topic)
}

func TestBuildInput_UnknownNoteTopicIsPermanent(t *testing.T) {
	m, err := DecodeManifest([]byte(`{"ahrefsFiles": ["perf.csv"], "topicNotes": {"Bogus topic": "x"}}`))
	require.NoError(t, err)
	src := &fakeSource{objects: map[string][]byte{"perf.csv": []byte("Date,Traffic\n2024-01,100\n")}}
	in := buildInput(context.Background(), slog.Default(), "run-4", "manifest.json", m, src)

	f := newTestAnalyser(t, &report.Mock{Text: reportText})
	err = f.Validate(in)
	assert.ErrorIs(t, err, ErrInvalidInput, "rejected before the run starts, so the event is acknowledged")
}

func TestBuildInput_NoOptionalSources(t *testing.T) {
	m, err := DecodeManifest([]byte(`{"ahrefsFiles": ["perf.csv"]}`))
	require.NoError(t, err)

	in := buildInput(context.Background(), slog.Default(), "run-2", "manifest.json", m, &fakeSource{})
	assert.Nil(t, in.Crawl)
	assert.Empty(t, in.GSC)
	assert.Empty(t, in.Images)
	assert.Equal(t, report.Profile(""), in.Profile)
}

func TestBuildInput_RunsThroughPipeline(t *testing.T) {
	src := &fakeSource{objects: map[string][]byte{
		"perf.csv": []byte("Date,Traffic\n2024-01,100\n"),
	}}
	m, err := DecodeManifest([]byte(`{"ahrefsFiles": ["perf.csv"], "format": "pdf"}`))
	require.NoError(t, err)
	in := buildInput(context.Background(), slog.Default(), "run-3", "manifest.json", m, src)

	gen := &report.Mock{Text: reportText}
	f := newTestAnalyser(t, gen)
	res, err := f.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-3", res.RunID)
	assert.Equal(t, "SEO_analyse_kunde.pdf", res.File.Name)
	assert.Contains(t, gen.Requests()[0].Instruction, `"ahrefs_performance":{"perf.csv":[{"Date":"2024-01","Traffic":100}]}`)
}
