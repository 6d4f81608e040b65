package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Lllllllleong/seoanalyser/internal/document"
	"github.com/Lllllllleong/seoanalyser/internal/instruction"
	"github.com/Lllllllleong/seoanalyser/internal/report"
	"github.com/Lllllllleong/seoanalyser/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportText = "### Pagetitles\n\nTitlerne er korte.\n\n### Fokus\n\n**Anbefalinger**\n- Fokus 1: Optimer titler\n"

func testConfig() AnalyserConfig {
	return AnalyserConfig{
		Provider:          report.ProviderMock,
		Models:            report.Models{Thorough: "model-grundig", Fast: "model-hurtig"},
		IngestConcurrency: 2,
	}
}

func newTestAnalyser(t *testing.T, gen report.Generator) *AnalyserFunction {
	t.Helper()
	f, err := NewAnalyserWithGenerator(testConfig(), gen)
	require.NoError(t, err)
	return f
}

func csv(name, body string) tabular.File {
	return tabular.NewBytesFile(name, "text/csv", []byte(body))
}

func baseInput() AnalysisInput {
	return AnalysisInput{
		CustomerName: "Sko Huset",
		CustomerURL:  "https://skohuset.dk",
		Ahrefs: []tabular.File{
			csv("organic_keywords_client.csv", "Keyword,Volume\nsko,10\nstøvler,20\nsandaler,30\n"),
			tabular.NewBytesFile("perf.xlsx", "", []byte("broken")),
		},
		Crawl:          csv("crawl.csv", "Address,Title 1\nhttps://skohuset.dk/,Forside\nhttps://skohuset.dk/om,Om os\n"),
		SelectedTopics: []string{"Pagetitles", "Fokus"},
		TopicNotes:     map[string]string{"Pagetitles": "Se på kategorierne."},
	}
}

func TestRun(t *testing.T) {
	gen := &report.Mock{Text: reportText, ChunkSize: 7}
	f := newTestAnalyser(t, gen)

	var streamed strings.Builder
	res, err := f.Run(context.Background(), baseInput(), func(d string) { streamed.WriteString(d) })
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "model-grundig", res.Model)
	assert.Equal(t, reportText, res.Text)
	assert.Equal(t, reportText, streamed.String())
	assert.Equal(t, 1, res.ErrorRecords)

	assert.Equal(t, []document.Block{
		{Kind: document.Heading, Text: "Pagetitles"},
		{Kind: document.Paragraph, Text: "Titlerne er korte."},
		{Kind: document.Heading, Text: "Fokus"},
		{Kind: document.Bold, Text: "Anbefalinger"},
		{Kind: document.Bullet, Text: "Fokus 1: Optimer titler"},
	}, res.Document.Blocks)

	assert.Equal(t, "SEO_analyse_Sko_Huset.docx", res.File.Name)
	assert.Equal(t, document.FormatDOCX.ContentType(), res.File.ContentType)
	zr, err := zip.NewReader(bytes.NewReader(res.File.Data), int64(len(res.File.Data)))
	require.NoError(t, err)
	assert.NotEmpty(t, zr.File)
	assert.Contains(t, res.PreviewHTML, "<h3>Pagetitles</h3>")

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Instruction
	assert.Equal(t, "model-grundig", reqs[0].Model)
	assert.Contains(t, prompt, "- Kundenavn: Sko Huset")
	assert.Contains(t, prompt, `"ahrefs_keywords_customer":{"organic_keywords_client.csv":[{"Keyword":"sko","Volume":10}`)
	assert.Contains(t, prompt, `"screaming_frog":{"crawl.csv":`)
	assert.NotContains(t, prompt, `"gsc"`)
	assert.Contains(t, prompt, "- Pagetitles: Se på kategorierne.")
}

func TestRun_FastProfileAndPDF(t *testing.T) {
	gen := &report.Mock{Text: reportText}
	f := newTestAnalyser(t, gen)

	in := baseInput()
	in.Profile = report.ProfileFast
	in.Format = document.FormatPDF
	in.CustomerName = ""
	in.Images = []report.Image{{Topic: "Pagetitles", MIMEType: "image/png", Data: []byte("png")}}

	res, err := f.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, "model-hurtig", res.Model)
	assert.Equal(t, "SEO_analyse_kunde.pdf", res.File.Name)
	assert.True(t, bytes.HasPrefix(res.File.Data, []byte("%PDF-")))
	assert.Len(t, gen.Requests()[0].Images, 1)
}

func TestRun_MissingAhrefs(t *testing.T) {
	gen := &report.Mock{Text: reportText}
	f := newTestAnalyser(t, gen)

	in := baseInput()
	in.Ahrefs = nil
	_, err := f.Run(context.Background(), in, nil)
	assert.ErrorIs(t, err, ErrMissingAhrefs)
	assert.Empty(t, gen.Requests(), "nothing is generated without Ahrefs data")
}

func TestRun_InvalidInput(t *testing.T) {
	f := newTestAnalyser(t, &report.Mock{Text: reportText})

	tests := []struct {
		name   string
		mutate func(*AnalysisInput)
	}{
		{"unknown topic", func(in *AnalysisInput) { in.SelectedTopics = []string{"Nyhedsbrev"} }},
		{"unknown note topic", func(in *AnalysisInput) { in.TopicNotes = map[string]string{"Bogus topic": "x"} }},
		{"unknown image topic", func(in *AnalysisInput) { in.Images = []report.Image{{Topic: "x", Data: []byte{1}}} }},
		{"unknown profile", func(in *AnalysisInput) { in.Profile = "turbo" }},
		{"unknown format", func(in *AnalysisInput) { in.Format = "odt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)
			_, err := f.Run(context.Background(), in, nil)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	in := baseInput()
	in.SelectedTopics = []string{"Nyhedsbrev"}
	assert.ErrorIs(t, f.Validate(in), instruction.ErrUnknownTopic)
}

func TestRun_BlankCustomerName(t *testing.T) {
	gen := &report.Mock{Text: reportText}
	f := newTestAnalyser(t, gen)

	in := baseInput()
	in.CustomerName = "   "
	in.CustomerURL = " \t"
	res, err := f.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, "SEO_analyse_kunde.docx", res.File.Name)
	assert.Contains(t, gen.Requests()[0].Instruction, "- Kundenavn: Ikke angivet")
	assert.Contains(t, gen.Requests()[0].Instruction, "- URL: Ikke angivet")
}

func TestRun_GenerationFailure(t *testing.T) {
	boom := errors.New("stream reset")
	f := newTestAnalyser(t, &report.Mock{Text: reportText, ChunkSize: 5, Err: boom, FailAfter: 3})

	var deltas int
	res, err := f.Run(context.Background(), baseInput(), func(string) { deltas++ })
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, deltas)
}

func TestRun_EmptyReport(t *testing.T) {
	f := newTestAnalyser(t, &report.Mock{Text: " \n\t\n "})
	res, err := f.Run(context.Background(), baseInput(), nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newTestAnalyser(t, &report.Mock{Text: strings.Repeat("tekst ", 200), ChunkSize: 1})
	res, err := f.Run(ctx, baseInput(), func(string) { cancel() })
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteDocument(t *testing.T) {
	file, err := writeDocument(document.FormatDOCX, document.Meta{CustomerName: "A B"}, document.Render(reportText))
	require.NoError(t, err)
	assert.Equal(t, "SEO_analyse_A_B.docx", file.Name)

	zr, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	require.NoError(t, err)
	for _, zf := range zr.File {
		if zf.Name != "word/document.xml" {
			continue
		}
		rc, err := zf.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Contains(t, string(body), "SEO-analyse – A B")
	}
}
