package classify

import (
	"context"
	"testing"

	"github.com/Lllllllleong/seoanalyser/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Bucket
	}{
		{"domain_organic_perf_2024.csv", Performance},
		{"Performance-Overview.CSV", Performance},
		{"content_gap_competitors.csv", ContentGap},
		{"keyword_gap.csv", ContentGap},
		{"Organic_Keywords_GAP.csv", ContentGap},
		{"referring_domains.csv", ReferringDomains},
		{"Backlinks.csv", ReferringDomains},
		{"ref_domains_history.csv", ReferringDomains},
		{"referring_backlink_keywords.csv", ReferringDomains},
		{"organic_keywords_client.csv", CustomerKeywords},
		{"ORGANIC-pages.csv", CustomerKeywords},
		{"top_pages.csv", Other},
		{"export.csv", Other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
		})
	}
}

func TestBucketKeys(t *testing.T) {
	var keys []string
	for _, b := range Order {
		keys = append(keys, b.Key())
	}
	assert.Equal(t, []string{
		"ahrefs_performance",
		"ahrefs_keywords_customer",
		"ahrefs_content_gap",
		"ahrefs_ref_domains",
		"ahrefs_other",
	}, keys)
}

func TestGroup(t *testing.T) {
	files := []tabular.File{
		tabular.NewBytesFile("organic_keywords_client.csv", "", []byte("Keyword,Volume\na,1\nb,2\n")),
		tabular.NewBytesFile("keyword_gap.csv", "", []byte("Keyword\nc\n")),
		tabular.NewBytesFile("top_pages.csv", "", []byte("URL\nhttps://a.dk\n")),
		tabular.NewBytesFile("broken_perf.xlsx", "", []byte("nope")),
	}
	c := NewClassifier(tabular.NewIngestor(), 2)
	got, err := c.Group(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{"organic_keywords_client.csv"}, got.Get(CustomerKeywords).Keys())
	assert.Equal(t, []string{"keyword_gap.csv"}, got.Get(ContentGap).Keys())
	assert.Equal(t, []string{"top_pages.csv"}, got.Get(Other).Keys())
	assert.Equal(t, 0, got.Get(ReferringDomains).Len())

	perf, ok := got.Get(Performance).Get("broken_perf.xlsx")
	require.True(t, ok)
	assert.True(t, perf.Failed())
}

func TestGroup_LaterFilesOverride(t *testing.T) {
	files := []tabular.File{
		tabular.NewBytesFile("organic.csv", "", []byte("k\n1\n")),
		tabular.NewBytesFile("organic.csv", "", []byte("k\n1\n2\n3\n")),
	}
	got, err := NewClassifier(tabular.NewIngestor(), 4).Group(context.Background(), files)
	require.NoError(t, err)
	e, _ := got.Get(CustomerKeywords).Get("organic.csv")
	assert.Len(t, e.Rows, 3)
}

func TestGroup_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClassifier(tabular.NewIngestor(), 1).Group(ctx, []tabular.File{
		tabular.NewBytesFile("organic.csv", "", []byte("k\n1\n")),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
