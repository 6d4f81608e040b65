// Package classify sorts Ahrefs exports into report buckets by file name.
//
// The rules are a best-effort heuristic: a name that matches several markers
// lands in the first matching bucket, so "keyword_gap.csv" is treated as a
// content gap report.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/seoanalyser/internal/tabular"
	"golang.org/x/sync/errgroup"
)

// Bucket is one of the five Ahrefs report categories.
type Bucket int

const (
	Performance Bucket = iota
	CustomerKeywords
	ContentGap
	ReferringDomains
	Other
)

// Order is the order buckets appear in the payload.
var Order = []Bucket{Performance, CustomerKeywords, ContentGap, ReferringDomains, Other}

// Key returns the payload key for the bucket.
func (b Bucket) Key() string {
	switch b {
	case Performance:
		return "ahrefs_performance"
	case CustomerKeywords:
		return "ahrefs_keywords_customer"
	case ContentGap:
		return "ahrefs_content_gap"
	case ReferringDomains:
		return "ahrefs_ref_domains"
	default:
		return "ahrefs_other"
	}
}

func (b Bucket) String() string { return b.Key() }

type rule struct {
	markers []string
	bucket  Bucket
}

// rules are evaluated in order, first match wins.
var rules = []rule{
	{markers: []string{"perf", "performance"}, bucket: Performance},
	{markers: []string{"content_gap", "gap"}, bucket: ContentGap},
	{markers: []string{"referring", "backlink", "ref_domains"}, bucket: ReferringDomains},
	{markers: []string{"keyword", "organic"}, bucket: CustomerKeywords},
}

// Classify returns the bucket for a file name.
func Classify(name string) Bucket {
	lower := strings.ToLower(name)
	for _, r := range rules {
		for _, m := range r.markers {
			if strings.Contains(lower, m) {
				return r.bucket
			}
		}
	}
	return Other
}

// Buckets holds one dataset per bucket. All five are always present.
type Buckets struct {
	sets [Other + 1]*tabular.Dataset
}

func NewBuckets() *Buckets {
	b := &Buckets{}
	for i := range b.sets {
		b.sets[i] = tabular.NewDataset()
	}
	return b
}

// Get returns the dataset for bucket b.
func (bs *Buckets) Get(b Bucket) *tabular.Dataset {
	return bs.sets[b]
}

// Classifier ingests a batch of exports and merges them per bucket.
type Classifier struct {
	ingestor    *tabular.Ingestor
	concurrency int
}

func NewClassifier(ingestor *tabular.Ingestor, concurrency int) *Classifier {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Classifier{ingestor: ingestor, concurrency: concurrency}
}

// Group ingests every file and merges each into its bucket in input order,
// so later files override earlier ones on key collision.
func (c *Classifier) Group(ctx context.Context, files []tabular.File) (*Buckets, error) {
	sets, err := IngestAll(ctx, c.ingestor, files, c.concurrency)
	if err != nil {
		return nil, err
	}
	out := NewBuckets()
	for i, f := range files {
		b := Classify(f.Name())
		slog.Debug("Classified export.", "file", f.Name(), "bucket", b.Key(), "keys", sets[i].Len())
		out.Get(b).Merge(sets[i])
	}
	return out, nil
}

// IngestAll reads files concurrently and returns their datasets in input
// order. Ingestion never fails per file; the only error is cancellation.
func IngestAll(ctx context.Context, in *tabular.Ingestor, files []tabular.File, concurrency int) ([]*tabular.Dataset, error) {
	sets := make([]*tabular.Dataset, len(files))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(concurrency, 1))
	for i, f := range files {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sets[i] = in.Ingest(gctx, f)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}
