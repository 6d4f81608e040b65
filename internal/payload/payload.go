// Package payload assembles the structured data sent along with the
// instruction: Ahrefs buckets, the crawl and Search Console exports.
package payload

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/Lllllllleong/seoanalyser/internal/classify"
	"github.com/Lllllllleong/seoanalyser/internal/tabular"
)

const (
	CrawlKey = "screaming_frog"
	GSCKey   = "gsc"
)

// Sources are the uploads for one analysis run.
type Sources struct {
	Ahrefs []tabular.File
	Crawl  tabular.File
	GSC    []tabular.File
}

// Section is one top-level payload key and its dataset.
type Section struct {
	Key  string
	Data *tabular.Dataset
}

// Payload is the ordered top-level mapping. Keys whose source was not
// supplied are absent.
type Payload struct {
	sections []Section
}

func (p *Payload) Sections() []Section {
	return append([]Section(nil), p.sections...)
}

func (p *Payload) Keys() []string {
	keys := make([]string, len(p.sections))
	for i, s := range p.sections {
		keys[i] = s.Key
	}
	return keys
}

func (p *Payload) Get(key string) (*tabular.Dataset, bool) {
	for _, s := range p.sections {
		if s.Key == key {
			return s.Data, true
		}
	}
	return nil, false
}

// ErrorCount is the number of error records across all sections.
func (p *Payload) ErrorCount() int {
	n := 0
	for _, s := range p.sections {
		n += len(s.Data.Errors())
	}
	return n
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range p.sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(s.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := s.Data.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Assembler builds payloads from uploaded sources.
type Assembler struct {
	ingestor    *tabular.Ingestor
	classifier  *classify.Classifier
	concurrency int
}

func NewAssembler(ingestor *tabular.Ingestor, concurrency int) *Assembler {
	return &Assembler{
		ingestor:    ingestor,
		classifier:  classify.NewClassifier(ingestor, concurrency),
		concurrency: concurrency,
	}
}

// Assemble ingests every source and composes the payload in fixed key
// order. It fails only if ctx is cancelled.
func (a *Assembler) Assemble(ctx context.Context, src Sources) (*Payload, error) {
	p := &Payload{}

	if len(src.Ahrefs) > 0 {
		buckets, err := a.classifier.Group(ctx, src.Ahrefs)
		if err != nil {
			return nil, err
		}
		for _, b := range classify.Order {
			p.sections = append(p.sections, Section{Key: b.Key(), Data: buckets.Get(b)})
		}
	}

	if src.Crawl != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.sections = append(p.sections, Section{Key: CrawlKey, Data: a.ingestor.Ingest(ctx, src.Crawl)})
	}

	if len(src.GSC) > 0 {
		sets, err := classify.IngestAll(ctx, a.ingestor, src.GSC, a.concurrency)
		if err != nil {
			return nil, err
		}
		merged := tabular.NewDataset()
		for _, ds := range sets {
			merged.Merge(ds)
		}
		p.sections = append(p.sections, Section{Key: GSCKey, Data: merged})
	}

	return p, nil
}
