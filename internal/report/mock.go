package report

import (
	"context"
	"strings"
	"sync"
)

// Mock is an offline generator. It streams Text in chunks of ChunkSize
// runes, or fails with Err after FailAfter chunks when Err is set.
type Mock struct {
	Text      string
	ChunkSize int
	Err       error
	FailAfter int

	mu       sync.Mutex
	requests []Request
}

// NewMock returns a mock that streams a short report with one section per
// topic, so the whole pipeline can run without credentials.
func NewMock(topics []string) *Mock {
	var sb strings.Builder
	for i, t := range topics {
		sb.WriteString("### " + t + "\n\n")
		sb.WriteString("Data viser en stabil udvikling for dette tema.\n\n")
		if i == len(topics)-1 {
			sb.WriteString("**Anbefalinger**\n")
			sb.WriteString("- Fokus 1: Optimer de vigtigste kategorisider.\n")
			sb.WriteString("- Fokus 2: Styrk den interne linkstruktur.\n\n")
		}
	}
	return &Mock{Text: sb.String(), ChunkSize: 16}
}

// Requests returns the requests the mock has received.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *Mock) Stream(ctx context.Context, req Request) <-chan Fragment {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		for i, chunk := range chunks(m.Text, m.ChunkSize) {
			if m.Err != nil && i == m.FailAfter {
				break
			}
			if !send(ctx, ch, Fragment{Text: chunk}) {
				return
			}
		}
		if m.Err != nil {
			send(ctx, ch, Fragment{Err: m.Err})
		}
	}()
	return ch
}

func (m *Mock) Close() error { return nil }

func chunks(s string, size int) []string {
	r := []rune(s)
	if size <= 0 || len(r) <= size {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var out []string
	for len(r) > 0 {
		n := min(size, len(r))
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	return out
}
