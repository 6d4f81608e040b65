package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// candidate delimiters, in tie-break order
var delimiters = []rune{',', ';', '\t', '|'}

const sniffLines = 20

// ParseCSV decodes a delimited text export into records. The delimiter is
// detected from the first lines; UTF-8 and UTF-16 input with a byte order
// mark are both accepted.
func ParseCSV(data []byte) ([]Record, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no columns to parse from file")
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited text: %w", err)
	}
	return buildRecords(rows)
}

func decodeText(data []byte) (string, error) {
	dec := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	out, err := io.ReadAll(dec)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// sniffDelimiter picks the candidate that splits the sampled lines into the
// same number of fields most often, preferring more fields.
func sniffDelimiter(text string) rune {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
		if len(lines) == sniffLines {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best, bestScore, bestCount := ',', -1, 0
	for _, d := range delimiters {
		head := countOutsideQuotes(lines[0], d)
		if head == 0 {
			continue
		}
		consistent := 0
		for _, l := range lines {
			if countOutsideQuotes(l, d) == head {
				consistent++
			}
		}
		if consistent > bestScore || (consistent == bestScore && head > bestCount) {
			best, bestScore, bestCount = d, consistent, head
		}
	}
	return best
}

func countOutsideQuotes(line string, d rune) int {
	n, quoted := 0, false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == d && !quoted:
			n++
		}
	}
	return n
}

// buildRecords turns a header row plus data rows into typed records.
func buildRecords(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return []Record{}, nil
	}
	header := columnNames(rows[0])
	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		if len(row) > len(header) {
			if !blankRow(row[len(header):]) {
				return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), i+2, len(row))
			}
			row = row[:len(header)]
		}
		rec := make(Record, len(header))
		for j, col := range header {
			v := NullValue()
			if j < len(row) {
				v = ParseCell(row[j])
			}
			rec[j] = Field{Column: col, Value: v}
		}
		records = append(records, rec)
	}
	return records, nil
}

// columnNames names blank headers "Unnamed: <i>" and suffixes repeats with
// ".1", ".2", ...
func columnNames(raw []string) []string {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
