package tabular

import (
	"bytes"
	"encoding/json"
)

// Field is one column of a Record.
type Field struct {
	Column string
	Value  Value
}

// Record is one row, with fields kept in column order.
type Record []Field

// Get returns the value for column and whether the column exists.
func (r Record) Get(column string) (Value, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return Value{}, false
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalString(f.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Entry is the content stored under one dataset key: either rows or, when
// the file or sheet could not be read, an error message.
type Entry struct {
	Key  string
	Rows []Record
	Err  string
}

// Failed reports whether the entry holds an error record instead of rows.
func (e Entry) Failed() bool { return e.Err != "" }

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Failed() {
		return json.Marshal(map[string]string{"error": e.Err})
	}
	if e.Rows == nil {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range e.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := r.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Dataset maps dataset keys to entries, in insertion order. Setting an
// existing key replaces its entry without moving it.
type Dataset struct {
	entries []Entry
	index   map[string]int
}

func NewDataset() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

func (d *Dataset) put(e Entry) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[e.Key]; ok {
		d.entries[i] = e
		return
	}
	d.index[e.Key] = len(d.entries)
	d.entries = append(d.entries, e)
}

// Set stores rows under key.
func (d *Dataset) Set(key string, rows []Record) {
	d.put(Entry{Key: key, Rows: rows})
}

// SetError stores an error record under key.
func (d *Dataset) SetError(key string, err error) {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	d.put(Entry{Key: key, Err: msg})
}

// Merge copies every entry of other into d in order; later keys win.
func (d *Dataset) Merge(other *Dataset) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		d.put(e)
	}
}

func (d *Dataset) Get(key string) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	i, ok := d.index[key]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

func (d *Dataset) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.Key
	}
	return keys
}

func (d *Dataset) Entries() []Entry {
	if d == nil {
		return nil
	}
	return append([]Entry(nil), d.entries...)
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Errors returns the entries that hold error records.
func (d *Dataset) Errors() []Entry {
	var out []Entry
	for _, e := range d.Entries() {
		if e.Failed() {
			out = append(out, e)
		}
	}
	return out
}

func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if d != nil {
		for i, e := range d.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := marshalString(e.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			v, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
