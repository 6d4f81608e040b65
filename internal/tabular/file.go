package tabular

import (
	"bytes"
	"io"
)

// File is an uploaded export: a named blob that can be read once.
type File interface {
	Name() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

type bytesFile struct {
	name        string
	contentType string
	data        []byte
}

// NewBytesFile wraps an in-memory blob as a File.
func NewBytesFile(name, contentType string, data []byte) File {
	return &bytesFile{name: name, contentType: contentType, data: data}
}

func (f *bytesFile) Name() string        { return f.name }
func (f *bytesFile) ContentType() string { return f.contentType }

func (f *bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// ReadAll opens f and reads it fully into memory.
func ReadAll(f File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
