package web

import (
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"

	"github.com/Lllllllleong/seoanalyser/internal/instruction"
	"github.com/Lllllllleong/seoanalyser/internal/report"
	"github.com/Lllllllleong/seoanalyser/internal/tabular"
)

// uploadFile exposes a multipart part as a tabular.File.
type uploadFile struct {
	header *multipart.FileHeader
}

func (u uploadFile) Name() string        { return u.header.Filename }
func (u uploadFile) ContentType() string { return u.header.Header.Get("Content-Type") }

func (u uploadFile) Open() (io.ReadCloser, error) {
	return u.header.Open()
}

// uploads returns the files posted under field. Empty file inputs arrive
// as parts without a file name and are dropped.
func uploads(form *multipart.Form, field string) []tabular.File {
	var files []tabular.File
	for _, h := range form.File[field] {
		if h.Filename == "" {
			continue
		}
		files = append(files, uploadFile{header: h})
	}
	return files
}

func noteField(i int) string  { return "note_" + strconv.Itoa(i) }
func imageField(i int) string { return "image_" + strconv.Itoa(i) }

// topicNotes collects the per-topic note fields that were posted.
func topicNotes(form *multipart.Form) map[string]string {
	notes := map[string]string{}
	for i, t := range instruction.Topics {
		if v, ok := form.Value[noteField(i)]; ok && len(v) > 0 {
			notes[t] = v[0]
		}
	}
	return notes
}

// topicImages reads the per-topic images. Unreadable images are skipped.
func topicImages(logCtx *slog.Logger, form *multipart.Form) []report.Image {
	var images []report.Image
	for i, t := range instruction.Topics {
		for _, f := range uploads(form, imageField(i)) {
			data, err := tabular.ReadAll(f)
			if err != nil {
				logCtx.Warn("Skipping unreadable image.", "topic", t, "file", f.Name(), "error", err)
				continue
			}
			images = append(images, report.Image{Topic: t, MIMEType: f.ContentType(), Data: data})
		}
	}
	return images
}
