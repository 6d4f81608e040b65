package models

// BatchManifest describes one batch analysis. It is uploaded as a JSON object
// next to the exports it references; object names are relative to the
// manifest's bucket.
type BatchManifest struct {
	CustomerName   string            `json:"customerName"`
	CustomerURL    string            `json:"customerUrl"`
	AhrefsFiles    []string          `json:"ahrefsFiles" validate:"dive,required"`
	CrawlFile      string            `json:"crawlFile,omitempty"`
	GSCFiles       []string          `json:"gscFiles,omitempty" validate:"dive,required"`
	ModelProfile   string            `json:"modelProfile,omitempty" validate:"omitempty,oneof=grundig hurtig"`
	Format         string            `json:"format,omitempty" validate:"omitempty,oneof=docx pdf"`
	SelectedTopics []string          `json:"selectedTopics,omitempty"`
	ExtraNotes     string            `json:"extraNotes,omitempty"`
	TopicNotes     map[string]string `json:"topicNotes,omitempty"`
	TopicImages    map[string]string `json:"topicImages,omitempty" validate:"dive,required"`
}

// Stream event types written by the analyser endpoint.
const (
	EventStart = "start"
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"
)

// StreamEvent is one line of the analyser's NDJSON response.
type StreamEvent struct {
	Type        string `json:"type"`
	RunID       string `json:"runId,omitempty"`
	Text        string `json:"text,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Document    []byte `json:"document,omitempty"` // base64 in JSON
	HTML        string `json:"html,omitempty"`
	Message     string `json:"message,omitempty"`
}
