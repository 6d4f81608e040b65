package models

import "time"

// Run statuses, in the order a batch run moves through them.
const (
	RunStatusReceived   = "RECEIVED"
	RunStatusGenerating = "GENERATING"
	RunStatusCompleted  = "COMPLETED"
	RunStatusFailed     = "FAILED"
)

// AnalysisRun is the Firestore record for one batch analysis. It is how a
// batch caller learns whether a report was produced.
type AnalysisRun struct {
	RunID          string    `firestore:"runId,omitempty"`
	ManifestObject string    `firestore:"manifestObject,omitempty"`
	ManifestHash   string    `firestore:"manifestHash,omitempty"`
	CustomerName   string    `firestore:"customerName,omitempty"`
	Model          string    `firestore:"model,omitempty"`
	Status         string    `firestore:"status,omitempty"`
	ErrorDetails   string    `firestore:"errorDetails,omitempty"`
	ErrorRecords   int       `firestore:"errorRecords,omitempty"` // ingestion error entries in the payload
	ReportURI      string    `firestore:"reportUri,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt,omitempty"`
	CompletedAt    time.Time `firestore:"completedAt,omitempty"`
}
