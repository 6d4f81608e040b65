package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/seoanalyser/internal/document"
	"github.com/Lllllllleong/seoanalyser/internal/gcp"
	"github.com/Lllllllleong/seoanalyser/internal/instruction"
	"github.com/Lllllllleong/seoanalyser/internal/models"
	"github.com/Lllllllleong/seoanalyser/internal/report"
	"github.com/Lllllllleong/seoanalyser/internal/tabular"
	"github.com/google/uuid"
)

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// BatchFunction runs analyses described by manifests dropped into a bucket
// and records their progress in Firestore.
type BatchFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	analyser        *AnalyserFunction
	config          BatchConfig
}

func NewBatchAnalysis(ctx context.Context) (*BatchFunction, error) {
	config, err := LoadBatchConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	analyser, err := NewAnalyserFromConfig(ctx, config.Analyser)
	if err != nil {
		return nil, err
	}

	f := &BatchFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		analyser:        analyser,
		config:          *config,
	}
	slog.Info("Batch analysis initialized.", "reportBucket", config.ReportBucket, "collection", config.CollectionName)
	return f, nil
}

// IsManifest reports whether an uploaded object should start a run.
func IsManifest(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}

// DecodeManifest parses and validates a manifest.
func DecodeManifest(data []byte) (*models.BatchManifest, error) {
	var m models.BatchManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to decode manifest: %w", ErrInvalidInput, err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: invalid manifest: %w", ErrInvalidInput, err)
	}
	return &m, nil
}

// manifestHash identifies a manifest's content for duplicate detection.
func manifestHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// objectSource resolves manifest object names.
type objectSource interface {
	File(name string) tabular.File
	Read(ctx context.Context, name string) ([]byte, error)
}

type bucketSource struct {
	ctx    context.Context
	bucket *storage.BucketHandle
}

func (b bucketSource) File(name string) tabular.File {
	return gcp.NewObjectFile(b.ctx, b.bucket, name)
}

func (b bucketSource) Read(ctx context.Context, name string) ([]byte, error) {
	return gcp.ReadObject(ctx, b.bucket, name)
}

// resolveObject interprets name relative to the manifest's directory.
func resolveObject(manifestName, name string) string {
	if strings.HasPrefix(name, "/") {
		return strings.TrimPrefix(name, "/")
	}
	return path.Join(path.Dir(manifestName), name)
}

// buildInput turns a manifest into pipeline input. Images that cannot be
// read are skipped.
func buildInput(ctx context.Context, logCtx *slog.Logger, runID, manifestName string, m *models.BatchManifest, src objectSource) AnalysisInput {
	in := AnalysisInput{
		RunID:          runID,
		CustomerName:   m.CustomerName,
		CustomerURL:    m.CustomerURL,
		Profile:        report.Profile(m.ModelProfile),
		Format:         document.Format(m.Format),
		SelectedTopics: m.SelectedTopics,
		ExtraNotes:     m.ExtraNotes,
		TopicNotes:     m.TopicNotes,
	}
	for _, name := range m.AhrefsFiles {
		in.Ahrefs = append(in.Ahrefs, src.File(resolveObject(manifestName, name)))
	}
	if m.CrawlFile != "" {
		in.Crawl = src.File(resolveObject(manifestName, m.CrawlFile))
	}
	for _, name := range m.GSCFiles {
		in.GSC = append(in.GSC, src.File(resolveObject(manifestName, name)))
	}
	for _, topic := range orderedKeys(m.TopicImages) {
		object := resolveObject(manifestName, m.TopicImages[topic])
		data, err := src.Read(ctx, object)
		if err != nil {
			logCtx.Warn("Skipping unreadable image.", "topic", topic, "object", object, "error", err)
			continue
		}
		in.Images = append(in.Images, report.Image{Topic: topic, Data: data})
	}
	return in
}

// orderedKeys returns the keys of a topic map in catalog order, with
// unknown topics last so validation can reject them.
func orderedKeys(m map[string]string) []string {
	var known, unknown []string
	for _, t := range instruction.Topics {
		if _, ok := m[t]; ok {
			known = append(known, t)
		}
	}
	for t := range m {
		if !contains(known, t) {
			unknown = append(unknown, t)
		}
	}
	return append(known, unknown...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Process handles one finalize event.
func (f *BatchFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !IsManifest(e.Name) {
		logCtx.Info("Object is not a manifest. Skipping.")
		return nil
	}
	logCtx.Info("Processing new manifest.")

	bucket := f.storageClient.Bucket(e.Bucket)
	raw, err := gcp.ReadObject(ctx, bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download manifest", "error", err)
		return err
	}
	hash := manifestHash(raw)
	logCtx = logCtx.With("manifestHash", hash)

	isDuplicate, existingID, err := f.isDuplicate(ctx, hash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Manifest already processed. Skipping.", "existingRunId", existingID)
		return nil
	}

	runID := uuid.NewString()
	logCtx = logCtx.With("runId", runID)
	manifest, decodeErr := DecodeManifest(raw)

	run := models.AnalysisRun{
		RunID:          runID,
		ManifestObject: fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name),
		ManifestHash:   hash,
		Status:         models.RunStatusReceived,
		CreatedAt:      time.Now(),
	}
	if manifest != nil {
		run.CustomerName = manifest.CustomerName
	}
	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(runID)
	if _, err := docRef.Create(ctx, run); err != nil {
		logCtx.Error("Failed to create run document", "error", err)
		return fmt.Errorf("failed to create run document: %w", err)
	}
	if decodeErr != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to read manifest", decodeErr)
	}

	input := buildInput(ctx, logCtx, runID, e.Name, manifest, bucketSource{ctx: ctx, bucket: bucket})
	if err := f.analyser.Validate(input); err != nil {
		return f.handleError(ctx, logCtx, docRef, "manifest rejected", err)
	}
	model := f.analyser.config.Models.For(input.Profile)
	if err := gcp.UpdateStatus(ctx, docRef, models.RunStatusGenerating, "", firestore.Update{Path: "model", Value: model}); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status", err)
	}

	result, err := f.analyser.Run(ctx, input, nil)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "analysis failed", err)
	}

	objectName := path.Join(runID, result.File.Name)
	if err := gcp.SaveToGCSAtomically(ctx, f.storageClient.Bucket(f.config.ReportBucket), objectName, result.File.Data, result.File.ContentType); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to save report", err)
	}
	reportURI := fmt.Sprintf("gs://%s/%s", f.config.ReportBucket, objectName)

	if err := gcp.UpdateStatus(ctx, docRef, models.RunStatusCompleted, "",
		firestore.Update{Path: "reportUri", Value: reportURI},
		firestore.Update{Path: "errorRecords", Value: result.ErrorRecords},
		firestore.Update{Path: "completedAt", Value: time.Now()},
	); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status", err)
	}
	logCtx.Info("Batch analysis complete.", "reportUri", reportURI)
	return nil
}

// isDuplicate reports whether the same manifest content already has a run
// that has not failed. Failed runs may be retried by uploading again.
func (f *BatchFunction) isDuplicate(ctx context.Context, hash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("manifestHash", "==", hash).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	for _, doc := range docs {
		var run models.AnalysisRun
		if err := doc.DataTo(&run); err != nil {
			return false, "", fmt.Errorf("failed to decode run %s: %w", doc.Ref.ID, err)
		}
		if run.Status != models.RunStatusFailed {
			return true, doc.Ref.ID, nil
		}
	}
	return false, "", nil
}

func (f *BatchFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := gcp.UpdateStatus(ctx, docRef, models.RunStatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	// Permanent input problems are recorded and acknowledged so the event is
	// not redelivered.
	if errors.Is(originalErr, ErrMissingAhrefs) || errors.Is(originalErr, ErrInvalidInput) {
		return nil
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *BatchFunction) Close() error {
	return errors.Join(f.analyser.Close(), f.firestoreClient.Close(), f.storageClient.Close())
}
