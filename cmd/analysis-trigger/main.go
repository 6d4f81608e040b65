package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/seoanalyser/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	batchInstance *services.BatchFunction
	once          sync.Once
	initErr       error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Triggered by object finalize events on the manifest bucket.
	functions.CloudEvent("RunBatchAnalysis", runBatchAnalysis)
}

// main is required by the Go Functions Framework.
func main() {}

func runBatchAnalysis(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		batchInstance, initErr = services.NewBatchAnalysis(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside Process.
	return batchInstance.Process(ctx, gcsEvent)
}
