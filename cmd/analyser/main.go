package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/seoanalyser/internal/services"
	"github.com/Lllllllleong/seoanalyser/internal/web"
)

var (
	handler *web.Handler
	once    sync.Once
	initErr error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleAnalyser" is the entry point name configured in GCP.
	functions.HTTP("HandleAnalyser", handleAnalyser)
}

// main is required by the Go Functions Framework.
func main() {}

func newHandler(ctx context.Context) (*web.Handler, error) {
	cfg, err := web.LoadConfig()
	if err != nil {
		return nil, err
	}
	analyser, err := services.NewAnalyser(ctx)
	if err != nil {
		return nil, err
	}
	h, err := web.NewHandler(*cfg, analyser)
	if err != nil {
		return nil, fmt.Errorf("failed to create handler: %w", err)
	}
	return h, nil
}

func handleAnalyser(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		handler, initErr = newHandler(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}
