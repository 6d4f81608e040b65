package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/seoanalyser/internal/document"
	"github.com/Lllllllleong/seoanalyser/internal/instruction"
	"github.com/Lllllllleong/seoanalyser/internal/payload"
	"github.com/Lllllllleong/seoanalyser/internal/report"
	"github.com/Lllllllleong/seoanalyser/internal/tabular"
	"github.com/google/uuid"
)

var (
	ErrMissingAhrefs    = errors.New("no Ahrefs exports supplied")
	ErrInvalidInput     = errors.New("invalid analysis input")
	ErrGenerationFailed = errors.New("report generation failed")
	ErrEmptyReport      = errors.New("report generation returned no text")
)

// AnalysisInput is everything the advisor supplied for one run.
type AnalysisInput struct {
	// RunID is generated when empty.
	RunID        string
	CustomerName string `validate:"max=200"`
	CustomerURL  string `validate:"max=2048"`

	Ahrefs []tabular.File
	Crawl  tabular.File
	GSC    []tabular.File

	Profile report.Profile  `validate:"omitempty,oneof=grundig hurtig"`
	Format  document.Format `validate:"omitempty,oneof=docx pdf"`

	SelectedTopics []string
	ExtraNotes     string
	TopicNotes     map[string]string
	Images         []report.Image
}

// File is a generated download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// AnalysisResult is a finished report.
type AnalysisResult struct {
	RunID        string
	Model        string
	Text         string
	Document     document.Document
	File         File
	PreviewHTML  string
	ErrorRecords int
}

// AnalyserFunction runs the analysis pipeline: assemble the payload, compose
// the instruction, stream the report and render the document.
type AnalyserFunction struct {
	generator report.Generator
	composer  *instruction.Composer
	assembler *payload.Assembler
	config    AnalyserConfig
}

// NewAnalyser builds the pipeline from environment configuration.
func NewAnalyser(ctx context.Context) (*AnalyserFunction, error) {
	cfg, err := LoadAnalyserConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewAnalyserFromConfig(ctx, *cfg)
}

// NewAnalyserFromConfig builds the pipeline with the generator cfg selects.
func NewAnalyserFromConfig(ctx context.Context, cfg AnalyserConfig) (*AnalyserFunction, error) {
	gen, err := report.New(ctx, report.Config{
		Provider:        cfg.Provider,
		ProjectID:       cfg.ProjectID,
		Region:          cfg.VertexAIRegion,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		MaxTokens:       cfg.MaxOutputTokens,
		MockTopics:      instruction.Topics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report generator: %w", err)
	}
	return NewAnalyserWithGenerator(cfg, gen)
}

// NewAnalyserWithGenerator builds the pipeline around an existing generator.
func NewAnalyserWithGenerator(cfg AnalyserConfig, gen report.Generator) (*AnalyserFunction, error) {
	composer, err := instruction.NewComposer(cfg.InstructionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruction template: %w", err)
	}
	f := &AnalyserFunction{
		generator: gen,
		composer:  composer,
		assembler: payload.NewAssembler(tabular.NewIngestor(), cfg.IngestConcurrency),
		config:    cfg,
	}
	slog.Info("Analyser initialized.", "provider", cfg.Provider, "template", composer.Name())
	return f, nil
}

func (f *AnalyserFunction) Close() error {
	return f.generator.Close()
}

// Validate checks the input before any processing starts.
func (f *AnalyserFunction) Validate(in AnalysisInput) error {
	if len(in.Ahrefs) == 0 {
		return ErrMissingAhrefs
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	for _, t := range in.SelectedTopics {
		if !instruction.IsTopic(t) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidInput, instruction.ErrUnknownTopic, t)
		}
	}
	for t := range in.TopicNotes {
		if !instruction.IsTopic(t) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidInput, instruction.ErrUnknownTopic, t)
		}
	}
	for _, img := range in.Images {
		if !instruction.IsTopic(img.Topic) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidInput, instruction.ErrUnknownTopic, img.Topic)
		}
	}
	return nil
}

// Run produces a report. onDelta, if set, receives the report text as it
// streams. On any generation failure the partial text is discarded and no
// document is rendered.
func (f *AnalyserFunction) Run(ctx context.Context, in AnalysisInput, onDelta func(string)) (*AnalysisResult, error) {
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerURL = strings.TrimSpace(in.CustomerURL)
	logCtx := slog.With("runId", in.RunID)

	if err := f.Validate(in); err != nil {
		logCtx.Warn("Rejected analysis input.", "error", err)
		return nil, err
	}
	profile := in.Profile
	if profile == "" {
		profile = report.ProfileThorough
	}
	format := in.Format
	if format == "" {
		format = document.FormatDOCX
	}
	modelName := f.config.Models.For(profile)
	logCtx = logCtx.With("model", modelName)
	start := time.Now()

	data, err := f.assembler.Assemble(ctx, payload.Sources{Ahrefs: in.Ahrefs, Crawl: in.Crawl, GSC: in.GSC})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble payload: %w", err)
	}
	errorRecords := data.ErrorCount()
	logCtx.Info("Payload assembled.", "keys", data.Keys(), "errorRecords", errorRecords)

	prompt, err := f.composer.Compose(instruction.Input{
		CustomerName:   in.CustomerName,
		CustomerURL:    in.CustomerURL,
		SelectedTopics: in.SelectedTopics,
		ExtraNotes:     in.ExtraNotes,
		TopicNotes:     in.TopicNotes,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to compose instruction: %w", err)
	}

	text, err := report.Collect(ctx, f.generator, report.Request{
		Model:       modelName,
		Instruction: prompt,
		Images:      in.Images,
	}, onDelta)
	if err != nil {
		logCtx.Error("Report generation failed.", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		logCtx.Error("Report generation returned no text.")
		return nil, ErrEmptyReport
	}

	meta := document.Meta{CustomerName: in.CustomerName, CustomerURL: in.CustomerURL}
	doc := document.Render(text)
	file, err := writeDocument(format, meta, doc)
	if err != nil {
		return nil, err
	}
	preview, err := document.PreviewHTML(text)
	if err != nil {
		return nil, err
	}

	logCtx.Info("Analysis complete.", "blocks", len(doc.Blocks), "file", file.Name, "duration", time.Since(start))
	return &AnalysisResult{
		RunID:        in.RunID,
		Model:        modelName,
		Text:         text,
		Document:     doc,
		File:         *file,
		PreviewHTML:  preview,
		ErrorRecords: errorRecords,
	}, nil
}

func writeDocument(format document.Format, meta document.Meta, doc document.Document) (*File, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case document.FormatPDF:
		err = document.WritePDF(&buf, meta, doc)
	default:
		err = document.WriteDOCX(&buf, meta, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s document: %w", format, err)
	}
	return &File{
		Name:        document.FileName(meta.CustomerName, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
