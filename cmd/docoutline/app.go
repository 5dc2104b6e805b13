package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/model"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/stats"
	"github.com/dgallion1/docoutline/internal/store"
)

// app holds everything built once at startup.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	worker  *pipeline.Worker
	results *store.Store
	latency *stats.Latency
}

// newApp loads the model artifacts and wires the worker. Artifact
// problems are returned before any document is touched.
func newApp(cfg config.Config, log *slog.Logger) (*app, error) {
	arts, err := model.Load(cfg.ClassifierPath, cfg.EncoderPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	cls, err := outline.NewLevelClassifier(arts.Classifier, arts.Encoder)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	log.Info("model loaded",
		"classifier", cfg.ClassifierPath,
		"trees", len(arts.Classifier.Trees),
		"labels", arts.Encoder.Classes,
	)

	a := &app{cfg: cfg, log: log, latency: stats.NewLatency(0)}
	if cfg.ResultStorePath != "" {
		a.results, err = store.Open(cfg.ResultStorePath)
		if err != nil {
			return nil, err
		}
		log.Info("result cache enabled", "path", cfg.ResultStorePath)
	}

	ext := &outline.Extractor{Classifier: cls, Workers: cfg.MaxConcurrentClassify}
	parse := pipeline.ParserFunc(parser.Options{Validate: cfg.PDFValidate})
	a.worker = pipeline.NewWorker(parse, ext, a.results, a.latency, log)
	return a, nil
}

func (a *app) Close() error {
	if a.results == nil {
		return nil
	}
	return a.results.Close()
}

// newLogger builds a text logger for CLI runs or a JSON logger for serve.
func newLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// errDocumentsFailed is returned by batch runs in which a document failed.
var errDocumentsFailed = errors.New("one or more documents failed")
