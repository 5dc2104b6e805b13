package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/stats"
	"github.com/dgallion1/docoutline/internal/store"
)

// ParseFunc turns raw document bytes into a Document.
type ParseFunc func(data []byte, filename string) (*doctree.Document, error)

// ParserFunc returns a ParseFunc that picks a parser by file extension.
func ParserFunc(opts parser.Options) ParseFunc {
	return func(data []byte, filename string) (*doctree.Document, error) {
		p, err := parser.ForFile(filename, opts)
		if err != nil {
			return nil, err
		}
		return p.Parse(bytes.NewReader(data), filename)
	}
}

// Worker extracts outlines. It holds no per-document state, so one Worker
// is shared by every goroutine of the batch runner and the job queue.
type Worker struct {
	parse     ParseFunc
	extractor *outline.Extractor
	results   *store.Store   // optional
	latency   *stats.Latency // optional
	log       *slog.Logger
}

func NewWorker(parse ParseFunc, ext *outline.Extractor, results *store.Store, latency *stats.Latency, log *slog.Logger) *Worker {
	return &Worker{
		parse:     parse,
		extractor: ext,
		results:   results,
		latency:   latency,
		log:       log,
	}
}

// Outcome is the result of processing one document.
type Outcome struct {
	Hash   string
	Result *outline.Result
	Cached bool
}

// Run processes one document synchronously.
func (w *Worker) Run(ctx context.Context, data []byte, filename string) (Outcome, error) {
	return w.run(ctx, data, filename, func(JobStatus, string) {})
}

// Process runs the pipeline for a queued job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file", job.Filename)

	out, err := w.run(ctx, job.FileData(), job.Filename, job.SetStatus)
	if err != nil {
		phase := "classifying"
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			phase = "canceled"
		case errors.Is(err, parser.ErrParse) || errors.Is(err, parser.ErrUnsupported):
			phase = "parsing"
		}
		if phase == "canceled" {
			log.Warn("outline canceled", "error", err)
		} else {
			log.Error("outline failed", "phase", phase, "error", err)
		}
		job.Fail(phase, err)
		return
	}

	status := StatusCompleted
	if out.Cached {
		status = StatusCached
	}
	log.Info("outline complete", "status", status, "headings", len(out.Result.Outline))
	job.Complete(status, out.Result)
}

func (w *Worker) run(ctx context.Context, data []byte, filename string, phase func(JobStatus, string)) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Hash: store.ContentHash(data)}
	log := w.log.With("file", filename, "content_hash", out.Hash)

	if w.results != nil {
		rec, err := w.results.Get(out.Hash)
		switch {
		case err == nil:
			log.Debug("cached result")
			out.Result = rec.Result
			out.Cached = true
			return out, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("result lookup failed, proceeding", "error", err)
		}
	}

	start := time.Now()

	phase(StatusParsing, "parsing")
	doc, err := w.parse(data, filename)
	if err != nil {
		w.recordFailure()
		return Outcome{}, err
	}
	log.Debug("parsed document", "pages", len(doc.Pages), "lines", doc.LineCount())

	phase(StatusClassifying, "classifying")
	res, err := w.extractor.Extract(doc)
	if err != nil {
		w.recordFailure()
		return Outcome{}, fmt.Errorf("extract %s: %w", filename, err)
	}
	if w.latency != nil {
		w.latency.Record(time.Since(start))
	}
	out.Result = res

	if w.results != nil {
		err := w.results.Put(store.Record{
			Hash:      out.Hash,
			Filename:  filename,
			CreatedAt: time.Now().UTC(),
			Result:    res,
		})
		if err != nil {
			log.Warn("result store failed", "error", err)
		}
	}
	return out, nil
}

func (w *Worker) recordFailure() {
	if w.latency != nil {
		w.latency.RecordFailure()
	}
}
