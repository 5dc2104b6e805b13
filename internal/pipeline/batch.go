package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
)

// BatchFailure names a document that could not be processed.
type BatchFailure struct {
	File string
	Err  error
}

// BatchSummary reports the outcome of RunBatch.
type BatchSummary struct {
	Written  []string // Output paths, in input order.
	Failures []BatchFailure
}

// Failed reports whether any document failed.
func (s BatchSummary) Failed() bool {
	return len(s.Failures) > 0
}

// Batch writes one result file per input document.
type Batch struct {
	Worker  *Worker
	Workers int    // Documents processed concurrently; <= 1 is sequential.
	Format  string // outline.FormatJSON or outline.FormatYAML.
}

// Inputs lists the supported files directly inside dir, sorted by name.
func Inputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// OutputPath maps an input document to its result path inside outDir.
func OutputPath(input, outDir, format string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, base+outline.Extension(format))
}

// Run processes every supported document in inDir. A failing document is
// recorded in the summary and does not stop its siblings; the returned
// error covers only directory-level problems and cancellation.
func (b *Batch) Run(ctx context.Context, inDir, outDir string) (BatchSummary, error) {
	files, err := Inputs(inDir)
	if err != nil {
		return BatchSummary{}, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("create output directory: %w", err)
	}
	b.Worker.log.Info("batch started", "input_dir", inDir, "documents", len(files))

	written := make([]string, len(files))
	failed := make([]error, len(files))
	sem := make(chan struct{}, max(b.Workers, 1))
	var wg sync.WaitGroup

	for i, in := range files {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return collect(files, written, failed), ctx.Err()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out := OutputPath(in, outDir, b.Format)
			if err := b.File(ctx, in, out); err != nil {
				failed[i] = err
				return
			}
			written[i] = out
		}()
	}
	wg.Wait()

	summary := collect(files, written, failed)
	b.Worker.log.Info("batch finished", "written", len(summary.Written), "failed", len(summary.Failures))
	return summary, ctx.Err()
}

func collect(files, written []string, failed []error) BatchSummary {
	var s BatchSummary
	for i, in := range files {
		switch {
		case failed[i] != nil:
			s.Failures = append(s.Failures, BatchFailure{File: in, Err: failed[i]})
		case written[i] != "":
			s.Written = append(s.Written, written[i])
		}
	}
	return s
}

// File processes a single document and writes its result to out.
func (b *Batch) File(ctx context.Context, in, out string) error {
	log := b.Worker.log.With("file", in)

	data, err := os.ReadFile(in)
	if err != nil {
		log.Error("read failed", "error", err)
		return fmt.Errorf("read %s: %w", in, err)
	}
	res, err := b.Worker.Run(ctx, data, filepath.Base(in))
	if err != nil {
		log.Error("outline failed", "error", err)
		return err
	}
	if err := WriteResult(out, res.Result, b.Format); err != nil {
		log.Error("write failed", "output", out, "error", err)
		return err
	}
	log.Info("wrote result", "output", out, "cached", res.Cached)
	return nil
}

// WriteResult encodes r to path, replacing any existing file.
func WriteResult(path string, r *outline.Result, format string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := outline.Encode(f, r, format); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
