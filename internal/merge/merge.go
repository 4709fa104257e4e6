// Package merge combines a batch of exported artifacts (all PDFs or all
// raster images) into one composite output with per-item annotation.
// A successful merge deletes the input artifacts; any assembly failure
// leaves every input untouched.
package merge

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/paperdock/paperdock/internal/errors"
)

// Mode selects the assembly strategy.
type Mode int

const (
	ModePDF Mode = iota
	ModeImages
)

// Batch is one merge request. Files, Dates, and Labels are parallel
// sequences; Dates and Labels may be nil. Output is the composite path.
type Batch struct {
	Files  []string
	Dates  []string
	Labels []string
	Output string
}

// Pipeline assembles merge batches.
type Pipeline struct {
	logger *slog.Logger
}

// New creates a merge pipeline.
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{logger: logger}
}

// DetectMode classifies the batch by file extension. Mixing PDFs and
// raster images in one batch is an error.
func DetectMode(files []string) (Mode, error) {
	if len(files) == 0 {
		return 0, errors.Validation("merge batch is empty")
	}
	pdfs, images := 0, 0
	for _, f := range files {
		switch strings.ToLower(filepath.Ext(f)) {
		case ".pdf":
			pdfs++
		case ".png", ".jpg", ".jpeg", ".gif":
			images++
		default:
			return 0, errors.Validationf("unsupported artifact type: %s", f)
		}
	}
	if pdfs > 0 && images > 0 {
		return 0, errors.Validation("cannot merge PDFs and images in one batch")
	}
	if pdfs > 0 {
		return ModePDF, nil
	}
	return ModeImages, nil
}

// Merge assembles the batch into b.Output in input order, then deletes the
// inputs. Page/frame order equals input order.
func (p *Pipeline) Merge(b Batch) error {
	mode, err := DetectMode(b.Files)
	if err != nil {
		return err
	}
	if b.Output == "" {
		return errors.Validation("merge output path is required")
	}
	if b.Dates != nil && len(b.Dates) != len(b.Files) {
		return errors.Validation("dates must parallel the input files")
	}
	if b.Labels != nil && len(b.Labels) != len(b.Files) {
		return errors.Validation("labels must parallel the input files")
	}

	switch mode {
	case ModePDF:
		err = p.mergePDFs(b)
	case ModeImages:
		err = p.mergeImages(b)
	}
	if err != nil {
		// Assembly failed: inputs are preserved.
		return err
	}

	p.cleanup(b.Files)
	return nil
}

// mergePDFs concatenates the input PDFs in order.
func (p *Pipeline) mergePDFs(b Batch) error {
	if err := api.MergeCreateFile(b.Files, b.Output, false, nil); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "merge %d PDFs into %s", len(b.Files), b.Output)
	}
	if pages, err := api.PageCountFile(b.Output); err == nil {
		p.logger.Info("merged PDFs", "output", b.Output, "inputs", len(b.Files), "pages", pages)
	}
	return nil
}

// cleanup deletes the input artifacts after a successful assembly. The
// merge is destructive of intermediates.
func (p *Pipeline) cleanup(files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			p.logger.Warn("could not remove merged input", "file", f, "error", err)
		}
	}
}
