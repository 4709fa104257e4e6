// Package export orchestrates batch artifact export: per-document download,
// pattern-driven naming with collision avoidance, preview hashes for
// thumbnails, and the optional merge hand-off.
package export

import (
	"context"
	"fmt"
	"image"
	"io"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bbrks/go-blurhash"

	"github.com/paperdock/paperdock/internal/merge"
	"github.com/paperdock/paperdock/internal/paperless"
	"github.com/paperdock/paperdock/internal/pattern"
	"github.com/paperdock/paperdock/internal/util"
)

// Downloader is the slice of the client the exporter needs.
type Downloader interface {
	DownloadDocument(ctx context.Context, id int, path string) error
	DownloadThumbnail(ctx context.Context, id int, path string) error
}

// Merger assembles a batch into one composite artifact.
type Merger interface {
	Merge(b merge.Batch) error
}

// DateOracle estimates the best representative date inside document text.
// The natural-language implementation lives outside this module; a nil
// oracle falls back to the document's created date.
type DateOracle interface {
	BestDate(text string) (date string, hits int)
}

// Exporter downloads and names a batch of document artifacts.
type Exporter struct {
	client Downloader
	merger Merger
	oracle DateOracle
	logger *slog.Logger
	dir    string
}

// Options configures an Exporter.
type Options struct {
	Client Downloader
	Merger Merger
	// Oracle may be nil; the created date is used instead.
	Oracle DateOracle
	Logger *slog.Logger
	// Dir is the directory artifacts are written into.
	Dir string
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{
		client: opts.Client,
		merger: opts.Merger,
		oracle: opts.Oracle,
		logger: logger,
		dir:    opts.Dir,
	}
}

// Request is one export batch.
type Request struct {
	Docs []paperless.Document
	// Thumbnails exports thumbnail PNGs instead of archived PDFs.
	Thumbnails bool
	// Pattern optionally names files from document metadata (see the
	// pattern package); otherwise the document title is used.
	Pattern string
	// Output overrides the filename when exporting a single document, or
	// the composite filename when merging.
	Output string
	// Merge combines the batch into one composite artifact and removes
	// the per-document intermediates.
	Merge bool
	// Description feeds the default merged filename slug.
	Description string
	// BatchID tags the manifest; generated IDs come from internal/id.
	BatchID string
}

// Item records one exported artifact.
type Item struct {
	DocID    int
	Title    string
	File     string
	Date     string
	BlurHash string
}

// Manifest summarizes a completed export batch.
type Manifest struct {
	BatchID string
	// Output is the composite path when the batch was merged.
	Output string
	Items  []Item
}

// Export downloads every document artifact, assigns batch-unique names,
// and optionally merges the batch. Names are reserved before any download
// so collisions are resolved without touching the filesystem.
func (e *Exporter) Export(ctx context.Context, req Request) (*Manifest, error) {
	if len(req.Docs) == 0 {
		return &Manifest{BatchID: req.BatchID}, nil
	}

	ext := ".pdf"
	if req.Thumbnails {
		ext = ".png"
	}

	var prog *pattern.Program
	if req.Pattern != "" {
		prog = pattern.Compile(req.Pattern)
	}

	namer := pattern.NewNamer()
	manifest := &Manifest{BatchID: req.BatchID}
	var files, dates, labels []string

	for _, doc := range req.Docs {
		name := e.candidateName(doc, prog, req, ext)
		name = namer.Unique(name)
		path := filepath.Join(e.dir, name)

		var err error
		if req.Thumbnails {
			err = e.client.DownloadThumbnail(ctx, doc.ID, path)
		} else {
			err = e.client.DownloadDocument(ctx, doc.ID, path)
		}
		if err != nil {
			return nil, fmt.Errorf("export document %d: %w", doc.ID, err)
		}

		item := Item{
			DocID: doc.ID,
			Title: doc.Title,
			File:  path,
			Date:  e.bestDate(doc),
		}
		if req.Thumbnails {
			if hash, err := hashThumbnail(path); err == nil {
				item.BlurHash = hash
			} else {
				e.logger.Warn("could not hash thumbnail", "file", path, "error", err)
			}
		}
		manifest.Items = append(manifest.Items, item)
		files = append(files, path)
		dates = append(dates, item.Date)
		labels = append(labels, doc.Title)
		e.logger.Info("exported", "id", doc.ID, "file", path)
	}

	if req.Merge && e.merger != nil {
		output := e.mergeOutput(req, ext)
		if err := e.merger.Merge(merge.Batch{
			Files:  files,
			Dates:  dates,
			Labels: labels,
			Output: output,
		}); err != nil {
			return nil, err
		}
		manifest.Output = output
	}

	return manifest, nil
}

// candidateName picks the pre-collision filename for one document.
func (e *Exporter) candidateName(doc paperless.Document, prog *pattern.Program, req Request, ext string) string {
	if req.Output != "" && len(req.Docs) == 1 && !req.Merge {
		return req.Output
	}
	if prog != nil {
		if rendered := prog.Render(fieldsFor(doc)); rendered != "" {
			return rendered + ext
		}
	}
	return doc.Title + ext
}

// mergeOutput derives the composite filename: the caller's override, or
// "Docs-<slug>" from the batch description.
func (e *Exporter) mergeOutput(req Request, ext string) string {
	if req.Merge && req.Output != "" {
		return filepath.Join(e.dir, req.Output)
	}
	if ext == ".png" {
		// Image batches assemble into a multi-frame GIF.
		ext = ".gif"
	}
	slug := util.Slugify(req.Description)
	if slug == "" {
		slug = req.BatchID
	}
	return filepath.Join(e.dir, "Docs-"+slug+ext)
}

// bestDate consults the oracle when document text is available, falling
// back to the created date's YYYY-MM-DD prefix.
func (e *Exporter) bestDate(doc paperless.Document) string {
	return BestDate(e.oracle, doc)
}

// BestDate returns the most representative date for a document: the
// oracle's estimate when it scored at least one hit in the document text,
// otherwise the created date's YYYY-MM-DD prefix. A nil oracle always
// falls back.
func BestDate(oracle DateOracle, doc paperless.Document) string {
	if oracle != nil && doc.Content != "" {
		if date, hits := oracle.BestDate(doc.Content); hits > 0 && date != "" {
			return date
		}
	}
	if len(doc.Created) >= 10 {
		return doc.Created[:10]
	}
	return doc.Created
}

// hashThumbnail computes a compact placeholder hash for a downloaded
// thumbnail. 4x3 components keep the hash short while preserving the
// rough page layout.
func hashThumbnail(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open thumbnail: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode thumbnail: %w", err)
	}
	return blurhash.Encode(4, 3, img)
}

// fieldsFor adapts a document to the pattern renderer's field set.
func fieldsFor(doc paperless.Document) pattern.Fields {
	return pattern.Fields{
		Year:          doc.Year,
		Month:         doc.Month,
		MonthName:     doc.MonthName,
		Day:           doc.Day,
		Correspondent: doc.CorrespondentName(),
		DocType:       doc.DocTypeName(),
		Tags:          doc.TagNames(),
	}
}
