package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/paperdock/paperdock/internal/config"
	"github.com/paperdock/paperdock/internal/export"
	"github.com/paperdock/paperdock/internal/id"
	"github.com/paperdock/paperdock/internal/logger"
	"github.com/paperdock/paperdock/internal/merge"
	"github.com/paperdock/paperdock/internal/paperless"
	"github.com/paperdock/paperdock/internal/ratelimit"
)

// flags holds every command-line option. Selection flags pick documents,
// mutation flags change them, export flags download artifacts.
type flags struct {
	// selection
	correspondent string
	docType       string
	tags          string
	titleLabels   string
	content       string
	created       string
	year          int
	anyTags       bool
	withContent   bool
	ids           string

	// listing
	listTags           bool
	listCorrespondents bool
	listDocTypes       bool

	// mutation
	setCorrespondent string
	setDocType       string
	addTags          string
	removeTags       string
	setTitle         string
	setCreated       string
	dryRun           bool

	// export
	doExport   bool
	thumbnails bool
	pattern    string
	output     string
	mergeDesc  string

	// configuration
	serverURL string
	token     string
	envFile   string
	logLevel  string
	jsonLogs  bool
	exportDir string
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.correspondent, "c", "", "filter by correspondent (ID or name)")
	flag.StringVar(&f.docType, "d", "", "filter by document type (ID or name)")
	flag.StringVar(&f.tags, "t", "", "filter by tags, comma separated (ID or name)")
	flag.StringVar(&f.titleLabels, "l", "", "filter by title substrings, comma separated")
	flag.StringVar(&f.content, "content", "", "full-text search terms, comma separated")
	flag.StringVar(&f.created, "date", "", "filter by created date: YYYY, YYYY-MM, or YYYY-MM-DD")
	flag.IntVar(&f.year, "y", 0, "filter by created year")
	flag.BoolVar(&f.anyTags, "any-tags", false, "match documents carrying any of the tags instead of all")
	flag.BoolVar(&f.withContent, "w", false, "materialize document text")
	flag.StringVar(&f.ids, "n", "", "select documents by ID, comma separated")

	flag.BoolVar(&f.listTags, "lt", false, "list all tags")
	flag.BoolVar(&f.listCorrespondents, "lc", false, "list all correspondents")
	flag.BoolVar(&f.listDocTypes, "ld", false, "list all document types")

	flag.StringVar(&f.setCorrespondent, "mc", "", "set correspondent on selected documents")
	flag.StringVar(&f.setDocType, "md", "", "set document type on selected documents")
	flag.StringVar(&f.addTags, "at", "", "add tags to selected documents, comma separated")
	flag.StringVar(&f.removeTags, "rt", "", "remove tags from selected documents, comma separated")
	flag.StringVar(&f.setTitle, "set-title", "", "set title on selected documents")
	flag.StringVar(&f.setCreated, "set-created", "", "set created date (YYYY-MM-DD) on selected documents")
	flag.BoolVar(&f.dryRun, "dry-run", false, "log mutations without applying them")

	flag.BoolVar(&f.doExport, "export", false, "download the selected documents")
	flag.BoolVar(&f.thumbnails, "thumb", false, "export thumbnails instead of archived PDFs")
	flag.StringVar(&f.pattern, "pattern", "", "filename pattern, e.g. \"[Bank]-ccc-YYYY-MM\"")
	flag.StringVar(&f.output, "o", "", "output filename (single document or merged artifact)")
	flag.StringVar(&f.mergeDesc, "m", "", "merge exported artifacts into one file, named after this description")

	flag.StringVar(&f.serverURL, "server-url", "", "document service API base URL")
	flag.StringVar(&f.token, "token", "", "API auth token")
	flag.StringVar(&f.envFile, "env-file", "", "path to .env file (default \".env\")")
	flag.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "emit JSON logs")
	flag.StringVar(&f.exportDir, "export-dir", "", "directory for exported artifacts")

	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	cfg, err := config.Load(config.Overrides{
		ServerURL: f.serverURL,
		Token:     f.token,
		LogLevel:  f.logLevel,
		JSONLogs:  f.jsonLogs,
		ExportDir: f.exportDir,
		EnvFile:   f.envFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "paperdock: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level: logger.ParseLevel(cfg.Logger.Level),
		JSON:  cfg.Logger.JSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, cfg, log); err != nil {
		log.Fatal("command failed", "error", err)
	}
}

func run(ctx context.Context, f flags, cfg *config.Config, log *logger.Logger) error {
	client := paperless.New(paperless.Options{
		BaseURL: cfg.BaseURL(),
		Token:   cfg.Server.Token,
		Limiter: ratelimit.New(cfg.Rate.RPS, cfg.Rate.Burst),
		Logger:  log.Logger,
		DryRun:  f.dryRun,
	})

	if f.listTags || f.listCorrespondents || f.listDocTypes {
		return listEntities(ctx, f, client)
	}

	reg, err := client.RefreshRegistry(ctx)
	if err != nil {
		return fmt.Errorf("refresh registry: %w", err)
	}

	docs, err := selectDocuments(ctx, f, client, reg)
	if err != nil {
		return err
	}
	if f.year > 0 {
		docs = filterByYear(docs, f.year, log)
	}
	if len(docs) == 0 {
		log.Info("no documents matched")
		return nil
	}

	docs, err = applyMutations(ctx, f, client, reg, docs)
	if err != nil {
		return err
	}

	if f.doExport || f.mergeDesc != "" {
		return exportDocuments(ctx, f, cfg, client, log, docs)
	}

	for _, doc := range docs {
		fmt.Println(doc.String())
		if f.withContent && doc.Content != "" {
			fmt.Println(doc.Content)
		}
	}
	log.Info("matched", "documents", len(docs))
	return nil
}

// listEntities refreshes and prints only the requested entity kinds.
func listEntities(ctx context.Context, f flags, client *paperless.Client) error {
	kinds := []struct {
		enabled bool
		kind    paperless.Kind
	}{
		{f.listTags, paperless.KindTag},
		{f.listCorrespondents, paperless.KindCorrespondent},
		{f.listDocTypes, paperless.KindDocType},
	}
	reg := paperless.NewRegistry()
	for _, k := range kinds {
		if !k.enabled {
			continue
		}
		if err := client.RefreshKind(ctx, reg, k.kind); err != nil {
			return fmt.Errorf("list %ss: %w", k.kind, err)
		}
		for _, e := range reg.All(k.kind) {
			fmt.Println(e.Display())
		}
	}
	return nil
}

// selectDocuments picks documents either by explicit ID or by search
// criteria. Explicit IDs win and preserve the given order.
func selectDocuments(ctx context.Context, f flags, client *paperless.Client, reg *paperless.Registry) ([]paperless.Document, error) {
	if f.ids != "" {
		ids, err := parseIDList(f.ids)
		if err != nil {
			return nil, err
		}
		return client.DocumentsByID(ctx, reg, ids, f.withContent)
	}

	s := paperless.Search{
		Tags:         paperless.ParseIdentifierList(f.tags),
		ContentTerms: f.content,
		Created:      f.created,
		TitleLabels:  f.titleLabels,
		AnyTag:       f.anyTags,
		WithContent:  f.withContent,
	}
	if f.correspondent != "" {
		ident := paperless.ParseIdentifier(f.correspondent)
		s.Correspondent = &ident
	}
	if f.docType != "" {
		ident := paperless.ParseIdentifier(f.docType)
		s.DocType = &ident
	}
	return client.SearchDocuments(ctx, reg, s)
}

// applyMutations runs the requested updates over every selected document,
// replacing each entry with its post-update state.
func applyMutations(ctx context.Context, f flags, client *paperless.Client, reg *paperless.Registry, docs []paperless.Document) ([]paperless.Document, error) {
	type mutation struct {
		active bool
		apply  func(docID int) (*paperless.Document, error)
	}
	mutations := []mutation{
		{f.setCorrespondent != "", func(docID int) (*paperless.Document, error) {
			return client.SetCorrespondent(ctx, reg, docID, paperless.ParseIdentifier(f.setCorrespondent))
		}},
		{f.setDocType != "", func(docID int) (*paperless.Document, error) {
			return client.SetDocType(ctx, reg, docID, paperless.ParseIdentifier(f.setDocType))
		}},
		{f.addTags != "", func(docID int) (*paperless.Document, error) {
			return client.AddTags(ctx, reg, docID, paperless.ParseIdentifierList(f.addTags))
		}},
		{f.removeTags != "", func(docID int) (*paperless.Document, error) {
			return client.RemoveTags(ctx, reg, docID, paperless.ParseIdentifierList(f.removeTags))
		}},
		{f.setTitle != "", func(docID int) (*paperless.Document, error) {
			return client.SetTitle(ctx, reg, docID, f.setTitle)
		}},
		{f.setCreated != "", func(docID int) (*paperless.Document, error) {
			return client.SetCreated(ctx, reg, docID, f.setCreated)
		}},
	}

	for i := range docs {
		for _, m := range mutations {
			if !m.active {
				continue
			}
			updated, err := m.apply(docs[i].ID)
			if err != nil {
				return nil, fmt.Errorf("update document %d: %w", docs[i].ID, err)
			}
			docs[i] = *updated
		}
	}
	return docs, nil
}

func exportDocuments(ctx context.Context, f flags, cfg *config.Config, client *paperless.Client, log *logger.Logger, docs []paperless.Document) error {
	if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	exp := export.New(export.Options{
		Client: client,
		Merger: merge.New(log.Logger),
		Logger: log.Logger,
		Dir:    cfg.Export.Dir,
	})

	manifest, err := exp.Export(ctx, export.Request{
		Docs:        docs,
		Thumbnails:  f.thumbnails,
		Pattern:     f.pattern,
		Output:      f.output,
		Merge:       f.mergeDesc != "",
		Description: f.mergeDesc,
		BatchID:     id.MustGenerate("batch"),
	})
	if err != nil {
		return err
	}

	if manifest.Output != "" {
		fmt.Println(manifest.Output)
	} else {
		for _, item := range manifest.Items {
			fmt.Println(item.File)
		}
	}
	log.Info("export complete", "batch", manifest.BatchID, "documents", len(manifest.Items))
	return nil
}

// filterByYear keeps documents whose best date falls in the given year and
// reports the ones it drops.
func filterByYear(docs []paperless.Document, year int, log *logger.Logger) []paperless.Document {
	want := strconv.Itoa(year)
	kept := docs[:0]
	for _, doc := range docs {
		date := export.BestDate(nil, doc)
		if strings.HasPrefix(date, want) {
			kept = append(kept, doc)
			continue
		}
		log.Info("skipping document outside year", "id", doc.ID, "date", date, "year", want)
	}
	return kept
}

func parseIDList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid document ID %q", p)
		}
		ids = append(ids, n)
	}
	return ids, nil
}
