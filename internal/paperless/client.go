// Package paperless implements the client engine for a paperless-ngx style
// document management service: entity registry resolution, composed and
// paginated queries, document materialization, client-side secondary
// filtering, artifact download, and partial document updates.
package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/paperdock/paperdock/internal/errors"
	"github.com/paperdock/paperdock/internal/ratelimit"
)

// Client talks to the remote document service. All calls are synchronous
// and sequential; the client imposes no timeouts of its own and relies on
// the transport's defaults. One client serves one session.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *ratelimit.Limiter
	logger  *slog.Logger

	// DryRun short-circuits every mutation before the PATCH call and
	// returns the unmodified document instead.
	DryRun bool
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API base, with or without a trailing slash.
	BaseURL string
	// Token is attached to every request as "Authorization: Token <v>".
	Token string
	// HTTPClient overrides the transport; defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Limiter optionally paces outbound requests.
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
	DryRun  bool
}

// New creates a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{
		baseURL: base,
		token:   opts.Token,
		http:    httpClient,
		limiter: opts.Limiter,
		logger:  logger,
		DryRun:  opts.DryRun,
	}
}

// endpointURL joins an endpoint path onto the base URL, appending the
// trailing slash the server insists on for bare resource paths.
func (c *Client) endpointURL(endpoint string) string {
	if !strings.HasSuffix(endpoint, "/") && !strings.Contains(endpoint, "?") {
		endpoint += "/"
	}
	return c.baseURL + endpoint
}

// get performs one authorized GET against a fully formed URL.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	c.logger.Debug("get", "url", url)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// getJSON performs a GET and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.RemoteRequestf("get %s failed with status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// getPages follows the "next" cursor from the first page until the server
// signals no further pages, concatenating results in server order. A failed
// page truncates pagination: the accumulated partial result is returned
// with a warning rather than a hard failure.
func (c *Client) getPages(ctx context.Context, endpoint string) []json.RawMessage {
	var results []json.RawMessage
	url := c.endpointURL(endpoint)
	for {
		var pg page
		if err := c.getJSON(ctx, url, &pg); err != nil {
			c.logger.Warn("page fetch failed, returning partial results",
				"url", url,
				"fetched", len(results),
				"error", err,
			)
			return results
		}
		results = append(results, pg.Results...)
		if pg.Next == nil {
			return results
		}
		url = *pg.Next
	}
}

// Entities fetches the complete entity set of one kind.
func (c *Client) Entities(ctx context.Context, kind Kind) ([]Entity, error) {
	raws := c.getPages(ctx, kind.Endpoint())
	entities := make([]Entity, 0, len(raws))
	for _, raw := range raws {
		var rec EntityRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", kind, err)
		}
		entities = append(entities, rec.toEntity(kind))
	}
	return entities, nil
}

// RefreshKind fetches all entities of a kind and swaps them into the
// registry atomically: the set is only replaced once fully decoded.
func (c *Client) RefreshKind(ctx context.Context, reg *Registry, kind Kind) error {
	entities, err := c.Entities(ctx, kind)
	if err != nil {
		return err
	}
	reg.Replace(kind, entities)
	c.logger.Debug("registry refreshed", "kind", kind.String(), "count", len(entities))
	return nil
}

// RefreshRegistry builds a fresh registry holding all three entity kinds.
func (c *Client) RefreshRegistry(ctx context.Context) (*Registry, error) {
	reg := NewRegistry()
	for _, kind := range Kinds() {
		if err := c.RefreshKind(ctx, reg, kind); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Search describes one compound document query: server-side criteria plus
// the secondary filters applied after materialization.
type Search struct {
	Correspondent *Identifier
	DocType       *Identifier
	Tags          []Identifier
	// ContentTerms holds comma-separated full-text terms.
	ContentTerms string
	// Created is a partial date (year, year-month, or full date).
	Created string
	// TitleLabels holds comma-separated title substrings (AND).
	TitleLabels string
	// AnyTag switches the tag secondary filter from AND to OR.
	AnyTag bool
	// WithContent opts in to materializing document text.
	WithContent bool
}

// resolveCriterion resolves an identifier, logging and dropping the
// criterion on failure rather than failing the whole query.
func (c *Client) resolveCriterion(reg *Registry, kind Kind, ident Identifier) (int, bool) {
	id, err := reg.Resolve(kind, ident)
	if err != nil {
		c.logger.Warn("could not resolve filter criterion, omitting it",
			"kind", kind.String(),
			"value", ident.String(),
			"error", err,
		)
		return 0, false
	}
	return id, true
}

// SearchDocuments composes a query from the search criteria, fetches every
// page, materializes the records against the registry, and applies the
// secondary filters. Server order is preserved.
func (c *Client) SearchDocuments(ctx context.Context, reg *Registry, s Search) ([]Document, error) {
	q := NewQuery()
	if s.ContentTerms != "" {
		q.ContentTerms(s.ContentTerms)
	}
	if s.Correspondent != nil {
		if id, ok := c.resolveCriterion(reg, KindCorrespondent, *s.Correspondent); ok {
			q.Correspondent(id)
		}
	}
	if s.DocType != nil {
		if id, ok := c.resolveCriterion(reg, KindDocType, *s.DocType); ok {
			q.DocType(id)
		}
	}
	for _, tag := range s.Tags {
		if id, ok := c.resolveCriterion(reg, KindTag, tag); ok {
			q.Tag(id)
		}
	}
	if s.Created != "" {
		q.Created(s.Created)
	}

	raws := c.getPages(ctx, "documents/"+q.Encode())
	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		var rec DocumentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode document record: %w", err)
		}
		docs = append(docs, MaterializeDocument(rec, reg, s.WithContent))
	}

	filter := SecondaryFilter{TitleLabels: s.TitleLabels, Tags: s.Tags, AnyTag: s.AnyTag}
	return filter.Apply(docs), nil
}

// DocumentByID fetches a single document resource.
func (c *Client) DocumentByID(ctx context.Context, reg *Registry, id int, withContent bool) (*Document, error) {
	var rec DocumentRecord
	if err := c.getJSON(ctx, c.endpointURL(fmt.Sprintf("documents/%d", id)), &rec); err != nil {
		return nil, err
	}
	doc := MaterializeDocument(rec, reg, withContent)
	return &doc, nil
}

// DocumentsByID fetches documents one by one, preserving the caller's ID
// order (not the server's). A missing document is logged and skipped.
func (c *Client) DocumentsByID(ctx context.Context, reg *Registry, ids []int, withContent bool) ([]Document, error) {
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := c.DocumentByID(ctx, reg, id, withContent)
		if err != nil {
			if errors.Is(err, errors.ErrRemoteRequest) {
				c.logger.Warn("document fetch failed, skipping", "id", id, "error", err)
				continue
			}
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// download streams a binary artifact to path. The file handle is released
// on every exit path; a failed download removes the partial file.
func (c *Client) download(ctx context.Context, endpoint, path string) error {
	resp, err := c.get(ctx, c.endpointURL(endpoint))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.RemoteRequestf("download %s failed with status %d", endpoint, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// DownloadDocument saves a document's archived PDF to path.
func (c *Client) DownloadDocument(ctx context.Context, id int, path string) error {
	return c.download(ctx, fmt.Sprintf("documents/%d/download/", id), path)
}

// DownloadThumbnail saves a document's thumbnail PNG to path.
func (c *Client) DownloadThumbnail(ctx context.Context, id int, path string) error {
	return c.download(ctx, fmt.Sprintf("documents/%d/thumb/", id), path)
}

// UpdateDocument applies a partial update to one document resource. In
// dry-run mode the PATCH is skipped and the current, unmodified record is
// returned. A failed PATCH returns no record; the caller must treat the
// mutation as not applied.
func (c *Client) UpdateDocument(ctx context.Context, id int, patch DocumentPatch) (*DocumentRecord, error) {
	endpoint := c.endpointURL(fmt.Sprintf("documents/%d", id))
	if c.DryRun || patch.isZero() {
		var rec DocumentRecord
		if err := c.getJSON(ctx, endpoint, &rec); err != nil {
			return nil, err
		}
		if c.DryRun {
			c.logger.Info("dry run: skipping update", "id", id)
		}
		return &rec, nil
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	c.logger.Debug("patch", "url", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.RemoteRequestf("patch %s failed with status %d", endpoint, resp.StatusCode)
	}
	var rec DocumentRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &rec, nil
}
