package paperless

import (
	"context"

	"github.com/paperdock/paperdock/internal/errors"
)

// Mutation helpers. Each resolves names against the registry, builds a
// partial patch, and returns the materialized document after the update.
// Resolution failures are reported to the caller; nothing is patched.

// SetCorrespondent assigns a correspondent to a document.
func (c *Client) SetCorrespondent(ctx context.Context, reg *Registry, docID int, ident Identifier) (*Document, error) {
	id, err := reg.Resolve(KindCorrespondent, ident)
	if err != nil {
		return nil, err
	}
	return c.patchAndMaterialize(ctx, reg, docID, DocumentPatch{Correspondent: &id})
}

// SetDocType assigns a document type to a document.
func (c *Client) SetDocType(ctx context.Context, reg *Registry, docID int, ident Identifier) (*Document, error) {
	id, err := reg.Resolve(KindDocType, ident)
	if err != nil {
		return nil, err
	}
	return c.patchAndMaterialize(ctx, reg, docID, DocumentPatch{DocumentType: &id})
}

// SetTitle replaces a document's title.
func (c *Client) SetTitle(ctx context.Context, reg *Registry, docID int, title string) (*Document, error) {
	return c.patchAndMaterialize(ctx, reg, docID, DocumentPatch{Title: &title})
}

// SetCreated replaces a document's created date (ISO-8601). The returned
// document carries freshly derived date components.
func (c *Client) SetCreated(ctx context.Context, reg *Registry, docID int, created string) (*Document, error) {
	return c.patchAndMaterialize(ctx, reg, docID, DocumentPatch{Created: &created})
}

// AddTags attaches the identified tags to a document, preserving its
// existing tags. Tags already present are reported and left alone; if every
// requested tag is already attached the call is a no-op.
func (c *Client) AddTags(ctx context.Context, reg *Registry, docID int, idents []Identifier) (*Document, error) {
	doc, err := c.DocumentByID(ctx, reg, docID, false)
	if err != nil {
		return nil, err
	}

	tagIDs := append([]int{}, doc.RawTags...)
	added := 0
	for _, ident := range idents {
		id, err := reg.Resolve(KindTag, ident)
		if err != nil {
			return nil, err
		}
		if containsInt(tagIDs, id) {
			c.logger.Warn("document already has tag", "id", docID, "tag", ident.String())
			continue
		}
		tagIDs = append(tagIDs, id)
		added++
	}
	if added == 0 {
		return doc, nil
	}
	return c.patchAndMaterialize(ctx, reg, docID, DocumentPatch{Tags: &tagIDs})
}

// RemoveTags detaches the identified tags from a document. Removing a tag
// the document does not carry is a no-op for that tag.
func (c *Client) RemoveTags(ctx context.Context, reg *Registry, docID int, idents []Identifier) (*Document, error) {
	doc, err := c.DocumentByID(ctx, reg, docID, false)
	if err != nil {
		return nil, err
	}

	drop := make(map[int]bool, len(idents))
	for _, ident := range idents {
		id, err := reg.Resolve(KindTag, ident)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				c.logger.Warn("unknown tag, skipping", "tag", ident.String(), "error", err)
				continue
			}
			return nil, err
		}
		drop[id] = true
	}

	kept := make([]int, 0, len(doc.RawTags))
	for _, id := range doc.RawTags {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(doc.RawTags) {
		return doc, nil
	}
	return c.patchAndMaterialize(ctx, reg, docID, DocumentPatch{Tags: &kept})
}

func (c *Client) patchAndMaterialize(ctx context.Context, reg *Registry, docID int, patch DocumentPatch) (*Document, error) {
	rec, err := c.UpdateDocument(ctx, docID, patch)
	if err != nil {
		return nil, err
	}
	doc := MaterializeDocument(*rec, reg, false)
	return &doc, nil
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
