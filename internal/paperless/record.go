package paperless

import "encoding/json"

// page is the envelope returned by the server's paginated list endpoints.
// Next is an opaque full URL, or null on the last page.
type page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// EntityRecord is the wire shape of a tag, correspondent, or document type.
type EntityRecord struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	DocumentCount int    `json:"document_count"`
}

// toEntity converts a wire record into an Entity of the given kind.
func (r EntityRecord) toEntity(kind Kind) Entity {
	return Entity{
		ID:            r.ID,
		Name:          r.Name,
		Slug:          r.Slug,
		DocumentCount: r.DocumentCount,
		Kind:          kind,
	}
}

// DocumentRecord is the wire shape of a document resource. Correspondent
// and document type are nullable references; tags is a list of entity IDs.
// Content is only present when the query opted in.
type DocumentRecord struct {
	ID                  int    `json:"id"`
	Title               string `json:"title"`
	Correspondent       *int   `json:"correspondent"`
	DocumentType        *int   `json:"document_type"`
	Tags                []int  `json:"tags"`
	Created             string `json:"created"`
	Added               string `json:"added"`
	ArchiveSerialNumber *int   `json:"archive_serial_number"`
	OriginalFileName    string `json:"original_file_name"`
	ArchivedFileName    string `json:"archived_file_name"`
	Content             string `json:"content,omitempty"`
}

// DocumentPatch is a partial update body for PATCH to a document resource.
// Nil fields are omitted and left unchanged server-side.
type DocumentPatch struct {
	Correspondent *int `json:"correspondent,omitempty"`
	DocumentType  *int `json:"document_type,omitempty"`
	// Tags replaces the full tag list; a pointer so an empty replacement
	// (detach everything) still serializes.
	Tags    *[]int  `json:"tags,omitempty"`
	Created *string `json:"created,omitempty"`
	Title   *string `json:"title,omitempty"`
}

// isZero reports whether the patch would change nothing.
func (p DocumentPatch) isZero() bool {
	return p.Correspondent == nil && p.DocumentType == nil && p.Tags == nil &&
		p.Created == nil && p.Title == nil
}
