package paperless

import (
	"fmt"
	"strings"
)

// monthNames maps a two-digit month number to its three-letter abbreviation.
var monthNames = map[string]string{
	"01": "Jan", "02": "Feb", "03": "Mar", "04": "Apr",
	"05": "May", "06": "Jun", "07": "Jul", "08": "Aug",
	"09": "Sep", "10": "Oct", "11": "Nov", "12": "Dec",
}

// MonthName returns the three-letter abbreviation for a two-digit month
// number, or the input unchanged when it is not a valid month.
func MonthName(month string) string {
	if name, ok := monthNames[month]; ok {
		return name
	}
	return month
}

// Document is a fully materialized document. Entity references are resolved
// against the registry when one is available; in degraded mode (no registry)
// only the raw IDs are populated. Documents are transient: they live for one
// result batch and are never persisted client-side.
type Document struct {
	ID    int
	Title string

	// Resolved entity references; nil / empty in degraded mode.
	Correspondent *Entity
	DocType       *Entity
	Tags          []Entity

	// Raw entity IDs as sent by the server, always populated.
	RawCorrespondent *int
	RawDocType       *int
	RawTags          []int

	// Created is the authoritative document date (ISO-8601).
	Created string
	// Added is the read-only ingestion timestamp.
	Added string

	ArchiveSerialNumber int
	OriginalFileName    string
	ArchivedFileName    string

	// Content is only populated when the query opted in; fetching it is
	// expensive server-side.
	Content string

	// Derived date components, consistent with Created at the moment of
	// last derivation. Re-derive after changing Created.
	Year      string
	Month     string
	Day       string
	MonthName string
}

// MaterializeDocument converts one raw record into a Document, resolving
// entity references against the registry when present.
func MaterializeDocument(rec DocumentRecord, reg *Registry, withContent bool) Document {
	doc := Document{
		ID:               rec.ID,
		Title:            rec.Title,
		RawCorrespondent: rec.Correspondent,
		RawDocType:       rec.DocumentType,
		RawTags:          rec.Tags,
		Created:          rec.Created,
		Added:            rec.Added,
		OriginalFileName: rec.OriginalFileName,
		ArchivedFileName: rec.ArchivedFileName,
	}
	if rec.ArchiveSerialNumber != nil {
		doc.ArchiveSerialNumber = *rec.ArchiveSerialNumber
	}
	if withContent {
		doc.Content = rec.Content
	}

	if reg != nil {
		if rec.Correspondent != nil {
			if e, ok := reg.Lookup(KindCorrespondent, *rec.Correspondent); ok {
				doc.Correspondent = &e
			}
		}
		if rec.DocumentType != nil {
			if e, ok := reg.Lookup(KindDocType, *rec.DocumentType); ok {
				doc.DocType = &e
			}
		}
		for _, tagID := range rec.Tags {
			if e, ok := reg.Lookup(KindTag, tagID); ok {
				doc.Tags = append(doc.Tags, e)
			}
		}
	}

	doc.DeriveDates()
	return doc
}

// DeriveDates recomputes the year/month/day components from the first ten
// characters of Created (YYYY-MM-DD). Call again after mutating Created.
func (d *Document) DeriveDates() {
	d.Year, d.Month, d.Day, d.MonthName = "", "", "", ""
	if len(d.Created) < 10 {
		return
	}
	date := d.Created[:10]
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return
	}
	d.Year, d.Month, d.Day = parts[0], parts[1], parts[2]
	d.MonthName = MonthName(d.Month)
}

// CorrespondentName returns the resolved correspondent name, or "".
func (d *Document) CorrespondentName() string {
	if d.Correspondent == nil {
		return ""
	}
	return d.Correspondent.Name
}

// DocTypeName returns the resolved document type name, or "".
func (d *Document) DocTypeName() string {
	if d.DocType == nil {
		return ""
	}
	return d.DocType.Name
}

// TagNames returns the resolved tag names in document order.
func (d *Document) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		names = append(names, t.Name)
	}
	return names
}

func (d *Document) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %d '%s'\n", d.ID, d.Title)
	fmt.Fprintf(&b, "  correspondent: %s  type: %s\n", d.CorrespondentName(), d.DocTypeName())
	fmt.Fprintf(&b, "  created: %s  added: %s\n", d.Created, d.Added)
	fmt.Fprintf(&b, "  tags: %s\n", strings.Join(d.TagNames(), ","))
	fmt.Fprintf(&b, "  serial no: %d\n", d.ArchiveSerialNumber)
	fmt.Fprintf(&b, "  original filename: %s\n", d.OriginalFileName)
	fmt.Fprintf(&b, "  archived filename: %s", d.ArchivedFileName)
	return b.String()
}

// hasTag reports whether the document carries the identified tag. Numeric
// identifiers match resolved or raw tag IDs; named identifiers match the
// resolved tag name exactly.
func (d *Document) hasTag(ident Identifier) bool {
	if ident.numeric {
		for _, id := range d.RawTags {
			if id == ident.id {
				return true
			}
		}
		return false
	}
	for _, t := range d.Tags {
		if t.Name == ident.name {
			return true
		}
	}
	return false
}

// HasTags reports whether the document carries every identified tag.
func (d *Document) HasTags(idents []Identifier) bool {
	for _, ident := range idents {
		if !d.hasTag(ident) {
			return false
		}
	}
	return true
}

// HasAnyTags reports whether the document carries at least one of the
// identified tags.
func (d *Document) HasAnyTags(idents []Identifier) bool {
	for _, ident := range idents {
		if d.hasTag(ident) {
			return true
		}
	}
	return false
}

// HasTitleLabels reports whether every comma-separated label appears in the
// title, case-insensitively.
func (d *Document) HasTitleLabels(labels string) bool {
	title := strings.ToLower(d.Title)
	for _, label := range strings.Split(labels, ",") {
		if !strings.Contains(title, strings.ToLower(label)) {
			return false
		}
	}
	return true
}
