package paperless

// SecondaryFilter drops documents the remote query language cannot exclude.
// It runs after materialization; surviving documents keep their order.
type SecondaryFilter struct {
	// TitleLabels holds comma-separated substrings that must all appear in
	// the title (case-insensitive AND).
	TitleLabels string
	// Tags must all be present on the document (AND), unless AnyTag is set,
	// in which case one match suffices (OR). The two modes are mutually
	// exclusive in practice.
	Tags   []Identifier
	AnyTag bool
}

// Active reports whether any secondary criterion is set.
func (f SecondaryFilter) Active() bool {
	return f.TitleLabels != "" || len(f.Tags) > 0
}

// Apply returns the documents passing every active criterion, in order.
func (f SecondaryFilter) Apply(docs []Document) []Document {
	if !f.Active() {
		return docs
	}
	kept := make([]Document, 0, len(docs))
	for _, d := range docs {
		if f.TitleLabels != "" && !d.HasTitleLabels(f.TitleLabels) {
			continue
		}
		if len(f.Tags) > 0 {
			if f.AnyTag {
				if !d.HasAnyTags(f.Tags) {
					continue
				}
			} else if !d.HasTags(f.Tags) {
				continue
			}
		}
		kept = append(kept, d)
	}
	return kept
}
